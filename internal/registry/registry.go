// Package registry is the tool catalog served by tools/list, with keyword search and
// "did you mean" suggestions for unknown tool names.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/golovatskygroup/mcp-elastic/pkg/mcp"
)

// Category represents a group of related tools
type Category struct {
	Name        string
	Description string
	Keywords    []string
	Tools       []string
}

// Registry holds the tool definitions in registration order
type Registry struct {
	mu         sync.RWMutex
	order      []string
	tools      map[string]mcp.Tool
	summaries  map[string]mcp.ToolSummary
	categories []Category
}

// New creates a registry holding tools.
func New(tools []mcp.Tool) *Registry {
	r := &Registry{
		tools:      make(map[string]mcp.Tool),
		summaries:  make(map[string]mcp.ToolSummary),
		categories: defaultCategories(),
	}
	r.Load(tools)
	return r
}

// Load adds or replaces tools. New names are appended to the listing order.
func (r *Registry) Load(tools []mcp.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range tools {
		if _, exists := r.tools[tool.Name]; !exists {
			r.order = append(r.order, tool.Name)
		}
		r.tools[tool.Name] = tool
		r.summaries[tool.Name] = mcp.ToolSummary{
			Name:        tool.Name,
			Description: truncateDescription(tool.Description, 100),
			Category:    r.findCategory(tool.Name),
		}
	}
}

// List returns every tool in registration order.
func (r *Registry) List() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Get returns a tool by name
func (r *Registry) Get(name string) (mcp.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Len returns the number of tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Categories returns the tool categories.
func (r *Registry) Categories() []Category {
	return r.categories
}

// Search finds tools matching query, best first. An empty category searches all tools.
func (r *Registry) Search(query string, category string, limit int) []mcp.ToolSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	names := r.order
	if category != "" {
		names = nil
		for _, cat := range r.categories {
			if strings.EqualFold(cat.Name, category) {
				names = cat.Tools
				break
			}
		}
	}

	type scored struct {
		summary mcp.ToolSummary
		score   int
	}
	var results []scored
	for _, name := range names {
		summary, ok := r.summaries[name]
		if !ok {
			continue
		}

		score := 0
		nameLower := strings.ToLower(name)
		if strings.Contains(nameLower, query) {
			score += 100
		}
		if fuzzy.Match(query, nameLower) {
			score += 50
		}
		if strings.Contains(strings.ToLower(summary.Description), query) {
			score += 30
		}
		for _, cat := range r.categories {
			if cat.Name != summary.Category {
				continue
			}
			for _, kw := range cat.Keywords {
				if strings.Contains(query, strings.ToLower(kw)) {
					score += 20
				}
			}
		}

		if score > 0 {
			results = append(results, scored{summary, score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	out := make([]mcp.ToolSummary, 0, limit)
	for i := 0; i < len(results) && i < limit; i++ {
		out = append(out, results[i].summary)
	}
	return out
}

// Suggest returns tools whose names are close to name: fuzzy name matches first, ranked
// by edit distance, then keyword matches.
func (r *Registry) Suggest(name string, limit int) []mcp.ToolSummary {
	if limit <= 0 {
		limit = 3
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	r.mu.RLock()
	ranks := fuzzy.RankFindNormalizedFold(name, r.order)
	ranks = append(ranks, fuzzy.RankFindNormalizedFold(strings.ReplaceAll(name, "-", "_"), r.order)...)
	r.mu.RUnlock()
	sort.Stable(ranks)

	seen := make(map[string]bool)
	var out []mcp.ToolSummary
	add := func(s mcp.ToolSummary) {
		if len(out) < limit && !seen[s.Name] {
			seen[s.Name] = true
			out = append(out, s)
		}
	}

	r.mu.RLock()
	for _, rank := range ranks {
		add(r.summaries[rank.Target])
	}
	r.mu.RUnlock()

	for _, word := range strings.FieldsFunc(name, func(c rune) bool { return c == '_' || c == '-' || c == ' ' }) {
		if len(word) < 3 {
			continue
		}
		for _, s := range r.Search(word, "", limit) {
			add(s)
		}
	}
	return out
}

func (r *Registry) findCategory(toolName string) string {
	for _, cat := range r.categories {
		for _, t := range cat.Tools {
			if t == toolName {
				return cat.Name
			}
		}
	}
	return "other"
}

func truncateDescription(desc string, maxLen int) string {
	if len(desc) <= maxLen {
		return desc
	}
	return desc[:maxLen-3] + "..."
}

func defaultCategories() []Category {
	return []Category{
		{
			Name:        "indices",
			Description: "Index listing, mappings and shard layout",
			Keywords:    []string{"index", "indices", "mapping", "field", "shard"},
			Tools:       []string{"list_indices", "list_indices_detailed", "get_mappings", "get_shards"},
		},
		{
			Name:        "search",
			Description: "Query DSL search and ES|QL",
			Keywords:    []string{"search", "query", "find", "esql", "aggregation"},
			Tools:       []string{"search", "esql"},
		},
		{
			Name:        "cluster",
			Description: "Cluster health and node information",
			Keywords:    []string{"cluster", "health", "node", "status"},
			Tools:       []string{"get_cluster_health", "get_nodes_info"},
		},
		{
			Name:        "templates",
			Description: "Index templates",
			Keywords:    []string{"template", "pattern"},
			Tools:       []string{"get_templates"},
		},
	}
}
