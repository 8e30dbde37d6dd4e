package tools

import (
	"encoding/json"

	"github.com/golovatskygroup/mcp-elastic/pkg/mcp"
)

// Tool names.
const (
	ToolListIndices         = "list_indices"
	ToolListIndicesDetailed = "list_indices_detailed"
	ToolGetMappings         = "get_mappings"
	ToolSearch              = "search"
	ToolESQL                = "esql"
	ToolGetShards           = "get_shards"
	ToolGetClusterHealth    = "get_cluster_health"
	ToolGetNodesInfo        = "get_nodes_info"
	ToolGetTemplates        = "get_templates"
)

func readOnly(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{Title: title, ReadOnlyHint: true}
}

// Definitions returns the tools served by the Handler, in listing order.
func Definitions() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        ToolListIndices,
			Description: "List all available Elasticsearch indices",
			Annotations: readOnly("List ES indices"),
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"index_pattern": {"type": "string", "description": "Index pattern of Elasticsearch indices to list"}
				},
				"required": ["index_pattern"]
			}`),
		},
		{
			Name:        ToolListIndicesDetailed,
			Description: "List Elasticsearch indices with detailed health and size information",
			Annotations: readOnly("List indices (detailed)"),
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"index_pattern": {"type": "string", "description": "Index pattern of Elasticsearch indices to list (default: *)", "default": "*"},
					"health": {"type": "string", "description": "Filter by health status (green, yellow, red)"},
					"sort_by": {"type": "string", "description": "Sort by field (docs.count, store.size)"}
				}
			}`),
		},
		{
			Name:        ToolGetMappings,
			Description: "Get field mappings for a specific Elasticsearch index",
			Annotations: readOnly("Get ES index mappings"),
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"index": {"type": "string", "description": "Name of the Elasticsearch index to get mappings for"}
				},
				"required": ["index"]
			}`),
		},
		{
			Name:        ToolSearch,
			Description: "Perform an Elasticsearch search with the provided query DSL. The number of hits is capped and large responses are truncated; use 'fields' or '_source' to keep results small.",
			Annotations: readOnly("Elasticsearch search DSL query"),
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"index": {"type": "string", "description": "Name of the Elasticsearch index to search"},
					"fields": {"type": "array", "items": {"type": "string"}, "description": "Name of the fields that need to be returned (optional)"},
					"query_body": {"type": ["object", "string"], "description": "Complete Elasticsearch query DSL object that can include query, size, from, sort, etc."}
				},
				"required": ["index", "query_body"]
			}`),
		},
		{
			Name:        ToolESQL,
			Description: "Perform an Elasticsearch ES|QL query.",
			Annotations: readOnly("Elasticsearch ES|QL query"),
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Complete Elasticsearch ES|QL query"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        ToolGetShards,
			Description: "Get shard information for all or specific indices.",
			Annotations: readOnly("Get ES shard information"),
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"index": {"type": "string", "description": "Optional index name to get shard information for"}
				}
			}`),
		},
		{
			Name:        ToolGetClusterHealth,
			Description: "Get Elasticsearch cluster health status",
			Annotations: readOnly("Get cluster health"),
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"wait_for_status": {"type": "string", "description": "Optional status to wait for (green, yellow, red)"},
					"timeout": {"type": "string", "description": "Optional timeout as a time value, e.g. 30s, 1m or 1d"}
				}
			}`),
		},
		{
			Name:        ToolGetNodesInfo,
			Description: "Get detailed information about Elasticsearch cluster nodes",
			Annotations: readOnly("Get nodes info"),
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"node_id": {"type": "string", "description": "Optional node ID to filter (default: _all)"},
					"metrics": {"type": "string", "description": "Optional metrics to return (heap, cpu, load, etc.)"}
				}
			}`),
		},
		{
			Name:        ToolGetTemplates,
			Description: "Get index templates. When 'index' is given, only the templates whose patterns match it are returned, highest priority first.",
			Annotations: readOnly("Get index templates"),
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Optional template name or wildcard pattern"},
					"index": {"type": "string", "description": "Optional index name; resolve which templates apply to it"}
				}
			}`),
		},
	}
}
