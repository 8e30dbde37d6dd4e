package templates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Template is a legacy index template as returned by GET _template.
// Settings, mappings and aliases are passed through untouched.
type Template struct {
	IndexPatterns Patterns        `json:"index_patterns"`
	Order         *int            `json:"order,omitempty"`
	Version       *int            `json:"version,omitempty"`
	Settings      json.RawMessage `json:"settings,omitempty"`
	Mappings      json.RawMessage `json:"mappings,omitempty"`
	Aliases       json.RawMessage `json:"aliases,omitempty"`
}

// Priority is the declared order, 0 when absent.
func (t Template) Priority() int {
	if t.Order == nil {
		return 0
	}
	return *t.Order
}

// Patterns accepts either a single pattern string or a list of them.
type Patterns []string

func (p *Patterns) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Patterns{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*p = list
	return nil
}

// Named pairs a template with its name.
type Named struct {
	Name     string
	Template Template
}

// MarshalJSON flattens the name into the template object.
func (n Named) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name string `json:"name"`
		Template
	}{Name: n.Name, Template: n.Template})
}

// Decode parses a name-keyed template object, keeping document order.
func Decode(raw []byte) ([]Named, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode templates: expected object, got %v", tok)
	}

	out := []Named{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode templates: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode templates: unexpected key %v", tok)
		}
		var t Template
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("decode template %q: %w", name, err)
		}
		out = append(out, Named{Name: name, Template: t})
	}
	return out, nil
}

// Resolve keeps the templates with at least one pattern matching index and orders them
// by priority, highest first. Equal priorities keep their input order.
func Resolve(templates []Named, index string) []Named {
	matched := make([]Named, 0, len(templates))
	for _, t := range templates {
		for _, p := range t.Template.IndexPatterns {
			if Matches(p, index) {
				matched = append(matched, t)
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Template.Priority() > matched[j].Template.Priority()
	})
	return matched
}
