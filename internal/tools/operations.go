package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Operation is one bound tool invocation. The set of implementations is closed.
type Operation interface {
	ToolName() string
	operation()
}

type ListIndices struct {
	IndexPattern string `json:"index_pattern"`
}

type ListIndicesDetailed struct {
	IndexPattern string `json:"index_pattern"`
	Health       string `json:"health"`
	SortBy       string `json:"sort_by"`
}

type GetMappings struct {
	Index string `json:"index"`
}

type Search struct {
	Index     string    `json:"index"`
	Fields    []string  `json:"fields"`
	QueryBody QueryBody `json:"query_body"`
}

type ESQL struct {
	Query string `json:"query"`
}

type GetShards struct {
	Index string `json:"index"`
}

type GetClusterHealth struct {
	WaitForStatus string `json:"wait_for_status"`
	Timeout       string `json:"timeout"`
}

// GetNodesInfo accepts a node filter and a metric selection; neither narrows the output.
type GetNodesInfo struct {
	NodeID  string `json:"node_id"`
	Metrics string `json:"metrics"`
}

type GetTemplates struct {
	Name  string `json:"name"`
	Index string `json:"index"`
}

func (*ListIndices) ToolName() string         { return ToolListIndices }
func (*ListIndicesDetailed) ToolName() string { return ToolListIndicesDetailed }
func (*GetMappings) ToolName() string         { return ToolGetMappings }
func (*Search) ToolName() string              { return ToolSearch }
func (*ESQL) ToolName() string                { return ToolESQL }
func (*GetShards) ToolName() string           { return ToolGetShards }
func (*GetClusterHealth) ToolName() string    { return ToolGetClusterHealth }
func (*GetNodesInfo) ToolName() string        { return ToolGetNodesInfo }
func (*GetTemplates) ToolName() string        { return ToolGetTemplates }

func (*ListIndices) operation()         {}
func (*ListIndicesDetailed) operation() {}
func (*GetMappings) operation()         {}
func (*Search) operation()              {}
func (*ESQL) operation()                {}
func (*GetShards) operation()           {}
func (*GetClusterHealth) operation()    {}
func (*GetNodesInfo) operation()        {}
func (*GetTemplates) operation()        {}

// QueryBody is a search request body. It is given either as a JSON object or as a string
// holding one. Numbers are kept as json.Number so large values survive unchanged.
type QueryBody map[string]any

func (q *QueryBody) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return fmt.Errorf("query_body must be a JSON object: %w", err)
	}
	*q = body
	return nil
}

func newOperation(name string) Operation {
	switch name {
	case ToolListIndices:
		return &ListIndices{}
	case ToolListIndicesDetailed:
		return &ListIndicesDetailed{}
	case ToolGetMappings:
		return &GetMappings{}
	case ToolSearch:
		return &Search{}
	case ToolESQL:
		return &ESQL{}
	case ToolGetShards:
		return &GetShards{}
	case ToolGetClusterHealth:
		return &GetClusterHealth{}
	case ToolGetNodesInfo:
		return &GetNodesInfo{}
	case ToolGetTemplates:
		return &GetTemplates{}
	}
	return nil
}

// Decode validates args against the tool's input schema and binds them to its operation.
func Decode(name string, args json.RawMessage) (Operation, error) {
	op := newOperation(name)
	if op == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		args = json.RawMessage("{}")
	}
	if err := validateArgs(name, args); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(args, op); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return op, nil
}
