// Package response builds tool results and keeps them inside the response budget.
package response

import (
	"encoding/json"
	"fmt"

	"github.com/golovatskygroup/mcp-elastic/pkg/mcp"
)

// Builder accumulates ordered content parts for one tool result.
type Builder struct {
	maxChars  int
	parts     []mcp.ContentBlock
	truncated bool
}

// NewBuilder returns a Builder whose data parts are bounded by maxChars.
func NewBuilder(maxChars int) *Builder {
	return &Builder{maxChars: maxChars}
}

// Text appends a plain text part.
func (b *Builder) Text(format string, args ...any) *Builder {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	b.parts = append(b.parts, mcp.ContentBlock{Type: "text", Text: text})
	return b
}

// JSON appends v serialized as indented JSON, truncated to the budget.
func (b *Builder) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	text, cut := Truncate(string(data), b.maxChars)
	if cut {
		b.truncated = true
	}
	b.parts = append(b.parts, mcp.ContentBlock{Type: "text", Text: text})
	return nil
}

// Truncated reports whether any data part was cut.
func (b *Builder) Truncated() bool {
	return b.truncated
}

// Result returns the assembled tool result.
func (b *Builder) Result() *mcp.CallToolResult {
	parts := b.parts
	if parts == nil {
		parts = []mcp.ContentBlock{}
	}
	return &mcp.CallToolResult{Content: parts}
}

// ErrorResult is a failed tool result carrying msg.
func ErrorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: "Error: " + msg}}, IsError: true}
}
