package tools

import (
	"context"
	"fmt"

	"github.com/golovatskygroup/mcp-elastic/internal/templates"
)

// getTemplates lists legacy index templates. With an index, only the templates that
// apply to it are kept, highest order first.
func (h *Handler) getTemplates(ctx context.Context, c *call, op *GetTemplates) error {
	raw, err := h.backend.GetTemplates(ctx, op.Name)
	if err != nil {
		return err
	}
	all, err := templates.Decode(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShape, err)
	}

	if op.Index == "" {
		c.out.Text("Found %d templates:", len(all))
		return c.out.JSON(all)
	}
	matched := templates.Resolve(all, op.Index)
	c.out.Text("Found %d templates matching index %s, by priority:", len(matched), op.Index)
	return c.out.JSON(matched)
}
