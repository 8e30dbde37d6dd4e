package tools

import (
	"context"
	"fmt"
)

func (h *Handler) listIndices(ctx context.Context, c *call, op *ListIndices) error {
	raw, err := h.backend.CatIndices(ctx, op.IndexPattern, indexColumns, "", "")
	if err != nil {
		return err
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return fmt.Errorf("cat indices: %w", err)
	}
	numberize(rows)
	return c.list(rows, "indices")
}

func (h *Handler) listIndicesDetailed(ctx context.Context, c *call, op *ListIndicesDetailed) error {
	pattern := op.IndexPattern
	if pattern == "" {
		pattern = "*"
	}
	raw, err := h.backend.CatIndices(ctx, pattern, detailedIndexColumns, levelParam(op.Health), op.SortBy)
	if err != nil {
		return err
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return fmt.Errorf("cat indices: %w", err)
	}
	numberize(rows)
	return c.list(rows, "indices")
}

func (h *Handler) getShards(ctx context.Context, c *call, op *GetShards) error {
	raw, err := h.backend.CatShards(ctx, op.Index, shardColumns)
	if err != nil {
		return err
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return fmt.Errorf("cat shards: %w", err)
	}
	numberize(rows)
	return c.list(rows, "shards")
}

// getMappings returns the first mapping in response order; a wildcard index may match many.
func (h *Handler) getMappings(ctx context.Context, c *call, op *GetMappings) error {
	raw, err := h.backend.GetMapping(ctx, op.Index)
	if err != nil {
		return err
	}
	byIndex, err := decodeObject(raw)
	if err != nil {
		return fmt.Errorf("get mapping: %w", err)
	}
	if len(byIndex) == 0 {
		return notFoundf("No mapping found for index %s", op.Index)
	}
	c.out.Text("Mappings for index %s:", op.Index)
	return c.out.JSON(byIndex[0].Value)
}
