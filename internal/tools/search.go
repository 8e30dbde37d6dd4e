package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/golovatskygroup/mcp-elastic/internal/limits"
	"github.com/golovatskygroup/mcp-elastic/internal/query"
)

type searchHit struct {
	Source json.RawMessage `json:"_source"`
}

type searchResponse struct {
	Hits *struct {
		Total json.RawMessage `json:"total"`
		Hits  []searchHit     `json:"hits"`
	} `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations"`
}

func (h *Handler) search(ctx context.Context, c *call, op *Search) error {
	max := c.limits.MaxSearchSize
	body := map[string]any(op.QueryBody)
	c.clamped = query.ExceedsMax(body, max)
	body = query.Augment(body, op.Fields, max)

	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode query_body: %w", err)
	}
	raw, err := h.backend.Search(ctx, op.Index, reqBody)
	if err != nil {
		return err
	}

	var res searchResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("search: %w: %v", ErrShape, err)
	}
	if res.Hits == nil {
		return fmt.Errorf("search: %w: missing hits", ErrShape)
	}
	hasAggs, err := nonEmptyObject(res.Aggregations)
	if err != nil {
		return fmt.Errorf("search aggregations: %w", err)
	}

	if c.clamped {
		c.out.Text("Requested size exceeds the limit and was reduced to %d (limit %s=%d).", max, limits.EnvMaxSearchSize, max)
	}
	if !hasAggs || len(res.Hits.Hits) > 0 {
		c.out.Text("Total results: %s, showing %d.", totalHits(res.Hits.Total), len(res.Hits.Hits))
	}
	if len(res.Hits.Hits) > 0 {
		sources := make([]json.RawMessage, 0, len(res.Hits.Hits))
		for _, hit := range res.Hits.Hits {
			if len(hit.Source) == 0 {
				sources = append(sources, jsonNull)
				continue
			}
			sources = append(sources, hit.Source)
		}
		if err := c.out.JSON(sources); err != nil {
			return err
		}
	}
	if hasAggs {
		c.out.Text("Aggregations results:")
		if err := c.out.JSON(res.Aggregations); err != nil {
			return err
		}
	}
	return nil
}

// totalHits renders hits.total, which is an object with a value or a bare number.
func totalHits(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return "unknown"
	}
	var obj struct {
		Value *uint64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Value != nil {
		return strconv.FormatUint(*obj.Value, 10)
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatUint(n, 10)
	}
	return "unknown"
}

// nonEmptyObject reports whether raw is a JSON object with at least one key. Absent and
// null count as empty.
func nonEmptyObject(raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return false, nil
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return false, err
	}
	return len(obj) > 0, nil
}
