package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

type esqlColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type esqlResponse struct {
	IsPartial *bool               `json:"is_partial"`
	Columns   []esqlColumn        `json:"columns"`
	Values    [][]json.RawMessage `json:"values"`
}

func (h *Handler) esql(ctx context.Context, c *call, op *ESQL) error {
	reqBody, err := json.Marshal(struct {
		Query string `json:"query"`
	}{Query: op.Query})
	if err != nil {
		return fmt.Errorf("encode esql request: %w", err)
	}
	raw, err := h.backend.ESQLQuery(ctx, reqBody)
	if err != nil {
		return err
	}

	var res esqlResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("esql: %w: %v", ErrShape, err)
	}
	records, err := pivot(res.Columns, res.Values)
	if err != nil {
		return fmt.Errorf("esql: %w", err)
	}

	if res.IsPartial != nil && *res.IsPartial {
		c.out.Text("Partial results: some data could not be retrieved from the cluster.")
	}
	c.out.Text("Results")
	return c.out.JSON(records)
}

// pivot turns row-major values into one record per row keyed by column name, keeping
// column order. A row whose width differs from the column count is a shape error.
func pivot(columns []esqlColumn, values [][]json.RawMessage) ([]object, error) {
	records := make([]object, 0, len(values))
	for i, row := range values {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d columns", ErrShape, i, len(row), len(columns))
		}
		rec := make(object, len(columns))
		for j, col := range columns {
			rec[j] = member{Key: col.Name, Value: row[j]}
		}
		records = append(records, rec)
	}
	return records, nil
}
