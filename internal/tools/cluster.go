package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timeUnits are the backend's time value suffixes, longest first so that "ms" is not read
// as minutes.
var timeUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"nanos", time.Nanosecond},
	{"micros", time.Microsecond},
	{"ms", time.Millisecond},
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
}

// parseTimeValue reads a backend time value such as 30s, 1d or 500micros. "0" and "-1" mean
// no timeout.
func parseTimeValue(s string) (time.Duration, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "0" || v == "-1" {
		return 0, nil
	}
	for _, u := range timeUnits {
		num, ok := strings.CutSuffix(v, u.suffix)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil || n < 0 || n > int64(math.MaxInt64/u.unit) {
			break
		}
		return time.Duration(n) * u.unit, nil
	}
	return 0, fmt.Errorf("%w: timeout %q is not a time value such as 30s, 1m or 1d", ErrInvalidInput, s)
}

func (h *Handler) getClusterHealth(ctx context.Context, c *call, op *GetClusterHealth) error {
	var timeout time.Duration
	if op.Timeout != "" {
		d, err := parseTimeValue(op.Timeout)
		if err != nil {
			return err
		}
		timeout = d
	}
	raw, err := h.backend.ClusterHealth(ctx, levelParam(op.WaitForStatus), timeout)
	if err != nil {
		return err
	}

	health, err := decodeObject(raw)
	if err != nil {
		return fmt.Errorf("cluster health: %w", err)
	}
	if v, ok := health.get("status"); ok {
		var status string
		if json.Unmarshal(v, &status) == nil && status != "" {
			c.out.Text("Cluster health status: %s", status)
		}
	}
	return c.out.JSON(health)
}

// getNodesInfo always returns the fixed node columns, capped like the other listings;
// node_id and metrics do not filter.
func (h *Handler) getNodesInfo(ctx context.Context, c *call, _ *GetNodesInfo) error {
	raw, err := h.backend.CatNodes(ctx, nodeColumns)
	if err != nil {
		return err
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return fmt.Errorf("cat nodes: %w", err)
	}
	return c.out.JSON(struct {
		Nodes []object `json:"nodes"`
	}{Nodes: c.capRows(rows, "nodes")})
}
