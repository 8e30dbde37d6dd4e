// Package tools binds tool calls to Elasticsearch requests and shapes their results.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/golovatskygroup/mcp-elastic/internal/limits"
	"github.com/golovatskygroup/mcp-elastic/internal/metrics"
	"github.com/golovatskygroup/mcp-elastic/internal/response"
	"github.com/golovatskygroup/mcp-elastic/pkg/mcp"
)

// Handler executes tool calls against a Backend.
type Handler struct {
	backend Backend
	limits  *limits.Provider
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a Handler. A nil provider reads the process environment, a nil
// logger discards and nil metrics record nothing.
func NewHandler(backend Backend, lim *limits.Provider, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if lim == nil {
		lim = limits.FromEnv()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{backend: backend, limits: lim, logger: logger, metrics: m}
}

// call is the per-invocation state: the limits snapshot, the result being built and what
// was cut on the way.
type call struct {
	limits  limits.Limits
	out     *response.Builder
	listCut bool
	clamped bool
}

func (h *Handler) newCall() *call {
	lim := h.limits.Current()
	return &call{limits: lim, out: response.NewBuilder(lim.MaxResponseChars)}
}

// Handle decodes and runs one tool call. Rejected arguments come back as an error result.
func (h *Handler) Handle(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, error) {
	op, err := Decode(name, args)
	if err != nil {
		h.metrics.ObserveCall(name, metrics.OutcomeFailed, 0)
		h.logger.Warn("tool call rejected", zap.String("tool", name), zap.Error(err))
		return response.ErrorResult(err.Error()), nil
	}
	return h.Dispatch(ctx, op)
}

// Dispatch runs a bound operation.
//
// Backend failures and not-found conditions come back as an error result. A response with
// an unexpected shape is returned as an error wrapping ErrShape.
func (h *Handler) Dispatch(ctx context.Context, op Operation) (*mcp.CallToolResult, error) {
	name := op.ToolName()
	start := time.Now()
	log := h.logger.With(zap.String("call_id", uuid.NewString()), zap.String("tool", name))

	c, err := h.dispatch(ctx, op)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		res := c.out.Result()
		h.observe(name, c, metrics.OutcomeOK, elapsed)
		log.Info("tool call",
			zap.Duration("duration", elapsed),
			zap.Bool("truncated", c.out.Truncated()),
			zap.Bool("list_truncated", c.listCut),
			zap.Bool("size_clamped", c.clamped),
		)
		return res, nil
	case errors.Is(err, ErrShape):
		h.metrics.ObserveCall(name, metrics.OutcomeInternal, elapsed)
		log.Error("tool call: unexpected response", zap.Duration("duration", elapsed), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", name, err)
	default:
		h.metrics.ObserveCall(name, metrics.OutcomeFailed, elapsed)
		log.Warn("tool call failed", zap.Duration("duration", elapsed), zap.Error(err))
		return response.ErrorResult(err.Error()), nil
	}
}

func (h *Handler) observe(name string, c *call, outcome string, d time.Duration) {
	h.metrics.ObserveCall(name, outcome, d)
	if c.out.Truncated() {
		h.metrics.ObserveTruncation(name, metrics.TruncatedResponse)
	}
	if c.listCut {
		h.metrics.ObserveTruncation(name, metrics.TruncatedList)
	}
	if c.clamped {
		h.metrics.ObserveTruncation(name, metrics.ClampedSize)
	}
}

func (h *Handler) dispatch(ctx context.Context, op Operation) (*call, error) {
	c := h.newCall()
	var err error
	switch op := op.(type) {
	case *ListIndices:
		err = h.listIndices(ctx, c, op)
	case *ListIndicesDetailed:
		err = h.listIndicesDetailed(ctx, c, op)
	case *GetMappings:
		err = h.getMappings(ctx, c, op)
	case *Search:
		err = h.search(ctx, c, op)
	case *ESQL:
		err = h.esql(ctx, c, op)
	case *GetShards:
		err = h.getShards(ctx, c, op)
	case *GetClusterHealth:
		err = h.getClusterHealth(ctx, c, op)
	case *GetNodesInfo:
		err = h.getNodesInfo(ctx, c, op)
	case *GetTemplates:
		err = h.getTemplates(ctx, c, op)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownTool, op)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// list emits the listing summary and the rows, capped at the index-list limit.
func (c *call) list(rows []object, noun string) error {
	return c.out.JSON(c.capRows(rows, noun))
}

// capRows emits the listing summary and returns at most the index-list limit of rows.
func (c *call) capRows(rows []object, noun string) []object {
	total, max := len(rows), c.limits.MaxIndexList
	if total > max {
		c.listCut = true
		c.out.Text("Found %d %s, showing the first %d (limit %s=%d):", total, noun, max, limits.EnvMaxIndexList, max)
		return rows[:max]
	}
	c.out.Text("Found %d %s:", total, noun)
	return rows
}

// levelParam maps a health level to the backend's enum: green, yellow, anything else red.
func levelParam(level string) string {
	switch level {
	case "":
		return ""
	case "green", "yellow":
		return level
	default:
		return "red"
	}
}
