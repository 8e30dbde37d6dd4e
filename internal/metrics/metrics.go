// Package metrics exposes Prometheus collectors for tool calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mcp_elastic"

// Outcomes recorded for a tool call.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeInternal = "internal_error"
)

// Truncation kinds.
const (
	TruncatedResponse = "response"
	TruncatedList     = "list"
	ClampedSize       = "size"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	calls        *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	truncations  *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Tool call latency including the backend round trip.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		truncations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncations_total",
			Help:      "Results bounded by a safety limit, by tool and kind.",
		}, []string{"tool", "kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_cache_lookups_total",
			Help:      "Backend response cache lookups by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.duration, m.truncations, m.cacheLookups)
	}
	return m
}

func (m *Metrics) ObserveCall(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(tool, outcome).Inc()
	m.duration.WithLabelValues(tool).Observe(d.Seconds())
}

func (m *Metrics) ObserveTruncation(tool, kind string) {
	if m == nil {
		return
	}
	m.truncations.WithLabelValues(tool, kind).Inc()
}

// ObserveCacheLookup matches httpcache.Observer.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
