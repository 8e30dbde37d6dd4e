package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCall("search", OutcomeOK, 20*time.Millisecond)
	m.ObserveCall("search", OutcomeOK, 10*time.Millisecond)
	m.ObserveCall("search", OutcomeFailed, time.Millisecond)
	m.ObserveTruncation("list_indices", TruncatedList)
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("search", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("search", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.truncations.WithLabelValues("list_indices", TruncatedList)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCall("x", OutcomeOK, time.Second)
	m.ObserveTruncation("x", TruncatedResponse)
	m.ObserveCacheLookup(true)
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveCall("esql", OutcomeOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mcp_elastic_tool_calls_total{outcome="ok",tool="esql"} 1`)
}
