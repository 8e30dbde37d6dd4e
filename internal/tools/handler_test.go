package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/mcp-elastic/internal/limits"
	"github.com/golovatskygroup/mcp-elastic/internal/metrics"
	"github.com/golovatskygroup/mcp-elastic/pkg/mcp"
)

type fakeBackend struct {
	indices   string
	mapping   string
	search    string
	esql      string
	shards    string
	health    string
	nodes     string
	templates string
	err       error

	lastPattern   string
	lastColumns   []string
	lastHealth    string
	lastSort      string
	lastIndex     string
	lastBody      []byte
	lastWait      string
	lastTimeout   time.Duration
	lastTemplates string
}

func (f *fakeBackend) CatIndices(_ context.Context, pattern string, columns []string, health, sortBy string) ([]byte, error) {
	f.lastPattern, f.lastColumns, f.lastHealth, f.lastSort = pattern, columns, health, sortBy
	return []byte(f.indices), f.err
}

func (f *fakeBackend) GetMapping(_ context.Context, index string) ([]byte, error) {
	f.lastIndex = index
	return []byte(f.mapping), f.err
}

func (f *fakeBackend) Search(_ context.Context, index string, body []byte) ([]byte, error) {
	f.lastIndex, f.lastBody = index, body
	return []byte(f.search), f.err
}

func (f *fakeBackend) ESQLQuery(_ context.Context, body []byte) ([]byte, error) {
	f.lastBody = body
	return []byte(f.esql), f.err
}

func (f *fakeBackend) CatShards(_ context.Context, index string, columns []string) ([]byte, error) {
	f.lastIndex, f.lastColumns = index, columns
	return []byte(f.shards), f.err
}

func (f *fakeBackend) ClusterHealth(_ context.Context, wait string, timeout time.Duration) ([]byte, error) {
	f.lastWait, f.lastTimeout = wait, timeout
	return []byte(f.health), f.err
}

func (f *fakeBackend) CatNodes(_ context.Context, columns []string) ([]byte, error) {
	f.lastColumns = columns
	return []byte(f.nodes), f.err
}

func (f *fakeBackend) GetTemplates(_ context.Context, name string) ([]byte, error) {
	f.lastTemplates = name
	return []byte(f.templates), f.err
}

func newTestHandler(b Backend, env map[string]string) *Handler {
	return NewHandler(b, limits.NewProvider(limits.Static(env)), nil, nil)
}

func invoke(t *testing.T, h *Handler, name, args string) *mcp.CallToolResult {
	t.Helper()
	res, err := h.Handle(context.Background(), name, json.RawMessage(args))
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func texts(res *mcp.CallToolResult) []string {
	out := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		out = append(out, c.Text)
	}
	return out
}

func catIndices(n int) string {
	rows := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, fmt.Sprintf(`{"index":"logs-%03d","status":"open","docs.count":"%d"}`, i, i*10))
	}
	return "[" + strings.Join(rows, ",") + "]"
}

func TestListIndices(t *testing.T) {
	b := &fakeBackend{indices: catIndices(3)}
	res := invoke(t, newTestHandler(b, nil), ToolListIndices, `{"index_pattern":"logs-*"}`)

	assert.False(t, res.IsError)
	require.Len(t, res.Content, 2)
	assert.Equal(t, "Found 3 indices:", res.Content[0].Text)
	assert.Equal(t, "logs-*", b.lastPattern)
	assert.Equal(t, indexColumns, b.lastColumns)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].Text), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, float64(20), rows[2]["docs.count"])
	assert.True(t, strings.Index(res.Content[1].Text, `"index"`) < strings.Index(res.Content[1].Text, `"docs.count"`))
}

func TestListIndicesCappedAtListLimit(t *testing.T) {
	b := &fakeBackend{indices: catIndices(150)}
	res := invoke(t, newTestHandler(b, nil), ToolListIndices, `{"index_pattern":"*"}`)

	require.Len(t, res.Content, 2)
	assert.Equal(t, "Found 150 indices, showing the first 100 (limit MCP_MAX_INDEX_LIST=100):", res.Content[0].Text)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].Text), &rows))
	assert.Len(t, rows, 100)
	assert.Equal(t, "logs-099", rows[99]["index"])
}

func TestListIndicesLimitFromEnvironment(t *testing.T) {
	b := &fakeBackend{indices: catIndices(10)}
	res := invoke(t, newTestHandler(b, map[string]string{limits.EnvMaxIndexList: "4"}), ToolListIndices, `{"index_pattern":"*"}`)

	assert.Equal(t, "Found 10 indices, showing the first 4 (limit MCP_MAX_INDEX_LIST=4):", res.Content[0].Text)
}

func TestListIndicesDetailed(t *testing.T) {
	b := &fakeBackend{indices: `[{"index":"a","health":"green","status":"open","pri":"1","rep":"0","docs.count":"5","store.size":"1kb","pri.store.size":"1kb"}]`}
	h := newTestHandler(b, nil)

	res := invoke(t, h, ToolListIndicesDetailed, `{}`)
	assert.Equal(t, "Found 1 indices:", res.Content[0].Text)
	assert.Equal(t, "*", b.lastPattern)
	assert.Equal(t, detailedIndexColumns, b.lastColumns)
	assert.Empty(t, b.lastHealth)

	invoke(t, h, ToolListIndicesDetailed, `{"index_pattern":"a*","health":"purple","sort_by":"docs.count"}`)
	assert.Equal(t, "a*", b.lastPattern)
	assert.Equal(t, "red", b.lastHealth)
	assert.Equal(t, "docs.count", b.lastSort)

	invoke(t, h, ToolListIndicesDetailed, `{"health":"yellow"}`)
	assert.Equal(t, "yellow", b.lastHealth)
}

func TestGetMappingsFirstEntry(t *testing.T) {
	b := &fakeBackend{mapping: `{"logs-2":{"mappings":{"properties":{"b":{"type":"keyword"}}}},"logs-1":{"mappings":{"properties":{"a":{"type":"text"}}}}}`}
	res := invoke(t, newTestHandler(b, nil), ToolGetMappings, `{"index":"logs-*"}`)

	require.Len(t, res.Content, 2)
	assert.Equal(t, "Mappings for index logs-*:", res.Content[0].Text)
	assert.JSONEq(t, `{"mappings":{"properties":{"b":{"type":"keyword"}}}}`, res.Content[1].Text)
}

func TestGetMappingsNoneFound(t *testing.T) {
	b := &fakeBackend{mapping: `{}`}
	res := invoke(t, newTestHandler(b, nil), ToolGetMappings, `{"index":"missing"}`)

	assert.True(t, res.IsError)
	assert.Equal(t, "Error: No mapping found for index missing", res.Content[0].Text)
}

func TestBackendFailureIsErrorResult(t *testing.T) {
	b := &fakeBackend{err: errors.New("elasticsearch error (404): index_not_found_exception: no such index [x]")}
	res := invoke(t, newTestHandler(b, nil), ToolGetMappings, `{"index":"x"}`)

	assert.True(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Contains(t, res.Content[0].Text, "index_not_found_exception")
}

func TestInvalidArgumentsAreErrorResult(t *testing.T) {
	res := invoke(t, newTestHandler(&fakeBackend{}, nil), ToolGetMappings, `{}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "invalid input")
}

func TestShapeMismatchIsInternalError(t *testing.T) {
	b := &fakeBackend{indices: `{"not":"a list"}`}
	_, err := newTestHandler(b, nil).Handle(context.Background(), ToolListIndices, json.RawMessage(`{"index_pattern":"*"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShape)
}

func TestSearch(t *testing.T) {
	b := &fakeBackend{search: `{"hits":{"total":{"value":42,"relation":"eq"},"hits":[{"_index":"x","_source":{"a":1}},{"_index":"x","_source":{"a":2}}]}}`}
	res := invoke(t, newTestHandler(b, nil), ToolSearch, `{"index":"x","fields":["a"],"query_body":{"query":{"match_all":{}},"size":2}}`)

	assert.Equal(t, []string{"Total results: 42, showing 2.", "[\n  {\n    \"a\": 1\n  },\n  {\n    \"a\": 2\n  }\n]"}, texts(res))
	assert.Equal(t, "x", b.lastIndex)
	assert.JSONEq(t, `{"query":{"match_all":{}},"size":2,"_source":["a"]}`, string(b.lastBody))
}

func TestSearchClampsSize(t *testing.T) {
	b := &fakeBackend{search: `{"hits":{"total":{"value":0},"hits":[]}}`}
	res := invoke(t, newTestHandler(b, nil), ToolSearch, `{"index":"x","query_body":{"size":500}}`)

	assert.JSONEq(t, `{"size":200}`, string(b.lastBody))
	require.Len(t, res.Content, 2)
	assert.Contains(t, res.Content[0].Text, "reduced to 200")
	assert.Equal(t, "Total results: 0, showing 0.", res.Content[1].Text)
}

func TestSearchClampsNonIntegerSizes(t *testing.T) {
	for _, size := range []string{`500.0`, `1e3`, `99999999999999999999`} {
		b := &fakeBackend{search: `{"hits":{"total":{"value":0},"hits":[]}}`}
		res := invoke(t, newTestHandler(b, nil), ToolSearch, `{"index":"x","query_body":{"size":`+size+`}}`)

		assert.JSONEq(t, `{"size":200}`, string(b.lastBody), size)
		require.Len(t, res.Content, 2, size)
		assert.Contains(t, res.Content[0].Text, "reduced to 200", size)
	}
}

func TestSearchQueryBodyAsString(t *testing.T) {
	b := &fakeBackend{search: `{"hits":{"hits":[]}}`}
	res := invoke(t, newTestHandler(b, nil), ToolSearch, `{"index":"x","query_body":"{\"size\":10,\"_source\":false}","fields":["a"]}`)

	assert.JSONEq(t, `{"size":10,"_source":false}`, string(b.lastBody))
	assert.Equal(t, "Total results: unknown, showing 0.", res.Content[0].Text)
}

func TestSearchAggregationsOnly(t *testing.T) {
	b := &fakeBackend{search: `{"hits":{"total":{"value":1000},"hits":[]},"aggregations":{"by_status":{"buckets":[{"key":"ok","doc_count":1000}]}}}`}
	res := invoke(t, newTestHandler(b, nil), ToolSearch, `{"index":"x","query_body":{"size":0,"aggs":{"by_status":{"terms":{"field":"status"}}}}}`)

	require.Len(t, res.Content, 2)
	assert.Equal(t, "Aggregations results:", res.Content[0].Text)
	assert.JSONEq(t, `{"by_status":{"buckets":[{"key":"ok","doc_count":1000}]}}`, res.Content[1].Text)
	for _, text := range texts(res) {
		assert.NotContains(t, text, "Total results")
	}
}

func TestSearchHitsAndAggregations(t *testing.T) {
	b := &fakeBackend{search: `{"hits":{"total":{"value":1},"hits":[{"_source":{"a":1}}]},"aggregations":{"n":{"value":1}}}`}
	res := invoke(t, newTestHandler(b, nil), ToolSearch, `{"index":"x","query_body":{}}`)

	got := texts(res)
	require.Len(t, got, 4)
	assert.Equal(t, "Total results: 1, showing 1.", got[0])
	assert.Equal(t, "Aggregations results:", got[2])
}

func TestSearchTruncatesLargeResponse(t *testing.T) {
	doc := `{"_source":{"msg":"` + strings.Repeat("x", 200) + `"}}`
	b := &fakeBackend{search: `{"hits":{"total":{"value":3},"hits":[` + doc + `,` + doc + `,` + doc + `]}}`}
	reg := prometheus.NewRegistry()
	h := NewHandler(b, limits.NewProvider(limits.Static(map[string]string{limits.EnvMaxResponseChars: "100"})), nil, metrics.New(reg))

	res := invoke(t, h, ToolSearch, `{"index":"x","query_body":{}}`)
	require.Len(t, res.Content, 2)
	assert.True(t, strings.HasPrefix(res.Content[1].Text[100:], "\n\n[Output truncated: response exceeded the limit of 100 characters"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "mcp_elastic_truncations_total"))
}

func TestSearchMissingHitsIsShapeError(t *testing.T) {
	b := &fakeBackend{search: `{"took":1}`}
	_, err := newTestHandler(b, nil).Handle(context.Background(), ToolSearch, json.RawMessage(`{"index":"x","query_body":{}}`))
	assert.ErrorIs(t, err, ErrShape)
}

func TestESQLPivot(t *testing.T) {
	b := &fakeBackend{esql: `{"columns":[{"name":"host","type":"keyword"},{"name":"count","type":"long"}],"values":[["a",3],["b",null]]}`}
	res := invoke(t, newTestHandler(b, nil), ToolESQL, `{"query":"FROM logs | STATS count = COUNT(*) BY host"}`)

	require.Len(t, res.Content, 2)
	assert.Equal(t, "Results", res.Content[0].Text)
	assert.JSONEq(t, `[{"host":"a","count":3},{"host":"b","count":null}]`, res.Content[1].Text)
	assert.Less(t, strings.Index(res.Content[1].Text, "host"), strings.Index(res.Content[1].Text, "count"))
	assert.JSONEq(t, `{"query":"FROM logs | STATS count = COUNT(*) BY host"}`, string(b.lastBody))
}

func TestESQLPartial(t *testing.T) {
	b := &fakeBackend{esql: `{"is_partial":true,"columns":[{"name":"a","type":"long"}],"values":[[1]]}`}
	res := invoke(t, newTestHandler(b, nil), ToolESQL, `{"query":"FROM x"}`)

	require.Len(t, res.Content, 3)
	assert.Contains(t, res.Content[0].Text, "Partial results")
}

func TestESQLRowWidthMismatch(t *testing.T) {
	b := &fakeBackend{esql: `{"columns":[{"name":"a","type":"long"},{"name":"b","type":"long"}],"values":[[1,2],[3]]}`}
	_, err := newTestHandler(b, nil).Handle(context.Background(), ToolESQL, json.RawMessage(`{"query":"FROM x"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShape)
	assert.Contains(t, err.Error(), "row 1 has 1 values for 2 columns")
}

func TestGetShards(t *testing.T) {
	b := &fakeBackend{shards: `[{"index":"a","shard":"0","prirep":"p","state":"STARTED","docs":"12","store":"3kb","node":"n1"},{"index":"a","shard":"0","prirep":"r","state":"UNASSIGNED","docs":null,"store":null,"node":null}]`}
	res := invoke(t, newTestHandler(b, nil), ToolGetShards, `{}`)

	assert.Equal(t, "Found 2 shards:", res.Content[0].Text)
	assert.Empty(t, b.lastIndex)
	assert.Equal(t, shardColumns, b.lastColumns)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].Text), &rows))
	assert.Equal(t, float64(0), rows[0]["shard"])
	assert.Equal(t, float64(12), rows[0]["docs"])
	assert.Nil(t, rows[1]["docs"])
}

func TestGetClusterHealth(t *testing.T) {
	b := &fakeBackend{health: `{"cluster_name":"dev","status":"yellow","number_of_nodes":1}`}
	h := newTestHandler(b, nil)

	res := invoke(t, h, ToolGetClusterHealth, `{"wait_for_status":"green","timeout":"30s"}`)
	require.Len(t, res.Content, 2)
	assert.Equal(t, "Cluster health status: yellow", res.Content[0].Text)
	assert.JSONEq(t, `{"cluster_name":"dev","status":"yellow","number_of_nodes":1}`, res.Content[1].Text)
	assert.Equal(t, "green", b.lastWait)
	assert.Equal(t, 30*time.Second, b.lastTimeout)

	res = invoke(t, h, ToolGetClusterHealth, `{"timeout":"soon"}`)
	assert.True(t, res.IsError)
}

func TestGetClusterHealthTimeUnits(t *testing.T) {
	tests := map[string]time.Duration{
		"1d":        24 * time.Hour,
		"2h":        2 * time.Hour,
		"2m":        2 * time.Minute,
		"250ms":     250 * time.Millisecond,
		"500micros": 500 * time.Microsecond,
		"10nanos":   10 * time.Nanosecond,
		"-1":        0,
	}
	for in, want := range tests {
		b := &fakeBackend{health: `{"status":"green"}`}
		res := invoke(t, newTestHandler(b, nil), ToolGetClusterHealth, `{"timeout":"`+in+`"}`)
		require.False(t, res.IsError, in)
		assert.Equal(t, want, b.lastTimeout, in)
	}

	for _, in := range []string{"1.5s", "10", "ms", "5w", "-3s"} {
		res := invoke(t, newTestHandler(&fakeBackend{health: `{}`}, nil), ToolGetClusterHealth, `{"timeout":"`+in+`"}`)
		assert.True(t, res.IsError, in)
	}
}

func TestGetNodesInfoIgnoresFilters(t *testing.T) {
	b := &fakeBackend{nodes: `[{"name":"n1","ip":"10.0.0.1","heap.percent":"40","ram.percent":"80","cpu":"5","load_1m":"0.1","node.role":"dim","master":"*"}]`}
	res := invoke(t, newTestHandler(b, nil), ToolGetNodesInfo, `{"node_id":"n2","metrics":"heap"}`)

	require.Len(t, res.Content, 2)
	assert.Equal(t, "Found 1 nodes:", res.Content[0].Text)
	assert.Equal(t, nodeColumns, b.lastColumns)
	var out struct {
		Nodes []map[string]any `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].Text), &out))
	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "n1", out.Nodes[0]["name"])
}

func TestGetNodesInfoCappedAtListLimit(t *testing.T) {
	var rows []string
	for i := 0; i < 5; i++ {
		rows = append(rows, fmt.Sprintf(`{"name":"n%d","master":"-"}`, i))
	}
	b := &fakeBackend{nodes: "[" + strings.Join(rows, ",") + "]"}
	h := newTestHandler(b, map[string]string{limits.EnvMaxIndexList: "3"})

	res := invoke(t, h, ToolGetNodesInfo, `{}`)
	require.Len(t, res.Content, 2)
	assert.Equal(t, "Found 5 nodes, showing the first 3 (limit MCP_MAX_INDEX_LIST=3):", res.Content[0].Text)
	var out struct {
		Nodes []map[string]any `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].Text), &out))
	require.Len(t, out.Nodes, 3)
	assert.Equal(t, "n2", out.Nodes[2]["name"])
}

func TestDispatchBoundOperation(t *testing.T) {
	b := &fakeBackend{search: `{"hits":{"total":{"value":1},"hits":[{"_source":{"a":1}}]}}`}
	h := newTestHandler(b, nil)

	res, err := h.Dispatch(context.Background(), &Search{Index: "logs", QueryBody: QueryBody{"size": json.Number("1e3")}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":200}`, string(b.lastBody))
	require.Len(t, res.Content, 3)
	assert.Equal(t, "Total results: 1, showing 1.", res.Content[1].Text)

	b.search = `{}`
	_, err = h.Dispatch(context.Background(), &Search{Index: "logs"})
	assert.ErrorIs(t, err, ErrShape)
}

const legacyTemplates = `{
	"tpl-a": {"order": 1, "index_patterns": ["a-*"], "settings": {"number_of_shards": "1"}},
	"tpl-b": {"order": 5, "index_patterns": ["a-*", "x-*"], "mappings": {}},
	"tpl-c": {"order": 5, "index_patterns": "b-*"}
}`

func TestGetTemplatesForIndex(t *testing.T) {
	b := &fakeBackend{templates: legacyTemplates}
	res := invoke(t, newTestHandler(b, nil), ToolGetTemplates, `{"index":"a-1"}`)

	require.Len(t, res.Content, 2)
	assert.Equal(t, "Found 2 templates matching index a-1, by priority:", res.Content[0].Text)
	var got []struct {
		Name  string `json:"name"`
		Order int    `json:"order"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].Text), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "tpl-b", got[0].Name)
	assert.Equal(t, "tpl-a", got[1].Name)
}

func TestGetTemplatesAll(t *testing.T) {
	b := &fakeBackend{templates: legacyTemplates}
	res := invoke(t, newTestHandler(b, nil), ToolGetTemplates, `{"name":"tpl-*"}`)

	assert.Equal(t, "tpl-*", b.lastTemplates)
	assert.Equal(t, "Found 3 templates:", res.Content[0].Text)
	assert.Less(t, strings.Index(res.Content[1].Text, "tpl-a"), strings.Index(res.Content[1].Text, "tpl-c"))
}

func TestHandleRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHandler(&fakeBackend{indices: catIndices(150)}, limits.NewProvider(limits.Static(nil)), nil, metrics.New(reg))

	invoke(t, h, ToolListIndices, `{"index_pattern":"*"}`)
	invoke(t, h, ToolGetMappings, `{}`)

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "mcp_elastic_tool_calls_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "mcp_elastic_truncations_total"))
}
