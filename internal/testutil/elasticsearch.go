// Package testutil provides an in-process fake of the Elasticsearch REST surface.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Call records one request received by the fake.
type Call struct {
	Method string
	Path   string
	Query  map[string]string
	Body   string
	Header http.Header
}

// Elasticsearch is a fake cluster answering canned responses keyed by "METHOD /path".
type Elasticsearch struct {
	Server *httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []Call
}

// NewElasticsearch starts a fake that is closed when the test ends.
func NewElasticsearch(t testing.TB) *Elasticsearch {
	t.Helper()
	f := &Elasticsearch{routes: map[string]http.HandlerFunc{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base address of the fake.
func (f *Elasticsearch) URL() string { return f.Server.URL }

// Handle registers a handler for method and exact path.
func (f *Elasticsearch) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

// JSON registers a canned JSON response.
func (f *Elasticsearch) JSON(method, path string, status int, body string) {
	f.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// Calls returns the requests received so far.
func (f *Elasticsearch) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// LastCall returns the most recent request.
func (f *Elasticsearch) LastCall() (Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return Call{}, false
	}
	return f.calls[len(f.calls)-1], true
}

func (f *Elasticsearch) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}

	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: r.Method, Path: r.URL.Path, Query: q, Body: string(body), Header: r.Header.Clone()})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	// The official client refuses to talk to servers that do not identify as Elasticsearch.
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":   "resource_not_found_exception",
				"reason": fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
			},
			"status": http.StatusNotFound,
		})
		return
	}
	h(w, r)
}
