// Package httpcache is a revalidating response cache for idempotent Elasticsearch reads
// (cat listings, mappings, templates). Searches and cluster health are never cached.
package httpcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvEnabled    = "MCP_ELASTIC_HTTP_CACHE_ENABLED"
	EnvTTLSeconds = "MCP_ELASTIC_HTTP_CACHE_TTL_SECONDS"
	EnvMaxEntries = "MCP_ELASTIC_HTTP_CACHE_MAX_ENTRIES"

	DefaultTTL        = 30 * time.Second
	DefaultMaxEntries = 256
)

// DefaultSegments are the API path segments whose GET responses may be cached.
var DefaultSegments = []string{"_cat", "_mapping", "_template"}

type Config struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Segments   []string      `yaml:"segments"`
}

// ApplyEnv overlays the cache environment variables on cfg. Unparsable values are ignored.
func (cfg Config) ApplyEnv() Config {
	if v := strings.TrimSpace(os.Getenv(EnvEnabled)); v != "" {
		cfg.Enabled = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	if v := strings.TrimSpace(os.Getenv(EnvTTLSeconds)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.TTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxEntries)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxEntries = n
		}
	}
	return cfg
}

// ConfigFromEnv returns the defaults overlaid with the environment.
func ConfigFromEnv() Config {
	return Config{TTL: DefaultTTL, MaxEntries: DefaultMaxEntries}.ApplyEnv()
}

// Observer is notified of every cacheable lookup.
type Observer func(hit bool)

type Transport struct {
	base     http.RoundTripper
	c        *Cache
	segments []string
	observe  Observer

	keyHeaders []string
}

// NewTransport wraps base with a cache when cfg.Enabled; otherwise base is returned as is.
func NewTransport(base http.RoundTripper, cfg Config, observe Observer) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if !cfg.Enabled {
		return base
	}
	segments := cfg.Segments
	if len(segments) == 0 {
		segments = DefaultSegments
	}
	if observe == nil {
		observe = func(bool) {}
	}
	return &Transport{
		base:     base,
		c:        New(cfg.TTL, cfg.MaxEntries),
		segments: segments,
		observe:  observe,
		keyHeaders: []string{
			"Authorization",
			"Accept",
			"X-Opaque-Id",
			"Es-Security-Runas-User",
		},
	}
}

func (t *Transport) cacheable(req *http.Request) bool {
	if !strings.EqualFold(req.Method, http.MethodGet) || req.URL == nil {
		return false
	}
	for _, part := range strings.Split(req.URL.Path, "/") {
		for _, seg := range t.segments {
			if part == seg {
				return true
			}
		}
	}
	return false
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("httpcache: nil request")
	}
	if !t.cacheable(req) {
		return t.base.RoundTrip(req)
	}

	key := req.Method + " " + req.URL.String() + " " + fingerprintHeaders(req.Header, t.keyHeaders)

	if ent, ok := t.c.get(key); ok {
		if ent.fresh(t.c.TTL(), time.Now()) {
			t.observe(true)
			return cachedResponse(req, ent), nil
		}

		// Expired: revalidate when the backend gave us an ETag.
		if ent.etag != "" {
			req2 := req.Clone(req.Context())
			req2.Header.Set("If-None-Match", ent.etag)

			resp, err := t.base.RoundTrip(req2)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotModified {
				t.c.touch(key, time.Now())
				t.observe(true)
				return cachedResponse(req, ent), nil
			}
			t.observe(false)
			return t.store(req, key, resp)
		}
	}

	t.observe(false)
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return t.store(req, key, resp)
}

// store buffers resp and caches it when it is a success.
func (t *Transport) store(req *http.Request, key string, resp *http.Response) (*http.Response, error) {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpcache: read body: %w", err)
	}
	header := resp.Header
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		header = t.c.put(key, resp.StatusCode, resp.Header, b, time.Now()).header
	}
	return &http.Response{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Header:        header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(b)),
		ContentLength: int64(len(b)),
		Request:       req,
		Proto:         resp.Proto,
		ProtoMajor:    resp.ProtoMajor,
		ProtoMinor:    resp.ProtoMinor,
	}, nil
}

func cachedResponse(req *http.Request, ent entry) *http.Response {
	status := ent.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:        ent.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(ent.body)),
		ContentLength: int64(len(ent.body)),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}
}
