// Package limits resolves the safety limits applied to every tool call.
//
// Limits are read from the process environment on each call so a supervisor can change
// them without restarting the server.
package limits

import (
	"os"
	"strconv"
	"strings"
)

const (
	EnvMaxResponseChars = "MCP_MAX_RESPONSE_CHARS"
	EnvMaxSearchSize    = "MCP_MAX_SEARCH_SIZE"
	EnvMaxIndexList     = "MCP_MAX_INDEX_LIST"

	DefaultMaxResponseChars = 15000
	DefaultMaxSearchSize    = 200
	DefaultMaxIndexList     = 100
)

// Limits is a snapshot of the safety limits for one call.
type Limits struct {
	MaxResponseChars int
	MaxSearchSize    int
	MaxIndexList     int
}

// LookupFunc reads a configuration value by name.
type LookupFunc func(name string) (string, bool)

// Provider resolves limits from a LookupFunc.
type Provider struct {
	lookup LookupFunc
}

// NewProvider returns a Provider reading from lookup, or from the environment when lookup is nil.
func NewProvider(lookup LookupFunc) *Provider {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Provider{lookup: lookup}
}

// FromEnv returns a Provider backed by os.LookupEnv.
func FromEnv() *Provider {
	return NewProvider(nil)
}

// Resolve returns the named value when it is present and a non-negative integer, def otherwise.
func (p *Provider) Resolve(name string, def int) int {
	if p == nil || p.lookup == nil {
		return def
	}
	raw, ok := p.lookup(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// Current resolves all limits. Nothing is cached between calls.
func (p *Provider) Current() Limits {
	return Limits{
		MaxResponseChars: p.Resolve(EnvMaxResponseChars, DefaultMaxResponseChars),
		MaxSearchSize:    p.Resolve(EnvMaxSearchSize, DefaultMaxSearchSize),
		MaxIndexList:     p.Resolve(EnvMaxIndexList, DefaultMaxIndexList),
	}
}

// Static returns a LookupFunc over a fixed map. Useful for tests and embedding.
func Static(values map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}
