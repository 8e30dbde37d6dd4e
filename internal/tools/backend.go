package tools

import (
	"context"
	"time"
)

// Backend is the Elasticsearch surface the tools need. Every method returns the raw JSON
// body of a successful response; failures carry the backend's description.
type Backend interface {
	CatIndices(ctx context.Context, pattern string, columns []string, health, sortBy string) ([]byte, error)
	GetMapping(ctx context.Context, index string) ([]byte, error)
	Search(ctx context.Context, index string, body []byte) ([]byte, error)
	ESQLQuery(ctx context.Context, body []byte) ([]byte, error)
	CatShards(ctx context.Context, index string, columns []string) ([]byte, error)
	ClusterHealth(ctx context.Context, waitForStatus string, timeout time.Duration) ([]byte, error)
	CatNodes(ctx context.Context, columns []string) ([]byte, error)
	GetTemplates(ctx context.Context, name string) ([]byte, error)
}

var (
	indexColumns         = []string{"index", "status", "docs.count"}
	detailedIndexColumns = []string{"index", "health", "status", "pri", "rep", "docs.count", "store.size", "pri.store.size"}
	shardColumns         = []string{"index", "shard", "prirep", "state", "docs", "store", "node"}
	nodeColumns          = []string{"name", "ip", "heap.percent", "ram.percent", "cpu", "load_1m", "node.role", "master"}
)
