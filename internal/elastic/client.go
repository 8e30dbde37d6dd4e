// Package elastic is the Elasticsearch collaborator behind the tools: one method per REST
// call, each returning the raw JSON body or an *Error.
package elastic

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/golovatskygroup/mcp-elastic/internal/httpcache"
)

// Config holds connection settings.
type Config struct {
	Addresses          []string      `yaml:"addresses"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	APIKey             string        `yaml:"api_key"`
	CloudID            string        `yaml:"cloud_id"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	MaxRetries         int           `yaml:"max_retries"`
}

// Client implements the tools backend on top of the official client.
type Client struct {
	es *elasticsearch.Client
}

// NewClient builds a client whose HTTP transport is wrapped by the response cache.
func NewClient(cfg Config, cache httpcache.Config, observe httpcache.Observer) (*Client, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed dev clusters
	}
	if cfg.RequestTimeout > 0 {
		base.ResponseHeaderTimeout = cfg.RequestTimeout
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		APIKey:     cfg.APIKey,
		CloudID:    cfg.CloudID,
		MaxRetries: cfg.MaxRetries,
		Transport:  httpcache.NewTransport(base, cache, observe),
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// read drains res and converts error statuses into *Error.
func read(res *esapi.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read elasticsearch response: %w", err)
	}
	if res.IsError() {
		return nil, parseError(res.StatusCode, body)
	}
	return body, nil
}

func (c *Client) CatIndices(ctx context.Context, pattern string, columns []string, health, sortBy string) ([]byte, error) {
	cat := c.es.Cat.Indices
	opts := []func(*esapi.CatIndicesRequest){
		cat.WithContext(ctx),
		cat.WithIndex(pattern),
		cat.WithH(columns...),
		cat.WithFormat("json"),
	}
	if health != "" {
		opts = append(opts, cat.WithHealth(health))
	}
	if sortBy != "" {
		opts = append(opts, cat.WithS(sortBy))
	}
	return read(cat(opts...))
}

func (c *Client) GetMapping(ctx context.Context, index string) ([]byte, error) {
	gm := c.es.Indices.GetMapping
	return read(gm(gm.WithContext(ctx), gm.WithIndex(index)))
}

func (c *Client) Search(ctx context.Context, index string, body []byte) ([]byte, error) {
	s := c.es.Search
	return read(s(s.WithContext(ctx), s.WithIndex(index), s.WithBody(bytes.NewReader(body))))
}

func (c *Client) ESQLQuery(ctx context.Context, body []byte) ([]byte, error) {
	q := c.es.EsqlQuery
	return read(q(bytes.NewReader(body), q.WithContext(ctx)))
}

func (c *Client) CatShards(ctx context.Context, index string, columns []string) ([]byte, error) {
	cat := c.es.Cat.Shards
	opts := []func(*esapi.CatShardsRequest){
		cat.WithContext(ctx),
		cat.WithH(columns...),
		cat.WithFormat("json"),
	}
	if index != "" {
		opts = append(opts, cat.WithIndex(index))
	}
	return read(cat(opts...))
}

func (c *Client) ClusterHealth(ctx context.Context, waitForStatus string, timeout time.Duration) ([]byte, error) {
	h := c.es.Cluster.Health
	opts := []func(*esapi.ClusterHealthRequest){h.WithContext(ctx)}
	if waitForStatus != "" {
		opts = append(opts, h.WithWaitForStatus(waitForStatus))
	}
	if timeout > 0 {
		opts = append(opts, h.WithTimeout(timeout))
	}
	return read(h(opts...))
}

func (c *Client) CatNodes(ctx context.Context, columns []string) ([]byte, error) {
	cat := c.es.Cat.Nodes
	return read(cat(cat.WithContext(ctx), cat.WithH(columns...), cat.WithFormat("json")))
}

func (c *Client) GetTemplates(ctx context.Context, name string) ([]byte, error) {
	gt := c.es.Indices.GetTemplate
	opts := []func(*esapi.IndicesGetTemplateRequest){gt.WithContext(ctx)}
	if name != "" {
		opts = append(opts, gt.WithName(name))
	}
	return read(gt(opts...))
}
