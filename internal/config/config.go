// Package config loads the server configuration from an optional YAML file, .env files and
// the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/golovatskygroup/mcp-elastic/internal/elastic"
	"github.com/golovatskygroup/mcp-elastic/internal/httpcache"
)

// Environment overrides.
const (
	EnvURL           = "ES_URL"
	EnvUsername      = "ES_USERNAME"
	EnvPassword      = "ES_PASSWORD"
	EnvAPIKey        = "ES_API_KEY"
	EnvCloudID       = "ES_CLOUD_ID"
	EnvSSLSkipVerify = "ES_SSL_SKIP_VERIFY"
	EnvLogLevel      = "MCP_LOG_LEVEL"
	EnvMetricsAddr   = "MCP_METRICS_ADDR"
)

// ErrNoBackend is returned by Validate when no cluster address is configured.
var ErrNoBackend = errors.New("no elasticsearch address configured: set ES_URL or ES_CLOUD_ID")

type Config struct {
	Elasticsearch elastic.Config   `yaml:"elasticsearch"`
	HTTPCache     httpcache.Config `yaml:"http_cache"`
	Server        ServerConfig     `yaml:"server"`
	Log           LogConfig        `yaml:"log"`
	Metrics       MetricsConfig    `yaml:"metrics"`
}

type ServerConfig struct {
	MaxConcurrentCalls int `yaml:"max_concurrent_calls"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Elasticsearch: elastic.Config{MaxRetries: 3},
		HTTPCache: httpcache.Config{
			Enabled:    false,
			TTL:        httpcache.DefaultTTL,
			MaxEntries: httpcache.DefaultMaxEntries,
			Segments:   httpcache.DefaultSegments,
		},
		Server: ServerConfig{MaxConcurrentCalls: 8},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadDotEnv loads .env files without overwriting variables already set. Missing files are
// skipped; an explicit path that does not exist is an error.
func LoadDotEnv(explicit string) error {
	if explicit != "" {
		if err := godotenv.Load(explicit); err != nil {
			return fmt.Errorf("load env file %s: %w", explicit, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

// Load reads path (when not empty) over the defaults, then applies environment overrides.
// ${VAR} references in the file are expanded from the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from lookup. Unparsable values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup(EnvURL); ok && strings.TrimSpace(v) != "" {
		var addrs []string
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				addrs = append(addrs, a)
			}
		}
		c.Elasticsearch.Addresses = addrs
	}
	str(EnvUsername, &c.Elasticsearch.Username)
	str(EnvPassword, &c.Elasticsearch.Password)
	str(EnvAPIKey, &c.Elasticsearch.APIKey)
	str(EnvCloudID, &c.Elasticsearch.CloudID)
	if v, ok := lookup(EnvSSLSkipVerify); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Elasticsearch.InsecureSkipVerify = b
		}
	}
	str(EnvLogLevel, &c.Log.Level)
	str(EnvMetricsAddr, &c.Metrics.Addr)

	c.HTTPCache = c.HTTPCache.ApplyEnv()
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	if len(c.Elasticsearch.Addresses) == 0 && c.Elasticsearch.CloudID == "" {
		return ErrNoBackend
	}
	if c.Elasticsearch.APIKey != "" && c.Elasticsearch.Username != "" {
		return errors.New("elasticsearch: set either an API key or a username, not both")
	}
	if c.Server.MaxConcurrentCalls < 1 {
		return fmt.Errorf("server.max_concurrent_calls must be at least 1, got %d", c.Server.MaxConcurrentCalls)
	}
	return nil
}
