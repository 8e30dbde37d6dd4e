// mcp-elastic is an MCP stdio server exposing read-only Elasticsearch tools.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/golovatskygroup/mcp-elastic/internal/config"
	"github.com/golovatskygroup/mcp-elastic/internal/elastic"
	"github.com/golovatskygroup/mcp-elastic/internal/limits"
	"github.com/golovatskygroup/mcp-elastic/internal/logging"
	"github.com/golovatskygroup/mcp-elastic/internal/metrics"
	"github.com/golovatskygroup/mcp-elastic/internal/registry"
	"github.com/golovatskygroup/mcp-elastic/internal/server"
	"github.com/golovatskygroup/mcp-elastic/internal/tools"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-elastic: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		envFile     string
		logLevel    string
		metricsAddr string
		showVersion bool
	)
	flags := pflag.NewFlagSet("mcp-elastic", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&envFile, "env-file", "", "path to a .env file (default: ./.env when present)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	flags.BoolVar(&showVersion, "version", false, "print the version and exit")
	flags.BoolP("help", "h", false, "show help")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flags.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage: mcp-elastic [flags]\n\n%s", flags.FlagUsages())
		return nil
	}
	if showVersion {
		fmt.Println("mcp-elastic", version)
		return nil
	}

	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client, err := elastic.NewClient(cfg.Elasticsearch, cfg.HTTPCache, m.ObserveCacheLookup)
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer stop()
	}

	handler := tools.NewHandler(client, limits.FromEnv(), logger, m)
	srv := server.New(os.Stdin, os.Stdout, registry.New(tools.Definitions()), handler, server.Options{
		Name:               "mcp-elastic",
		Version:            version,
		MaxConcurrentCalls: cfg.Server.MaxConcurrentCalls,
		Logger:             logger,
	})

	logger.Info("starting",
		zap.String("version", version),
		zap.Strings("addresses", cfg.Elasticsearch.Addresses),
		zap.Bool("cloud", cfg.Elasticsearch.CloudID != ""),
		zap.Bool("http_cache", cfg.HTTPCache.Enabled),
		zap.String("metrics_addr", cfg.Metrics.Addr),
	)
	err = srv.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func serveMetrics(addr string, g prometheus.Gatherer, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hs.Shutdown(ctx)
	}
}
