// Package bootstrap wires the network registry and graph engine shared by
// the server, worker and CLI binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/railsync/service/cache"
	"github.com/brojonat/railsync/service/config"
	"github.com/brojonat/railsync/service/graph"
	"github.com/brojonat/railsync/service/metrics"
	"github.com/brojonat/railsync/service/network"
)

// NetworkRegistry returns the built-in registry with the overrides file
// applied. An empty path leaves the defaults untouched.
func NetworkRegistry(overridesFile string) (*network.Registry, error) {
	r := network.DefaultRegistry()
	if overridesFile == "" {
		return r, nil
	}
	o, err := network.LoadOverrides(overridesFile)
	if err != nil {
		return nil, err
	}
	if err := r.ApplyOverrides(o); err != nil {
		return nil, fmt.Errorf("failed to apply network overrides: %w", err)
	}
	return r, nil
}

// EngineOptions configures NewGraphEngine.
type EngineOptions struct {
	SourcesFile       string
	PageSize          int
	MaxResults        int
	RequestsPerSecond float64

	// RedisAddr enables the unshield lookup cache when set.
	RedisAddr        string
	UnshieldCacheTTL time.Duration
}

// EngineOptionsFromConfig maps service configuration to engine options.
func EngineOptionsFromConfig(cfg *config.Config) EngineOptions {
	return EngineOptions{
		SourcesFile:       cfg.GraphSourcesFile,
		PageSize:          cfg.GraphPageSize,
		MaxResults:        cfg.GraphMaxQueryResults,
		RequestsPerSecond: cfg.GraphRequestsPerSecond,
		RedisAddr:         cfg.RedisAddr,
		UnshieldCacheTTL:  cfg.UnshieldCacheTTL,
	}
}

// NewGraphEngine builds a graph engine backed by HTTP subgraph clients. The
// returned close func releases the engine's clients and the cache connection.
func NewGraphEngine(ctx context.Context, opts EngineOptions, networks graph.NetworkResolver, m *metrics.Metrics, logger *slog.Logger) (*graph.Engine, func() error, error) {
	sources, err := graph.LoadSources(opts.SourcesFile)
	if err != nil {
		return nil, nil, err
	}

	var (
		unshieldCache graph.UnshieldCache
		closeCache    = func() error { return nil }
	)
	if opts.RedisAddr != "" {
		c, err := cache.NewUnshieldCache(ctx, opts.RedisAddr, opts.UnshieldCacheTTL, m)
		if err != nil {
			return nil, nil, err
		}
		unshieldCache = c
		closeCache = c.Close
		logger.Info("unshield cache enabled", "addr", opts.RedisAddr, "ttl", opts.UnshieldCacheTTL)
	}

	engine := graph.NewEngine(
		graph.EngineConfig{
			Sources: sources,
			Pagination: graph.PaginationOptions{
				PageSize:   opts.PageSize,
				MaxResults: opts.MaxResults,
			},
		},
		networks,
		graph.HTTPQuerierFactory(graph.ClientOptions{
			RequestsPerSecond: opts.RequestsPerSecond,
			Metrics:           m,
			Logger:            logger,
		}),
		unshieldCache,
		m,
		logger,
	)

	logger.Info("graph engine initialized",
		"sources", len(sources),
		"page_size", opts.PageSize,
		"max_results", opts.MaxResults,
	)

	closeAll := func() error {
		engineErr := engine.Close()
		cacheErr := closeCache()
		if engineErr != nil {
			return engineErr
		}
		return cacheErr
	}
	return engine, closeAll, nil
}
