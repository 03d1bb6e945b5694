package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/brojonat/railsync/service/metrics"
	"github.com/brojonat/railsync/service/network"
)

// NetworkResolver maps a chain to its network descriptor.
type NetworkResolver interface {
	ForChain(chain network.Chain) (*network.Network, bool)
}

// QuerierFactory builds a querier for one source.
type QuerierFactory func(source SourceConfig) (Querier, error)

// UnshieldCache is an optional read-through cache for unshield lookups.
type UnshieldCache interface {
	GetUnshieldIDs(ctx context.Context, name network.Name, txHash string) ([]string, bool, error)
	SetUnshieldIDs(ctx context.Context, name network.Name, txHash string, ids []string) error
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Sources    []SourceConfig
	Pagination PaginationOptions
}

// Engine pulls railgun transactions from per-network subgraphs.
type Engine struct {
	networks NetworkResolver
	sources  []SourceConfig
	opts     PaginationOptions
	factory  QuerierFactory
	cache    UnshieldCache
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	queriers map[network.Name]Querier
}

// NewEngine creates an Engine. unshieldCache and m may be nil.
func NewEngine(cfg EngineConfig, networks NetworkResolver, factory QuerierFactory, unshieldCache UnshieldCache, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		networks: networks,
		sources:  cfg.Sources,
		opts:     cfg.Pagination.withDefaults(),
		factory:  factory,
		cache:    unshieldCache,
		metrics:  m,
		logger:   logger,
		queriers: make(map[network.Name]Querier),
	}
}

// SyncResult is the outcome of a quick sync.
type SyncResult struct {
	Network      network.Name
	Transactions []RailgunTransaction
	Pages        int
	Duplicates   int
	HitCeiling   bool
}

// QuickSync returns railgun transactions with graph ID >= cursor for chain.
// A nil cursor starts from the beginning. Chains that are unknown or have no
// POI launch configuration yield an empty result.
func (e *Engine) QuickSync(ctx context.Context, chain network.Chain, cursor *string) ([]RailgunTransaction, error) {
	res, err := e.Sync(ctx, chain, cursor)
	if err != nil {
		return nil, err
	}
	return res.Transactions, nil
}

// Sync is QuickSync with pagination details.
func (e *Engine) Sync(ctx context.Context, chain network.Chain, cursor *string) (*SyncResult, error) {
	n, ok := e.networks.ForChain(chain)
	if !ok || n.POI == nil {
		e.logger.DebugContext(ctx, "skipping quick sync for network without poi", "chain", chain.String())
		return &SyncResult{Transactions: []RailgunTransaction{}}, nil
	}

	q, err := e.querier(n.Name)
	if err != nil {
		return nil, err
	}

	start := DefaultCursor
	if cursor != nil && *cursor != "" {
		start = *cursor
	}

	pages, err := AutoPaginate(ctx, func(ctx context.Context, idLow string) ([]GraphTransaction, error) {
		return q.RailgunTransactions(ctx, idLow, e.opts.PageSize)
	}, start, e.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to quick sync %s: %w", n.Name, err)
	}

	unique := RemoveDuplicatesByID(pages.Items)
	txs, err := FormatRailgunTransactions(unique)
	if err != nil {
		return nil, fmt.Errorf("failed to format railgun transactions for %s: %w", n.Name, err)
	}

	duplicates := len(pages.Items) - len(unique)
	if e.metrics != nil {
		e.metrics.RecordPagination(string(n.Name), pages.Pages, len(pages.Items), pages.HitCeiling)
		e.metrics.RecordDuplicatesDropped(string(n.Name), duplicates)
	}
	if pages.HitCeiling {
		e.logger.WarnContext(ctx, "quick sync stopped at result ceiling",
			"network", n.Name,
			"max_results", e.opts.MaxResults,
		)
	}
	e.logger.InfoContext(ctx, "quick sync complete",
		"network", n.Name,
		"cursor", start,
		"pages", pages.Pages,
		"fetched", len(pages.Items),
		"duplicates", duplicates,
		"transactions", len(txs),
	)

	return &SyncResult{
		Network:      n.Name,
		Transactions: txs,
		Pages:        pages.Pages,
		Duplicates:   duplicates,
		HitCeiling:   pages.HitCeiling,
	}, nil
}

// GetUnshieldTransactionIDs returns the railgun transaction IDs associated
// with unshield events in an on-chain transaction.
func (e *Engine) GetUnshieldTransactionIDs(ctx context.Context, chain network.Chain, txHash string) ([]string, error) {
	n, ok := e.networks.ForChain(chain)
	if !ok {
		return nil, fmt.Errorf("%w: chain %s", ErrUnsupportedNetwork, chain)
	}

	if e.cache != nil {
		ids, hit, err := e.cache.GetUnshieldIDs(ctx, n.Name, txHash)
		if err != nil {
			e.logger.WarnContext(ctx, "unshield cache read failed", "network", n.Name, "error", err)
		} else if hit {
			return ids, nil
		}
	}

	q, err := e.querier(n.Name)
	if err != nil {
		return nil, err
	}
	ids, err := q.UnshieldTransactionIDs(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get unshield transaction ids for %s: %w", n.Name, err)
	}

	if e.cache != nil {
		if err := e.cache.SetUnshieldIDs(ctx, n.Name, txHash, ids); err != nil {
			e.logger.WarnContext(ctx, "unshield cache write failed", "network", n.Name, "error", err)
		}
	}
	return ids, nil
}

// querier returns the cached querier for a network, building it on first
// use. A querier is dropped from the cache once it closes.
func (e *Engine) querier(name network.Name) (Querier, error) {
	e.mu.Lock()
	if q, ok := e.queriers[name]; ok {
		e.mu.Unlock()
		return q, nil
	}

	source, err := sourceForNetwork(e.sources, name)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	q, err := e.factory(source)
	if err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("failed to create querier for %s: %w", name, err)
	}
	e.queriers[name] = q
	e.mu.Unlock()

	// Registered outside the lock: an already-closed querier runs fn inline.
	q.OnClose(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.queriers[name] == q {
			delete(e.queriers, name)
		}
		e.logger.Debug("dropped closed subgraph querier", "network", name)
	})
	return q, nil
}

// Close closes every cached querier that supports it.
func (e *Engine) Close() error {
	e.mu.Lock()
	qs := make([]Querier, 0, len(e.queriers))
	for _, q := range e.queriers {
		qs = append(qs, q)
	}
	e.mu.Unlock()

	for _, q := range qs {
		if c, ok := q.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

// HTTPQuerierFactory returns a QuerierFactory that builds HTTP clients.
func HTTPQuerierFactory(opts ClientOptions) QuerierFactory {
	return func(source SourceConfig) (Querier, error) {
		return NewClient(source, opts), nil
	}
}
