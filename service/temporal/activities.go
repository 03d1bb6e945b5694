package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/brojonat/railsync/service/db"
	"github.com/brojonat/railsync/service/graph"
	"github.com/brojonat/railsync/service/metrics"
	natspkg "github.com/brojonat/railsync/service/nats"
	"github.com/brojonat/railsync/service/network"
	temporalsdk "go.temporal.io/sdk/temporal"
)

// GetSyncCheckpointInput contains parameters for the GetSyncCheckpoint activity.
type GetSyncCheckpointInput struct {
	Network string `json:"network"`
}

// GetSyncCheckpointResult contains the stored cursor for a network.
// Cursor is nil when the network has never been synced.
type GetSyncCheckpointResult struct {
	Cursor *string `json:"cursor,omitempty"`
}

// SyncBatchInput contains parameters for the SyncRailgunTransactionsBatch activity.
type SyncBatchInput struct {
	Network string  `json:"network"`
	Cursor  *string `json:"cursor,omitempty"`
}

// SyncBatchResult contains the result of one sync round.
type SyncBatchResult struct {
	Fetched    int     `json:"fetched"`
	Written    int     `json:"written"`
	Skipped    int     `json:"skipped"` // Already existed in DB
	Published  int     `json:"published"`
	NewCursor  *string `json:"new_cursor,omitempty"`
	HitCeiling bool    `json:"hit_ceiling"`
}

// StoreInterface defines the database operations needed by activities.
// This allows for easy mocking in tests.
type StoreInterface interface {
	InsertRailgunTransactions(ctx context.Context, network string, txs []db.InsertRailgunTransactionParams) (*db.InsertResult, error)
	GetCheckpoint(ctx context.Context, network string) (*db.SyncCheckpoint, error)
	SetCheckpoint(ctx context.Context, network, lastGraphID string) (*db.SyncCheckpoint, error)
}

// SyncEngine pulls railgun transactions for a chain starting at a cursor.
type SyncEngine interface {
	Sync(ctx context.Context, chain network.Chain, cursor *string) (*graph.SyncResult, error)
}

// NetworkResolver looks up network descriptors by name.
type NetworkResolver interface {
	ByName(name network.Name) (*network.Network, bool)
}

// PublisherInterface defines the NATS publishing operations needed by activities.
type PublisherInterface interface {
	PublishRailgunTransaction(ctx context.Context, event *natspkg.RailgunTransactionEvent) error
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	store     StoreInterface
	engine    SyncEngine
	networks  NetworkResolver
	publisher PublisherInterface
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// publisher and m may be nil.
func NewActivities(
	store StoreInterface,
	engine SyncEngine,
	networks NetworkResolver,
	publisher PublisherInterface,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		store:     store,
		engine:    engine,
		networks:  networks,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// GetSyncCheckpoint loads the last synced graph ID for a network.
func (a *Activities) GetSyncCheckpoint(ctx context.Context, input GetSyncCheckpointInput) (*GetSyncCheckpointResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("GetSyncCheckpoint", input.Network, time.Since(start).Seconds())
		}
	}()

	cp, err := a.store.GetCheckpoint(ctx, input.Network)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to get sync checkpoint",
			"network", input.Network,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get sync checkpoint: %w", err)
	}

	result := &GetSyncCheckpointResult{}
	if cp != nil {
		cursor := cp.LastGraphID
		result.Cursor = &cursor
	}

	a.logger.DebugContext(ctx, "loaded sync checkpoint",
		"network", input.Network,
		"cursor", result.Cursor,
	)
	return result, nil
}

// SyncRailgunTransactionsBatch runs one quick sync round for a network: it
// fetches records from the cursor, stores them, publishes the new ones, and
// advances the checkpoint to the last graph ID fetched.
func (a *Activities) SyncRailgunTransactionsBatch(ctx context.Context, input SyncBatchInput) (*SyncBatchResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("SyncRailgunTransactionsBatch", input.Network, time.Since(start).Seconds())
		}
	}()

	n, ok := a.networks.ByName(network.Name(input.Network))
	if !ok {
		return nil, temporalsdk.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown network: %s", input.Network), "UnknownNetwork", nil)
	}

	a.logger.DebugContext(ctx, "syncing railgun transactions",
		"network", input.Network,
		"cursor", input.Cursor,
	)

	res, err := a.engine.Sync(ctx, n.Chain, input.Cursor)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to sync railgun transactions",
			"network", input.Network,
			"error", err,
		)
		return nil, fmt.Errorf("failed to sync railgun transactions: %w", err)
	}

	result := &SyncBatchResult{
		Fetched:    len(res.Transactions),
		NewCursor:  input.Cursor,
		HitCeiling: res.HitCeiling,
	}
	if len(res.Transactions) == 0 {
		a.logger.InfoContext(ctx, "no railgun transactions to sync", "network", input.Network)
		return result, nil
	}

	params := make([]db.InsertRailgunTransactionParams, 0, len(res.Transactions))
	for _, tx := range res.Transactions {
		if tx.BlockNumber > math.MaxInt64 {
			return nil, temporalsdk.NewNonRetryableApplicationError(
				fmt.Sprintf("block number %d of %s does not fit the store", tx.BlockNumber, tx.GraphID),
				"BlockNumberOutOfRange", nil)
		}
		params = append(params, db.InsertRailgunTransactionParams{
			GraphID:         tx.GraphID,
			Commitments:     tx.Commitments,
			Nullifiers:      tx.Nullifiers,
			BoundParamsHash: tx.BoundParamsHash,
			BlockNumber:     int64(tx.BlockNumber),
		})
	}

	written, err := a.store.InsertRailgunTransactions(ctx, input.Network, params)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to write railgun transactions",
			"network", input.Network,
			"count", len(params),
			"error", err,
		)
		return nil, fmt.Errorf("failed to write railgun transactions: %w", err)
	}
	result.Written = written.Written
	result.Skipped = written.Skipped

	if a.metrics != nil {
		a.metrics.RecordTransactionsWritten(input.Network, written.Written)
		a.metrics.RecordTransactionsSkipped(input.Network, written.Skipped)
	}

	result.Published = a.publishWritten(ctx, input.Network, res.Transactions, written.WrittenIDs)

	last := res.Transactions[len(res.Transactions)-1].GraphID
	if _, err := a.store.SetCheckpoint(ctx, input.Network, last); err != nil {
		a.logger.ErrorContext(ctx, "failed to advance sync checkpoint",
			"network", input.Network,
			"cursor", last,
			"error", err,
		)
		return nil, fmt.Errorf("failed to advance sync checkpoint: %w", err)
	}
	result.NewCursor = &last

	a.logger.InfoContext(ctx, "synced railgun transactions",
		"network", input.Network,
		"fetched", result.Fetched,
		"written", result.Written,
		"skipped", result.Skipped,
		"published", result.Published,
		"cursor", last,
		"hit_ceiling", result.HitCeiling,
	)
	return result, nil
}

// publishWritten publishes events for newly written records. Publishing is
// best effort: failures are logged and do not fail the activity.
func (a *Activities) publishWritten(ctx context.Context, networkName string, txs []graph.RailgunTransaction, writtenIDs []string) int {
	if a.publisher == nil || len(writtenIDs) == 0 {
		return 0
	}

	written := make(map[string]struct{}, len(writtenIDs))
	for _, id := range writtenIDs {
		written[id] = struct{}{}
	}

	published := 0
	for _, tx := range txs {
		if _, ok := written[tx.GraphID]; !ok {
			continue
		}
		if err := a.publisher.PublishRailgunTransaction(ctx, natspkg.FromRailgunTransaction(networkName, tx)); err != nil {
			a.logger.WarnContext(ctx, "failed to publish railgun transaction event",
				"network", networkName,
				"graph_id", tx.GraphID,
				"error", err,
			)
			continue
		}
		published++
	}
	return published
}
