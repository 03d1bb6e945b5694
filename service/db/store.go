package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/railsync/service/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Store provides database operations for the service.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithMetrics returns the store with query metrics enabled.
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.metrics = m
	return s
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RailgunTransaction is a railgun transaction record stored for a network.
type RailgunTransaction struct {
	Network         string
	GraphID         string
	Commitments     []string
	Nullifiers      []string
	BoundParamsHash string
	BlockNumber     int64
	CreatedAt       time.Time
}

// InsertRailgunTransactionParams contains the parameters for storing one record.
type InsertRailgunTransactionParams struct {
	GraphID         string
	Commitments     []string
	Nullifiers      []string
	BoundParamsHash string
	BlockNumber     int64
}

// InsertResult reports how many records were new and how many already existed.
type InsertResult struct {
	Written    int
	Skipped    int
	WrittenIDs []string
}

// ListRailgunTransactionsParams contains keyset pagination parameters.
type ListRailgunTransactionsParams struct {
	Network string
	AfterID string
	Limit   int32
}

// SyncCheckpoint is the last graph ID synced for a network.
type SyncCheckpoint struct {
	Network     string
	LastGraphID string
	UpdatedAt   time.Time
}

const insertRailgunTransactionSQL = `
INSERT INTO railgun_transactions (network, graph_id, commitments, nullifiers, bound_params_hash, block_number)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (network, graph_id) DO NOTHING`

// InsertRailgunTransactions stores records in one transaction. Records that
// already exist are skipped, so re-syncing an overlapping range is safe.
func (s *Store) InsertRailgunTransactions(ctx context.Context, network string, txs []InsertRailgunTransactionParams) (res *InsertResult, err error) {
	defer s.observe("insert", "railgun_transactions", time.Now(), &err)

	res = &InsertResult{}
	if len(txs) == 0 {
		return res, nil
	}

	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbtx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, tx := range txs {
		batch.Queue(insertRailgunTransactionSQL,
			network, tx.GraphID, nonNil(tx.Commitments), nonNil(tx.Nullifiers), tx.BoundParamsHash, tx.BlockNumber)
	}

	br := dbtx.SendBatch(ctx, batch)
	for _, tx := range txs {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("failed to insert railgun transaction %s: %w", tx.GraphID, err)
		}
		if tag.RowsAffected() == 1 {
			res.Written++
			res.WrittenIDs = append(res.WrittenIDs, tx.GraphID)
		} else {
			res.Skipped++
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := dbtx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res, nil
}

// ListRailgunTransactions returns records with graph_id > AfterID in
// graph_id order.
func (s *Store) ListRailgunTransactions(ctx context.Context, params ListRailgunTransactionsParams) (out []*RailgunTransaction, err error) {
	defer s.observe("list", "railgun_transactions", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
SELECT network, graph_id, commitments, nullifiers, bound_params_hash, block_number, created_at
FROM railgun_transactions
WHERE network = $1 AND graph_id > $2
ORDER BY graph_id
LIMIT $3`, params.Network, params.AfterID, params.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []*RailgunTransaction{}
	for rows.Next() {
		var (
			t         RailgunTransaction
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&t.Network, &t.GraphID, &t.Commitments, &t.Nullifiers, &t.BoundParamsHash, &t.BlockNumber, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = createdAt.Time
		out = append(out, &t)
	}
	return out, rows.Err()
}

// CountRailgunTransactions returns the number of stored records for a network.
func (s *Store) CountRailgunTransactions(ctx context.Context, network string) (n int64, err error) {
	defer s.observe("count", "railgun_transactions", time.Now(), &err)

	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM railgun_transactions WHERE network = $1`, network).Scan(&n)
	return n, err
}

// GetCheckpoint returns the sync checkpoint for a network, or nil if the
// network has never been synced.
func (s *Store) GetCheckpoint(ctx context.Context, network string) (cp *SyncCheckpoint, err error) {
	defer s.observe("get", "sync_checkpoints", time.Now(), &err)

	var (
		c         SyncCheckpoint
		updatedAt pgtype.Timestamptz
	)
	err = s.pool.QueryRow(ctx, `
SELECT network, last_graph_id, updated_at FROM sync_checkpoints WHERE network = $1`, network).
		Scan(&c.Network, &c.LastGraphID, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.UpdatedAt = updatedAt.Time
	return &c, nil
}

// SetCheckpoint upserts the sync checkpoint for a network.
func (s *Store) SetCheckpoint(ctx context.Context, network, lastGraphID string) (cp *SyncCheckpoint, err error) {
	defer s.observe("upsert", "sync_checkpoints", time.Now(), &err)

	var (
		c         SyncCheckpoint
		updatedAt pgtype.Timestamptz
	)
	err = s.pool.QueryRow(ctx, `
INSERT INTO sync_checkpoints (network, last_graph_id, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (network) DO UPDATE SET last_graph_id = EXCLUDED.last_graph_id, updated_at = NOW()
RETURNING network, last_graph_id, updated_at`, network, lastGraphID).
		Scan(&c.Network, &c.LastGraphID, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt = updatedAt.Time
	return &c, nil
}

// ListCheckpoints returns all sync checkpoints ordered by network.
func (s *Store) ListCheckpoints(ctx context.Context) (out []*SyncCheckpoint, err error) {
	defer s.observe("list", "sync_checkpoints", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `SELECT network, last_graph_id, updated_at FROM sync_checkpoints ORDER BY network`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []*SyncCheckpoint{}
	for rows.Next() {
		var (
			c         SyncCheckpoint
			updatedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&c.Network, &c.LastGraphID, &updatedAt); err != nil {
			return nil, err
		}
		c.UpdatedAt = updatedAt.Time
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) observe(operation, table string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery(operation, table, time.Since(start).Seconds(), *err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
