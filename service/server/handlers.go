package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brojonat/railsync/service/db"
	"github.com/brojonat/railsync/service/graph"
	"github.com/brojonat/railsync/service/network"
	"github.com/brojonat/railsync/service/temporal"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	defaultListLimit   = 100
	maxListLimit       = 1000
	minSyncInterval    = 10 * time.Second
	maxSyncInterval    = 24 * time.Hour
)

// TransactionStore is the read side of the railgun transaction store.
type TransactionStore interface {
	ListRailgunTransactions(ctx context.Context, params db.ListRailgunTransactionsParams) ([]*db.RailgunTransaction, error)
	GetCheckpoint(ctx context.Context, network string) (*db.SyncCheckpoint, error)
}

// NetworkResolver looks up network descriptors by name.
type NetworkResolver interface {
	ByName(name network.Name) (*network.Network, bool)
	Names() []network.Name
}

// UnshieldLookup resolves the railgun transaction IDs of an on-chain unshield.
type UnshieldLookup interface {
	GetUnshieldTransactionIDs(ctx context.Context, chain network.Chain, txHash string) ([]string, error)
}

// networkResponse is the JSON response format for a network.
type networkResponse struct {
	Name            string             `json:"name"`
	PublicName      string             `json:"public_name"`
	ChainType       network.ChainType  `json:"chain_type"`
	ChainID         uint64             `json:"chain_id"`
	SupportsEIP1559 bool               `json:"supports_eip1559"`
	POI             *network.POIConfig `json:"poi,omitempty"`
}

// handleListNetworks returns a handler that lists the known networks.
// GET /api/v1/networks
func handleListNetworks(networks NetworkResolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		names := networks.Names()
		resp := make([]networkResponse, 0, len(names))
		for _, name := range names {
			n, ok := networks.ByName(name)
			if !ok {
				continue
			}
			resp = append(resp, networkResponse{
				Name:            string(n.Name),
				PublicName:      n.PublicName,
				ChainType:       n.Chain.Type,
				ChainID:         n.Chain.ID,
				SupportsEIP1559: n.SupportsEIP1559,
				POI:             n.POI,
			})
		}
		writeJSON(w, map[string]interface{}{
			"networks": resp,
			"count":    len(resp),
		}, http.StatusOK)
	})
}

// handleListRailgunTransactions returns a handler that lists stored railgun
// transactions for a network in graph ID order.
// GET /api/v1/networks/{network}/railgun-transactions?after=ID&limit=N
func handleListRailgunTransactions(store TransactionStore, networks NetworkResolver, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, ok := resolveNetwork(w, r, networks)
		if !ok {
			return
		}

		query := r.URL.Query()
		after := query.Get("after")

		limit := int32(defaultListLimit)
		if limitStr := query.Get("limit"); limitStr != "" {
			var parsedLimit int
			if _, err := fmt.Sscanf(limitStr, "%d", &parsedLimit); err != nil {
				writeError(w, "invalid limit parameter: must be an integer", http.StatusBadRequest)
				return
			}
			if parsedLimit < 1 {
				writeError(w, "limit must be at least 1", http.StatusBadRequest)
				return
			}
			if parsedLimit > maxListLimit {
				writeError(w, fmt.Sprintf("limit cannot exceed %d", maxListLimit), http.StatusBadRequest)
				return
			}
			limit = int32(parsedLimit)
		}

		txs, err := store.ListRailgunTransactions(r.Context(), db.ListRailgunTransactionsParams{
			Network: string(n.Name),
			AfterID: after,
			Limit:   limit,
		})
		if err != nil {
			logger.Error("failed to list railgun transactions", "network", n.Name, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]railgunTransactionResponse, len(txs))
		for i := range txs {
			resp[i] = railgunTransactionToResponse(txs[i])
		}

		body := map[string]interface{}{
			"network":      n.Name,
			"transactions": resp,
			"count":        len(resp),
			"limit":        limit,
		}
		if len(resp) == int(limit) {
			body["next_after"] = resp[len(resp)-1].GraphID
		}
		writeJSON(w, body, http.StatusOK)
	})
}

// handleGetCheckpoint returns a handler that reports a network's sync checkpoint.
// GET /api/v1/networks/{network}/checkpoint
func handleGetCheckpoint(store TransactionStore, networks NetworkResolver, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, ok := resolveNetwork(w, r, networks)
		if !ok {
			return
		}

		cp, err := store.GetCheckpoint(r.Context(), string(n.Name))
		if err != nil {
			logger.Error("failed to get checkpoint", "network", n.Name, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if cp == nil {
			writeError(w, "network has not been synced", http.StatusNotFound)
			return
		}

		writeJSON(w, checkpointResponse{
			Network:     cp.Network,
			LastGraphID: cp.LastGraphID,
			UpdatedAt:   cp.UpdatedAt,
		}, http.StatusOK)
	})
}

// handleGetUnshieldTransactionIDs returns a handler that looks up the railgun
// transaction IDs for unshields in an on-chain transaction.
// GET /api/v1/networks/{network}/unshield-transaction-ids/{txHash}
func handleGetUnshieldTransactionIDs(lookup UnshieldLookup, networks NetworkResolver, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, ok := resolveNetwork(w, r, networks)
		if !ok {
			return
		}

		txHash := r.PathValue("txHash")
		if err := validateTxHash(txHash); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		ids, err := lookup.GetUnshieldTransactionIDs(r.Context(), n.Chain, txHash)
		switch {
		case errors.Is(err, graph.ErrUnsupportedNetwork):
			writeError(w, err.Error(), http.StatusNotFound)
			return
		case errors.Is(err, graph.ErrConfiguration):
			logger.Error("unshield lookup misconfigured", "network", n.Name, "error", err)
			writeError(w, "no subgraph configured for network", http.StatusServiceUnavailable)
			return
		case err != nil:
			logger.Error("failed to get unshield transaction ids", "network", n.Name, "tx_hash", txHash, "error", err)
			writeError(w, "failed to query subgraph", http.StatusBadGateway)
			return
		}

		writeJSON(w, map[string]interface{}{
			"network":       n.Name,
			"tx_hash":       txHash,
			"railgun_txids": ids,
			"count":         len(ids),
		}, http.StatusOK)
	})
}

type syncRequest struct {
	MaxRounds int `json:"max_rounds"`
}

// handleStartSync returns a handler that starts a sync run immediately.
// POST /api/v1/networks/{network}/sync
func handleStartSync(scheduler temporal.Scheduler, networks NetworkResolver, defaultMaxRounds int, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, ok := resolveNetwork(w, r, networks)
		if !ok {
			return
		}
		if n.POI == nil {
			writeError(w, fmt.Sprintf("network %s has no poi launch configuration", n.Name), http.StatusConflict)
			return
		}

		var req syncRequest
		if err := decodeOptionalBody(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.MaxRounds < 0 {
			writeError(w, "max_rounds cannot be negative", http.StatusBadRequest)
			return
		}
		maxRounds := req.MaxRounds
		if maxRounds == 0 {
			maxRounds = defaultMaxRounds
		}

		workflowID, err := scheduler.StartSync(r.Context(), string(n.Name), maxRounds)
		if err != nil {
			logger.Error("failed to start sync", "network", n.Name, "error", err)
			writeError(w, "failed to start sync", http.StatusInternalServerError)
			return
		}

		logger.Info("sync started", "network", n.Name, "workflow_id", workflowID)
		writeJSON(w, map[string]interface{}{
			"network":     n.Name,
			"workflow_id": workflowID,
			"max_rounds":  maxRounds,
		}, http.StatusAccepted)
	})
}

type scheduleRequest struct {
	Interval  string `json:"interval"`
	MaxRounds int    `json:"max_rounds"`
}

// handleUpsertSchedule returns a handler that creates or updates a network's sync schedule.
// PUT /api/v1/networks/{network}/schedule
func handleUpsertSchedule(scheduler temporal.Scheduler, networks NetworkResolver, defaultMaxRounds int, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, ok := resolveNetwork(w, r, networks)
		if !ok {
			return
		}
		if n.POI == nil {
			writeError(w, fmt.Sprintf("network %s has no poi launch configuration", n.Name), http.StatusConflict)
			return
		}

		var req scheduleRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}

		interval, err := time.ParseDuration(req.Interval)
		if err != nil {
			writeError(w, "invalid interval: must be a duration like 30s or 5m", http.StatusBadRequest)
			return
		}
		if err := validateSyncInterval(interval); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		maxRounds := req.MaxRounds
		if maxRounds <= 0 {
			maxRounds = defaultMaxRounds
		}

		if err := scheduler.UpsertSyncSchedule(r.Context(), string(n.Name), interval, maxRounds); err != nil {
			logger.Error("failed to upsert sync schedule", "network", n.Name, "error", err)
			writeError(w, "failed to create schedule", http.StatusInternalServerError)
			return
		}

		logger.Info("sync schedule upserted", "network", n.Name, "interval", interval)
		writeJSON(w, map[string]interface{}{
			"network":    n.Name,
			"interval":   interval.String(),
			"max_rounds": maxRounds,
		}, http.StatusOK)
	})
}

// handleDeleteSchedule returns a handler that deletes a network's sync schedule.
// DELETE /api/v1/networks/{network}/schedule
func handleDeleteSchedule(scheduler temporal.Scheduler, networks NetworkResolver, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, ok := resolveNetwork(w, r, networks)
		if !ok {
			return
		}

		if err := scheduler.DeleteSyncSchedule(r.Context(), string(n.Name)); err != nil {
			logger.Error("failed to delete sync schedule", "network", n.Name, "error", err)
			writeError(w, "failed to delete schedule", http.StatusInternalServerError)
			return
		}

		logger.Info("sync schedule deleted", "network", n.Name)
		w.WriteHeader(http.StatusNoContent)
	})
}

// railgunTransactionResponse is the JSON response format for a railgun transaction.
type railgunTransactionResponse struct {
	GraphID         string    `json:"graph_id"`
	Commitments     []string  `json:"commitments"`
	Nullifiers      []string  `json:"nullifiers"`
	BoundParamsHash string    `json:"bound_params_hash"`
	BlockNumber     int64     `json:"block_number"`
	CreatedAt       time.Time `json:"created_at"`
}

func railgunTransactionToResponse(t *db.RailgunTransaction) railgunTransactionResponse {
	return railgunTransactionResponse{
		GraphID:         t.GraphID,
		Commitments:     t.Commitments,
		Nullifiers:      t.Nullifiers,
		BoundParamsHash: t.BoundParamsHash,
		BlockNumber:     t.BlockNumber,
		CreatedAt:       t.CreatedAt,
	}
}

// checkpointResponse is the JSON response format for a sync checkpoint.
type checkpointResponse struct {
	Network     string    `json:"network"`
	LastGraphID string    `json:"last_graph_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// resolveNetwork looks up the {network} path value, writing a 404 when unknown.
func resolveNetwork(w http.ResponseWriter, r *http.Request, networks NetworkResolver) (*network.Network, bool) {
	name := r.PathValue("network")
	n, ok := networks.ByName(network.Name(name))
	if !ok {
		writeError(w, fmt.Sprintf("unknown network: %s", name), http.StatusNotFound)
		return nil, false
	}
	return n, true
}

// decodeOptionalBody decodes a JSON body if one was sent.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errorf("invalid request body")
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// validateTxHash checks that txHash is a 0x-prefixed 32-byte hex string.
func validateTxHash(txHash string) error {
	b, err := hexutil.Decode(txHash)
	if err != nil {
		return errorf("invalid transaction hash: %v", err)
	}
	if len(b) != common.HashLength {
		return errorf("invalid transaction hash: expected %d bytes, got %d", common.HashLength, len(b))
	}
	return nil
}

// validateSyncInterval validates a schedule interval for reasonable bounds.
func validateSyncInterval(interval time.Duration) error {
	if interval <= 0 {
		return errorf("interval must be positive")
	}
	if interval < minSyncInterval {
		return errorf("interval must be at least %v", minSyncInterval)
	}
	if interval > maxSyncInterval {
		return errorf("interval cannot exceed %v", maxSyncInterval)
	}
	return nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
