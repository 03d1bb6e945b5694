package nats

import (
	"time"

	"github.com/brojonat/railsync/service/graph"
)

// RailgunTransactionEvent is published to "railgun.txs.{network}" for every
// newly stored railgun transaction.
type RailgunTransactionEvent struct {
	Network         string   `json:"network"`
	GraphID         string   `json:"graph_id"`
	Commitments     []string `json:"commitments"`
	Nullifiers      []string `json:"nullifiers"`
	BoundParamsHash string   `json:"bound_params_hash"`
	BlockNumber     uint64   `json:"block_number"`

	PublishedAt time.Time `json:"published_at"`
}

// FromRailgunTransaction converts a synced record to an event for publishing.
func FromRailgunTransaction(network string, tx graph.RailgunTransaction) *RailgunTransactionEvent {
	return &RailgunTransactionEvent{
		Network:         network,
		GraphID:         tx.GraphID,
		Commitments:     tx.Commitments,
		Nullifiers:      tx.Nullifiers,
		BoundParamsHash: tx.BoundParamsHash,
		BlockNumber:     tx.BlockNumber,
		PublishedAt:     time.Now().UTC(),
	}
}

// SubjectForNetwork returns the subject events for a network are published on.
func SubjectForNetwork(network string) string {
	return SubjectPrefix + network
}
