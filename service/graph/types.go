package graph

// GraphTransaction is a railgun transaction as the subgraph returns it.
type GraphTransaction struct {
	ID              string   `json:"id"`
	Commitments     []string `json:"commitments"`
	Nullifiers      []string `json:"nullifiers"`
	BoundParamsHash string   `json:"boundParamsHash"`
	BlockNumber     string   `json:"blockNumber"`
}

// GetID implements Identifiable.
func (t GraphTransaction) GetID() string { return t.ID }

// RailgunTransaction is a formatted, immutable railgun transaction record.
type RailgunTransaction struct {
	GraphID         string   `json:"graph_id"`
	Commitments     []string `json:"commitments"`
	Nullifiers      []string `json:"nullifiers"`
	BoundParamsHash string   `json:"bound_params_hash"`
	BlockNumber     uint64   `json:"block_number"`
}

// Identifiable is any record with a subgraph ID.
type Identifiable interface {
	GetID() string
}
