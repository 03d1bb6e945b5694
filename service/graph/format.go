package graph

import (
	"fmt"
	"strconv"
)

// FormatRailgunTransactions converts subgraph records to RailgunTransaction,
// preserving order. blockNumber is a decimal BigInt string.
func FormatRailgunTransactions(txs []GraphTransaction) ([]RailgunTransaction, error) {
	out := make([]RailgunTransaction, 0, len(txs))
	for _, tx := range txs {
		blockNumber, err := strconv.ParseUint(tx.BlockNumber, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse block number %q for %s: %w", tx.BlockNumber, tx.ID, err)
		}
		out = append(out, RailgunTransaction{
			GraphID:         tx.ID,
			Commitments:     nonNil(tx.Commitments),
			Nullifiers:      nonNil(tx.Nullifiers),
			BoundParamsHash: tx.BoundParamsHash,
			BlockNumber:     blockNumber,
		})
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
