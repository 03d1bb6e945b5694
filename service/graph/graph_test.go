package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/brojonat/railsync/service/network"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func graphID(i int) string {
	return fmt.Sprintf("0x%064x", i)
}

func makeGraphTransactions(n int) []GraphTransaction {
	out := make([]GraphTransaction, n)
	for i := range out {
		out[i] = GraphTransaction{
			ID:              graphID(i),
			Commitments:     []string{fmt.Sprintf("0xc%d", i)},
			Nullifiers:      []string{fmt.Sprintf("0xn%d", i)},
			BoundParamsHash: fmt.Sprintf("0xb%d", i),
			BlockNumber:     strconv.Itoa(14755920 + i),
		}
	}
	return out
}

// fakeQuerier serves records with ID >= idLow in ID order, like the subgraph.
type fakeQuerier struct {
	mu        sync.Mutex
	records   []GraphTransaction
	unshields map[string][]string
	err       error
	cursors   []string
	closed    bool
	listeners []func()
}

func newFakeQuerier(records []GraphTransaction) *fakeQuerier {
	sorted := append([]GraphTransaction(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &fakeQuerier{records: sorted, unshields: map[string][]string{}}
}

func (f *fakeQuerier) RailgunTransactions(ctx context.Context, idLow string, first int) ([]GraphTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, idLow)
	if f.err != nil {
		return nil, f.err
	}
	var out []GraphTransaction
	for _, r := range f.records {
		if r.ID >= idLow {
			out = append(out, r)
			if len(out) == first {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeQuerier) UnshieldTransactionIDs(ctx context.Context, txHash string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.unshields[txHash], nil
}

func (f *fakeQuerier) OnClose(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *fakeQuerier) Close() error {
	f.mu.Lock()
	listeners := f.listeners
	f.listeners = nil
	f.closed = true
	f.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
	return nil
}

func (f *fakeQuerier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cursors)
}

var _ Querier = (*fakeQuerier)(nil)

func pageQueryFor(f *fakeQuerier, pageSize int) PageQuery[GraphTransaction] {
	return func(ctx context.Context, cursor string) ([]GraphTransaction, error) {
		return f.RailgunTransactions(ctx, cursor, pageSize)
	}
}

func ethereumChain() network.Chain {
	return network.Chain{Type: network.ChainTypeEVM, ID: 1}
}

// cachedQuerier reports whether a querier is cached for name.
func (e *Engine) cachedQuerier(name network.Name) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.queriers[name]
	return ok
}
