package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/brojonat/railsync/service/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFactory struct {
	mu      sync.Mutex
	built   []*fakeQuerier
	records []GraphTransaction
	sources []SourceConfig
}

func (f *countingFactory) build(source SourceConfig) (Querier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := newFakeQuerier(f.records)
	f.built = append(f.built, q)
	f.sources = append(f.sources, source)
	return q, nil
}

func (f *countingFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.built)
}

func testSources() []SourceConfig {
	return []SourceConfig{
		{Name: "txs-ethereum", Endpoint: "https://graph.example/ethereum"},
		{Name: "txs-goerli", Endpoint: "https://graph.example/goerli"},
	}
}

func poiRegistry(t *testing.T, names ...network.Name) *network.Registry {
	t.Helper()
	r := network.DefaultRegistry()
	for _, n := range names {
		require.NoError(t, r.SetPOI(n, &network.POIConfig{LaunchBlock: 1000}))
	}
	return r
}

func newTestEngine(t *testing.T, registry *network.Registry, factory *countingFactory, cache UnshieldCache) *Engine {
	t.Helper()
	return NewEngine(EngineConfig{
		Sources:    testSources(),
		Pagination: PaginationOptions{PageSize: 10, MaxResults: 1000},
	}, registry, factory.build, cache, nil, testLogger())
}

func TestEngine_QuickSync(t *testing.T) {
	factory := &countingFactory{records: makeGraphTransactions(25)}
	e := newTestEngine(t, poiRegistry(t, network.Ethereum), factory, nil)

	txs, err := e.QuickSync(context.Background(), ethereumChain(), nil)
	require.NoError(t, err)
	require.Len(t, txs, 25)

	for i, tx := range txs {
		assert.Equal(t, graphID(i), tx.GraphID)
		assert.Equal(t, uint64(14755920+i), tx.BlockNumber)
	}
	require.Equal(t, 1, factory.count())
	assert.Equal(t, "txs-ethereum", factory.sources[0].Name)
	assert.Equal(t, DefaultCursor, factory.built[0].cursors[0])
}

func TestEngine_QuickSyncFromCursor(t *testing.T) {
	factory := &countingFactory{records: makeGraphTransactions(25)}
	e := newTestEngine(t, poiRegistry(t, network.Ethereum), factory, nil)

	cursor := graphID(20)
	txs, err := e.QuickSync(context.Background(), ethereumChain(), &cursor)
	require.NoError(t, err)
	require.Len(t, txs, 5)
	assert.Equal(t, cursor, txs[0].GraphID)
}

func TestEngine_QuickSyncIsIdempotent(t *testing.T) {
	factory := &countingFactory{records: makeGraphTransactions(33)}
	e := newTestEngine(t, poiRegistry(t, network.Ethereum), factory, nil)

	first, err := e.QuickSync(context.Background(), ethereumChain(), nil)
	require.NoError(t, err)
	second, err := e.QuickSync(context.Background(), ethereumChain(), nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngine_QuickSyncSkipsNetworksWithoutPOI(t *testing.T) {
	factory := &countingFactory{records: makeGraphTransactions(5)}
	e := newTestEngine(t, network.DefaultRegistry(), factory, nil)

	txs, err := e.QuickSync(context.Background(), ethereumChain(), nil)
	require.NoError(t, err)
	assert.Empty(t, txs)

	txs, err = e.QuickSync(context.Background(), network.Chain{Type: network.ChainTypeEVM, ID: 424242}, nil)
	require.NoError(t, err)
	assert.Empty(t, txs)

	assert.Equal(t, 0, factory.count())
}

func TestEngine_QuickSyncConfigurationErrors(t *testing.T) {
	t.Run("network without subgraph", func(t *testing.T) {
		factory := &countingFactory{}
		e := newTestEngine(t, poiRegistry(t, network.Polygon), factory, nil)

		_, err := e.QuickSync(context.Background(), network.Chain{Type: network.ChainTypeEVM, ID: 137}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoSubgraphForNetwork)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Equal(t, 0, factory.count())
	})

	t.Run("duplicate source", func(t *testing.T) {
		factory := &countingFactory{}
		e := NewEngine(EngineConfig{
			Sources: append(testSources(), SourceConfig{Name: "txs-ethereum", Endpoint: "https://other"}),
		}, poiRegistry(t, network.Ethereum), factory.build, nil, nil, testLogger())

		_, err := e.QuickSync(context.Background(), ethereumChain(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSourceMisconfigured)
		assert.Contains(t, err.Error(), "found 2")
	})
}

func TestEngine_QuickSyncPropagatesFetchError(t *testing.T) {
	boom := errors.New("connection reset")
	factory := &countingFactory{records: makeGraphTransactions(5)}
	e := newTestEngine(t, poiRegistry(t, network.Ethereum), factory, nil)

	q, err := e.querier(network.Ethereum)
	require.NoError(t, err)
	q.(*fakeQuerier).err = boom

	_, err = e.QuickSync(context.Background(), ethereumChain(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrConfiguration)
}

func TestEngine_ReusesQuerierUntilClosed(t *testing.T) {
	factory := &countingFactory{records: makeGraphTransactions(3)}
	e := newTestEngine(t, poiRegistry(t, network.Ethereum), factory, nil)
	ctx := context.Background()

	_, err := e.QuickSync(ctx, ethereumChain(), nil)
	require.NoError(t, err)
	_, err = e.QuickSync(ctx, ethereumChain(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, factory.count())
	assert.True(t, e.cachedQuerier(network.Ethereum))

	require.NoError(t, factory.built[0].Close())
	assert.False(t, e.cachedQuerier(network.Ethereum))

	_, err = e.QuickSync(ctx, ethereumChain(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, factory.count())
}

func TestEngine_CloseDropsQueriers(t *testing.T) {
	factory := &countingFactory{records: makeGraphTransactions(3)}
	e := newTestEngine(t, poiRegistry(t, network.Ethereum, network.EthereumGoerli), factory, nil)

	_, err := e.QuickSync(context.Background(), ethereumChain(), nil)
	require.NoError(t, err)
	_, err = e.QuickSync(context.Background(), network.Chain{Type: network.ChainTypeEVM, ID: 5}, nil)
	require.NoError(t, err)

	require.NoError(t, e.Close())
	assert.False(t, e.cachedQuerier(network.Ethereum))
	assert.False(t, e.cachedQuerier(network.EthereumGoerli))
	for _, q := range factory.built {
		assert.True(t, q.closed)
	}
}

type memoryUnshieldCache struct {
	mu   sync.Mutex
	data map[string][]string
	sets int
}

func (m *memoryUnshieldCache) GetUnshieldIDs(ctx context.Context, name network.Name, txHash string) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.data[string(name)+":"+txHash]
	return ids, ok, nil
}

func (m *memoryUnshieldCache) SetUnshieldIDs(ctx context.Context, name network.Name, txHash string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(name)+":"+txHash] = ids
	m.sets++
	return nil
}

func TestEngine_GetUnshieldTransactionIDs(t *testing.T) {
	factory := &countingFactory{}
	cache := &memoryUnshieldCache{data: map[string][]string{}}
	e := newTestEngine(t, network.DefaultRegistry(), factory, cache)
	ctx := context.Background()

	q, err := e.querier(network.Ethereum)
	require.NoError(t, err)
	q.(*fakeQuerier).unshields["0xfeed"] = []string{"065bcb"}

	ids, err := e.GetUnshieldTransactionIDs(ctx, ethereumChain(), "0xfeed")
	require.NoError(t, err)
	assert.Equal(t, []string{"065bcb"}, ids)
	assert.Equal(t, 1, cache.sets)

	// Served from cache even after the subgraph forgets it.
	delete(q.(*fakeQuerier).unshields, "0xfeed")
	ids, err = e.GetUnshieldTransactionIDs(ctx, ethereumChain(), "0xfeed")
	require.NoError(t, err)
	assert.Equal(t, []string{"065bcb"}, ids)
	assert.Equal(t, 1, cache.sets)
}

func TestEngine_GetUnshieldTransactionIDsUnknownChain(t *testing.T) {
	e := newTestEngine(t, network.DefaultRegistry(), &countingFactory{}, nil)

	_, err := e.GetUnshieldTransactionIDs(context.Background(), network.Chain{Type: network.ChainTypeEVM, ID: 9}, "0xfeed")
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
}
