package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brojonat/railsync/service/db"
	"github.com/brojonat/railsync/service/graph"
	"github.com/brojonat/railsync/service/network"
	"github.com/brojonat/railsync/service/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	txs         []*db.RailgunTransaction
	checkpoints map[string]*db.SyncCheckpoint
	err         error
	lastParams  db.ListRailgunTransactionsParams
}

func (f *fakeStore) ListRailgunTransactions(ctx context.Context, params db.ListRailgunTransactionsParams) ([]*db.RailgunTransaction, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*db.RailgunTransaction, 0)
	for _, tx := range f.txs {
		if tx.Network == params.Network && tx.GraphID > params.AfterID && len(out) < int(params.Limit) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) GetCheckpoint(ctx context.Context, network string) (*db.SyncCheckpoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.checkpoints[network], nil
}

type fakeUnshields struct {
	ids []string
	err error
}

func (f *fakeUnshields) GetUnshieldTransactionIDs(ctx context.Context, chain network.Chain, txHash string) ([]string, error) {
	return f.ids, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(t *testing.T) *network.Registry {
	t.Helper()
	r := network.DefaultRegistry()
	require.NoError(t, r.SetPOI(network.Ethereum, &network.POIConfig{LaunchBlock: 1}))
	return r
}

func newTestServer(t *testing.T, store *fakeStore, unshields *fakeUnshields, scheduler temporal.Scheduler) http.Handler {
	t.Helper()
	return New(":0", Deps{
		Store:     store,
		Networks:  testRegistry(t),
		Unshields: unshields,
		Scheduler: scheduler,
		MaxRounds: 10,
		Logger:    testLogger(),
	}).Handler()
}

func sampleStore(n int) *fakeStore {
	s := &fakeStore{checkpoints: map[string]*db.SyncCheckpoint{}}
	for i := 1; i <= n; i++ {
		s.txs = append(s.txs, &db.RailgunTransaction{
			Network:         "Ethereum",
			GraphID:         fmt.Sprintf("0x%04x", i),
			Commitments:     []string{"0xc"},
			Nullifiers:      []string{"0xn"},
			BoundParamsHash: "0xb",
			BlockNumber:     int64(100 + i),
		})
	}
	return s
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, sampleStore(0), &fakeUnshields{}, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestListNetworks(t *testing.T) {
	h := newTestServer(t, sampleStore(0), &fakeUnshields{}, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/networks", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.EqualValues(t, len(network.DefaultRegistry().Names()), body["count"])
}

func TestListRailgunTransactions(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		expectedStatus int
		expectedCount  int
		expectNext     string
	}{
		{
			name:           "default limit",
			url:            "/api/v1/networks/Ethereum/railgun-transactions",
			expectedStatus: http.StatusOK,
			expectedCount:  5,
		},
		{
			name:           "full page reports next cursor",
			url:            "/api/v1/networks/Ethereum/railgun-transactions?limit=2",
			expectedStatus: http.StatusOK,
			expectedCount:  2,
			expectNext:     "0x0002",
		},
		{
			name:           "after cursor",
			url:            "/api/v1/networks/Ethereum/railgun-transactions?after=0x0003&limit=10",
			expectedStatus: http.StatusOK,
			expectedCount:  2,
		},
		{
			name:           "unknown network",
			url:            "/api/v1/networks/Solana/railgun-transactions",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "non-numeric limit",
			url:            "/api/v1/networks/Ethereum/railgun-transactions?limit=abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "limit too large",
			url:            "/api/v1/networks/Ethereum/railgun-transactions?limit=5000",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "limit zero",
			url:            "/api/v1/networks/Ethereum/railgun-transactions?limit=0",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, sampleStore(5), &fakeUnshields{}, nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", tt.url, nil))

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedStatus != http.StatusOK {
				assert.Contains(t, decodeBody(t, w), "error")
				return
			}

			body := decodeBody(t, w)
			assert.EqualValues(t, tt.expectedCount, body["count"])
			if tt.expectNext != "" {
				assert.Equal(t, tt.expectNext, body["next_after"])
			} else {
				assert.NotContains(t, body, "next_after")
			}
		})
	}
}

func TestListRailgunTransactions_StoreError(t *testing.T) {
	store := sampleStore(0)
	store.err = errors.New("connection reset")
	h := newTestServer(t, store, &fakeUnshields{}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/networks/Ethereum/railgun-transactions", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestGetCheckpoint(t *testing.T) {
	store := sampleStore(0)
	store.checkpoints["Ethereum"] = &db.SyncCheckpoint{Network: "Ethereum", LastGraphID: "0x0a", UpdatedAt: time.Now()}
	h := newTestServer(t, store, &fakeUnshields{}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/networks/Ethereum/checkpoint", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0x0a", decodeBody(t, w)["last_graph_id"])

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/networks/Polygon/checkpoint", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUnshieldTransactionIDs(t *testing.T) {
	validHash := "0x" + strings.Repeat("ab", 32)

	tests := []struct {
		name           string
		hash           string
		unshields      *fakeUnshields
		expectedStatus int
	}{
		{
			name:           "found",
			hash:           validHash,
			unshields:      &fakeUnshields{ids: []string{"0x01", "0x02"}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed hash",
			hash:           "0x1234",
			unshields:      &fakeUnshields{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "not hex",
			hash:           "not-a-hash",
			unshields:      &fakeUnshields{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unsupported network",
			hash:           validHash,
			unshields:      &fakeUnshields{err: fmt.Errorf("%w: chain 0:1", graph.ErrUnsupportedNetwork)},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "no subgraph configured",
			hash:           validHash,
			unshields:      &fakeUnshields{err: graph.ErrNoSubgraphForNetwork},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "subgraph failure",
			hash:           validHash,
			unshields:      &fakeUnshields{err: errors.New("502 from upstream")},
			expectedStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, sampleStore(0), tt.unshields, nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/networks/Ethereum/unshield-transaction-ids/"+tt.hash, nil))

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedStatus == http.StatusOK {
				body := decodeBody(t, w)
				assert.EqualValues(t, 2, body["count"])
				assert.Equal(t, []interface{}{"0x01", "0x02"}, body["railgun_txids"])
			}
		})
	}
}

func TestStartSync(t *testing.T) {
	scheduler := temporal.NewMockScheduler()
	h := newTestServer(t, sampleStore(0), &fakeUnshields{}, scheduler)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/networks/Ethereum/sync", nil))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["workflow_id"])
	assert.EqualValues(t, 10, body["max_rounds"])

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/networks/Ethereum/sync", strings.NewReader(`{"max_rounds":3}`)))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.EqualValues(t, 3, decodeBody(t, w)["max_rounds"])

	assert.Equal(t, []string{"Ethereum", "Ethereum"}, scheduler.StartedSyncs())
}

func TestStartSync_Rejections(t *testing.T) {
	scheduler := temporal.NewMockScheduler()
	h := newTestServer(t, sampleStore(0), &fakeUnshields{}, scheduler)

	tests := []struct {
		name           string
		url            string
		body           string
		expectedStatus int
	}{
		{"unknown network", "/api/v1/networks/Solana/sync", "", http.StatusNotFound},
		{"network without poi", "/api/v1/networks/Polygon/sync", "", http.StatusConflict},
		{"malformed body", "/api/v1/networks/Ethereum/sync", `{"max_rounds":`, http.StatusBadRequest},
		{"negative rounds", "/api/v1/networks/Ethereum/sync", `{"max_rounds":-1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("POST", tt.url, strings.NewReader(tt.body)))
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, scheduler.StartedSyncs())

	scheduler.SetStartError(errors.New("temporal unavailable"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/networks/Ethereum/sync", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSchedule(t *testing.T) {
	scheduler := temporal.NewMockScheduler()
	h := newTestServer(t, sampleStore(0), &fakeUnshields{}, scheduler)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("PUT", "/api/v1/networks/Ethereum/schedule", strings.NewReader(`{"interval":"5m"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	interval, ok := scheduler.GetScheduleInterval("Ethereum")
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, interval)

	for _, body := range []string{`{"interval":"1s"}`, `{"interval":"48h"}`, `{"interval":"soon"}`, `{`} {
		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("PUT", "/api/v1/networks/Ethereum/schedule", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/networks/Ethereum/schedule", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, scheduler.ScheduleExists("Ethereum"))
}

func TestSyncRoutesDisabledWithoutScheduler(t *testing.T) {
	h := newTestServer(t, sampleStore(0), &fakeUnshields{}, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/networks/Ethereum/sync", nil))
	assert.NotEqual(t, http.StatusAccepted, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, sampleStore(0), &fakeUnshields{}, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/api/v1/networks", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
