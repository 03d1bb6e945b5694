package graph

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(SourceConfig{
		Name:     "txs-ethereum",
		Endpoint: srv.URL,
		Headers:  map[string]string{"X-Api-Key": "secret"},
	}, ClientOptions{Logger: testLogger()})
}

func TestClient_RailgunTransactions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "0x00", gjson.GetBytes(body, "variables.idLow").String())
		assert.Equal(t, int64(1000), gjson.GetBytes(body, "variables.first").Int())
		assert.Contains(t, gjson.GetBytes(body, "query").String(), "transactionInterfaces")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"transactionInterfaces":[
			{"id":"0x01","nullifiers":["0xn1"],"commitments":["0xc1","0xc2"],"boundParamsHash":"0xb1","blockNumber":"14755920"},
			{"id":"0x02","nullifiers":[],"commitments":["0xc3"],"boundParamsHash":"0xb2","blockNumber":"14755921"}
		]}}`))
	})

	txs, err := c.RailgunTransactions(context.Background(), "0x00", 1000)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, GraphTransaction{
		ID:              "0x01",
		Commitments:     []string{"0xc1", "0xc2"},
		Nullifiers:      []string{"0xn1"},
		BoundParamsHash: "0xb1",
		BlockNumber:     "14755920",
	}, txs[0])
	assert.Equal(t, []string{}, txs[1].Nullifiers)
}

func TestClient_UnshieldTransactionIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "0xfeed", gjson.GetBytes(body, "variables.txHash").String())
		_, _ = w.Write([]byte(`{"data":{"transactionInterfaces":[{"id":"0x01","railgunTxid":"065bcb"},{"id":"0x02","railgunTxid":"08fd73"}]}}`))
	})

	ids, err := c.UnshieldTransactionIDs(context.Background(), "0xfeed")
	require.NoError(t, err)
	assert.Equal(t, []string{"065bcb", "08fd73"}, ids)
}

func TestClient_GraphQLErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"indexing error"}]}`))
	})

	_, err := c.RailgunTransactions(context.Background(), "0x00", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexing error")
}

func TestClient_HTTPStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.RailgunTransactions(context.Background(), "0x00", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestClient_CloseNotifiesOnce(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("closed client must not send requests")
	})

	calls := 0
	c.OnClose(func() { calls++ })

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, calls)

	_, err := c.RailgunTransactions(context.Background(), "0x00", 10)
	assert.ErrorIs(t, err, ErrClientClosed)

	late := 0
	c.OnClose(func() { late++ })
	assert.Equal(t, 1, late)
}
