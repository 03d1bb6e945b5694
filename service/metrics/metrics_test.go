package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	m.RecordGraphQuery("txs-ethereum", "railgun_transactions", 0.2, nil)
	m.RecordGraphQuery("txs-ethereum", "railgun_transactions", 0.1, errors.New("boom"))
	m.RecordPagination("Ethereum", 3, 2500, true)
	m.RecordProofValidation("Transfer", "valid")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.graphQueryCallsTotal.WithLabelValues("txs-ethereum", "railgun_transactions", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.graphPagesFetched.WithLabelValues("Ethereum")))
	assert.Equal(t, 2500.0, testutil.ToFloat64(m.graphRecordsFetched.WithLabelValues("Ethereum")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.graphCeilingHits.WithLabelValues("Ethereum")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.proofValidationsTotal.WithLabelValues("Transfer", "valid")))
}

func TestInitProofValidations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.InitProofValidations([]string{"Transfer", "Unshield"})

	assert.Equal(t, 2, testutil.CollectAndCount(m.proofValidationsTotal, "proof_validations_total"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.proofValidationsTotal.WithLabelValues("Unshield", "valid")))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	h := HTTPMetricsMiddleware(m, "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/health", "GET", "4xx")))
}

func TestHTTPMetricsMiddleware_NilMetrics(t *testing.T) {
	h := HTTPMetricsMiddleware(nil, "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
