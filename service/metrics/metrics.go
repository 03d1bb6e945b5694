package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// It is passed explicitly to every component that records metrics;
// components treat a nil *Metrics as "metrics disabled".
type Metrics struct {
	// Subgraph Metrics
	graphQueryCallsTotal   *prometheus.CounterVec
	graphQueryDuration     *prometheus.HistogramVec
	graphPagesFetched      *prometheus.CounterVec
	graphRecordsFetched    *prometheus.CounterVec
	graphDuplicatesDropped *prometheus.CounterVec
	graphCeilingHits       *prometheus.CounterVec

	// Proof Cache Metrics
	proofValidationsTotal *prometheus.CounterVec

	// Transaction Sync Metrics
	transactionsWrittenTotal *prometheus.CounterVec
	transactionsSkippedTotal *prometheus.CounterVec

	// Workflow Metrics
	syncActivityDuration *prometheus.HistogramVec

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec

	// Cache Metrics
	cacheLookupsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		graphQueryCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graph_query_calls_total",
				Help: "Total number of subgraph queries by source, query and status",
			},
			[]string{"source", "query", "status"},
		),
		graphQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graph_query_duration_seconds",
				Help:    "Duration of subgraph queries in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"source", "query"},
		),
		graphPagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graph_pages_fetched_total",
				Help: "Total number of result pages fetched during auto-pagination",
			},
			[]string{"network"},
		),
		graphRecordsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graph_records_fetched_total",
				Help: "Total number of railgun transaction records fetched before deduplication",
			},
			[]string{"network"},
		),
		graphDuplicatesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graph_duplicates_dropped_total",
				Help: "Total number of duplicate records dropped across page boundaries",
			},
			[]string{"network"},
		),
		graphCeilingHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graph_pagination_ceiling_hits_total",
				Help: "Total number of quick syncs that stopped at the result ceiling",
			},
			[]string{"network"},
		),

		proofValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proof_validations_total",
				Help: "Total number of cached proof validations by proof type and result",
			},
			[]string{"proof_type", "result"},
		),

		transactionsWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railgun_transactions_written_total",
				Help: "Total number of railgun transactions written to database",
			},
			[]string{"network"},
		),
		transactionsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railgun_transactions_skipped_total",
				Help: "Total number of railgun transactions skipped because they already existed",
			},
			[]string{"network"},
		),

		syncActivityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sync_activity_duration_seconds",
				Help:    "Duration of sync workflow activities in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"activity", "network"},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),

		cacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_lookups_total",
				Help: "Total number of read-through cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
	}
}

// Subgraph metric helpers

// RecordGraphQuery records a subgraph query with duration.
func (m *Metrics) RecordGraphQuery(source, query string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.graphQueryCallsTotal.WithLabelValues(source, query, status).Inc()
	m.graphQueryDuration.WithLabelValues(source, query).Observe(duration)
}

// RecordPagination records the outcome of one auto-paginated fetch.
func (m *Metrics) RecordPagination(network string, pages, records int, hitCeiling bool) {
	m.graphPagesFetched.WithLabelValues(network).Add(float64(pages))
	m.graphRecordsFetched.WithLabelValues(network).Add(float64(records))
	if hitCeiling {
		m.graphCeilingHits.WithLabelValues(network).Inc()
	}
}

// RecordDuplicatesDropped records records removed by deduplication.
func (m *Metrics) RecordDuplicatesDropped(network string, count int) {
	m.graphDuplicatesDropped.WithLabelValues(network).Add(float64(count))
}

// Proof cache metric helpers

// RecordProofValidation records a cached proof validation. result is "valid"
// or a short mismatch reason.
func (m *Metrics) RecordProofValidation(proofType, result string) {
	m.proofValidationsTotal.WithLabelValues(proofType, result).Inc()
}

// InitProofValidations exports a zero "valid" series for each proof type so
// rates are defined before the first validation.
func (m *Metrics) InitProofValidations(proofTypes []string) {
	for _, pt := range proofTypes {
		m.proofValidationsTotal.WithLabelValues(pt, "valid")
	}
}

// Transaction sync metric helpers

// RecordTransactionsWritten records railgun transactions written to database.
func (m *Metrics) RecordTransactionsWritten(network string, count int) {
	m.transactionsWrittenTotal.WithLabelValues(network).Add(float64(count))
}

// RecordTransactionsSkipped records railgun transactions that already existed.
func (m *Metrics) RecordTransactionsSkipped(network string, count int) {
	m.transactionsSkippedTotal.WithLabelValues(network).Add(float64(count))
}

// Workflow metric helpers

// RecordActivityDuration records activity execution duration.
func (m *Metrics) RecordActivityDuration(activity, network string, duration float64) {
	m.syncActivityDuration.WithLabelValues(activity, network).Observe(duration)
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Cache metric helpers

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
