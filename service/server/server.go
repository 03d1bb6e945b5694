package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/railsync/service/metrics"
	"github.com/brojonat/railsync/service/temporal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server for the railgun transaction sync service.
type Server struct {
	addr      string
	store     TransactionStore
	networks  NetworkResolver
	unshields UnshieldLookup
	scheduler temporal.Scheduler
	maxRounds int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	server    *http.Server
}

// Deps are the server's collaborators. Scheduler and Metrics are optional:
// without a scheduler the sync and schedule endpoints are not registered.
type Deps struct {
	Store     TransactionStore
	Networks  NetworkResolver
	Unshields UnshieldLookup
	Scheduler temporal.Scheduler
	MaxRounds int
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// New creates a new HTTP server with the given dependencies.
func New(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      addr,
		store:     deps.Store,
		networks:  deps.Networks,
		unshields: deps.Unshields,
		scheduler: deps.Scheduler,
		maxRounds: deps.MaxRounds,
		metrics:   deps.Metrics,
		logger:    logger,
	}
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	route := func(pattern, name string, h http.Handler) {
		mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, name)(h))
	}

	route("GET /api/v1/networks", "/api/v1/networks",
		handleListNetworks(s.networks))
	route("GET /api/v1/networks/{network}/railgun-transactions", "/api/v1/networks/{network}/railgun-transactions",
		handleListRailgunTransactions(s.store, s.networks, s.logger))
	route("GET /api/v1/networks/{network}/checkpoint", "/api/v1/networks/{network}/checkpoint",
		handleGetCheckpoint(s.store, s.networks, s.logger))
	route("GET /api/v1/networks/{network}/unshield-transaction-ids/{txHash}", "/api/v1/networks/{network}/unshield-transaction-ids/{txHash}",
		handleGetUnshieldTransactionIDs(s.unshields, s.networks, s.logger))

	if s.scheduler != nil {
		route("POST /api/v1/networks/{network}/sync", "/api/v1/networks/{network}/sync",
			handleStartSync(s.scheduler, s.networks, s.maxRounds, s.logger))
		route("PUT /api/v1/networks/{network}/schedule", "/api/v1/networks/{network}/schedule",
			handleUpsertSchedule(s.scheduler, s.networks, s.maxRounds, s.logger))
		route("DELETE /api/v1/networks/{network}/schedule", "/api/v1/networks/{network}/schedule",
			handleDeleteSchedule(s.scheduler, s.networks, s.logger))
	} else {
		s.logger.Warn("scheduler not configured, sync endpoints disabled")
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
