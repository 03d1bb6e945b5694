package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/brojonat/railsync/service/metrics"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const railgunTransactionsQuery = `query RailgunTransactions($idLow: Bytes!, $first: Int!) {
  transactionInterfaces(orderBy: id, first: $first, where: { id_gte: $idLow }) {
    id
    nullifiers
    commitments
    boundParamsHash
    blockNumber
  }
}`

const unshieldTransactionIDsQuery = `query UnshieldRailgunTransactionIDs($txHash: Bytes!) {
  transactionInterfaces(orderBy: id, where: { transactionHash: $txHash, hasUnshield: true }) {
    id
    railgunTxid
  }
}`

// Querier is the paginated transport for one subgraph source.
type Querier interface {
	RailgunTransactions(ctx context.Context, idLow string, first int) ([]GraphTransaction, error)
	UnshieldTransactionIDs(ctx context.Context, txHash string) ([]string, error)
	// OnClose registers fn to run once when the querier is torn down.
	OnClose(fn func())
}

// ClientOptions configures a Client.
type ClientOptions struct {
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
}

// Client sends GraphQL queries to one subgraph source over HTTP.
type Client struct {
	source     SourceConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	tracer     trace.Tracer
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu        sync.Mutex
	closed    bool
	listeners []func()
}

// NewClient creates a Client for source.
func NewClient(source SourceConfig, opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := source.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		source:     source,
		httpClient: httpClient,
		limiter:    limiter,
		tracer:     otel.Tracer("railsync/graph"),
		metrics:    opts.Metrics,
		logger:     logger.With("source", source.Name),
	}
}

// Source returns the source this client queries.
func (c *Client) Source() SourceConfig {
	return c.source
}

// RailgunTransactions returns up to first records with ID >= idLow.
func (c *Client) RailgunTransactions(ctx context.Context, idLow string, first int) ([]GraphTransaction, error) {
	data, err := c.query(ctx, "RailgunTransactions", railgunTransactionsQuery, map[string]any{
		"idLow": idLow,
		"first": first,
	})
	if err != nil {
		return nil, err
	}

	rows := data.Get("transactionInterfaces")
	if !rows.IsArray() {
		return nil, fmt.Errorf("unexpected response: transactionInterfaces is not a list")
	}
	out := make([]GraphTransaction, 0, len(rows.Array()))
	rows.ForEach(func(_, row gjson.Result) bool {
		out = append(out, GraphTransaction{
			ID:              row.Get("id").String(),
			Commitments:     stringList(row.Get("commitments")),
			Nullifiers:      stringList(row.Get("nullifiers")),
			BoundParamsHash: row.Get("boundParamsHash").String(),
			BlockNumber:     row.Get("blockNumber").String(),
		})
		return true
	})
	return out, nil
}

// UnshieldTransactionIDs returns the railgun transaction IDs of unshields
// emitted by the given on-chain transaction.
func (c *Client) UnshieldTransactionIDs(ctx context.Context, txHash string) ([]string, error) {
	data, err := c.query(ctx, "UnshieldRailgunTransactionIDs", unshieldTransactionIDsQuery, map[string]any{
		"txHash": txHash,
	})
	if err != nil {
		return nil, err
	}
	ids := []string{}
	data.Get("transactionInterfaces.#.railgunTxid").ForEach(func(_, v gjson.Result) bool {
		ids = append(ids, v.String())
		return true
	})
	return ids, nil
}

// OnClose registers fn to run when the client is closed. If the client is
// already closed fn runs immediately.
func (c *Client) OnClose(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn()
		return
	}
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Close marks the client closed, releases idle connections, and notifies
// listeners. Subsequent calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	listeners := c.listeners
	c.listeners = nil
	c.mu.Unlock()

	c.httpClient.CloseIdleConnections()
	for _, fn := range listeners {
		fn()
	}
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// query posts a GraphQL request and returns the "data" object.
func (c *Client) query(ctx context.Context, name, query string, variables map[string]any) (data gjson.Result, err error) {
	if c.isClosed() {
		return gjson.Result{}, ErrClientClosed
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "graph."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("graph.source", c.source.Name),
			attribute.String("graph.operation", name),
		))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if c.metrics != nil {
			c.metrics.RecordGraphQuery(c.source.Name, name, time.Since(start).Seconds(), err)
		}
	}()

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.source.Endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.source.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("subgraph returned status %d: %s", resp.StatusCode, truncate(raw, 256))
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("subgraph returned invalid JSON: %s", truncate(raw, 256))
	}

	if errs := gjson.GetBytes(raw, "errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return gjson.Result{}, fmt.Errorf("subgraph query error: %s", errs.Get("0.message").String())
	}

	c.logger.DebugContext(ctx, "subgraph query complete",
		"operation", name,
		"duration", time.Since(start),
	)
	return gjson.GetBytes(raw, "data"), nil
}

func stringList(v gjson.Result) []string {
	out := []string{}
	v.ForEach(func(_, s gjson.Result) bool {
		out = append(out, s.String())
		return true
	})
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
