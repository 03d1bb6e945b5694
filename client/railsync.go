package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNotFound is returned when the server responds with 404.
var ErrNotFound = errors.New("not found")

// Network is a network the server knows about.
type Network struct {
	Name            string `json:"name"`
	PublicName      string `json:"public_name"`
	ChainType       int    `json:"chain_type"`
	ChainID         uint64 `json:"chain_id"`
	SupportsEIP1559 bool   `json:"supports_eip1559"`
	POI             *struct {
		LaunchBlock uint64 `json:"launch_block"`
	} `json:"poi,omitempty"`
}

// RailgunTransaction is a stored railgun transaction.
type RailgunTransaction struct {
	GraphID         string    `json:"graph_id"`
	Commitments     []string  `json:"commitments"`
	Nullifiers      []string  `json:"nullifiers"`
	BoundParamsHash string    `json:"bound_params_hash"`
	BlockNumber     int64     `json:"block_number"`
	CreatedAt       time.Time `json:"created_at"`
}

// TransactionPage is one page of stored railgun transactions. NextAfter is
// set when more records may follow.
type TransactionPage struct {
	Network      string                `json:"network"`
	Transactions []*RailgunTransaction `json:"transactions"`
	Count        int                   `json:"count"`
	Limit        int                   `json:"limit"`
	NextAfter    string                `json:"next_after,omitempty"`
}

// Checkpoint is the last graph ID synced for a network.
type Checkpoint struct {
	Network     string    `json:"network"`
	LastGraphID string    `json:"last_graph_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SyncStarted describes a sync run started on demand.
type SyncStarted struct {
	Network    string `json:"network"`
	WorkflowID string `json:"workflow_id"`
	MaxRounds  int    `json:"max_rounds"`
}

// Client is the HTTP client for the railsync service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new railsync service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Networks lists the networks the server knows about.
func (c *Client) Networks(ctx context.Context) ([]*Network, error) {
	var out struct {
		Networks []*Network `json:"networks"`
	}
	if err := c.do(ctx, "GET", "/api/v1/networks", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Networks, nil
}

// Transactions fetches one page of stored railgun transactions with graph ID
// greater than after. A zero limit uses the server default.
func (c *Client) Transactions(ctx context.Context, network, after string, limit int) (*TransactionPage, error) {
	q := url.Values{}
	if after != "" {
		q.Set("after", after)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := networkPath(network, "railgun-transactions")
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page TransactionPage
	if err := c.do(ctx, "GET", path, nil, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllTransactions walks every page after the given cursor, calling fn for
// each page until the server stops reporting a next cursor or fn returns an error.
func (c *Client) AllTransactions(ctx context.Context, network, after string, pageSize int, fn func(*TransactionPage) error) error {
	for {
		page, err := c.Transactions(ctx, network, after, pageSize)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		if page.NextAfter == "" || page.NextAfter == after {
			return nil
		}
		after = page.NextAfter
	}
}

// Checkpoint returns a network's sync checkpoint. It returns ErrNotFound if
// the network has never been synced.
func (c *Client) Checkpoint(ctx context.Context, network string) (*Checkpoint, error) {
	var cp Checkpoint
	if err := c.do(ctx, "GET", networkPath(network, "checkpoint"), nil, http.StatusOK, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// UnshieldTransactionIDs returns the railgun transaction IDs for unshields
// in an on-chain transaction.
func (c *Client) UnshieldTransactionIDs(ctx context.Context, network, txHash string) ([]string, error) {
	var out struct {
		IDs []string `json:"railgun_txids"`
	}
	path := networkPath(network, "unshield-transaction-ids") + "/" + url.PathEscape(txHash)
	if err := c.do(ctx, "GET", path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

// Sync starts a sync run for a network immediately. A zero maxRounds uses
// the server default.
func (c *Client) Sync(ctx context.Context, network string, maxRounds int) (*SyncStarted, error) {
	var body interface{}
	if maxRounds > 0 {
		body = map[string]interface{}{"max_rounds": maxRounds}
	}

	var started SyncStarted
	if err := c.do(ctx, "POST", networkPath(network, "sync"), body, http.StatusAccepted, &started); err != nil {
		return nil, err
	}
	c.logger.Debug("sync started", "network", network, "workflow_id", started.WorkflowID)
	return &started, nil
}

// UpsertSchedule creates or updates a network's periodic sync schedule.
func (c *Client) UpsertSchedule(ctx context.Context, network string, interval time.Duration, maxRounds int) error {
	body := map[string]interface{}{
		"interval":   interval.String(),
		"max_rounds": maxRounds,
	}
	if err := c.do(ctx, "PUT", networkPath(network, "schedule"), body, http.StatusOK, nil); err != nil {
		return err
	}
	c.logger.Debug("sync schedule upserted", "network", network, "interval", interval)
	return nil
}

// DeleteSchedule deletes a network's periodic sync schedule.
func (c *Client) DeleteSchedule(ctx context.Context, network string) error {
	if err := c.do(ctx, "DELETE", networkPath(network, "schedule"), nil, http.StatusNoContent, nil); err != nil {
		return err
	}
	c.logger.Debug("sync schedule deleted", "network", network)
	return nil
}

func networkPath(network, resource string) string {
	return "/api/v1/networks/" + url.PathEscape(network) + "/" + resource
}

// do sends a request and decodes the response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, reqBody interface{}, wantStatus int, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return c.parseErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		err := fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, errResp.Error)
	}
	return fmt.Errorf("request failed: %s", errResp.Error)
}
