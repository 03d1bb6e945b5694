package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brojonat/railsync/service/metrics"
	"github.com/brojonat/railsync/service/network"
	"github.com/redis/go-redis/v9"
)

const unshieldKeyPrefix = "railsync:unshield:"

// UnshieldCache is a Redis read-through cache for unshield transaction ID
// lookups. On-chain results do not change, so entries only expire when a
// TTL is configured.
type UnshieldCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewUnshieldCache connects to Redis at addr and verifies the connection.
func NewUnshieldCache(ctx context.Context, addr string, ttl time.Duration, m *metrics.Metrics) (*UnshieldCache, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewUnshieldCacheFromClient(client, ttl, m), nil
}

// NewUnshieldCacheFromClient wraps an existing Redis client.
func NewUnshieldCacheFromClient(client *redis.Client, ttl time.Duration, m *metrics.Metrics) *UnshieldCache {
	return &UnshieldCache{client: client, ttl: ttl, metrics: m}
}

// GetUnshieldIDs returns cached IDs and whether the entry existed.
func (c *UnshieldCache) GetUnshieldIDs(ctx context.Context, name network.Name, txHash string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, unshieldKey(name, txHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read unshield cache: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, fmt.Errorf("failed to decode unshield cache entry: %w", err)
	}
	c.record(true)
	return ids, true, nil
}

// SetUnshieldIDs stores IDs for a transaction hash.
func (c *UnshieldCache) SetUnshieldIDs(ctx context.Context, name network.Name, txHash string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode unshield cache entry: %w", err)
	}
	if err := c.client.Set(ctx, unshieldKey(name, txHash), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write unshield cache: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *UnshieldCache) Close() error {
	return c.client.Close()
}

func (c *UnshieldCache) record(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup("unshield_ids", hit)
	}
}

func unshieldKey(name network.Name, txHash string) string {
	return unshieldKeyPrefix + string(name) + ":" + strings.ToLower(txHash)
}
