package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr  string
	MetricsAddr string
	LogLevel    string

	// Database configuration
	DatabaseURL string

	// NATS configuration
	NATSURL string

	// Redis configuration (optional; empty disables the unshield cache)
	RedisAddr        string
	UnshieldCacheTTL time.Duration

	// Tracing configuration (optional; empty disables export)
	OTELEndpoint string

	// Subgraph configuration
	GraphSourcesFile       string
	NetworkOverridesFile   string
	GraphPageSize          int
	GraphMaxQueryResults   int
	GraphRequestsPerSecond float64

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Sync configuration
	SyncInterval  time.Duration
	SyncMaxRounds int
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9090")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Database configuration
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if ttl, err := parseDuration("UNSHIELD_CACHE_TTL", "0s"); err != nil {
		errs = append(errs, err)
	} else {
		cfg.UnshieldCacheTTL = ttl
	}

	cfg.OTELEndpoint = os.Getenv("OTEL_ENDPOINT")

	// Subgraph configuration
	cfg.GraphSourcesFile = os.Getenv("GRAPH_SOURCES_FILE")
	if cfg.GraphSourcesFile == "" {
		errs = append(errs, fmt.Errorf("GRAPH_SOURCES_FILE is required"))
	}
	cfg.NetworkOverridesFile = os.Getenv("NETWORK_OVERRIDES_FILE")

	if pageSize, err := parseInt("GRAPH_PAGE_SIZE", 1000); err != nil {
		errs = append(errs, err)
	} else {
		cfg.GraphPageSize = pageSize
	}

	if maxResults, err := parseInt("GRAPH_MAX_QUERY_RESULTS", 100000); err != nil {
		errs = append(errs, err)
	} else {
		cfg.GraphMaxQueryResults = maxResults
	}

	if rps, err := parseFloat("GRAPH_REQUESTS_PER_SECOND", 5); err != nil {
		errs = append(errs, err)
	} else {
		cfg.GraphRequestsPerSecond = rps
	}

	// Pages overlap by one record, so a page of one never advances.
	if cfg.GraphPageSize < 2 {
		errs = append(errs, fmt.Errorf("GRAPH_PAGE_SIZE must be at least 2"))
	}
	if cfg.GraphMaxQueryResults < cfg.GraphPageSize {
		errs = append(errs, fmt.Errorf("GRAPH_MAX_QUERY_RESULTS (%d) cannot be less than GRAPH_PAGE_SIZE (%d)",
			cfg.GraphMaxQueryResults, cfg.GraphPageSize))
	}

	// Temporal configuration
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "railsync-transaction-sync")

	// Sync configuration
	if interval, err := parseDuration("SYNC_INTERVAL", "1m"); err != nil {
		errs = append(errs, err)
	} else {
		cfg.SyncInterval = interval
	}

	if rounds, err := parseInt("SYNC_MAX_ROUNDS", 10); err != nil {
		errs = append(errs, err)
	} else {
		cfg.SyncMaxRounds = rounds
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DatabaseURL is required"))
	}

	if c.GraphSourcesFile == "" {
		errs = append(errs, fmt.Errorf("GraphSourcesFile is required"))
	}

	if c.GraphPageSize < 2 {
		errs = append(errs, fmt.Errorf("GraphPageSize must be at least 2"))
	}

	if c.GraphMaxQueryResults < c.GraphPageSize {
		errs = append(errs, fmt.Errorf("GraphMaxQueryResults cannot be less than GraphPageSize"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Errorf("SyncInterval must be at least 1 second"))
	}

	if c.SyncMaxRounds < 1 {
		errs = append(errs, fmt.Errorf("SyncMaxRounds must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseFloat parses a float from an environment variable or uses a default.
func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}
