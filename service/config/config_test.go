package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("GRAPH_SOURCES_FILE", "sources.yaml")
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, "sources.yaml", cfg.GraphSourcesFile)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1000, cfg.GraphPageSize)
	assert.Equal(t, 100000, cfg.GraphMaxQueryResults)
	assert.Equal(t, 5.0, cfg.GraphRequestsPerSecond)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, 10, cfg.SyncMaxRounds)
	assert.Equal(t, time.Duration(0), cfg.UnshieldCacheTTL)
	assert.Empty(t, cfg.RedisAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GRAPH_SOURCES_FILE", "")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "GRAPH_SOURCES_FILE is required")
}

func TestLoad_InvalidValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SYNC_INTERVAL", "soon")
	t.Setenv("GRAPH_PAGE_SIZE", "many")
	t.Setenv("GRAPH_REQUESTS_PER_SECOND", "fast")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
	assert.Contains(t, err.Error(), "invalid integer")
	assert.Contains(t, err.Error(), "invalid number")
}

func TestLoad_CeilingBelowPageSize(t *testing.T) {
	setRequired(t)
	t.Setenv("GRAPH_PAGE_SIZE", "1000")
	t.Setenv("GRAPH_MAX_QUERY_RESULTS", "500")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be less than GRAPH_PAGE_SIZE")
}

func TestLoad_PageSizeTooSmall(t *testing.T) {
	for _, size := range []string{"0", "1"} {
		t.Run(size, func(t *testing.T) {
			setRequired(t)
			t.Setenv("GRAPH_PAGE_SIZE", size)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "GRAPH_PAGE_SIZE must be at least 2")
		})
	}

	setRequired(t)
	t.Setenv("GRAPH_PAGE_SIZE", "2")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.GraphPageSize)
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("UNSHIELD_CACHE_TTL", "24h")
	t.Setenv("GRAPH_MAX_QUERY_RESULTS", "250000")
	t.Setenv("TEMPORAL_TASK_QUEUE", "custom-queue")
	t.Setenv("SYNC_MAX_ROUNDS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ServerAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.UnshieldCacheTTL)
	assert.Equal(t, 250000, cfg.GraphMaxQueryResults)
	assert.Equal(t, "custom-queue", cfg.TemporalTaskQueue)
	assert.Equal(t, 3, cfg.SyncMaxRounds)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		DatabaseURL:          "postgres://localhost/test",
		GraphSourcesFile:     "sources.yaml",
		GraphPageSize:        1000,
		GraphMaxQueryResults: 100000,
		TemporalHost:         "localhost:7233",
		TemporalNamespace:    "default",
		TemporalTaskQueue:    "q",
		SyncInterval:         time.Minute,
		SyncMaxRounds:        10,
	}
	require.NoError(t, cfg.Validate())

	cfg.SyncInterval = 100 * time.Millisecond
	cfg.SyncMaxRounds = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SyncInterval must be at least 1 second")
	assert.Contains(t, err.Error(), "SyncMaxRounds must be at least 1")
}

func TestValidate_PageSizeTooSmall(t *testing.T) {
	cfg := &Config{
		DatabaseURL:          "postgres://localhost/test",
		GraphSourcesFile:     "sources.yaml",
		GraphPageSize:        1,
		GraphMaxQueryResults: 100000,
		TemporalHost:         "localhost:7233",
		TemporalNamespace:    "default",
		TemporalTaskQueue:    "q",
		SyncInterval:         time.Minute,
		SyncMaxRounds:        10,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GraphPageSize must be at least 2")

	cfg.GraphPageSize = 2
	assert.NoError(t, cfg.Validate())
}
