package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brojonat/railsync/service/config"
	"github.com/brojonat/railsync/service/network"
	"github.com/brojonat/railsync/service/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchedules_OnlyPOINetworks(t *testing.T) {
	registry := network.DefaultRegistry()
	require.NoError(t, registry.SetPOI(network.Ethereum, &network.POIConfig{LaunchBlock: 1}))
	require.NoError(t, registry.SetPOI(network.Polygon, &network.POIConfig{LaunchBlock: 2}))

	scheduler := temporal.NewMockScheduler()
	cfg := &config.Config{SyncInterval: 2 * time.Minute, SyncMaxRounds: 5}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, ensureSchedules(context.Background(), scheduler, registry, cfg, logger))

	interval, ok := scheduler.GetScheduleInterval("Ethereum")
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, interval)
	assert.True(t, scheduler.ScheduleExists("Polygon"))
	assert.False(t, scheduler.ScheduleExists("BNB_Chain"))
	assert.False(t, scheduler.ScheduleExists("Arbitrum"))
}
