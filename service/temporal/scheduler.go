package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for railgun transaction sync.
// Each network gets its own schedule that triggers SyncRailgunTransactionsWorkflow.
type Scheduler interface {
	// UpsertSyncSchedule creates the schedule for a network, or updates its
	// interval if it already exists.
	UpsertSyncSchedule(ctx context.Context, network string, interval time.Duration, maxRounds int) error

	// DeleteSyncSchedule deletes the schedule for a network.
	DeleteSyncSchedule(ctx context.Context, network string) error

	// StartSync starts a sync run for a network immediately and returns its workflow ID.
	StartSync(ctx context.Context, network string, maxRounds int) (string, error)
}

// SchedulePrefix prefixes every sync schedule ID.
const SchedulePrefix = "sync-railgun-txs-"

// ScheduleID returns the Temporal schedule ID for a network.
func ScheduleID(network string) string {
	return SchedulePrefix + network
}
