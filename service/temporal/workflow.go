package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// DefaultMaxRounds bounds how many ceiling-limited rounds one workflow run performs.
const DefaultMaxRounds = 10

// SyncRailgunTransactionsInput contains the input parameters for a sync run.
type SyncRailgunTransactionsInput struct {
	Network   string `json:"network"`
	MaxRounds int    `json:"max_rounds,omitempty"`
}

// SyncRailgunTransactionsResult contains the result of a sync run.
type SyncRailgunTransactionsResult struct {
	Network    string    `json:"network"`
	Rounds     int       `json:"rounds"`
	Fetched    int       `json:"fetched"`
	Written    int       `json:"written"`
	Skipped    int       `json:"skipped"`
	Published  int       `json:"published"`
	Cursor     *string   `json:"cursor,omitempty"`
	HitCeiling bool      `json:"hit_ceiling"`
	SyncTime   time.Time `json:"sync_time"`
	Error      *string   `json:"error,omitempty"`
}

// SyncRailgunTransactionsWorkflow brings a network's stored railgun
// transactions up to date with its subgraph. It is triggered by a per-network
// Temporal schedule or started on demand.
//
// The workflow loads the network's checkpoint, then runs sync rounds. A round
// that stopped at the pagination ceiling is followed by another round from the
// new cursor, up to MaxRounds.
func SyncRailgunTransactionsWorkflow(ctx workflow.Context, input SyncRailgunTransactionsInput) (*SyncRailgunTransactionsResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("SyncRailgunTransactionsWorkflow started", "network", input.Network)

	maxRounds := input.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	result := &SyncRailgunTransactionsResult{
		Network:  input.Network,
		SyncTime: workflow.Now(ctx),
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var checkpoint *GetSyncCheckpointResult
	err := workflow.ExecuteActivity(ctx, a.GetSyncCheckpoint, GetSyncCheckpointInput{Network: input.Network}).Get(ctx, &checkpoint)
	if err != nil {
		errMsg := fmt.Sprintf("failed to get sync checkpoint: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to get sync checkpoint: %w", err)
	}
	result.Cursor = checkpoint.Cursor

	for result.Rounds < maxRounds {
		var batch *SyncBatchResult
		err := workflow.ExecuteActivity(ctx, a.SyncRailgunTransactionsBatch, SyncBatchInput{
			Network: input.Network,
			Cursor:  result.Cursor,
		}).Get(ctx, &batch)
		if err != nil {
			logger.Error("sync round failed",
				"network", input.Network,
				"round", result.Rounds+1,
				"error", err,
			)
			errMsg := fmt.Sprintf("failed to sync railgun transactions: %v", err)
			result.Error = &errMsg
			return result, fmt.Errorf("failed to sync railgun transactions: %w", err)
		}

		result.Rounds++
		result.Fetched += batch.Fetched
		result.Written += batch.Written
		result.Skipped += batch.Skipped
		result.Published += batch.Published
		result.Cursor = batch.NewCursor
		result.HitCeiling = batch.HitCeiling

		logger.Info("sync round complete",
			"network", input.Network,
			"round", result.Rounds,
			"fetched", batch.Fetched,
			"written", batch.Written,
			"hit_ceiling", batch.HitCeiling,
		)

		if !batch.HitCeiling {
			break
		}
	}

	if result.HitCeiling {
		logger.Warn("sync stopped with records remaining",
			"network", input.Network,
			"rounds", result.Rounds,
		)
	}

	logger.Info("SyncRailgunTransactionsWorkflow completed successfully",
		"network", input.Network,
		"rounds", result.Rounds,
		"fetched", result.Fetched,
		"written", result.Written,
		"skipped", result.Skipped,
	)

	return result, nil
}
