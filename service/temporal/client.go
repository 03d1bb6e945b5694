package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
)

// Client is a production implementation of Scheduler that talks to Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// CreateSyncSchedule creates a Temporal schedule that syncs a network on the given interval.
func (c *Client) CreateSyncSchedule(ctx context.Context, network string, interval time.Duration, maxRounds int) error {
	id := ScheduleID(network)

	c.logger.Debug("creating sync schedule",
		"network", network,
		"schedule_id", id,
		"interval", interval,
	)

	workflowAction := client.ScheduleWorkflowAction{
		ID:        id,
		Workflow:  SyncRailgunTransactionsWorkflow,
		TaskQueue: c.taskQueue,
		Args: []interface{}{SyncRailgunTransactionsInput{
			Network:   network,
			MaxRounds: maxRounds,
		}},
	}

	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: id,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{{Every: interval}},
		},
		Action: &workflowAction,
		Memo: map[string]interface{}{
			"network":    network,
			"created_by": "railsync",
		},
	})
	if err != nil {
		c.logger.Error("failed to create schedule",
			"network", network,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to create schedule %q: %w", id, err)
	}

	c.logger.Info("sync schedule created",
		"network", network,
		"schedule_id", id,
		"interval", interval,
	)
	return nil
}

// UpsertSyncSchedule creates the schedule for a network or, if it already
// exists, updates its interval.
func (c *Client) UpsertSyncSchedule(ctx context.Context, network string, interval time.Duration, maxRounds int) error {
	id := ScheduleID(network)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if _, err := handle.Describe(ctx); err != nil {
		c.logger.Debug("schedule not found, creating new one",
			"schedule_id", id,
			"error", err,
		)
		return c.CreateSyncSchedule(ctx, network, interval, maxRounds)
	}

	err := handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			input.Description.Schedule.Spec.Intervals = []client.ScheduleIntervalSpec{
				{Every: interval},
			}
			return &client.ScheduleUpdate{
				Schedule: &input.Description.Schedule,
			}, nil
		},
	})
	if err != nil {
		c.logger.Error("failed to update schedule",
			"network", network,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to update schedule %q: %w", id, err)
	}

	c.logger.Info("sync schedule updated",
		"network", network,
		"schedule_id", id,
		"interval", interval,
	)
	return nil
}

// DeleteSyncSchedule deletes the Temporal schedule for a network.
func (c *Client) DeleteSyncSchedule(ctx context.Context, network string) error {
	id := ScheduleID(network)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Delete(ctx); err != nil {
		c.logger.Error("failed to delete schedule",
			"network", network,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to delete schedule %q: %w", id, err)
	}

	c.logger.Info("sync schedule deleted",
		"network", network,
		"schedule_id", id,
	)
	return nil
}

// StartSync starts SyncRailgunTransactionsWorkflow for a network right away.
func (c *Client) StartSync(ctx context.Context, network string, maxRounds int) (string, error) {
	workflowID := fmt.Sprintf("%s-manual-%d", ScheduleID(network), time.Now().UnixNano())

	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: c.taskQueue,
	}, SyncRailgunTransactionsWorkflow, SyncRailgunTransactionsInput{
		Network:   network,
		MaxRounds: maxRounds,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start sync workflow for %s: %w", network, err)
	}

	c.logger.Info("sync workflow started",
		"network", network,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return run.GetID(), nil
}

// SDKClient returns the underlying Temporal SDK client for direct workflow operations.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
