package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brojonat/railsync/service/temporal"
	"github.com/urfave/cli/v2"
	"go.temporal.io/sdk/client"
)

func listSchedulesCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-schedules",
		Usage:   "List railgun transaction sync schedules",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Include schedules that are not railsync sync schedules",
			},
		},
		Action: func(c *cli.Context) error {
			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx := context.Background()
			iter, err := tc.SDKClient().ScheduleClient().List(ctx, client.ScheduleListOptions{
				PageSize: 100,
			})
			if err != nil {
				return fmt.Errorf("failed to list schedules: %w", err)
			}

			var ids []string
			for iter.HasNext() {
				schedule, err := iter.Next()
				if err != nil {
					return fmt.Errorf("failed to iterate schedules: %w", err)
				}
				if !c.Bool("all") && !strings.HasPrefix(schedule.ID, temporal.SchedulePrefix) {
					continue
				}
				ids = append(ids, schedule.ID)
			}

			if wantJSON(c) {
				return outputJSON(c, ids)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCHEDULE ID\tNETWORK")
			for _, id := range ids {
				fmt.Fprintf(w, "%s\t%s\n", id, strings.TrimPrefix(id, temporal.SchedulePrefix))
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d schedules\n", len(ids))
			return nil
		},
	}
}

func describeScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe-schedule",
		Usage:     "Describe the sync schedule of a network",
		Aliases:   []string{"desc"},
		ArgsUsage: "<network>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: network")
			}
			id := temporal.ScheduleID(c.Args().First())

			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx := context.Background()
			desc, err := tc.SDKClient().ScheduleClient().GetHandle(ctx, id).Describe(ctx)
			if err != nil {
				return fmt.Errorf("failed to describe schedule: %w", err)
			}

			var intervals []string
			for _, interval := range desc.Schedule.Spec.Intervals {
				intervals = append(intervals, interval.Every.String())
			}
			var lastAction *time.Time
			if n := len(desc.Info.RecentActions); n > 0 {
				t := desc.Info.RecentActions[n-1].ActualTime
				lastAction = &t
			}

			if wantJSON(c) {
				return outputJSON(c, map[string]interface{}{
					"schedule_id":    id,
					"paused":         desc.Schedule.State.Paused,
					"note":           desc.Schedule.State.Note,
					"intervals":      intervals,
					"recent_actions": len(desc.Info.RecentActions),
					"last_action":    lastAction,
				})
			}

			fmt.Printf("Schedule ID:    %s\n", id)
			fmt.Printf("State Note:     %s\n", desc.Schedule.State.Note)
			fmt.Printf("Paused:         %v\n", desc.Schedule.State.Paused)

			if wa, ok := desc.Schedule.Action.(*client.ScheduleWorkflowAction); ok {
				fmt.Printf("\nWorkflow:\n")
				fmt.Printf("  Workflow:     %v\n", wa.Workflow)
				fmt.Printf("  Task Queue:   %s\n", wa.TaskQueue)
			}

			for i, every := range intervals {
				fmt.Printf("Interval %d:     every %s\n", i+1, every)
			}
			fmt.Printf("\nRecent Actions: %d\n", len(desc.Info.RecentActions))
			if lastAction != nil {
				fmt.Printf("Last Action:    %s\n", lastAction.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func upsertScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "upsert-schedule",
		Usage:     "Create or update the sync schedule of a network",
		Aliases:   []string{"create-schedule"},
		ArgsUsage: "<network>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "How often the sync workflow runs",
				Value:   5 * time.Minute,
			},
			&cli.IntFlag{
				Name:  "max-rounds",
				Usage: "Sync rounds per run (0 uses the workflow default)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: network")
			}
			if err := validateScheduleFlags(c.Duration("interval"), c.Int("max-rounds")); err != nil {
				return err
			}
			networkName := c.Args().First()

			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := tc.UpsertSyncSchedule(context.Background(), networkName, c.Duration("interval"), c.Int("max-rounds")); err != nil {
				return err
			}

			fmt.Printf("✓ Schedule %s runs every %s\n", temporal.ScheduleID(networkName), c.Duration("interval"))
			return nil
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-schedule",
		Usage:     "Delete the sync schedule of a network",
		Aliases:   []string{"rm"},
		ArgsUsage: "<network>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: network")
			}
			networkName := c.Args().First()

			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := tc.DeleteSyncSchedule(context.Background(), networkName); err != nil {
				return err
			}

			fmt.Printf("✓ Schedule %s deleted\n", temporal.ScheduleID(networkName))
			return nil
		},
	}
}

func startSyncCommand() *cli.Command {
	return &cli.Command{
		Name:      "start-sync",
		Usage:     "Start a sync workflow for a network now",
		ArgsUsage: "<network>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-rounds",
				Usage: "Sync rounds for this run (0 uses the workflow default)",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Block until the workflow finishes and print its result",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: network")
			}
			if c.Int("max-rounds") < 0 {
				return fmt.Errorf("max-rounds must not be negative")
			}
			networkName := c.Args().First()

			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx := context.Background()
			workflowID, err := tc.StartSync(ctx, networkName, c.Int("max-rounds"))
			if err != nil {
				return err
			}

			if !c.Bool("wait") {
				if wantJSON(c) {
					return outputJSON(c, map[string]string{"network": networkName, "workflow_id": workflowID})
				}
				fmt.Printf("✓ Started %s\n", workflowID)
				return nil
			}

			var result temporal.SyncRailgunTransactionsResult
			if err := tc.SDKClient().GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
				return fmt.Errorf("sync workflow %s failed: %w", workflowID, err)
			}

			if wantJSON(c) {
				return outputJSON(c, result)
			}
			fmt.Printf("Workflow:     %s\n", workflowID)
			fmt.Printf("Rounds:       %d\n", result.Rounds)
			fmt.Printf("Fetched:      %d\n", result.Fetched)
			fmt.Printf("Written:      %d\n", result.Written)
			fmt.Printf("Skipped:      %d\n", result.Skipped)
			fmt.Printf("Published:    %d\n", result.Published)
			fmt.Printf("Cursor:       %s\n", valueOr(result.Cursor, "(none)"))
			if result.HitCeiling {
				fmt.Printf("More records remain; the next run continues from the cursor.\n")
			}
			return nil
		},
	}
}

func validateScheduleFlags(interval time.Duration, maxRounds int) error {
	if interval < 10*time.Second {
		return fmt.Errorf("interval must be at least 10s, got %s", interval)
	}
	if interval > 24*time.Hour {
		return fmt.Errorf("interval must be at most 24h, got %s", interval)
	}
	if maxRounds < 0 {
		return fmt.Errorf("max-rounds must not be negative")
	}
	return nil
}

func getTemporalClient(c *cli.Context) (*temporal.Client, error) {
	return temporal.NewClient(
		c.String("temporal-host"),
		c.String("temporal-namespace"),
		c.String("temporal-task-queue"),
		cliLogger(),
	)
}
