package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brojonat/railsync/service/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

func listCheckpointsCommand() *cli.Command {
	return &cli.Command{
		Name:    "checkpoints",
		Usage:   "List the sync checkpoint of every network",
		Aliases: []string{"cp"},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			checkpoints, err := store.ListCheckpoints(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list checkpoints: %w", err)
			}

			if wantJSON(c) {
				return outputJSON(c, checkpoints)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NETWORK\tLAST GRAPH ID\tUPDATED")
			for _, cp := range checkpoints {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					cp.Network,
					cp.LastGraphID,
					cp.UpdatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d networks\n", len(checkpoints))
			return nil
		},
	}
}

func listRailgunTransactionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "list-transactions",
		Usage:     "List stored railgun transactions for a network",
		Aliases:   []string{"txs"},
		ArgsUsage: "<network>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "after",
				Usage: "Only list records with a graph ID greater than this",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of records to show",
				Value:   50,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: network")
			}
			limit := c.Int("limit")
			if limit <= 0 {
				return fmt.Errorf("limit must be positive")
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			txs, err := store.ListRailgunTransactions(context.Background(), db.ListRailgunTransactionsParams{
				Network: c.Args().First(),
				AfterID: c.String("after"),
				Limit:   int32(limit),
			})
			if err != nil {
				return fmt.Errorf("failed to list railgun transactions: %w", err)
			}

			if wantJSON(c) {
				return outputJSON(c, txs)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "GRAPH ID\tBLOCK\tCOMMITMENTS\tNULLIFIERS\tSTORED")
			for _, tx := range txs {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					tx.GraphID,
					tx.BlockNumber,
					summarize(tx.Commitments),
					summarize(tx.Nullifiers),
					tx.CreatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nShowing %d transactions\n", len(txs))
			return nil
		},
	}
}

func countRailgunTransactionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "count",
		Usage:     "Count stored railgun transactions for a network",
		ArgsUsage: "<network>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: network")
			}
			networkName := c.Args().First()

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			ctx := context.Background()
			count, err := store.CountRailgunTransactions(ctx, networkName)
			if err != nil {
				return fmt.Errorf("failed to count railgun transactions: %w", err)
			}
			cp, err := store.GetCheckpoint(ctx, networkName)
			if err != nil {
				return fmt.Errorf("failed to get checkpoint: %w", err)
			}
			var lastGraphID *string
			if cp != nil {
				lastGraphID = &cp.LastGraphID
			}

			if wantJSON(c) {
				return outputJSON(c, map[string]interface{}{
					"network":       networkName,
					"count":         count,
					"last_graph_id": lastGraphID,
				})
			}

			fmt.Printf("Network:        %s\n", networkName)
			fmt.Printf("Transactions:   %d\n", count)
			fmt.Printf("Last Graph ID:  %s\n", valueOr(lastGraphID, "(never synced)"))
			return nil
		},
	}
}

// summarize shortens a hash list for table output.
func summarize(items []string) string {
	switch len(items) {
	case 0:
		return "-"
	case 1:
		return items[0]
	default:
		return fmt.Sprintf("%s (+%d)", items[0], len(items)-1)
	}
}

// getStore connects to the database named by --database-url.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := strings.TrimSpace(c.String("database-url"))
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db.NewStore(pool), pool.Close, nil
}
