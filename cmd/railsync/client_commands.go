package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/railsync/client"
	"github.com/urfave/cli/v2"
)

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for interacting with the railsync server",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 30 * time.Second,
			},
		},
		Subcommands: []*cli.Command{
			clientNetworksCommand(),
			clientTransactionsCommand(),
			clientCheckpointCommand(),
			clientUnshieldIDsCommand(),
			clientSyncCommand(),
		},
	}
}

func clientNetworksCommand() *cli.Command {
	return &cli.Command{
		Name:  "networks",
		Usage: "List the networks the server knows about",
		Action: func(c *cli.Context) error {
			ctx, cancel := clientContext(c)
			defer cancel()

			networks, err := newAPIClient(c).Networks(ctx)
			if err != nil {
				return err
			}

			if wantJSON(c) {
				return outputJSON(c, networks)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPUBLIC NAME\tCHAIN ID\tEIP-1559\tPOI LAUNCH BLOCK")
			for _, n := range networks {
				launch := "-"
				if n.POI != nil {
					launch = fmt.Sprintf("%d", n.POI.LaunchBlock)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%s\n", n.Name, n.PublicName, n.ChainID, n.SupportsEIP1559, launch)
			}
			w.Flush()
			return nil
		},
	}
}

func clientTransactionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "transactions",
		Usage:     "List stored railgun transactions for a network",
		ArgsUsage: "<network>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "after",
				Usage: "Only list records with a graph ID greater than this",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Records per page",
				Value:   100,
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Follow next_after until every record was listed",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: network")
			}
			networkName := c.Args().First()
			cl := newAPIClient(c)

			ctx, cancel := clientContext(c)
			defer cancel()

			var (
				txs       []*client.RailgunTransaction
				nextAfter string
			)
			if c.Bool("all") {
				err := cl.AllTransactions(ctx, networkName, c.String("after"), c.Int("limit"), func(page *client.TransactionPage) error {
					txs = append(txs, page.Transactions...)
					return nil
				})
				if err != nil {
					return err
				}
			} else {
				page, err := cl.Transactions(ctx, networkName, c.String("after"), c.Int("limit"))
				if err != nil {
					return err
				}
				if wantJSON(c) {
					return outputJSON(c, page)
				}
				txs = page.Transactions
				nextAfter = page.NextAfter
			}

			if wantJSON(c) {
				return outputJSON(c, txs)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "GRAPH ID\tBLOCK\tCOMMITMENTS\tNULLIFIERS")
			for _, tx := range txs {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", tx.GraphID, tx.BlockNumber, summarize(tx.Commitments), summarize(tx.Nullifiers))
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nShowing %d transactions\n", len(txs))
			if nextAfter != "" {
				fmt.Fprintf(os.Stderr, "More records follow: --after %s\n", nextAfter)
			}
			return nil
		},
	}
}

func clientCheckpointCommand() *cli.Command {
	return &cli.Command{
		Name:      "checkpoint",
		Usage:     "Show the sync checkpoint of a network",
		ArgsUsage: "<network>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: network")
			}
			ctx, cancel := clientContext(c)
			defer cancel()

			cp, err := newAPIClient(c).Checkpoint(ctx, c.Args().First())
			if err != nil {
				return err
			}

			if wantJSON(c) {
				return outputJSON(c, cp)
			}
			fmt.Printf("Network:        %s\n", cp.Network)
			fmt.Printf("Last Graph ID:  %s\n", cp.LastGraphID)
			fmt.Printf("Updated:        %s\n", cp.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func clientUnshieldIDsCommand() *cli.Command {
	return &cli.Command{
		Name:      "unshield-ids",
		Usage:     "List railgun transaction IDs with unshields in an on-chain transaction",
		ArgsUsage: "<network> <tx-hash>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires exactly two arguments: network and transaction hash")
			}
			ctx, cancel := clientContext(c)
			defer cancel()

			ids, err := newAPIClient(c).UnshieldTransactionIDs(ctx, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}

			if wantJSON(c) {
				return outputJSON(c, ids)
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func clientSyncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Ask the server to start a sync run for a network",
		ArgsUsage: "<network>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-rounds",
				Usage: "Sync rounds for this run (0 uses the server default)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: network")
			}
			if c.Int("max-rounds") < 0 {
				return fmt.Errorf("max-rounds must not be negative")
			}
			ctx, cancel := clientContext(c)
			defer cancel()

			started, err := newAPIClient(c).Sync(ctx, c.Args().First(), c.Int("max-rounds"))
			if err != nil {
				return err
			}

			if wantJSON(c) {
				return outputJSON(c, started)
			}
			fmt.Printf("✓ Started %s (max rounds: %d)\n", started.WorkflowID, started.MaxRounds)
			return nil
		},
	}
}

func newAPIClient(c *cli.Context) *client.Client {
	return client.NewClient(c.String("server-url"), nil, cliLogger())
}

func clientContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.Duration("timeout"))
}
