package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/railsync/service/bootstrap"
	"github.com/brojonat/railsync/service/graph"
	"github.com/brojonat/railsync/service/network"
	"github.com/urfave/cli/v2"
)

func graphCommands() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Query railgun subgraphs directly",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "network",
				Aliases: []string{"n"},
				Usage:   "Network name (e.g. Ethereum)",
			},
			&cli.Uint64Flag{
				Name:  "chain-id",
				Usage: "EVM chain ID, used when --network is not set",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Records requested per subgraph page",
				Value: graph.DefaultPageSize,
			},
			&cli.IntFlag{
				Name:  "max-results",
				Usage: "Stop paginating once this many records were fetched",
				Value: graph.DefaultMaxResults,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Overall command timeout",
				Value: 5 * time.Minute,
			},
		},
		Subcommands: []*cli.Command{
			quickSyncCommand(),
			unshieldIDsCommand(),
		},
	}
}

func quickSyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "quick-sync",
		Usage: "Fetch railgun transactions from a network's subgraph",
		Description: `Pages through the network's railgun transaction subgraph starting at
--cursor (inclusive) and prints the formatted records. Nothing is stored.

Example:
  railsync graph --network Ethereum quick-sync --cursor 0x0100`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "cursor",
				Usage: "Graph ID to start from; empty starts at the beginning",
			},
		},
		Action: func(c *cli.Context) error {
			n, err := resolveNetworkFlags(c)
			if err != nil {
				return err
			}
			engine, closer, err := getGraphEngine(c)
			if err != nil {
				return err
			}
			defer closer()

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			var cursor *string
			if v := c.String("cursor"); v != "" {
				cursor = &v
			}
			res, err := engine.Sync(ctx, n.Chain, cursor)
			if err != nil {
				return fmt.Errorf("quick sync failed: %w", err)
			}

			if wantJSON(c) {
				return outputJSON(c, res)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "GRAPH ID\tBLOCK\tCOMMITMENTS\tNULLIFIERS\tBOUND PARAMS HASH")
			for _, tx := range res.Transactions {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
					tx.GraphID,
					tx.BlockNumber,
					len(tx.Commitments),
					len(tx.Nullifiers),
					tx.BoundParamsHash,
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d transactions (%d pages, %d duplicates dropped)\n",
				len(res.Transactions), res.Pages, res.Duplicates)
			if res.HitCeiling {
				fmt.Fprintf(os.Stderr, "Stopped at the result ceiling; rerun from the last graph ID for more.\n")
			}
			return nil
		},
	}
}

func unshieldIDsCommand() *cli.Command {
	return &cli.Command{
		Name:      "unshield-ids",
		Usage:     "List railgun transaction IDs with unshields in an on-chain transaction",
		ArgsUsage: "TX_HASH",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: transaction hash")
			}
			n, err := resolveNetworkFlags(c)
			if err != nil {
				return err
			}
			engine, closer, err := getGraphEngine(c)
			if err != nil {
				return err
			}
			defer closer()

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			ids, err := engine.GetUnshieldTransactionIDs(ctx, n.Chain, c.Args().First())
			if err != nil {
				return fmt.Errorf("unshield lookup failed: %w", err)
			}

			if wantJSON(c) {
				return outputJSON(c, ids)
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			fmt.Fprintf(os.Stderr, "\nTotal: %d railgun transactions\n", len(ids))
			return nil
		},
	}
}

// resolveNetworkFlags picks the network named by --network or --chain-id.
func resolveNetworkFlags(c *cli.Context) (*network.Network, error) {
	registry, err := bootstrap.NetworkRegistry(c.String("network-overrides-file"))
	if err != nil {
		return nil, err
	}
	return resolveNetwork(registry, c.String("network"), c.Uint64("chain-id"))
}

func resolveNetwork(registry *network.Registry, name string, chainID uint64) (*network.Network, error) {
	switch {
	case name != "" && chainID != 0:
		return nil, fmt.Errorf("use either --network or --chain-id, not both")
	case name != "":
		n, ok := registry.ByName(network.Name(name))
		if !ok {
			return nil, fmt.Errorf("unknown network %q", name)
		}
		return n, nil
	case chainID != 0:
		n, ok := registry.ForChain(network.Chain{Type: network.ChainTypeEVM, ID: chainID})
		if !ok {
			return nil, fmt.Errorf("no network for chain id %d", chainID)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("--network or --chain-id is required")
	}
}

func getGraphEngine(c *cli.Context) (*graph.Engine, func(), error) {
	if c.Int("page-size") < 2 {
		return nil, nil, fmt.Errorf("page-size must be at least 2")
	}
	sourcesFile := c.String("graph-sources-file")
	if sourcesFile == "" {
		return nil, nil, fmt.Errorf("graph-sources-file is required (set GRAPH_SOURCES_FILE env var or use --graph-sources-file)")
	}
	registry, err := bootstrap.NetworkRegistry(c.String("network-overrides-file"))
	if err != nil {
		return nil, nil, err
	}

	engine, closeEngine, err := bootstrap.NewGraphEngine(context.Background(), bootstrap.EngineOptions{
		SourcesFile: sourcesFile,
		PageSize:    c.Int("page-size"),
		MaxResults:  c.Int("max-results"),
	}, registry, nil, cliLogger())
	if err != nil {
		return nil, nil, err
	}
	return engine, func() { _ = closeEngine() }, nil
}
