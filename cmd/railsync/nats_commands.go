package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	natspkg "github.com/brojonat/railsync/service/nats"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"
)

func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Stream railgun transaction events for a network",
		ArgsUsage: "<network>",
		Description: `Subscribe to the railgun.txs.<network> subject and print every newly
stored railgun transaction. Use "*" to follow all networks.

Examples:
  railsync nats subscribe Ethereum
  railsync nats subscribe --durable --consumer indexer Ethereum`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "durable",
				Usage: "Create a durable consumer that survives restarts",
			},
			&cli.StringFlag{
				Name:  "consumer",
				Usage: "Durable consumer name",
				Value: "railsync-cli",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Stop after this long (0 streams until interrupted)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: network")
			}
			return streamRailgunTransactions(c, natspkg.SubjectForNetwork(c.Args().First()))
		},
	}
}

func streamRailgunTransactions(c *cli.Context, subject string) error {
	jsonOutput := wantJSON(c)

	nc, err := nats.Connect(c.String("nats-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if c.Bool("durable") {
		consumerConfig.Durable = c.String("consumer")
		consumerConfig.Name = c.String("consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := c.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cons, err := js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	if !jsonOutput {
		fmt.Fprintf(os.Stderr, "📡 Subscribing to: %s\n", subject)
		if c.Bool("durable") {
			fmt.Fprintf(os.Stderr, "   Consumer: %s (durable)\n", consumerConfig.Durable)
		}
		fmt.Fprintf(os.Stderr, "\nWaiting for railgun transactions... (Ctrl-C to exit)\n\n")
	}

	msgChan := make(chan jetstream.Msg, 10)
	consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer consumeCtx.Stop()

	count := 0
	for {
		select {
		case msg := <-msgChan:
			var event natspkg.RailgunTransactionEvent
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				fmt.Fprintf(os.Stderr, "Error parsing event: %v\n", err)
				_ = msg.Ack()
				continue
			}
			count++

			if jsonOutput {
				if err := outputJSON(c, event); err != nil {
					return err
				}
			} else {
				printEvent(count, &event)
			}
			_ = msg.Ack()

		case <-ctx.Done():
			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "\n✅ Received %d railgun transactions\n", count)
			}
			return nil
		}
	}
}

func printEvent(n int, event *natspkg.RailgunTransactionEvent) {
	fmt.Printf("─────────────────────────────────────────────────────\n")
	fmt.Printf("Railgun Transaction #%d\n", n)
	fmt.Printf("─────────────────────────────────────────────────────\n")
	fmt.Printf("Network:      %s\n", event.Network)
	fmt.Printf("Graph ID:     %s\n", event.GraphID)
	fmt.Printf("Block:        %d\n", event.BlockNumber)
	fmt.Printf("Commitments:  %s\n", summarize(event.Commitments))
	fmt.Printf("Nullifiers:   %s\n", summarize(event.Nullifiers))
	fmt.Printf("Params Hash:  %s\n", event.BoundParamsHash)
	fmt.Printf("Published:    %s\n\n", event.PublishedAt.Format(time.RFC3339))
}

func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect-stream",
		Usage: "Inspect the railgun transactions JetStream stream",
		Action: func(c *cli.Context) error {
			nc, err := nats.Connect(c.String("nats-url"))
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			ctx := context.Background()
			stream, err := js.Stream(ctx, natspkg.StreamName)
			if err != nil {
				return fmt.Errorf("failed to get stream: %w", err)
			}
			info, err := stream.Info(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stream info: %w", err)
			}

			if wantJSON(c) {
				return outputJSON(c, info)
			}

			fmt.Printf("Stream: %s\n", info.Config.Name)
			fmt.Printf("─────────────────────────────────────────────────────\n")
			fmt.Printf("Subjects:     %v\n", info.Config.Subjects)
			fmt.Printf("Messages:     %d\n", info.State.Msgs)
			fmt.Printf("Bytes:        %d\n", info.State.Bytes)
			fmt.Printf("First Seq:    %d\n", info.State.FirstSeq)
			fmt.Printf("Last Seq:     %d\n", info.State.LastSeq)
			fmt.Printf("Consumers:    %d\n", info.State.Consumers)
			fmt.Printf("Max Age:      %s\n", info.Config.MaxAge)
			fmt.Printf("Storage:      %s\n", info.Config.Storage)
			return nil
		},
	}
}
