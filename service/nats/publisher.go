package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/railsync/service/metrics"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher publishes railgun transaction events.
type Publisher interface {
	// PublishRailgunTransaction publishes one event to "railgun.txs.{network}".
	PublishRailgunTransaction(ctx context.Context, event *RailgunTransactionEvent) error

	// PublishRailgunTransactionBatch publishes events, logging and skipping
	// individual failures.
	PublishRailgunTransactionBatch(ctx context.Context, events []*RailgunTransactionEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamPublisher publishes railgun transaction events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	metrics *metrics.Metrics
	logger  *slog.Logger
}

const (
	// StreamName is the name of the JetStream stream for railgun transactions.
	StreamName = "RAILGUN_TRANSACTIONS"

	// SubjectPrefix prefixes every per-network subject.
	SubjectPrefix = "railgun.txs."

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = SubjectPrefix + "*"

	// StreamRetention is how long messages are retained.
	StreamRetention = 30 * 24 * time.Hour

	// duplicateWindow lets JetStream drop a re-published record after a retried sync.
	duplicateWindow = 2 * time.Hour
)

// NewPublisher connects to NATS and ensures the stream exists.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("railsync-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:      nc,
		js:      js,
		metrics: m,
		logger:  logger,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := p.js.Stream(ctx, StreamName)
	if err == nil {
		if info, err := stream.Info(ctx); err == nil {
			p.logger.Debug("JetStream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", StreamName)

	_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Railgun transactions synced from subgraphs",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Duplicates:  duplicateWindow,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("JetStream stream created successfully", "stream", StreamName)
	return nil
}

// PublishRailgunTransaction publishes a single event. The message ID is
// network + graph ID so JetStream deduplicates retries.
func (p *JetStreamPublisher) PublishRailgunTransaction(ctx context.Context, event *RailgunTransactionEvent) error {
	subject := SubjectForNetwork(event.Network)
	start := time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal railgun transaction event: %w", err)
	}

	_, err = p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.Network+":"+event.GraphID))
	if p.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.metrics.RecordNATSPublish(subject, status, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("failed to publish railgun transaction: %w", err)
	}

	p.logger.Debug("published railgun transaction event",
		"subject", subject,
		"graph_id", event.GraphID,
	)
	return nil
}

// PublishRailgunTransactionBatch publishes events one by one.
func (p *JetStreamPublisher) PublishRailgunTransactionBatch(ctx context.Context, events []*RailgunTransactionEvent) error {
	if len(events) == 0 {
		return nil
	}

	failed := 0
	for _, event := range events {
		if err := p.PublishRailgunTransaction(ctx, event); err != nil {
			failed++
			p.logger.Error("failed to publish railgun transaction in batch",
				"network", event.Network,
				"graph_id", event.GraphID,
				"error", err,
			)
		}
	}

	p.logger.Debug("published railgun transaction batch",
		"count", len(events),
		"failed", failed,
	)
	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}
