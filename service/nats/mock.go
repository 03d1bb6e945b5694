package nats

import (
	"context"
	"sync"
)

// MockPublisher is an in-memory Publisher for tests.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*RailgunTransactionEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*RailgunTransactionEvent, 0),
	}
}

// PublishRailgunTransaction records the event and returns any configured error.
func (m *MockPublisher) PublishRailgunTransaction(ctx context.Context, event *RailgunTransactionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}
	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// PublishRailgunTransactionBatch records each event; failures are skipped
// like the JetStream implementation.
func (m *MockPublisher) PublishRailgunTransactionBatch(ctx context.Context, events []*RailgunTransactionEvent) error {
	for _, event := range events {
		_ = m.PublishRailgunTransaction(ctx, event)
	}
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns a copy of all published events.
func (m *MockPublisher) GetPublishedEvents() []*RailgunTransactionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*RailgunTransactionEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetPublishedEventsForNetwork returns events published for one network.
func (m *MockPublisher) GetPublishedEventsForNetwork(network string) []*RailgunTransactionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*RailgunTransactionEvent, 0)
	for _, event := range m.publishedEvents {
		if event.Network == network {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishError configures the mock to fail every publish.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

var _ Publisher = (*MockPublisher)(nil)
var _ Publisher = (*JetStreamPublisher)(nil)
