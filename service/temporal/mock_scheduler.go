package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockScheduler is a mock implementation of Scheduler for testing.
type MockScheduler struct {
	mu        sync.Mutex
	schedules map[string]time.Duration // map[scheduleID]interval
	started   []string
	createErr error
	deleteErr error
	startErr  error
}

// NewMockScheduler creates a new MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		schedules: make(map[string]time.Duration),
	}
}

// UpsertSyncSchedule records that a schedule was created or updated.
func (m *MockScheduler) UpsertSyncSchedule(ctx context.Context, network string, interval time.Duration, maxRounds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.schedules[ScheduleID(network)] = interval
	return nil
}

// DeleteSyncSchedule records that a schedule was deleted.
func (m *MockScheduler) DeleteSyncSchedule(ctx context.Context, network string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}

	id := ScheduleID(network)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}
	delete(m.schedules, id)
	return nil
}

// StartSync records that a sync run was started.
func (m *MockScheduler) StartSync(ctx context.Context, network string, maxRounds int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return "", m.startErr
	}
	m.started = append(m.started, network)
	return fmt.Sprintf("%s-manual-%d", ScheduleID(network), len(m.started)), nil
}

// SetCreateError makes UpsertSyncSchedule return an error.
func (m *MockScheduler) SetCreateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

// SetDeleteError makes DeleteSyncSchedule return an error.
func (m *MockScheduler) SetDeleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// SetStartError makes StartSync return an error.
func (m *MockScheduler) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// ScheduleExists checks if a schedule exists for a network.
func (m *MockScheduler) ScheduleExists(network string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.schedules[ScheduleID(network)]
	return exists
}

// GetScheduleInterval returns the interval for a network's schedule.
func (m *MockScheduler) GetScheduleInterval(network string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	interval, exists := m.schedules[ScheduleID(network)]
	return interval, exists
}

// StartedSyncs returns the networks StartSync was called for, in order.
func (m *MockScheduler) StartedSyncs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.started...)
}

// Reset clears all schedules and errors.
func (m *MockScheduler) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules = make(map[string]time.Duration)
	m.started = nil
	m.createErr = nil
	m.deleteErr = nil
	m.startErr = nil
}
