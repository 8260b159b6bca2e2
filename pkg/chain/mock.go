package chain

import (
	"context"
	"sync"
	"time"
)

// MockClient is a scripted chain client for testing
type MockClient struct {
	mu        sync.Mutex
	slots     []uint64
	next      uint64
	at        func() time.Time
	sampleErr error
	calls     int
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithSlots queues slots to return in order. Once drained, the mock keeps
// counting up from the last queued slot.
func WithSlots(slots ...uint64) MockOption {
	return func(m *MockClient) {
		m.slots = append(m.slots, slots...)
	}
}

// WithTime sets the clock the mock stamps samples with
func WithTime(now func() time.Time) MockOption {
	return func(m *MockClient) {
		m.at = now
	}
}

// WithSampleError makes every Sample call fail
func WithSampleError(err error) MockOption {
	return func(m *MockClient) {
		m.sampleErr = err
	}
}

// NewMockClient creates a new mock client
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{next: 1, at: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns "mock"
func (m *MockClient) Name() string {
	return "mock"
}

// Sample returns the next scripted slot
func (m *MockClient) Sample(ctx context.Context) (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.sampleErr != nil {
		return Sample{}, m.sampleErr
	}
	var slot uint64
	if len(m.slots) > 0 {
		slot = m.slots[0]
		m.slots = m.slots[1:]
		m.next = slot + 1
	} else {
		slot = m.next
		m.next++
	}
	return Sample{Slot: slot, Time: m.at().UTC()}, nil
}

// SetSampleError changes the injected error
func (m *MockClient) SetSampleError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampleErr = err
}

// QueueSlots appends slots to return
func (m *MockClient) QueueSlots(slots ...uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = append(m.slots, slots...)
}

// Calls returns how many times Sample was called
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
