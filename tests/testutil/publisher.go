package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ledgerbook/backend/internal/domain/ledger"
)

// RecordingPublisher is a ledger.EventPublisher that keeps every event it receives
type RecordingPublisher struct {
	mu     sync.Mutex
	events []ledger.Event
	err    error
}

// NewRecordingPublisher creates an empty publisher
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// Publish records the event and returns the configured error
func (p *RecordingPublisher) Publish(_ context.Context, event ledger.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

// SetError makes subsequent Publish calls fail with err
func (p *RecordingPublisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Events returns a copy of the recorded events
func (p *RecordingPublisher) Events() []ledger.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ledger.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the recorded event types in order
func (p *RecordingPublisher) Types() []string {
	events := p.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

// Count returns the number of recorded events
func (p *RecordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// Reset forgets recorded events and the configured error
func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.err = nil
}

// WaitForCondition polls condition until it holds or timeout elapses
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return condition()
}

// WaitForEventCount waits until the publisher has recorded count events
func WaitForEventCount(t *testing.T, p *RecordingPublisher, count int, timeout time.Duration) bool {
	t.Helper()
	return WaitForCondition(t, func() bool { return p.Count() >= count }, timeout, 10*time.Millisecond)
}

var _ ledger.EventPublisher = (*RecordingPublisher)(nil)
