// Package events delivers ledger lifecycle events to observers.
//
// The ledger appends every event to the store's outbox inside the same
// transaction as the state change it describes, then calls Emit after the
// commit. Emit only wakes the Dispatcher; delivery always reads from the
// outbox, so an event survives a crash between commit and delivery and is
// handed to observers at least once.
package events

import (
	"context"
	"sync"

	"github.com/mmynk/tenancydeposit/internal/models"
)

// Emitter is notified after events are committed.
type Emitter interface {
	Emit(e *models.Event)
}

// NoopEmitter discards notifications. Events still reach the outbox.
type NoopEmitter struct{}

func (NoopEmitter) Emit(*models.Event) {}

// Observer consumes delivered events. Delivery is at-least-once, so
// observers must tolerate seeing the same event ID twice. Returning an error
// leaves the event pending for a later attempt; it never affects the
// transition that produced the event.
type Observer interface {
	Observe(ctx context.Context, e *models.Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e *models.Event) error

func (f ObserverFunc) Observe(ctx context.Context, e *models.Event) error { return f(ctx, e) }

// Recorder is an Observer that keeps every event it sees, deduplicated by ID.
type Recorder struct {
	mu     sync.Mutex
	seen   map[string]bool
	events []*models.Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{seen: make(map[string]bool)}
}

func (r *Recorder) Observe(_ context.Context, e *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[e.ID] {
		return nil
	}
	r.seen[e.ID] = true
	r.events = append(r.events, e.Clone())
	return nil
}

// Events returns the recorded events in delivery order.
func (r *Recorder) Events() []*models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Event, len(r.events))
	for i, e := range r.events {
		out[i] = e.Clone()
	}
	return out
}

// Types returns the recorded event types in delivery order.
func (r *Recorder) Types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
