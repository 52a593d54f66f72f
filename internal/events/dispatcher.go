package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/tenancydeposit/internal/models"
)

const defaultBatchSize = 100

// Outbox is the part of storage.Store the Dispatcher reads from.
type Outbox interface {
	PendingEvents(ctx context.Context, limit int) ([]*models.Event, error)
	MarkDelivered(ctx context.Context, ids []string) error
}

// Dispatcher drains the outbox into observers.
type Dispatcher struct {
	outbox    Outbox
	batchSize int
	logger    *slog.Logger

	mu        sync.Mutex // serialises Drain
	observers []Observer
	wake      chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithBatchSize bounds how many events one outbox read returns.
func WithBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher returns a Dispatcher reading from outbox.
func NewDispatcher(outbox Outbox, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		outbox:    outbox,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe adds an observer. Observers are called in subscription order.
func (d *Dispatcher) Subscribe(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Emit wakes the relay loop. It never blocks.
func (d *Dispatcher) Emit(*models.Event) {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Drain delivers pending events in sequence order until the outbox is empty
// or an observer fails. An event is marked delivered only after every
// observer accepted it; delivery stops at the first failure so later events
// never overtake an earlier one.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delivered := 0
	for {
		pending, err := d.outbox.PendingEvents(ctx, d.batchSize)
		if err != nil {
			return delivered, fmt.Errorf("events: read outbox: %w", err)
		}
		if len(pending) == 0 {
			return delivered, nil
		}

		ids := make([]string, 0, len(pending))
		var deliverErr error
		for _, e := range pending {
			if deliverErr = d.deliver(ctx, e); deliverErr != nil {
				break
			}
			ids = append(ids, e.ID)
		}

		if len(ids) > 0 {
			if err := d.outbox.MarkDelivered(ctx, ids); err != nil {
				return delivered, fmt.Errorf("events: mark delivered: %w", err)
			}
			delivered += len(ids)
		}
		if deliverErr != nil {
			return delivered, deliverErr
		}
		if len(pending) < d.batchSize {
			return delivered, nil
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e *models.Event) error {
	for _, o := range d.observers {
		if err := o.Observe(ctx, e.Clone()); err != nil {
			return fmt.Errorf("events: deliver %s %s (seq %d): %w", e.Type, e.ID, e.Seq, err)
		}
	}
	return nil
}

// Run drains the outbox whenever Emit is called and every interval, until
// ctx is canceled. Failures are logged and retried on the next tick.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("Event relay started", "interval", interval)
	for {
		if n, err := d.Drain(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.Warn("Event delivery failed", "delivered", n, "error", err)
		} else if n > 0 {
			d.logger.Debug("Events delivered", "count", n)
		}

		select {
		case <-ctx.Done():
			d.logger.Info("Event relay stopped")
			return nil
		case <-ticker.C:
		case <-d.wake:
		}
	}
}
