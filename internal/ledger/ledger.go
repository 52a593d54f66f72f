// Package ledger implements the tenancy deposit escrow state machine.
//
// One Ledger guards every agreement. Operations are serialised by a single
// mutex and each one runs as one storage transaction: the state change, the
// outbound payouts it triggers and the event it emits commit together or not
// at all. The new state is written before any payout, so a payout that fails
// or re-enters the ledger can never observe or repeat a half-finished step.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mmynk/tenancydeposit/internal/events"
	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/payout"
	"github.com/mmynk/tenancydeposit/internal/storage"
)

// Config holds the deployment-time parameters of a Ledger.
type Config struct {
	// Landlord is the only identity allowed to create agreements, approve
	// returns and read the custody balance. It cannot change after New.
	Landlord models.Address

	// AllowPropertyReuse lets the landlord create a new agreement for a
	// property whose previous agreement has Ended.
	AllowPropertyReuse bool
}

// Ledger is the escrow core. It is safe for concurrent use.
type Ledger struct {
	mu sync.Mutex

	store     storage.Store
	disburser payout.Disburser
	emitter   events.Emitter
	now       func() time.Time

	landlord   models.Address
	allowReuse bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithDisburser replaces the default payout book.
func WithDisburser(d payout.Disburser) Option {
	return func(l *Ledger) {
		if d != nil {
			l.disburser = d
		}
	}
}

// WithEmitter sets who is told about committed events.
func WithEmitter(e events.Emitter) Option {
	return func(l *Ledger) {
		if e != nil {
			l.emitter = e
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a Ledger over store.
func New(store storage.Store, cfg Config, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger: store is required")
	}
	if cfg.Landlord.IsZero() {
		return nil, errors.New("ledger: landlord address is required")
	}
	l := &Ledger{
		store:      store,
		disburser:  payout.NewBook(),
		emitter:    events.NoopEmitter{},
		now:        time.Now,
		landlord:   cfg.Landlord,
		allowReuse: cfg.AllowPropertyReuse,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Landlord returns the fixed landlord identity.
func (l *Ledger) Landlord() models.Address { return l.landlord }

type inFlightKey struct{}

// guard rejects calls made with a context that is already inside a ledger
// operation, e.g. from a disburser or emitter.
func guard(ctx context.Context, op string) error {
	if running, ok := ctx.Value(inFlightKey{}).(string); ok {
		return fmt.Errorf("%w: %s called during %s", ErrReentrantCall, op, running)
	}
	return nil
}

// step is the body of one operation. It runs inside the store transaction
// and returns the events to append to the outbox.
type step func(ctx context.Context, tx storage.Tx) ([]*models.Event, error)

// apply runs fn as one serialised, all-or-nothing operation and notifies the
// emitter after commit.
func (l *Ledger) apply(ctx context.Context, op string, fn step) error {
	if err := guard(ctx, op); err != nil {
		return err
	}
	ctx = context.WithValue(ctx, inFlightKey{}, op)

	committed, err := l.commit(ctx, fn)
	if err != nil {
		return err
	}
	for _, e := range committed {
		l.emitter.Emit(e)
	}
	return nil
}

func (l *Ledger) commit(ctx context.Context, fn step) ([]*models.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var committed []*models.Event
	err := l.store.Atomic(ctx, func(tx storage.Tx) error {
		evts, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		for _, e := range evts {
			if err := tx.AppendEvent(ctx, e); err != nil {
				return fmt.Errorf("ledger: append %s: %w", e.Type, err)
			}
			committed = append(committed, e.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// disburse hands a batch to the disburser, dropping zero amounts.
func (l *Ledger) disburse(ctx context.Context, tx storage.Tx, batch ...payout.Payout) error {
	nonZero := batch[:0:0]
	for _, p := range batch {
		if !p.Amount.IsZero() {
			nonZero = append(nonZero, p)
		}
	}
	if len(nonZero) == 0 {
		return nil
	}
	if err := l.disburser.Disburse(ctx, tx, nonZero); err != nil {
		return fmt.Errorf("%w: %w", ErrPayoutFailed, err)
	}
	return nil
}

// notFound translates storage misses into the ledger taxonomy.
func notFound(err error, propertyID string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, propertyID)
	}
	return err
}
