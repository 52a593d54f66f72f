// Package memory provides an in-process implementation of storage.Store.
//
// State lives in copy-on-write B-trees. Atomic clones the trees into a
// staging view, runs the callback against it and swaps the staged trees in on
// success; on failure the staged trees are dropped. Cloning is lazy, so a
// transaction only copies the nodes it touches.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

const degree = 16

type account struct {
	addr    models.Address
	balance models.Amount
}

// trees is one consistent snapshot of the store. Items are never mutated in
// place, they are replaced, so snapshots can share nodes safely.
type trees struct {
	agreements *btree.BTreeG[*models.Agreement]
	accounts   *btree.BTreeG[account]
	events     *btree.BTreeG[*models.Event]
	seq        int64
}

func newTrees() trees {
	return trees{
		agreements: btree.NewG(degree, func(a, b *models.Agreement) bool { return a.PropertyID < b.PropertyID }),
		accounts:   btree.NewG(degree, func(a, b account) bool { return a.addr < b.addr }),
		events:     btree.NewG(degree, func(a, b *models.Event) bool { return a.Seq < b.Seq }),
	}
}

func (t trees) clone() trees {
	return trees{
		agreements: t.agreements.Clone(),
		accounts:   t.accounts.Clone(),
		events:     t.events.Clone(),
		seq:        t.seq,
	}
}

// Store is a storage.Store kept entirely in memory. It is safe for
// concurrent use; Atomic calls are serialised.
type Store struct {
	mu    sync.RWMutex
	state trees
	now   func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{state: newTrees(), now: time.Now}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Atomic runs fn against a staged copy of the store.
func (s *Store) Atomic(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	stage := &txn{state: s.state.clone(), now: s.now}
	if err := fn(stage); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory: transaction abandoned: %w", err)
	}
	s.state = stage.state
	return nil
}

// GetAgreement returns a copy of the committed record.
func (s *Store) GetAgreement(ctx context.Context, propertyID string) (*models.Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAgreement(s.state, propertyID)
}

// ListAgreements returns every committed record ordered by property id.
func (s *Store) ListAgreements(ctx context.Context) ([]*models.Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Agreement, 0, s.state.agreements.Len())
	s.state.agreements.Ascend(func(a *models.Agreement) bool {
		out = append(out, a.Clone())
		return true
	})
	return out, nil
}

// AccountBalance returns the committed payout balance of addr.
func (s *Store) AccountBalance(ctx context.Context, addr models.Address) (models.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, _ := s.state.accounts.Get(account{addr: addr})
	return acct.balance, nil
}

// ListEvents returns committed events ordered by sequence.
func (s *Store) ListEvents(ctx context.Context, propertyID string) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Event
	s.state.events.Ascend(func(e *models.Event) bool {
		if propertyID == "" || e.PropertyID == propertyID {
			out = append(out, e.Clone())
		}
		return true
	})
	return out, nil
}

// PendingEvents returns up to limit undelivered events.
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Event
	s.state.events.Ascend(func(e *models.Event) bool {
		if e.Pending() {
			out = append(out, e.Clone())
		}
		return limit <= 0 || len(out) < limit
	})
	return out, nil
}

// MarkDelivered stamps events as delivered.
func (s *Store) MarkDelivered(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var delivered []*models.Event
	s.state.events.Ascend(func(e *models.Event) bool {
		if want[e.ID] && e.Pending() {
			d := e.Clone()
			d.DeliveredAt = now
			delivered = append(delivered, d)
		}
		return true
	})
	for _, e := range delivered {
		s.state.events.ReplaceOrInsert(e)
	}
	return nil
}

func getAgreement(t trees, propertyID string) (*models.Agreement, error) {
	a, ok := t.agreements.Get(&models.Agreement{PropertyID: propertyID})
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, propertyID)
	}
	return a.Clone(), nil
}

// txn is the staging view handed to Atomic callbacks.
type txn struct {
	state trees
	now   func() time.Time
}

func (t *txn) GetAgreement(ctx context.Context, propertyID string) (*models.Agreement, error) {
	return getAgreement(t.state, propertyID)
}

func (t *txn) InsertAgreement(ctx context.Context, a *models.Agreement) error {
	if existing, ok := t.state.agreements.Get(a); ok && existing.Live() {
		return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, a.PropertyID)
	}
	t.state.agreements.ReplaceOrInsert(a.Clone())
	return nil
}

func (t *txn) UpdateAgreement(ctx context.Context, a *models.Agreement) error {
	if !t.state.agreements.Has(a) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, a.PropertyID)
	}
	t.state.agreements.ReplaceOrInsert(a.Clone())
	return nil
}

func (t *txn) CreditAccount(ctx context.Context, addr models.Address, amount models.Amount) error {
	acct, _ := t.state.accounts.Get(account{addr: addr})
	balance, err := acct.balance.Add(amount)
	if err != nil {
		return fmt.Errorf("memory: credit %s: %w", addr, err)
	}
	t.state.accounts.ReplaceOrInsert(account{addr: addr, balance: balance})
	return nil
}

func (t *txn) AppendEvent(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.now().UTC()
	}
	t.state.seq++
	e.Seq = t.state.seq
	t.state.events.ReplaceOrInsert(e.Clone())
	return nil
}
