package payout

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
)

// Book is the default Disburser. It credits each recipient's payout account
// inside the operation's transaction, so paid-out funds become visible exactly
// when the operation commits. Recipients on the block list refuse funds.
type Book struct {
	mu      sync.RWMutex
	blocked map[models.Address]bool
}

// NewBook returns a Book that rejects transfers to any of blocked.
func NewBook(blocked ...models.Address) *Book {
	b := &Book{blocked: make(map[models.Address]bool)}
	for _, addr := range blocked {
		b.blocked[addr] = true
	}
	return b
}

// Block makes addr refuse future transfers.
func (b *Book) Block(addr models.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked[addr] = true
}

// Unblock lets addr receive transfers again.
func (b *Book) Unblock(addr models.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blocked, addr)
}

// Disburse validates the whole batch before crediting anything.
func (b *Book) Disburse(ctx context.Context, tx storage.Tx, batch []Payout) error {
	b.mu.RLock()
	for _, p := range batch {
		if p.Amount.IsZero() {
			continue
		}
		if p.To.IsZero() {
			b.mu.RUnlock()
			return fmt.Errorf("%w: %s has no recipient", ErrRejected, p)
		}
		if b.blocked[p.To] {
			b.mu.RUnlock()
			return fmt.Errorf("%w: %s", ErrRejected, p)
		}
	}
	b.mu.RUnlock()

	for _, p := range batch {
		if p.Amount.IsZero() {
			continue
		}
		if err := tx.CreditAccount(ctx, p.To, p.Amount); err != nil {
			return fmt.Errorf("payout: credit %s: %w", p, err)
		}
	}
	return nil
}
