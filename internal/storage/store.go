// Package storage provides abstractions for persistent escrow state.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/tenancydeposit/internal/models"
)

var (
	// ErrNotFound is returned when no record exists for a property id.
	ErrNotFound = errors.New("storage: agreement not found")
	// ErrAlreadyExists is returned when inserting over a live record.
	ErrAlreadyExists = errors.New("storage: live agreement already exists")
)

// Tx is the write view handed to Store.Atomic. Nothing written through a Tx
// is visible to other readers until the enclosing Atomic call commits, and
// all of it is discarded if the callback fails.
type Tx interface {
	// GetAgreement returns a copy of the record, or ErrNotFound.
	GetAgreement(ctx context.Context, propertyID string) (*models.Agreement, error)

	// InsertAgreement stores a new record. It fails with ErrAlreadyExists if a
	// live record holds the property id; an Ended record is replaced.
	InsertAgreement(ctx context.Context, a *models.Agreement) error

	// UpdateAgreement overwrites an existing record, or returns ErrNotFound.
	UpdateAgreement(ctx context.Context, a *models.Agreement) error

	// CreditAccount adds amount to the payout account of addr.
	CreditAccount(ctx context.Context, addr models.Address, amount models.Amount) error

	// AppendEvent enqueues an event in the outbox. The store assigns ID (if
	// empty) and Seq.
	AppendEvent(ctx context.Context, e *models.Event) error
}

// Store defines the interface for escrow storage operations.
// This abstraction allows swapping storage backends (memory, SQLite, PostgreSQL)
// without changing the ledger.
type Store interface {
	// Atomic runs fn inside a transaction. Writes commit only if fn returns
	// nil; any error discards every write made through tx.
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	// GetAgreement returns a copy of the committed record, or ErrNotFound.
	GetAgreement(ctx context.Context, propertyID string) (*models.Agreement, error)

	// ListAgreements returns every record ordered by property id.
	ListAgreements(ctx context.Context) ([]*models.Agreement, error)

	// AccountBalance returns the total credited to addr. Unknown addresses
	// have a zero balance.
	AccountBalance(ctx context.Context, addr models.Address) (models.Amount, error)

	// ListEvents returns committed events ordered by Seq. An empty propertyID
	// returns events for every property.
	ListEvents(ctx context.Context, propertyID string) ([]*models.Event, error)

	// PendingEvents returns up to limit undelivered events ordered by Seq.
	PendingEvents(ctx context.Context, limit int) ([]*models.Event, error)

	// MarkDelivered stamps the given events as delivered. Unknown ids are ignored.
	MarkDelivered(ctx context.Context, ids []string) error

	// Close releases any resources held by the store.
	Close() error
}

// Update loads the record for propertyID, applies mutate to a private copy
// and writes it back. When mutate fails nothing is written.
func Update(ctx context.Context, tx Tx, propertyID string, mutate func(a *models.Agreement) error) (*models.Agreement, error) {
	current, err := tx.GetAgreement(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if next.PropertyID != propertyID {
		return nil, fmt.Errorf("storage: mutator changed property id %q to %q", propertyID, next.PropertyID)
	}
	if err := tx.UpdateAgreement(ctx, next); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}
