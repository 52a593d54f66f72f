package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
)

const agreementColumns = `property_id, landlord, tenant, deposit_required, deposit_amount,
	deductions, return_amount, state, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgreement(row rowScanner) (*models.Agreement, error) {
	var (
		a                    models.Agreement
		landlord, tenant     string
		state                int
		createdAt, updatedAt int64
	)
	if err := row.Scan(&a.PropertyID, &landlord, &tenant, &a.DepositRequired, &a.DepositAmount,
		&a.Deductions, &a.ReturnAmount, &state, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Landlord = models.Address(landlord)
	a.Tenant = models.Address(tenant)
	a.State = models.State(state)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

func getAgreement(ctx context.Context, q querier, propertyID string) (*models.Agreement, error) {
	a, err := scanAgreement(q.QueryRowContext(ctx,
		"SELECT "+agreementColumns+" FROM agreements WHERE property_id = ?",
		propertyID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, propertyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agreement: %w", err)
	}
	return a, nil
}

// sqlTx implements storage.Tx on top of a database/sql transaction.
type sqlTx struct {
	q   querier
	now func() time.Time
}

func (t *sqlTx) GetAgreement(ctx context.Context, propertyID string) (*models.Agreement, error) {
	return getAgreement(ctx, t.q, propertyID)
}

func (t *sqlTx) InsertAgreement(ctx context.Context, a *models.Agreement) error {
	var state int
	err := t.q.QueryRowContext(ctx, "SELECT state FROM agreements WHERE property_id = ?", a.PropertyID).Scan(&state)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("failed to check agreement: %w", err)
	case (&models.Agreement{State: models.State(state)}).Live():
		return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, a.PropertyID)
	}

	_, err = t.q.ExecContext(ctx, `
INSERT INTO agreements (`+agreementColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(property_id) DO UPDATE SET
    landlord = excluded.landlord,
    tenant = excluded.tenant,
    deposit_required = excluded.deposit_required,
    deposit_amount = excluded.deposit_amount,
    deductions = excluded.deductions,
    return_amount = excluded.return_amount,
    state = excluded.state,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at`,
		a.PropertyID, string(a.Landlord), string(a.Tenant), a.DepositRequired, a.DepositAmount,
		a.Deductions, a.ReturnAmount, int(a.State), toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert agreement: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateAgreement(ctx context.Context, a *models.Agreement) error {
	res, err := t.q.ExecContext(ctx, `
UPDATE agreements SET
    landlord = ?, tenant = ?, deposit_required = ?, deposit_amount = ?,
    deductions = ?, return_amount = ?, state = ?, updated_at = ?
WHERE property_id = ?`,
		string(a.Landlord), string(a.Tenant), a.DepositRequired, a.DepositAmount,
		a.Deductions, a.ReturnAmount, int(a.State), toMillis(a.UpdatedAt), a.PropertyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update agreement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, a.PropertyID)
	}
	return nil
}

func (t *sqlTx) CreditAccount(ctx context.Context, addr models.Address, amount models.Amount) error {
	current, err := accountBalance(ctx, t.q, addr)
	if err != nil {
		return err
	}
	balance, err := current.Add(amount)
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", addr, err)
	}
	_, err = t.q.ExecContext(ctx, `
INSERT INTO accounts (address, balance) VALUES (?, ?)
ON CONFLICT(address) DO UPDATE SET balance = excluded.balance`,
		string(addr), balance,
	)
	if err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	return nil
}

func (t *sqlTx) AppendEvent(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.now().UTC()
	}
	res, err := t.q.ExecContext(ctx, `
INSERT INTO events (id, type, property_id, landlord, tenant, amount, refunded, deductions, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.PropertyID, string(e.Landlord), string(e.Tenant),
		e.Amount, e.Refunded, e.Deductions, toMillis(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read event sequence: %w", err)
	}
	e.Seq = seq
	return nil
}
