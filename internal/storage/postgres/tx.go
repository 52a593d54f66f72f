package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
)

// pgTx implements storage.Tx. Reads lock the rows they return until the
// transaction ends.
type pgTx struct {
	tx  pgx.Tx
	now func() time.Time
}

func (t *pgTx) GetAgreement(ctx context.Context, propertyID string) (*models.Agreement, error) {
	return getAgreement(ctx, t.tx, propertyID, " FOR UPDATE")
}

func (t *pgTx) InsertAgreement(ctx context.Context, a *models.Agreement) error {
	existing, err := getAgreement(ctx, t.tx, a.PropertyID, " FOR UPDATE")
	switch {
	case err == nil && existing.Live():
		return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, a.PropertyID)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return err
	}

	const upsertSQL = `
INSERT INTO agreements (property_id, landlord, tenant, deposit_required, deposit_amount,
    deductions, return_amount, state, created_at, updated_at)
VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric, $7::text::numeric, $8, $9, $10)
ON CONFLICT (property_id) DO UPDATE SET
    landlord = EXCLUDED.landlord,
    tenant = EXCLUDED.tenant,
    deposit_required = EXCLUDED.deposit_required,
    deposit_amount = EXCLUDED.deposit_amount,
    deductions = EXCLUDED.deductions,
    return_amount = EXCLUDED.return_amount,
    state = EXCLUDED.state,
    created_at = EXCLUDED.created_at,
    updated_at = EXCLUDED.updated_at
WHERE agreements.state = $11;
`
	tag, err := t.tx.Exec(ctx, upsertSQL,
		a.PropertyID, string(a.Landlord), string(a.Tenant),
		a.DepositRequired.String(), a.DepositAmount.String(), a.Deductions.String(), a.ReturnAmount.String(),
		int16(a.State), a.CreatedAt.UTC(), a.UpdatedAt.UTC(), int16(models.StateEnded),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert agreement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, a.PropertyID)
	}
	return nil
}

func (t *pgTx) UpdateAgreement(ctx context.Context, a *models.Agreement) error {
	const updateSQL = `
UPDATE agreements SET
    landlord = $2, tenant = $3,
    deposit_required = $4::text::numeric, deposit_amount = $5::text::numeric,
    deductions = $6::text::numeric, return_amount = $7::text::numeric,
    state = $8, updated_at = $9
WHERE property_id = $1;
`
	tag, err := t.tx.Exec(ctx, updateSQL,
		a.PropertyID, string(a.Landlord), string(a.Tenant),
		a.DepositRequired.String(), a.DepositAmount.String(), a.Deductions.String(), a.ReturnAmount.String(),
		int16(a.State), a.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: update agreement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, a.PropertyID)
	}
	return nil
}

func (t *pgTx) CreditAccount(ctx context.Context, addr models.Address, amount models.Amount) error {
	current, err := accountBalance(ctx, t.tx, addr, " FOR UPDATE")
	if err != nil {
		return err
	}
	balance, err := current.Add(amount)
	if err != nil {
		return fmt.Errorf("postgres: credit %s: %w", addr, err)
	}
	const upsertSQL = `
INSERT INTO accounts (address, balance) VALUES ($1, $2::text::numeric)
ON CONFLICT (address) DO UPDATE SET balance = EXCLUDED.balance;
`
	if _, err := t.tx.Exec(ctx, upsertSQL, string(addr), balance.String()); err != nil {
		return fmt.Errorf("postgres: credit account: %w", err)
	}
	return nil
}

func (t *pgTx) AppendEvent(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.now().UTC()
	}
	const insertSQL = `
INSERT INTO events (id, type, property_id, landlord, tenant, amount, refunded, deductions, created_at)
VALUES ($1::text::uuid, $2, $3, $4, $5, $6::text::numeric, $7::text::numeric, $8::text::numeric, $9)
RETURNING seq;
`
	err := t.tx.QueryRow(ctx, insertSQL,
		e.ID, string(e.Type), e.PropertyID, string(e.Landlord), string(e.Tenant),
		e.Amount.String(), e.Refunded.String(), e.Deductions.String(), e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("postgres: append event: %w", err)
	}
	return nil
}
