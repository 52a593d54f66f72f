// Package postgres provides a PostgreSQL implementation of storage.Store on
// top of pgx. Records are locked with SELECT ... FOR UPDATE inside Atomic so
// concurrent servers sharing a database still serialise per property.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS agreements (
    property_id TEXT PRIMARY KEY,
    landlord TEXT NOT NULL,
    tenant TEXT NOT NULL DEFAULT '',
    deposit_required NUMERIC(78, 0) NOT NULL,
    deposit_amount NUMERIC(78, 0) NOT NULL DEFAULT 0,
    deductions NUMERIC(78, 0) NOT NULL DEFAULT 0,
    return_amount NUMERIC(78, 0) NOT NULL DEFAULT 0,
    state SMALLINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    address TEXT PRIMARY KEY,
    balance NUMERIC(78, 0) NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    seq BIGSERIAL PRIMARY KEY,
    id UUID NOT NULL UNIQUE,
    type TEXT NOT NULL,
    property_id TEXT NOT NULL,
    landlord TEXT NOT NULL,
    tenant TEXT NOT NULL DEFAULT '',
    amount NUMERIC(78, 0) NOT NULL DEFAULT 0,
    refunded NUMERIC(78, 0) NOT NULL DEFAULT 0,
    deductions NUMERIC(78, 0) NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    delivered_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_events_property_id ON events (property_id);
CREATE INDEX IF NOT EXISTS idx_events_pending ON events (seq) WHERE delivered_at IS NULL;
`

// Amounts cross the wire as text so NUMERIC never goes through float64.
const agreementColumns = `property_id, landlord, tenant, deposit_required::text, deposit_amount::text,
	deductions::text, return_amount::text, state, created_at, updated_at`

const eventColumns = `seq, id::text, type, property_id, landlord, tenant, amount::text, refunded::text,
	deductions::text, created_at, delivered_at`

// Store implements storage.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New connects to dsn and applies the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Reset empties every table. Intended for test isolation.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE agreements, accounts, events RESTART IDENTITY`); err != nil {
		return fmt.Errorf("postgres: truncate: %w", err)
	}
	return nil
}

// Atomic runs fn in a single transaction.
func (s *Store) Atomic(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// GetAgreement returns a committed record.
func (s *Store) GetAgreement(ctx context.Context, propertyID string) (*models.Agreement, error) {
	return getAgreement(ctx, s.pool, propertyID, "")
}

// ListAgreements returns every record ordered by property id.
func (s *Store) ListAgreements(ctx context.Context) ([]*models.Agreement, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+agreementColumns+` FROM agreements ORDER BY property_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list agreements: %w", err)
	}
	defer rows.Close()

	var out []*models.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan agreement: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate agreements: %w", err)
	}
	return out, nil
}

// AccountBalance returns the payout balance of addr.
func (s *Store) AccountBalance(ctx context.Context, addr models.Address) (models.Amount, error) {
	return accountBalance(ctx, s.pool, addr, "")
}

// ListEvents returns committed events ordered by sequence.
func (s *Store) ListEvents(ctx context.Context, propertyID string) ([]*models.Event, error) {
	if propertyID == "" {
		return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY seq`)
	}
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE property_id = $1 ORDER BY seq`, propertyID)
}

// PendingEvents returns up to limit undelivered events.
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE delivered_at IS NULL ORDER BY seq LIMIT $1`, lim)
}

// MarkDelivered stamps events as delivered.
func (s *Store) MarkDelivered(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE events SET delivered_at = $1 WHERE delivered_at IS NULL AND id::text = ANY($2::text[])`,
		s.now().UTC(), ids)
	if err != nil {
		return fmt.Errorf("postgres: mark delivered: %w", err)
	}
	return nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate events: %w", err)
	}
	return out, nil
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanAgreement(row pgx.Row) (*models.Agreement, error) {
	var (
		a                                       models.Agreement
		landlord, tenant                        string
		required, deposit, deductions, returned string
		state                                   int16
	)
	if err := row.Scan(&a.PropertyID, &landlord, &tenant, &required, &deposit,
		&deductions, &returned, &state, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.DepositRequired, err = models.ParseAmount(required); err != nil {
		return nil, err
	}
	if a.DepositAmount, err = models.ParseAmount(deposit); err != nil {
		return nil, err
	}
	if a.Deductions, err = models.ParseAmount(deductions); err != nil {
		return nil, err
	}
	if a.ReturnAmount, err = models.ParseAmount(returned); err != nil {
		return nil, err
	}
	a.Landlord = models.Address(landlord)
	a.Tenant = models.Address(tenant)
	a.State = models.State(state)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		e                           models.Event
		typ, landlord, tenant       string
		amount, refunded, deduction string
		deliveredAt                 *time.Time
	)
	if err := row.Scan(&e.Seq, &e.ID, &typ, &e.PropertyID, &landlord, &tenant,
		&amount, &refunded, &deduction, &e.CreatedAt, &deliveredAt); err != nil {
		return nil, err
	}
	var err error
	if e.Amount, err = models.ParseAmount(amount); err != nil {
		return nil, err
	}
	if e.Refunded, err = models.ParseAmount(refunded); err != nil {
		return nil, err
	}
	if e.Deductions, err = models.ParseAmount(deduction); err != nil {
		return nil, err
	}
	e.Type = models.EventType(typ)
	e.Landlord = models.Address(landlord)
	e.Tenant = models.Address(tenant)
	e.CreatedAt = e.CreatedAt.UTC()
	if deliveredAt != nil {
		e.DeliveredAt = deliveredAt.UTC()
	}
	return &e, nil
}

func getAgreement(ctx context.Context, q querier, propertyID, lock string) (*models.Agreement, error) {
	a, err := scanAgreement(q.QueryRow(ctx,
		`SELECT `+agreementColumns+` FROM agreements WHERE property_id = $1`+lock, propertyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, propertyID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get agreement: %w", err)
	}
	return a, nil
}

func accountBalance(ctx context.Context, q querier, addr models.Address, lock string) (models.Amount, error) {
	var balance string
	err := q.QueryRow(ctx, `SELECT balance::text FROM accounts WHERE address = $1`+lock, string(addr)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Amount{}, nil
	}
	if err != nil {
		return models.Amount{}, fmt.Errorf("postgres: account balance: %w", err)
	}
	return models.ParseAmount(balance)
}
