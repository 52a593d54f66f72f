// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; a single connection also keeps Atomic from
	// racing the outbox relay into SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Atomic runs fn inside a single SQLite transaction.
func (s *SQLiteStore) Atomic(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{q: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAgreement retrieves a committed record by property id.
func (s *SQLiteStore) GetAgreement(ctx context.Context, propertyID string) (*models.Agreement, error) {
	return getAgreement(ctx, s.db, propertyID)
}

// ListAgreements returns every record ordered by property id.
func (s *SQLiteStore) ListAgreements(ctx context.Context) ([]*models.Agreement, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+agreementColumns+" FROM agreements ORDER BY property_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}
	defer rows.Close()

	var out []*models.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agreement: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agreements: %w", err)
	}
	return out, nil
}

// AccountBalance returns the payout balance of addr.
func (s *SQLiteStore) AccountBalance(ctx context.Context, addr models.Address) (models.Amount, error) {
	return accountBalance(ctx, s.db, addr)
}

func accountBalance(ctx context.Context, q querier, addr models.Address) (models.Amount, error) {
	var balance models.Amount
	err := q.QueryRowContext(ctx, "SELECT balance FROM accounts WHERE address = ?", string(addr)).Scan(&balance)
	if err == sql.ErrNoRows {
		return models.Amount{}, nil
	}
	if err != nil {
		return models.Amount{}, fmt.Errorf("failed to get account balance: %w", err)
	}
	return balance, nil
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
