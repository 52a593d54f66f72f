package sqlite

import (
	"context"
	"database/sql"
)

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Amounts are decimal TEXT: SQLite integers stop at 2^63.
const schema = `
CREATE TABLE IF NOT EXISTS agreements (
    property_id TEXT PRIMARY KEY,
    landlord TEXT NOT NULL,
    tenant TEXT NOT NULL DEFAULT '',
    deposit_required TEXT NOT NULL,
    deposit_amount TEXT NOT NULL DEFAULT '0',
    deductions TEXT NOT NULL DEFAULT '0',
    return_amount TEXT NOT NULL DEFAULT '0',
    state INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    address TEXT PRIMARY KEY,
    balance TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    property_id TEXT NOT NULL,
    landlord TEXT NOT NULL,
    tenant TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL DEFAULT '0',
    refunded TEXT NOT NULL DEFAULT '0',
    deductions TEXT NOT NULL DEFAULT '0',
    created_at INTEGER NOT NULL,
    delivered_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_events_property_id ON events(property_id);
CREATE INDEX IF NOT EXISTS idx_events_pending ON events(delivered_at) WHERE delivered_at IS NULL;
`

// runMigrations executes the schema setup.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
