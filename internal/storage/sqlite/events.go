package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mmynk/tenancydeposit/internal/models"
)

const eventColumns = `seq, id, type, property_id, landlord, tenant, amount, refunded,
	deductions, created_at, delivered_at`

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e                     models.Event
		typ, landlord, tenant string
		createdAt             int64
		deliveredAt           sql.NullInt64
	)
	if err := row.Scan(&e.Seq, &e.ID, &typ, &e.PropertyID, &landlord, &tenant,
		&e.Amount, &e.Refunded, &e.Deductions, &createdAt, &deliveredAt); err != nil {
		return nil, err
	}
	e.Type = models.EventType(typ)
	e.Landlord = models.Address(landlord)
	e.Tenant = models.Address(tenant)
	e.CreatedAt = fromMillis(createdAt)
	if deliveredAt.Valid {
		e.DeliveredAt = fromMillis(deliveredAt.Int64)
	}
	return &e, nil
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return out, nil
}

// ListEvents returns committed events ordered by sequence.
func (s *SQLiteStore) ListEvents(ctx context.Context, propertyID string) ([]*models.Event, error) {
	if propertyID == "" {
		return s.queryEvents(ctx, "SELECT "+eventColumns+" FROM events ORDER BY seq")
	}
	return s.queryEvents(ctx, "SELECT "+eventColumns+" FROM events WHERE property_id = ? ORDER BY seq", propertyID)
}

// PendingEvents returns up to limit undelivered events.
func (s *SQLiteStore) PendingEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return s.queryEvents(ctx,
		"SELECT "+eventColumns+" FROM events WHERE delivered_at IS NULL ORDER BY seq LIMIT ?",
		limit,
	)
}

// MarkDelivered stamps events as delivered.
func (s *SQLiteStore) MarkDelivered(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, toMillis(s.now()))
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE events SET delivered_at = ? WHERE delivered_at IS NULL AND id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to mark events delivered: %w", err)
	}
	return nil
}
