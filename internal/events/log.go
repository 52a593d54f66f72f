package events

import (
	"context"
	"log/slog"

	"github.com/mmynk/tenancydeposit/internal/models"
)

// LogObserver writes an audit line per event.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) Observe(ctx context.Context, e *models.Event) error {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"event_id", e.ID,
		"seq", e.Seq,
		"property_id", e.PropertyID,
		"landlord", e.Landlord,
		"amount_wei", e.Amount.String(),
	}
	if !e.Tenant.IsZero() {
		attrs = append(attrs, "tenant", e.Tenant)
	}
	if !e.Refunded.IsZero() {
		attrs = append(attrs, "refunded_wei", e.Refunded.String())
	}
	if !e.Deductions.IsZero() {
		attrs = append(attrs, "deductions_wei", e.Deductions.String())
	}
	logger.InfoContext(ctx, string(e.Type), attrs...)
	return nil
}
