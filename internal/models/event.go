package models

import "time"

// EventType names a lifecycle notification.
type EventType string

const (
	EventAgreementCreated EventType = "AgreementCreated"
	EventDepositPaid      EventType = "DepositPaid"
	EventDepositReleased  EventType = "DepositReleased"
	EventDepositWithdrawn EventType = "DepositWithdrawn"
)

// Event is one entry of the outbox. Amount carries the figure that matters for
// the type: depositRequired on creation, depositAmount on payment and
// returnAmount on release and withdrawal.
type Event struct {
	ID         string
	Seq        int64
	Type       EventType
	PropertyID string
	Landlord   Address
	Tenant     Address
	Amount     Amount
	Refunded   Amount
	Deductions Amount
	CreatedAt  time.Time

	// DeliveredAt is zero while the event is pending.
	DeliveredAt time.Time
}

// EventType satisfies the emitter contract.
func (e *Event) EventType() string { return string(e.Type) }

// Pending reports whether observers have not yet acknowledged the event.
func (e *Event) Pending() bool { return e.DeliveredAt.IsZero() }

// Clone returns a copy safe to hand to another goroutine.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	return &out
}
