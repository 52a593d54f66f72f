package service

import (
	"fmt"
	"time"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/pkg/depositapi"
)

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func agreementToProto(a *models.Agreement) *depositapi.Agreement {
	if a == nil {
		return nil
	}
	return &depositapi.Agreement{
		PropertyId:       a.PropertyID,
		Landlord:         a.Landlord.String(),
		Tenant:           a.Tenant.String(),
		DepositRequired:  a.DepositRequired.String(),
		DepositAmount:    a.DepositAmount.String(),
		Deductions:       a.Deductions.String(),
		ReturnAmount:     a.ReturnAmount.String(),
		State:            a.State.String(),
		StateDescription: a.State.Description(),
		CreatedAt:        unix(a.CreatedAt),
		UpdatedAt:        unix(a.UpdatedAt),
	}
}

func eventToProto(e *models.Event) *depositapi.Event {
	out := &depositapi.Event{
		Id:          e.ID,
		Seq:         e.Seq,
		Type:        string(e.Type),
		PropertyId:  e.PropertyID,
		Landlord:    e.Landlord.String(),
		Tenant:      e.Tenant.String(),
		Amount:      e.Amount.String(),
		CreatedAt:   unix(e.CreatedAt),
		DeliveredAt: unix(e.DeliveredAt),
	}
	if !e.Refunded.IsZero() {
		out.Refunded = e.Refunded.String()
	}
	if !e.Deductions.IsZero() {
		out.Deductions = e.Deductions.String()
	}
	return out
}

// parseWei reads a required wei amount field.
func parseWei(field, s string) (models.Amount, error) {
	if s == "" {
		return models.Amount{}, fmt.Errorf("%s is required", field)
	}
	a, err := models.ParseAmount(s)
	if err != nil {
		return models.Amount{}, fmt.Errorf("%s: %w", field, err)
	}
	return a, nil
}
