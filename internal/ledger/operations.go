package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/payout"
	"github.com/mmynk/tenancydeposit/internal/storage"
)

// CreateDepositAgreement opens an agreement for propertyID requiring a
// deposit of required wei. Only the landlord may call it.
func (l *Ledger) CreateDepositAgreement(ctx context.Context, propertyID string, required models.Amount) (*models.Agreement, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if caller != l.landlord {
		return nil, fmt.Errorf("%w: only the landlord can create agreements", ErrUnauthorized)
	}
	if strings.TrimSpace(propertyID) == "" {
		return nil, ErrInvalidPropertyID
	}
	if required.IsZero() {
		return nil, fmt.Errorf("%w: deposit required must be positive", ErrInvalidAmount)
	}

	var created *models.Agreement
	err = l.apply(ctx, "CreateDepositAgreement", func(ctx context.Context, tx storage.Tx) ([]*models.Event, error) {
		existing, err := tx.GetAgreement(ctx, propertyID)
		switch {
		case err == nil && existing.Live():
			return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyExists, propertyID, existing.State)
		case err == nil && !l.allowReuse:
			return nil, fmt.Errorf("%w: %s has ended and property reuse is disabled", ErrInvalidState, propertyID)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}

		now := l.now().UTC()
		a := &models.Agreement{
			PropertyID:      propertyID,
			Landlord:        l.landlord,
			DepositRequired: required,
			State:           models.StateCreated,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.InsertAgreement(ctx, a); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, propertyID)
			}
			return nil, err
		}
		created = a.Clone()

		return []*models.Event{{
			Type:       models.EventAgreementCreated,
			PropertyID: propertyID,
			Landlord:   l.landlord,
			Amount:     required,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// PayDeposit records the caller as tenant and takes the deposit into
// custody. Any amount paid above the requirement is refunded to the caller in
// the same operation.
func (l *Ledger) PayDeposit(ctx context.Context, propertyID string, paid models.Amount) (*models.Agreement, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if caller == l.landlord {
		return nil, fmt.Errorf("%w: the landlord cannot pay a deposit", ErrUnauthorized)
	}

	var updated *models.Agreement
	err = l.apply(ctx, "PayDeposit", func(ctx context.Context, tx storage.Tx) ([]*models.Event, error) {
		var excess models.Amount
		a, err := storage.Update(ctx, tx, propertyID, func(a *models.Agreement) error {
			if a.State != models.StateCreated {
				return fmt.Errorf("%w: cannot pay a deposit on a %s agreement", ErrInvalidState, a.State)
			}
			if paid.Lt(a.DepositRequired) {
				return fmt.Errorf("%w: paid %s, required %s", ErrInsufficientFunds, paid, a.DepositRequired)
			}
			var err error
			if excess, err = paid.Sub(a.DepositRequired); err != nil {
				return err
			}
			a.Tenant = caller
			a.DepositAmount = a.DepositRequired
			a.State = models.StateActive
			a.UpdatedAt = l.now().UTC()
			return nil
		})
		if err != nil {
			return nil, notFound(err, propertyID)
		}

		if err := l.disburse(ctx, tx, payout.Payout{
			PropertyID: propertyID,
			To:         caller,
			Amount:     excess,
			Reason:     payout.ReasonRefund,
		}); err != nil {
			return nil, err
		}
		updated = a

		return []*models.Event{{
			Type:       models.EventDepositPaid,
			PropertyID: propertyID,
			Landlord:   a.Landlord,
			Tenant:     a.Tenant,
			Amount:     a.DepositAmount,
			Refunded:   excess,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ApproveDepositReturn fixes the deductions the landlord keeps and releases
// the remainder for the tenant to withdraw. Nothing leaves escrow yet.
func (l *Ledger) ApproveDepositReturn(ctx context.Context, propertyID string, deductions models.Amount) (*models.Agreement, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if caller != l.landlord {
		return nil, fmt.Errorf("%w: only the landlord can approve a return", ErrUnauthorized)
	}

	var updated *models.Agreement
	err = l.apply(ctx, "ApproveDepositReturn", func(ctx context.Context, tx storage.Tx) ([]*models.Event, error) {
		a, err := storage.Update(ctx, tx, propertyID, func(a *models.Agreement) error {
			if a.State != models.StateActive {
				return fmt.Errorf("%w: cannot approve a return on a %s agreement", ErrInvalidState, a.State)
			}
			if deductions.Gt(a.DepositAmount) {
				return fmt.Errorf("%w: deductions %s, deposit %s", ErrDeductionExceedsDeposit, deductions, a.DepositAmount)
			}
			returnAmount, err := a.DepositAmount.Sub(deductions)
			if err != nil {
				return err
			}
			a.Deductions = deductions
			a.ReturnAmount = returnAmount
			a.State = models.StateReleased
			a.UpdatedAt = l.now().UTC()
			return nil
		})
		if err != nil {
			return nil, notFound(err, propertyID)
		}
		updated = a

		return []*models.Event{{
			Type:       models.EventDepositReleased,
			PropertyID: propertyID,
			Landlord:   a.Landlord,
			Tenant:     a.Tenant,
			Amount:     a.ReturnAmount,
			Deductions: a.Deductions,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// WithdrawDeposit ends the agreement and pays out: the return amount to the
// tenant and the deductions to the landlord, as one batch. If the batch is
// rejected the agreement stays Released and the funds stay held.
func (l *Ledger) WithdrawDeposit(ctx context.Context, propertyID string) (*models.Agreement, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var updated *models.Agreement
	err = l.apply(ctx, "WithdrawDeposit", func(ctx context.Context, tx storage.Tx) ([]*models.Event, error) {
		a, err := storage.Update(ctx, tx, propertyID, func(a *models.Agreement) error {
			if a.Tenant.IsZero() || caller != a.Tenant {
				return fmt.Errorf("%w: only the tenant can withdraw", ErrUnauthorized)
			}
			if a.State != models.StateReleased {
				return fmt.Errorf("%w: cannot withdraw from a %s agreement", ErrInvalidState, a.State)
			}
			a.State = models.StateEnded
			a.UpdatedAt = l.now().UTC()
			return nil
		})
		if err != nil {
			return nil, notFound(err, propertyID)
		}

		if err := l.disburse(ctx, tx,
			payout.Payout{PropertyID: propertyID, To: a.Tenant, Amount: a.ReturnAmount, Reason: payout.ReasonReturn},
			payout.Payout{PropertyID: propertyID, To: a.Landlord, Amount: a.Deductions, Reason: payout.ReasonDeduction},
		); err != nil {
			return nil, err
		}
		updated = a

		return []*models.Event{{
			Type:       models.EventDepositWithdrawn,
			PropertyID: propertyID,
			Landlord:   a.Landlord,
			Tenant:     a.Tenant,
			Amount:     a.ReturnAmount,
			Deductions: a.Deductions,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
