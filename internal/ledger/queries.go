package ledger

import (
	"context"
	"fmt"

	"github.com/mmynk/tenancydeposit/internal/models"
)

// DepositBalances returns the total currently held in custody: the deposit
// of every Active or Released agreement. Only the landlord may ask.
func (l *Ledger) DepositBalances(ctx context.Context) (models.Amount, error) {
	if err := guard(ctx, "DepositBalances"); err != nil {
		return models.Amount{}, err
	}
	caller, err := requireCaller(ctx)
	if err != nil {
		return models.Amount{}, err
	}
	if caller != l.landlord {
		return models.Amount{}, fmt.Errorf("%w: only the landlord can read the custody balance", ErrUnauthorized)
	}
	return l.custody(ctx)
}

func (l *Ledger) custody(ctx context.Context) (models.Amount, error) {
	all, err := l.store.ListAgreements(ctx)
	if err != nil {
		return models.Amount{}, err
	}
	var total models.Amount
	for _, a := range all {
		if !a.Held() {
			continue
		}
		if total, err = total.Add(a.DepositAmount); err != nil {
			return models.Amount{}, fmt.Errorf("ledger: custody total: %w", err)
		}
	}
	return total, nil
}

// GetDeposit returns the agreement for propertyID. Anyone may read it.
func (l *Ledger) GetDeposit(ctx context.Context, propertyID string) (*models.Agreement, error) {
	if err := guard(ctx, "GetDeposit"); err != nil {
		return nil, err
	}
	a, err := l.store.GetAgreement(ctx, propertyID)
	if err != nil {
		return nil, notFound(err, propertyID)
	}
	return a, nil
}

// PropertyIDs lists every property that has an agreement, ended ones
// included, in ascending order.
func (l *Ledger) PropertyIDs(ctx context.Context) ([]string, error) {
	if err := guard(ctx, "PropertyIDs"); err != nil {
		return nil, err
	}
	all, err := l.store.ListAgreements(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(all))
	for i, a := range all {
		ids[i] = a.PropertyID
	}
	return ids, nil
}

// Events returns the committed event history of propertyID, or of every
// property when propertyID is empty.
func (l *Ledger) Events(ctx context.Context, propertyID string) ([]*models.Event, error) {
	if err := guard(ctx, "Events"); err != nil {
		return nil, err
	}
	return l.store.ListEvents(ctx, propertyID)
}

// AccountBalance returns everything paid out of escrow to addr so far.
func (l *Ledger) AccountBalance(ctx context.Context, addr models.Address) (models.Amount, error) {
	if err := guard(ctx, "AccountBalance"); err != nil {
		return models.Amount{}, err
	}
	return l.store.AccountBalance(ctx, addr)
}

// CustodyObserver returns a function reporting the current custody total
// without an identity check, for metrics collection inside the process.
func (l *Ledger) CustodyObserver() func(ctx context.Context) (models.Amount, error) {
	return l.custody
}
