// Package payout moves funds out of escrow.
//
// A Disburser receives every outbound transfer of one ledger operation as a
// single batch, together with the operation's storage transaction. It either
// accepts the whole batch or returns an error; an error aborts the operation
// and rolls back the state change that preceded it.
package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/internal/storage"
)

// ErrRejected is returned when a recipient refuses a transfer.
var ErrRejected = errors.New("payout: transfer rejected")

// Reason says why funds leave escrow.
type Reason string

const (
	ReasonRefund    Reason = "refund"    // overpayment returned to the payer
	ReasonReturn    Reason = "return"    // deposit returned to the tenant
	ReasonDeduction Reason = "deduction" // deductions paid to the landlord
)

// Payout is one outbound transfer.
type Payout struct {
	PropertyID string
	To         models.Address
	Amount     models.Amount
	Reason     Reason
}

func (p Payout) String() string {
	return fmt.Sprintf("%s %s wei to %s for %s", p.Reason, p.Amount, p.To, p.PropertyID)
}

// Disburser performs outbound transfers.
type Disburser interface {
	Disburse(ctx context.Context, tx storage.Tx, batch []Payout) error
}

// DisburserFunc adapts a function to Disburser.
type DisburserFunc func(ctx context.Context, tx storage.Tx, batch []Payout) error

func (f DisburserFunc) Disburse(ctx context.Context, tx storage.Tx, batch []Payout) error {
	return f(ctx, tx, batch)
}
