package ledger

import "errors"

// Every rejected operation returns an error that matches exactly one of these
// with errors.Is.
var (
	ErrUnauthorized            = errors.New("ledger: unauthorized")
	ErrNotFound                = errors.New("ledger: agreement not found")
	ErrAlreadyExists           = errors.New("ledger: agreement already exists")
	ErrInvalidState            = errors.New("ledger: invalid state")
	ErrInsufficientFunds       = errors.New("ledger: insufficient funds")
	ErrDeductionExceedsDeposit = errors.New("ledger: deduction exceeds deposit")
	ErrInvalidAmount           = errors.New("ledger: invalid amount")
	ErrInvalidPropertyID       = errors.New("ledger: invalid property id")
	ErrPayoutFailed            = errors.New("ledger: payout failed")
	ErrReentrantCall           = errors.New("ledger: re-entrant call")
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrUnauthorized, "UNAUTHORIZED"},
	{ErrNotFound, "NOT_FOUND"},
	{ErrAlreadyExists, "ALREADY_EXISTS"},
	{ErrInvalidState, "INVALID_STATE"},
	{ErrInsufficientFunds, "INSUFFICIENT_FUNDS"},
	{ErrDeductionExceedsDeposit, "DEDUCTION_EXCEEDS_DEPOSIT"},
	{ErrInvalidAmount, "INVALID_AMOUNT"},
	{ErrInvalidPropertyID, "INVALID_PROPERTY_ID"},
	{ErrPayoutFailed, "PAYOUT_FAILED"},
	{ErrReentrantCall, "REENTRANT_CALL"},
}

// Reason returns a stable machine-readable tag for a ledger error, or "" if
// err is not one.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ""
}
