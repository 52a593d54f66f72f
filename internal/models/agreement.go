package models

import (
	"fmt"
	"time"
)

// State is the lifecycle position of an agreement. States only ever move
// forward: Empty, Created, Active, Released, Ended.
type State int

const (
	StateEmpty State = iota
	StateCreated
	StateActive
	StateReleased
	StateEnded
)

var stateNames = [...]string{"Empty", "Created", "Active", "Released", "Ended"}

var stateDescriptions = [...]string{
	"Empty - No agreement",
	"Created - Pending deposit payment",
	"Active - Deposit paid",
	"Released - Withdrawal approved",
	"Ended - Deposit withdrawn",
}

func (s State) String() string {
	if s < StateEmpty || s > StateEnded {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Description is the human readable label shown to participants.
func (s State) Description() string {
	if s < StateEmpty || s > StateEnded {
		return s.String()
	}
	return stateDescriptions[s]
}

// ParseState is the inverse of String.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateEmpty, fmt.Errorf("unknown agreement state %q", name)
}

// Agreement is the escrow record for one property.
//
// Invariants maintained by the ledger:
//   - DepositAmount is zero before Active and at least DepositRequired after.
//   - Deductions + ReturnAmount == DepositAmount once Released.
//   - Tenant is set exactly when State >= Active.
type Agreement struct {
	PropertyID      string
	Landlord        Address
	Tenant          Address
	DepositRequired Amount
	DepositAmount   Amount
	Deductions      Amount
	ReturnAmount    Amount
	State           State
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns an independent copy. Every field is a value so a shallow copy
// suffices, but callers should not rely on that.
func (a *Agreement) Clone() *Agreement {
	if a == nil {
		return nil
	}
	out := *a
	return &out
}

// Live reports whether the record blocks a new agreement on the same property.
func (a *Agreement) Live() bool {
	return a != nil && a.State >= StateCreated && a.State < StateEnded
}

// Held reports whether the deposit is currently in custody.
func (a *Agreement) Held() bool {
	return a != nil && (a.State == StateActive || a.State == StateReleased)
}
