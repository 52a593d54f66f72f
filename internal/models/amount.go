package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// EtherDecimals is the number of decimal places between wei and ether.
const EtherDecimals = 18

var (
	ErrAmountOverflow  = errors.New("amount overflow")
	ErrAmountUnderflow = errors.New("amount underflow")
	ErrInvalidAmount   = errors.New("invalid amount")
)

var weiPerEther = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(EtherDecimals))

// Amount is a non-negative quantity of currency in its smallest indivisible
// unit (wei). The zero value is zero. Amounts are values: arithmetic returns a
// new Amount and never mutates its operands.
type Amount struct {
	v uint256.Int
}

// NewAmount returns an Amount of n wei.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// ParseAmount parses a base-10 wei quantity such as "500000000000000000".
func ParseAmount(s string) (Amount, error) {
	var a Amount
	s = strings.TrimSpace(s)
	if s == "" {
		return a, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return a, nil
}

// MustParseAmount is ParseAmount for constants; it panics on malformed input.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseEther parses a decimal ether quantity ("1", "0.5", "2.000001") into wei.
// More than 18 fractional digits is an error; nothing is rounded.
func ParseEther(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasDot := strings.Cut(s, ".")
	if s == "" || (hasDot && whole == "" && frac == "") {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(frac) > EtherDecimals {
		return Amount{}, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, EtherDecimals)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", EtherDecimals-len(frac))
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return Amount{}, nil
	}
	return ParseAmount(digits)
}

// Ether formats the amount in ether without trailing fractional zeros.
func (a Amount) Ether() string {
	var whole, frac uint256.Int
	whole.DivMod(&a.v, weiPerEther, &frac)
	if frac.IsZero() {
		return whole.Dec()
	}
	f := frac.Dec()
	f = strings.Repeat("0", EtherDecimals-len(f)) + f
	return whole.Dec() + "." + strings.TrimRight(f, "0")
}

// Add returns a+b, failing with ErrAmountOverflow past 2^256-1.
func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, ErrAmountOverflow
	}
	return out, nil
}

// Sub returns a-b, failing with ErrAmountUnderflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var out Amount
	if _, underflow := out.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, ErrAmountUnderflow
	}
	return out, nil
}

// Cmp returns -1, 0 or +1 as a is less than, equal to or greater than b.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

func (a Amount) Lt(b Amount) bool    { return a.v.Lt(&b.v) }
func (a Amount) Gt(b Amount) bool    { return a.v.Gt(&b.v) }
func (a Amount) Equal(b Amount) bool { return a.v.Eq(&b.v) }
func (a Amount) IsZero() bool        { return a.v.IsZero() }

// String returns the decimal wei representation.
func (a Amount) String() string { return a.v.Dec() }

// MarshalText encodes the amount as decimal wei.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

// UnmarshalText accepts decimal wei.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the amount as decimal TEXT so no backend truncates it.
func (a Amount) Value() (driver.Value, error) {
	return a.v.Dec(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: negative %d", ErrInvalidAmount, v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
}

// Sum adds amounts, failing on overflow.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return Amount{}, err
		}
	}
	return total, nil
}
