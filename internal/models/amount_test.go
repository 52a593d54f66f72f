package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "whole ether", input: "1", want: "1000000000000000000"},
		{name: "half ether", input: "0.5", want: "500000000000000000"},
		{name: "leading dot", input: ".1", want: "100000000000000000"},
		{name: "one wei", input: "0.000000000000000001", want: "1"},
		{name: "zero", input: "0", want: "0"},
		{name: "trailing dot", input: "2.", want: "2000000000000000000"},
		{name: "too many decimals", input: "0.0000000000000000001", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "1e18", wantErr: true},
		{name: "lone dot", input: ".", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEther(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %s", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEther(%q) failed: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseEther(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestAmountEther(t *testing.T) {
	tests := map[string]string{
		"1000000000000000000": "1",
		"500000000000000000":  "0.5",
		"100000000000000000":  "0.1",
		"1":                   "0.000000000000000001",
		"0":                   "0",
		"1250000000000000000": "1.25",
	}
	for wei, ether := range tests {
		if got := MustParseAmount(wei).Ether(); got != ether {
			t.Errorf("Ether(%s) = %s, want %s", wei, got, ether)
		}
	}
}

func TestAmountArithmetic(t *testing.T) {
	maxAmount := MustParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")

	t.Run("Add overflows at 2^256", func(t *testing.T) {
		if _, err := maxAmount.Add(NewAmount(1)); !errors.Is(err, ErrAmountOverflow) {
			t.Errorf("expected overflow, got %v", err)
		}
	})

	t.Run("Sub underflows below zero", func(t *testing.T) {
		if _, err := NewAmount(1).Sub(NewAmount(2)); !errors.Is(err, ErrAmountUnderflow) {
			t.Errorf("expected underflow, got %v", err)
		}
	})

	t.Run("operands are not mutated", func(t *testing.T) {
		a, b := NewAmount(7), NewAmount(5)
		diff, err := a.Sub(b)
		if err != nil {
			t.Fatalf("Sub failed: %v", err)
		}
		if diff.String() != "2" || a.String() != "7" || b.String() != "5" {
			t.Errorf("unexpected values a=%s b=%s diff=%s", a, b, diff)
		}
	})

	t.Run("comparisons", func(t *testing.T) {
		small, big := NewAmount(1), NewAmount(2)
		if !small.Lt(big) || !big.Gt(small) || small.Cmp(big) != -1 {
			t.Error("ordering is wrong")
		}
		if !NewAmount(3).Equal(NewAmount(3)) || NewAmount(3) != NewAmount(3) {
			t.Error("equal amounts should compare equal")
		}
		if !(Amount{}).IsZero() {
			t.Error("zero value should be zero")
		}
	})

	t.Run("Sum", func(t *testing.T) {
		total, err := Sum(NewAmount(1), NewAmount(2), NewAmount(3))
		if err != nil || total.String() != "6" {
			t.Errorf("Sum = %s, %v", total, err)
		}
		if _, err := Sum(maxAmount, maxAmount); !errors.Is(err, ErrAmountOverflow) {
			t.Errorf("expected overflow, got %v", err)
		}
	})
}

func TestAmountEncoding(t *testing.T) {
	a := MustParseAmount("600000000000000000")

	data, err := json.Marshal(struct{ A Amount }{a})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"600000000000000000"`) {
		t.Errorf("expected quoted decimal, got %s", data)
	}

	var scanned Amount
	for _, src := range []any{"600000000000000000", []byte("600000000000000000")} {
		if err := scanned.Scan(src); err != nil {
			t.Fatalf("Scan(%T) failed: %v", src, err)
		}
		if !scanned.Equal(a) {
			t.Errorf("Scan(%T) = %s", src, scanned)
		}
	}
	if err := scanned.Scan(int64(-1)); err == nil {
		t.Error("expected error scanning a negative integer")
	}
	if err := scanned.Scan(3.5); err == nil {
		t.Error("expected error scanning a float")
	}
}
