package models

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Address is an opaque participant identity. Two addresses denote the same
// participant exactly when they are equal.
type Address string

// NoAddress is the absent sentinel, e.g. the tenant of an unpaid agreement.
const NoAddress Address = ""

// ParseAddress trims s and, when it is a 20-byte hex account ("0x" followed by
// 40 hex digits), rewrites it in EIP-55 mixed-case checksum form so that every
// spelling of the same account yields the same Address. Any other token is
// returned as is.
func ParseAddress(s string) Address {
	s = strings.TrimSpace(s)
	if !isHexAccount(s) {
		return Address(s)
	}
	return Address(checksum(strings.ToLower(s[2:])))
}

// IsZero reports whether a is the absent sentinel.
func (a Address) IsZero() bool { return a == NoAddress }

func (a Address) String() string { return string(a) }

func isHexAccount(s string) bool {
	if len(s) != 42 || (s[:2] != "0x" && s[:2] != "0X") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

// checksum applies EIP-55 to a lower-case 40 digit hex string.
func checksum(lower string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte("0x" + lower)
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c < 'a' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i+2] = c - 'a' + 'A'
		}
	}
	return string(out)
}
