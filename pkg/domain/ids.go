// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"encoding/hex"
	"strings"

	dErrors "credledger/pkg/domain-errors"
)

// Address is a ledger account address: "0x" followed by 40 hex digits.
// Casing carries no meaning; compare with Equal, never with ==.
type Address string

// CredentialID is the opaque identifier the ledger assigns at issuance.
type CredentialID string

const (
	addressHexLen = 40

	// MaxCredentialIDLength is the decimal width of a uint256 token id.
	MaxCredentialIDLength = 78
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok {
		digits, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || len(digits) != addressHexLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid address format")
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid address format")
	}
	return Address(s), nil
}

// ParseOptionalAddress parses s when non-empty and returns nil otherwise.
// Used for "expected owner" style filters where absence means "any".
func ParseOptionalAddress(s string) (*Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	addr, err := ParseAddress(s)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func ParseCredentialID(s string) (CredentialID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID cannot be empty")
	}
	if len(s) > MaxCredentialIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID is too long")
	}
	return CredentialID(s), nil
}

// String methods - for logging and debugging.

func (a Address) String() string       { return string(a) }
func (id CredentialID) String() string { return string(id) }

// IsNil checks - used for service-layer validation.

func (a Address) IsNil() bool       { return a == "" }
func (id CredentialID) IsNil() bool { return id == "" }

// Equal reports whether two addresses name the same account.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(string(a), string(other))
}

// Normalized returns the lowercase form, suitable as a map key.
func (a Address) Normalized() Address {
	return Address(strings.ToLower(string(a)))
}

// Short renders the address as 0x1234…abcd for display.
func (a Address) Short() string {
	s := string(a)
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}

// Matches reports whether expected is absent or names the same account as a.
func (a Address) Matches(expected *Address) bool {
	return expected == nil || a.Equal(*expected)
}
