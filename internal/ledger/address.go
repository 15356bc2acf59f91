package ledger

import (
	"encoding/hex"
	"fmt"
)

// Address is an authenticated 32-byte identity: a user, an authority, or a
// withdrawal recipient. The execution environment verifies signatures before
// the engine runs; the engine only compares already-verified addresses.
type Address [32]byte

// ZeroAddress is the unset identity.
var ZeroAddress Address

// AddressFromString parses a hex-encoded address, with or without 0x prefix.
func AddressFromString(s string) (Address, error) {
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}

	var a Address
	raw, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address: %w", err)
	}
	if len(raw) != len(a) {
		return a, fmt.Errorf("parse address: want %d bytes, got %d", len(a), len(raw))
	}

	copy(a[:], raw)
	return a, nil
}

// AddressFromName derives a deterministic address from a human-readable name.
// Used by tests and local tooling; production identities come from the caller.
func AddressFromName(name string) Address {
	var a Address
	copy(a[:], []byte(name))
	return a
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText renders the address as hex for JSON payloads and log fields.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses a hex-encoded address.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromString(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
