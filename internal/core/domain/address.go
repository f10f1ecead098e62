package domain

import (
	"encoding/hex"
	"strings"

	"go.trai.ch/zerr"
)

// AddressLength is the width of an on-chain address in bytes.
const AddressLength = 32

// UnassignedAddress is the manifest placeholder for a named address without a value.
const UnassignedAddress = "_"

// Address is a fixed-width on-chain address.
type Address [AddressLength]byte

// ZeroAddress is the sentinel for packages that were never published.
var ZeroAddress Address

// ParseAddress parses a hex address literal with or without a 0x prefix.
// Short literals are left-padded with zeros, so "0x2" equals 0x00..02.
func ParseAddress(s string) (Address, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if raw == "" || len(raw) > 2*AddressLength {
		return ZeroAddress, zerr.With(zerr.Wrap(ErrInvalidAddress, "parse address"), "value", s)
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}

	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return ZeroAddress, zerr.With(zerr.Wrap(ErrInvalidAddress, err.Error()), "value", s)
	}

	var a Address
	copy(a[AddressLength-len(decoded):], decoded)
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on invalid input.
// It is meant for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the unpublished sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the canonical 0x-prefixed, 64 digit lowercase form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// FirstNonZero returns the first address that is not the zero sentinel.
func FirstNonZero(addrs ...Address) (Address, bool) {
	for _, a := range addrs {
		if !a.IsZero() {
			return a, true
		}
	}
	return ZeroAddress, false
}
