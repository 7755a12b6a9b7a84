package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// KeyHashSize is the length of a payment or stake key hash in bytes.
const KeyHashSize = 28

// Address HRP (human-readable part) constants for bech32 encoding.
const (
	MainnetHRP = "addr"
	TestnetHRP = "addr_test"
)

// Network ids carried in the low nibble of the address header.
const (
	NetworkIDTestnet byte = 0
	NetworkIDMainnet byte = 1
)

// Shelley address header types (high nibble).
const (
	addrTypeBaseKeyKey    byte = 0x00
	addrTypeEnterpriseKey byte = 0x60
)

// Address is a raw Shelley address: a header byte followed by key hashes.
type Address []byte

// NewBaseAddress builds a key/key base address (payment + stake credential).
func NewBaseAddress(networkID byte, payment, stake [KeyHashSize]byte) Address {
	a := make(Address, 0, 1+2*KeyHashSize)
	a = append(a, addrTypeBaseKeyKey|(networkID&0x0f))
	a = append(a, payment[:]...)
	a = append(a, stake[:]...)
	return a
}

// NewEnterpriseAddress builds an address with a payment credential only.
func NewEnterpriseAddress(networkID byte, payment [KeyHashSize]byte) Address {
	a := make(Address, 0, 1+KeyHashSize)
	a = append(a, addrTypeEnterpriseKey|(networkID&0x0f))
	a = append(a, payment[:]...)
	return a
}

// IsZero returns true for an empty address.
func (a Address) IsZero() bool {
	return len(a) == 0
}

// NetworkID returns the network id from the header byte.
func (a Address) NetworkID() byte {
	if len(a) == 0 {
		return 0
	}
	return a[0] & 0x0f
}

// Equal reports whether two addresses have identical bytes.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a, other)
}

// HRP returns the bech32 prefix matching the address network.
func (a Address) HRP() string {
	if a.NetworkID() == NetworkIDMainnet {
		return MainnetHRP
	}
	return TestnetHRP
}

// String returns the bech32-encoded address (e.g. "addr1...").
func (a Address) String() string {
	if len(a) == 0 {
		return ""
	}
	conv, err := bech32.ConvertBits(a, 8, 5, true)
	if err != nil {
		return hex.EncodeToString(a)
	}
	s, err := bech32.Encode(a.HRP(), conv)
	if err != nil {
		// Fallback to hex if encoding fails (should never happen).
		return hex.EncodeToString(a)
	}
	return s
}

// Hex returns the raw hex-encoded address bytes.
func (a Address) Hex() string {
	return hex.EncodeToString(a)
}

// MarshalJSON encodes the address as a bech32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a bech32 or raw hex string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = nil
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a bech32 Shelley address ("addr1...", "addr_test1...")
// or a raw hex address. Shelley addresses exceed the 90-character BIP-173
// limit, so the length check is not applied.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return nil, fmt.Errorf("empty address")
	}

	if raw, err := hex.DecodeString(s); err == nil {
		if err := validateAddressBytes(raw); err != nil {
			return nil, err
		}
		return Address(raw), nil
	}

	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bech32 address: %w", err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("invalid bech32 address payload: %w", err)
	}
	if err := validateAddressBytes(raw); err != nil {
		return nil, err
	}
	addr := Address(raw)
	if addr.HRP() != hrp {
		return nil, fmt.Errorf("address prefix %q does not match network id %d", hrp, addr.NetworkID())
	}
	return addr, nil
}

func validateAddressBytes(raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty address payload")
	}
	switch raw[0] & 0xf0 {
	case addrTypeBaseKeyKey, 0x10, 0x20, 0x30:
		if len(raw) != 1+2*KeyHashSize {
			return fmt.Errorf("base address must be %d bytes, got %d", 1+2*KeyHashSize, len(raw))
		}
	case addrTypeEnterpriseKey, 0x70:
		if len(raw) != 1+KeyHashSize {
			return fmt.Errorf("enterprise address must be %d bytes, got %d", 1+KeyHashSize, len(raw))
		}
	default:
		if len(raw) < 1+KeyHashSize {
			return fmt.Errorf("address too short: %d bytes", len(raw))
		}
	}
	return nil
}
