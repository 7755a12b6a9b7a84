package wallet

import (
	"errors"

	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned for phrases that fail BIP-39 validation.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// EntropyFromMnemonic recovers the BIP-39 entropy a phrase encodes. Cardano
// root keys are derived from the entropy, not from the BIP-39 seed.
func EntropyFromMnemonic(mnemonic string) ([]byte, error) {
	entropy, err := bip39.EntropyFromMnemonic(NormalizeMnemonic(mnemonic))
	if err != nil {
		return nil, ErrInvalidMnemonic
	}
	return entropy, nil
}
