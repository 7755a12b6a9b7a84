package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/txpump/pkg/crypto"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Validation errors.
var (
	ErrNoInputs       = errors.New("transaction has no inputs")
	ErrNoOutputs      = errors.New("transaction has no outputs")
	ErrDuplicateInput = errors.New("duplicate input")
	ErrOutputOverflow = errors.New("output values overflow")
	ErrEmptyAddress   = errors.New("output has no address")
	ErrInvalidAsset   = errors.New("invalid output asset")
	ErrMissingWitness = errors.New("transaction has no witnesses")
	ErrInvalidSig     = errors.New("invalid signature")
)

// Validate checks transaction structure: inputs, outputs and witness
// presence. It does NOT check inputs against a UTXO set.
func (tx *Transaction) Validate() error {
	if err := tx.ValidateStructure(); err != nil {
		return err
	}
	if len(tx.Witnesses) == 0 {
		return ErrMissingWitness
	}
	return nil
}

// ValidateStructure runs the checks that do not need witnesses, so it can
// be used on a transaction before signing.
func (tx *Transaction) ValidateStructure() error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}

	seen := make(map[types.UtxoID]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if seen[in] {
			return fmt.Errorf("input %d (%s): %w", i, in, ErrDuplicateInput)
		}
		seen[in] = true
	}

	var total uint64
	for i, out := range tx.Outputs {
		if out.Address.IsZero() {
			return fmt.Errorf("output %d: %w", i, ErrEmptyAddress)
		}
		for _, a := range out.Assets {
			if err := a.Validate(); err != nil {
				return fmt.Errorf("output %d: %w: %w", i, ErrInvalidAsset, err)
			}
		}
		if total > math.MaxUint64-out.Lovelace {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		total += out.Lovelace
	}
	return nil
}

// VerifySignatures checks every witness signature against the body hash.
func (tx *Transaction) VerifySignatures() error {
	if len(tx.Witnesses) == 0 {
		return ErrMissingWitness
	}
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	for i, w := range tx.Witnesses {
		if !crypto.VerifySignature(hash[:], w.Signature, w.VKey) {
			return fmt.Errorf("witness %d: %w", i, ErrInvalidSig)
		}
	}
	return nil
}

// HasWitnessFor reports whether some witness carries a vkey hashing to keyHash.
func (tx *Transaction) HasWitnessFor(keyHash [types.KeyHashSize]byte) bool {
	for _, w := range tx.Witnesses {
		if crypto.KeyHash(w.VKey) == keyHash {
			return true
		}
	}
	return false
}
