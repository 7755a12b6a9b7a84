package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/txpump/pkg/types"
)

// UTXO-aware validation errors.
var (
	ErrInputNotFound    = errors.New("input UTXO not found")
	ErrInputOverflow    = errors.New("input values overflow")
	ErrValueNotBalanced = errors.New("inputs do not equal outputs plus fee")
	ErrAssetsNotBalance = errors.New("input assets do not equal output assets")
)

// ValidateConservation checks that the transaction spends exactly the given
// inputs and preserves value: the input lovelace equals output lovelace plus
// the fee, and the asset multiset is unchanged.
func (tx *Transaction) ValidateConservation(inputs []types.Utxo) error {
	byID := make(map[types.UtxoID]types.Utxo, len(inputs))
	for _, u := range inputs {
		byID[u.ID] = u
	}

	var totalIn uint64
	inAssets := make([][]types.Asset, 0, len(tx.Inputs))
	for i, id := range tx.Inputs {
		u, ok := byID[id]
		if !ok {
			return fmt.Errorf("input %d (%s): %w", i, id, ErrInputNotFound)
		}
		if totalIn > math.MaxUint64-u.Balance.Lovelace {
			return fmt.Errorf("input %d: %w", i, ErrInputOverflow)
		}
		totalIn += u.Balance.Lovelace
		inAssets = append(inAssets, u.Balance.Assets)
	}

	totalOut, err := tx.TotalOutputLovelace()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputOverflow, err)
	}
	if totalOut > math.MaxUint64-tx.Fee || totalOut+tx.Fee != totalIn {
		return fmt.Errorf("%w: in %d, out %d, fee %d", ErrValueNotBalanced, totalIn, totalOut, tx.Fee)
	}

	outAssets := make([][]types.Asset, 0, len(tx.Outputs))
	for _, out := range tx.Outputs {
		outAssets = append(outAssets, out.Assets)
	}
	in, err := types.AggregateAssets(inAssets...)
	if err != nil {
		return err
	}
	out, err := types.AggregateAssets(outAssets...)
	if err != nil {
		return err
	}
	if len(in) != len(out) {
		return fmt.Errorf("%w: %d units in, %d units out", ErrAssetsNotBalance, len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			return fmt.Errorf("%w: %s", ErrAssetsNotBalance, in[i].Unit())
		}
	}
	return nil
}
