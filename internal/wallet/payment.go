package wallet

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/txpump/internal/fault"
	"github.com/Klingon-tech/txpump/pkg/crypto"
	"github.com/Klingon-tech/txpump/pkg/tx"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Payment build errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = errors.New("no UTXOs available")
	ErrBelowMinOutput    = errors.New("output below minimum value")
	ErrFeeNotConverged   = errors.New("fee did not converge")
)

// maxFeeIterations bounds the fee fixed-point search. The fee only grows
// and the encoded size only changes when a value crosses a CBOR width, so
// a handful of rounds is always enough.
const maxFeeIterations = 8

// BuildResult is a signed payment ready for submission.
type BuildResult struct {
	Tx       *tx.Transaction
	Bytes    []byte
	Hash     types.Hash
	Fee      uint64
	Consumed []types.Utxo
	Produced []types.Utxo
}

// ConsumedIDs returns the identities of the spent inputs.
func (r *BuildResult) ConsumedIDs() []types.UtxoID {
	ids := make([]types.UtxoID, len(r.Consumed))
	for i, u := range r.Consumed {
		ids[i] = u.ID
	}
	return ids
}

// PaymentBuilder builds payments that spend every given input into one
// destination output and one change output.
type PaymentBuilder struct {
	params tx.Params
}

// NewPaymentBuilder creates a builder using the given protocol parameters.
func NewPaymentBuilder(params tx.Params) *PaymentBuilder {
	return &PaymentBuilder{params: params}
}

// Params returns the protocol parameters in use.
func (b *PaymentBuilder) Params() tx.Params {
	return b.params
}

// funding is the aggregated value of a set of inputs.
type funding struct {
	ids    []types.UtxoID
	total  uint64
	assets []types.Asset
}

func aggregate(inputs []types.Utxo) (*funding, error) {
	if len(inputs) == 0 {
		return nil, ErrNoUTXOs
	}
	total, ok := types.TotalLovelace(inputs)
	if !ok {
		return nil, fmt.Errorf("input lovelace overflows")
	}
	lists := make([][]types.Asset, 0, len(inputs))
	ids := make([]types.UtxoID, 0, len(inputs))
	for _, u := range inputs {
		lists = append(lists, u.Balance.Assets)
		ids = append(ids, u.ID)
	}
	assets, err := types.AggregateAssets(lists...)
	if err != nil {
		return nil, err
	}
	return &funding{ids: ids, total: total, assets: assets}, nil
}

// assemble builds and signs [destination, change] spending f.ids.
func (b *PaymentBuilder) assemble(signer crypto.Signer, f *funding, destination types.Address, amount uint64, change types.Address, fee uint64) (*tx.Transaction, error) {
	builder := tx.NewBuilder()
	for _, id := range f.ids {
		builder.AddInput(id)
	}
	builder.
		AddOutput(destination, amount).
		AddOutput(change, f.total-amount-fee, f.assets...).
		SetFee(fee)
	if err := builder.Sign(signer); err != nil {
		return nil, err
	}
	return builder.Build(), nil
}

// settleFee finds the smallest fee that covers the signed transaction's
// own size, starting from zero and never decreasing.
func (b *PaymentBuilder) settleFee(signer crypto.Signer, f *funding, destination types.Address, amount uint64, change types.Address) (*tx.Transaction, error) {
	var fee uint64
	for i := 0; i < maxFeeIterations; i++ {
		if fee > f.total-amount {
			return nil, fmt.Errorf("%w: have %d, need %d plus fee %d", ErrInsufficientFunds, f.total, amount, fee)
		}
		t, err := b.assemble(signer, f, destination, amount, change, fee)
		if err != nil {
			return nil, err
		}
		required, err := tx.RequiredFee(t, b.params)
		if err != nil {
			return nil, err
		}
		if required <= fee {
			return t, nil
		}
		fee = required
	}
	return nil, ErrFeeNotConverged
}

// Build spends all inputs, in order, paying amount to destination and the
// remainder less the fee to change. All input assets pass through to the
// change output. Funds shortfalls are InsufficientFundsError; every other
// failure is a BuildError.
func (b *PaymentBuilder) Build(signer crypto.Signer, destination types.Address, amount uint64, change types.Address, inputs []types.Utxo) (*BuildResult, error) {
	const op = "build payment"

	if destination.IsZero() || change.IsZero() {
		return nil, fault.Newf(fault.BuildError, op, "destination and change address are required")
	}
	f, err := aggregate(inputs)
	if errors.Is(err, ErrNoUTXOs) {
		return nil, fault.New(fault.InsufficientFundsError, op, err)
	}
	if err != nil {
		return nil, fault.New(fault.BuildError, op, err)
	}

	// Cheap precondition before any encoding or signing.
	if amount > f.total || f.total-amount < b.params.MinFeeB {
		return nil, fault.New(fault.InsufficientFundsError, op,
			fmt.Errorf("%w: have %d, need %d plus fee", ErrInsufficientFunds, f.total, amount))
	}

	t, err := b.settleFee(signer, f, destination, amount, change)
	if errors.Is(err, ErrInsufficientFunds) {
		return nil, fault.New(fault.InsufficientFundsError, op, err)
	}
	if err != nil {
		return nil, fault.New(fault.BuildError, op, err)
	}

	if err := b.checkMinOutputs(t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, fault.New(fault.BuildError, op, err)
	}
	if err := t.ValidateConservation(inputs); err != nil {
		return nil, fault.New(fault.BuildError, op, err)
	}

	raw, err := t.Serialize()
	if err != nil {
		return nil, fault.New(fault.BuildError, op, err)
	}
	hash, err := t.Hash()
	if err != nil {
		return nil, fault.New(fault.BuildError, op, err)
	}

	res := &BuildResult{
		Tx:       t,
		Bytes:    raw,
		Hash:     hash,
		Fee:      t.Fee,
		Consumed: append([]types.Utxo(nil), inputs...),
	}
	for i, out := range t.Outputs {
		if !out.Address.Equal(change) {
			continue
		}
		res.Produced = append(res.Produced, types.Utxo{
			ID:      types.UtxoID{TxHash: hash, Index: uint32(i)},
			Address: out.Address,
			Balance: types.Balance{Lovelace: out.Lovelace, Assets: out.Assets},
		})
	}
	return res, nil
}

func (b *PaymentBuilder) checkMinOutputs(t *tx.Transaction) error {
	const op = "build payment"

	dest, changeOut := t.Outputs[0], t.Outputs[len(t.Outputs)-1]
	minDest, err := tx.MinOutputLovelace(dest, b.params)
	if err != nil {
		return fault.New(fault.BuildError, op, err)
	}
	if dest.Lovelace < minDest {
		return fault.New(fault.BuildError, op,
			fmt.Errorf("%w: destination %d < %d", ErrBelowMinOutput, dest.Lovelace, minDest))
	}
	minChange, err := tx.MinOutputLovelace(changeOut, b.params)
	if err != nil {
		return fault.New(fault.BuildError, op, err)
	}
	if changeOut.Lovelace < minChange {
		return fault.New(fault.InsufficientFundsError, op,
			fmt.Errorf("%w: change %d < %d", ErrBelowMinOutput, changeOut.Lovelace, minChange))
	}
	return nil
}

// MaxAmount returns the largest amount Build can pay from inputs: the input
// total less the fee of a payment that leaves an empty change output.
func (b *PaymentBuilder) MaxAmount(signer crypto.Signer, destination, change types.Address, inputs []types.Utxo) (uint64, error) {
	f, err := aggregate(inputs)
	if err != nil {
		return 0, err
	}
	var fee uint64
	for i := 0; i < maxFeeIterations; i++ {
		if fee > f.total {
			return 0, ErrInsufficientFunds
		}
		t, err := b.assemble(signer, f, destination, f.total-fee, change, fee)
		if err != nil {
			return 0, err
		}
		required, err := tx.RequiredFee(t, b.params)
		if err != nil {
			return 0, err
		}
		if required <= fee {
			return f.total - fee, nil
		}
		fee = required
	}
	return 0, ErrFeeNotConverged
}
