package tx

import (
	"fmt"

	"github.com/Klingon-tech/txpump/pkg/crypto"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{tx: &Transaction{}}
}

// AddInput adds an input spending id.
func (b *Builder) AddInput(id types.UtxoID) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, id)
	return b
}

// AddOutput adds an output paying lovelace and assets to addr.
func (b *Builder) AddOutput(addr types.Address, lovelace uint64, assets ...types.Asset) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{
		Address:  addr,
		Lovelace: lovelace,
		Assets:   assets,
	})
	return b
}

// SetFee sets the transaction fee.
func (b *Builder) SetFee(fee uint64) *Builder {
	b.tx.Fee = fee
	return b
}

// Sign replaces the witness set with a single witness from key over the
// body hash. All inputs are owned by the same payment key.
func (b *Builder) Sign(key crypto.Signer) error {
	hash, err := b.tx.Hash()
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	b.tx.Witnesses = []Witness{{
		VKey:      key.PublicKey(),
		Signature: key.Sign(hash[:]),
	}}
	return nil
}

// Build returns the constructed transaction.
// Does NOT validate; call tx.Validate() separately.
func (b *Builder) Build() *Transaction {
	return b.tx
}
