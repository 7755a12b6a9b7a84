// Package tx defines the transaction model, its canonical encoding and
// validation.
package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/txpump/pkg/crypto"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Transaction is a payment transaction: inputs spent, outputs created,
// the fee paid and the vkey witnesses authorizing the spend.
type Transaction struct {
	Inputs    []types.UtxoID `json:"inputs"`
	Outputs   []Output       `json:"outputs"`
	Fee       uint64         `json:"fee"`
	Witnesses []Witness      `json:"witnesses,omitempty"`
}

// Output defines a new UTXO.
type Output struct {
	Address  types.Address `json:"address"`
	Lovelace uint64        `json:"lovelace"`
	Assets   []types.Asset `json:"assets,omitempty"`
}

// Witness is an Ed25519 verification key and its signature over the body hash.
type Witness struct {
	VKey      []byte `json:"vkey"`
	Signature []byte `json:"signature"`
}

// ErrMalformed is returned when serialized bytes do not decode as a transaction.
var ErrMalformed = errors.New("malformed transaction")

// BodyBytes returns the canonical CBOR encoding of the transaction body.
// Witnesses are excluded, so signing does not change the body.
func (tx *Transaction) BodyBytes() ([]byte, error) {
	body, err := tx.bodyCBOR()
	if err != nil {
		return nil, err
	}
	b, err := encMode.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return b, nil
}

// Hash computes the transaction ID: BLAKE2b-256 of the canonical body.
func (tx *Transaction) Hash() (types.Hash, error) {
	body, err := tx.BodyBytes()
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(body), nil
}

// Serialize returns the full signed transaction:
// [body, witness set, is_valid, auxiliary data].
// The embedded body bytes are exactly BodyBytes().
func (tx *Transaction) Serialize() ([]byte, error) {
	body, err := tx.BodyBytes()
	if err != nil {
		return nil, err
	}
	env := txCBOR{
		Body:      body,
		Witnesses: witnessSetCBOR{VKeyWitnesses: make([]vkeyWitnessCBOR, 0, len(tx.Witnesses))},
		Valid:     true,
	}
	for _, w := range tx.Witnesses {
		env.Witnesses.VKeyWitnesses = append(env.Witnesses.VKeyWitnesses, vkeyWitnessCBOR{
			VKey:      w.VKey,
			Signature: w.Signature,
		})
	}
	b, err := encMode.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return b, nil
}

// Size returns the length of the serialized transaction in bytes.
func (tx *Transaction) Size() (int, error) {
	b, err := tx.Serialize()
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// TotalOutputLovelace returns the sum of all output lovelace values.
// Returns an error if the sum overflows uint64.
func (tx *Transaction) TotalOutputLovelace() (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		if total > math.MaxUint64-out.Lovelace {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Lovelace
	}
	return total, nil
}

// Clone returns a deep copy of the transaction.
func (tx *Transaction) Clone() *Transaction {
	c := &Transaction{
		Inputs:    append([]types.UtxoID(nil), tx.Inputs...),
		Outputs:   make([]Output, len(tx.Outputs)),
		Fee:       tx.Fee,
		Witnesses: make([]Witness, len(tx.Witnesses)),
	}
	for i, out := range tx.Outputs {
		c.Outputs[i] = Output{
			Address:  append(types.Address(nil), out.Address...),
			Lovelace: out.Lovelace,
			Assets:   append([]types.Asset(nil), out.Assets...),
		}
	}
	for i, w := range tx.Witnesses {
		c.Witnesses[i] = Witness{
			VKey:      append([]byte(nil), w.VKey...),
			Signature: append([]byte(nil), w.Signature...),
		}
	}
	return c
}

// BodyHashFromBytes extracts the body from a serialized transaction and
// returns its hash, which is the transaction ID.
func BodyHashFromBytes(data []byte) (types.Hash, error) {
	var env txDecodeCBOR
	if err := decMode.Unmarshal(data, &env); err != nil {
		return types.Hash{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(env.Body) == 0 {
		return types.Hash{}, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	return crypto.Hash(env.Body), nil
}

// Decode parses a serialized transaction produced by Serialize.
func Decode(data []byte) (*Transaction, error) {
	var env txDecodeCBOR
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	var body bodyDecodeCBOR
	if err := decMode.Unmarshal(env.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: body: %w", ErrMalformed, err)
	}

	t := &Transaction{Fee: body.Fee}
	for _, in := range body.Inputs {
		if len(in.TxHash) != types.HashSize {
			return nil, fmt.Errorf("%w: input hash must be %d bytes", ErrMalformed, types.HashSize)
		}
		var id types.UtxoID
		copy(id.TxHash[:], in.TxHash)
		id.Index = in.Index
		t.Inputs = append(t.Inputs, id)
	}
	for i, raw := range body.Outputs {
		out, err := decodeOutput(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: output %d: %w", ErrMalformed, i, err)
		}
		t.Outputs = append(t.Outputs, out)
	}
	for _, w := range env.Witnesses.VKeyWitnesses {
		t.Witnesses = append(t.Witnesses, Witness{VKey: w.VKey, Signature: w.Signature})
	}
	return t, nil
}
