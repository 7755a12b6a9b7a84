package tx

// Protocol defaults for the linear fee rule and the minimum output value.
const (
	DefaultMinFeeA = 44
	DefaultMinFeeB = 155381

	// MinUTxOOverhead is the constant byte overhead added to an output's
	// encoded size before applying CoinsPerUTxOByte.
	MinUTxOOverhead = 160
)

// Params are the protocol parameters the fee and min-output rules depend on.
type Params struct {
	MinFeeA          uint64 `json:"min_fee_a"`
	MinFeeB          uint64 `json:"min_fee_b"`
	CoinsPerUTxOByte uint64 `json:"coins_per_utxo_byte"`
}

// DefaultParams returns the standard fee constants with the minimum-output
// rule disabled.
func DefaultParams() Params {
	return Params{
		MinFeeA: DefaultMinFeeA,
		MinFeeB: DefaultMinFeeB,
	}
}

// MinFee returns the linear fee for a transaction of size bytes:
// MinFeeA*size + MinFeeB.
func (p Params) MinFee(size int) uint64 {
	return p.MinFeeA*uint64(size) + p.MinFeeB
}

// RequiredFee returns the exact minimum fee for a fully built (and signed)
// transaction, based on its serialized size.
func RequiredFee(transaction *Transaction, p Params) (uint64, error) {
	size, err := transaction.Size()
	if err != nil {
		return 0, err
	}
	return p.MinFee(size), nil
}

// MinOutputLovelace returns the smallest lovelace value out may carry.
// Returns 0 when CoinsPerUTxOByte is 0.
func MinOutputLovelace(out Output, p Params) (uint64, error) {
	if p.CoinsPerUTxOByte == 0 {
		return 0, nil
	}
	size, err := EncodedOutputSize(out)
	if err != nil {
		return 0, err
	}
	return (MinUTxOOverhead + uint64(size)) * p.CoinsPerUTxOByte, nil
}
