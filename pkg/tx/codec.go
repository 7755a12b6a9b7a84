package tx

import (
	"encoding/hex"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"

	"github.com/Klingon-tech/txpump/pkg/types"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor dec mode: %v", err))
	}
}

// Wire layout (Babbage-style):
//
//	tx      = [body, witness_set, true, null]
//	body    = {0: [input], 1: [output], 2: fee}
//	input   = [tx_hash, index]
//	output  = {0: address, 1: coin / [coin, multiasset]}
//	witness = {0: [[vkey, signature]]}

type inputCBOR struct {
	_      struct{} `cbor:",toarray"`
	TxHash []byte
	Index  uint32
}

type outputCBOR struct {
	Address []byte      `cbor:"0,keyasint"`
	Value   interface{} `cbor:"1,keyasint"`
}

type outputDecodeCBOR struct {
	Address []byte          `cbor:"0,keyasint"`
	Value   cbor.RawMessage `cbor:"1,keyasint"`
}

type multiAsset map[cbor.ByteString]map[cbor.ByteString]uint64

type valueCBOR struct {
	_      struct{} `cbor:",toarray"`
	Coin   uint64
	Assets multiAsset
}

type bodyCBOR struct {
	Inputs  []inputCBOR  `cbor:"0,keyasint"`
	Outputs []outputCBOR `cbor:"1,keyasint"`
	Fee     uint64       `cbor:"2,keyasint"`
}

type bodyDecodeCBOR struct {
	Inputs  []inputCBOR       `cbor:"0,keyasint"`
	Outputs []cbor.RawMessage `cbor:"1,keyasint"`
	Fee     uint64            `cbor:"2,keyasint"`
}

type vkeyWitnessCBOR struct {
	_         struct{} `cbor:",toarray"`
	VKey      []byte
	Signature []byte
}

type witnessSetCBOR struct {
	VKeyWitnesses []vkeyWitnessCBOR `cbor:"0,keyasint,omitempty"`
}

type txCBOR struct {
	_         struct{} `cbor:",toarray"`
	Body      cbor.RawMessage
	Witnesses witnessSetCBOR
	Valid     bool
	Aux       interface{}
}

type txDecodeCBOR struct {
	_         struct{} `cbor:",toarray"`
	Body      cbor.RawMessage
	Witnesses witnessSetCBOR
	Valid     bool
	Aux       cbor.RawMessage
}

func (tx *Transaction) bodyCBOR() (*bodyCBOR, error) {
	body := &bodyCBOR{
		Inputs:  make([]inputCBOR, 0, len(tx.Inputs)),
		Outputs: make([]outputCBOR, 0, len(tx.Outputs)),
		Fee:     tx.Fee,
	}
	for _, in := range tx.Inputs {
		body.Inputs = append(body.Inputs, inputCBOR{TxHash: in.TxHash.Bytes(), Index: in.Index})
	}
	for i, out := range tx.Outputs {
		enc, err := encodeOutput(out)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		body.Outputs = append(body.Outputs, enc)
	}
	return body, nil
}

func encodeOutput(out Output) (outputCBOR, error) {
	enc := outputCBOR{Address: []byte(out.Address)}
	if len(out.Assets) == 0 {
		enc.Value = out.Lovelace
		return enc, nil
	}
	ma, err := encodeAssets(out.Assets)
	if err != nil {
		return outputCBOR{}, err
	}
	if len(ma) == 0 {
		enc.Value = out.Lovelace
		return enc, nil
	}
	enc.Value = valueCBOR{Coin: out.Lovelace, Assets: ma}
	return enc, nil
}

func encodeAssets(assets []types.Asset) (multiAsset, error) {
	merged, err := types.AggregateAssets(assets)
	if err != nil {
		return nil, err
	}
	ma := make(multiAsset)
	for _, a := range merged {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		policy, _ := hex.DecodeString(a.PolicyID)
		name, _ := hex.DecodeString(a.Name)
		inner, ok := ma[cbor.ByteString(policy)]
		if !ok {
			inner = make(map[cbor.ByteString]uint64)
			ma[cbor.ByteString(policy)] = inner
		}
		inner[cbor.ByteString(name)] = uint64(a.Quantity)
	}
	return ma, nil
}

func decodeOutput(raw cbor.RawMessage) (Output, error) {
	var dec outputDecodeCBOR
	if err := decMode.Unmarshal(raw, &dec); err != nil {
		return Output{}, err
	}
	out := Output{Address: types.Address(dec.Address)}

	var coin uint64
	if err := decMode.Unmarshal(dec.Value, &coin); err == nil {
		out.Lovelace = coin
		return out, nil
	}
	var v valueCBOR
	if err := decMode.Unmarshal(dec.Value, &v); err != nil {
		return Output{}, fmt.Errorf("value: %w", err)
	}
	out.Lovelace = v.Coin
	for policy, names := range v.Assets {
		for name, qty := range names {
			if qty > math.MaxInt64 {
				return Output{}, types.ErrAssetOverflow
			}
			out.Assets = append(out.Assets, types.Asset{
				PolicyID: hex.EncodeToString([]byte(policy)),
				Name:     hex.EncodeToString([]byte(name)),
				Quantity: int64(qty),
			})
		}
	}
	types.SortAssets(out.Assets)
	return out, nil
}

// EncodedOutputSize returns the length of the canonical encoding of out.
func EncodedOutputSize(out Output) (int, error) {
	enc, err := encodeOutput(out)
	if err != nil {
		return 0, err
	}
	b, err := encMode.Marshal(enc)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
