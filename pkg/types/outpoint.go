package types

import (
	"fmt"
	"strconv"
	"strings"
)

// UtxoID identifies an unspent output: the hash of the transaction that
// created it and the output's position in that transaction.
type UtxoID struct {
	TxHash Hash   `json:"tx_hash"`
	Index  uint32 `json:"index"`
}

// String returns "txhash#index" in hex.
func (id UtxoID) String() string {
	return fmt.Sprintf("%s#%d", id.TxHash.String(), id.Index)
}

// Compare orders IDs by transaction hash, then by index.
func (id UtxoID) Compare(other UtxoID) int {
	if c := id.TxHash.Compare(other.TxHash); c != 0 {
		return c
	}
	switch {
	case id.Index < other.Index:
		return -1
	case id.Index > other.Index:
		return 1
	default:
		return 0
	}
}

// ParseUtxoID parses the "txhash#index" form produced by String.
func ParseUtxoID(s string) (UtxoID, error) {
	hashPart, indexPart, ok := strings.Cut(s, "#")
	if !ok {
		return UtxoID{}, fmt.Errorf("utxo id %q: missing '#'", s)
	}
	h, err := HexToHash(hashPart)
	if err != nil {
		return UtxoID{}, fmt.Errorf("utxo id %q: %w", s, err)
	}
	idx, err := strconv.ParseUint(indexPart, 10, 32)
	if err != nil {
		return UtxoID{}, fmt.Errorf("utxo id %q: invalid index: %w", s, err)
	}
	return UtxoID{TxHash: h, Index: uint32(idx)}, nil
}
