package utxo

import (
	"encoding/binary"
	"sort"

	"github.com/Klingon-tech/txpump/pkg/crypto"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Commitment computes a merkle root over all UTXOs in the set.
// Each UTXO is hashed deterministically, the hashes are sorted, and
// a merkle tree is built from them. Returns a zero hash for an empty set.
func Commitment(s *Set) types.Hash {
	if s.IsEmpty() {
		return types.Hash{}
	}

	hashes := make([]types.Hash, 0, s.Len())
	for _, u := range s.items {
		hashes = append(hashes, hashUTXO(u))
	}
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].Compare(hashes[j]) < 0
	})
	return crypto.MerkleRoot(hashes)
}

// hashUTXO produces a deterministic BLAKE3 hash of a UTXO.
// Format: txhash(32) | index(4) | lovelace(8) | addr_len(2) | addr |
// per asset: policy | 0x00 | name | 0x00 | quantity(8)
func hashUTXO(u types.Utxo) types.Hash {
	var buf []byte
	buf = append(buf, u.ID.TxHash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, u.ID.Index)
	buf = binary.LittleEndian.AppendUint64(buf, u.Balance.Lovelace)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(u.Address)))
	buf = append(buf, u.Address...)
	for _, a := range u.Balance.Assets {
		buf = append(buf, a.PolicyID...)
		buf = append(buf, 0)
		buf = append(buf, a.Name...)
		buf = append(buf, 0)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(a.Quantity))
	}
	return crypto.Digest(buf)
}
