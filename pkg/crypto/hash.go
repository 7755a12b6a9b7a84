// Package crypto provides the hashing and signing primitives used by txpump.
package crypto

import (
	"github.com/Klingon-tech/txpump/pkg/types"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Hash computes the BLAKE2b-256 hash of data. Transaction IDs are the
// Hash of the canonical transaction body.
func Hash(data []byte) types.Hash {
	return blake2b.Sum256(data)
}

// KeyHash computes the BLAKE2b-224 hash of a verification key, the
// credential embedded in addresses.
func KeyHash(pubKey []byte) [types.KeyHashSize]byte {
	var out [types.KeyHashSize]byte
	h, err := blake2b.New(types.KeyHashSize, nil)
	if err != nil {
		// Only fails for sizes outside 1..64 or oversized keys.
		panic(err)
	}
	h.Write(pubKey)
	copy(out[:], h.Sum(nil))
	return out
}

// Digest computes a BLAKE3-256 hash of the input data. It is used for
// local fingerprints (UTXO set commitments) that never reach the ledger.
func Digest(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// DigestConcat digests the concatenation of two hashes.
// Used for building merkle trees.
func DigestConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Digest(buf[:])
}

// MerkleRoot folds leaf hashes pairwise into a single root. An odd leaf at
// any level is paired with itself. Returns the zero hash for no leaves.
func MerkleRoot(leaves []types.Hash) types.Hash {
	if len(leaves) == 0 {
		return types.Hash{}
	}
	level := make([]types.Hash, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([]types.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, DigestConcat(level[i], right))
		}
		level = next
	}
	return level[0]
}
