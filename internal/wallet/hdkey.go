package wallet

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/Klingon-tech/txpump/pkg/crypto"
)

// HardenedOffset marks a hardened child index.
const HardenedOffset uint32 = 0x80000000

// CIP-1852 derivation path constants.
// Full path: m/1852'/1815'/account'/role/index
const (
	// PurposeCIP1852 is the Shelley purpose field (hardened).
	PurposeCIP1852 = HardenedOffset + 1852

	// CoinTypeAda is the registered ada coin type (hardened).
	CoinTypeAda = HardenedOffset + 1815

	// RoleExternal is the payment chain.
	RoleExternal = 0

	// RoleInternal is the change chain.
	RoleInternal = 1

	// RoleStake is the staking key chain.
	RoleStake = 2
)

// icarusIterations is the PBKDF2 round count of the Icarus root key.
const icarusIterations = 4096

// HDKey is a BIP32-Ed25519 extended private key (kL, kR) with its chain
// code.
type HDKey struct {
	kL, kR    [32]byte
	chainCode [32]byte
	depth     uint8
}

// NewMasterKey derives the Icarus root key from BIP-39 entropy and an
// optional passphrase: PBKDF2-HMAC-SHA512(passphrase, entropy, 4096, 96)
// with kL clamped.
func NewMasterKey(entropy, passphrase []byte) (*HDKey, error) {
	if n := len(entropy); n < 16 || n > 32 || n%4 != 0 {
		return nil, fmt.Errorf("entropy must be 16-32 bytes in steps of 4, got %d", n)
	}
	xprv := pbkdf2.Key(passphrase, entropy, icarusIterations, 96, sha512.New)
	defer zero(xprv)

	xprv[0] &= 0xf8
	xprv[31] &= 0x1f
	xprv[31] |= 0x40

	k := &HDKey{}
	copy(k.kL[:], xprv[:32])
	copy(k.kR[:], xprv[32:64])
	copy(k.chainCode[:], xprv[64:])
	return k, nil
}

// RootKeyFromMnemonic validates mnemonic and derives its root key.
func RootKeyFromMnemonic(mnemonic, passphrase string) (*HDKey, error) {
	entropy, err := EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	defer zero(entropy)
	return NewMasterKey(entropy, []byte(passphrase))
}

// PublicKey returns the 32-byte Ed25519 verification key kL·B.
func (k *HDKey) PublicKey() []byte {
	pub, err := crypto.PublicKeyFromScalar(k.kL[:])
	if err != nil {
		panic(err) // kL is fixed size
	}
	return pub
}

// DeriveChild derives a child key at the given index. Indices at or above
// HardenedOffset use the private key, others the public key.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	if k.depth == 255 {
		return nil, fmt.Errorf("derive child %d: maximum depth reached", index)
	}
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], index)

	zTag, cTag := byte(0x02), byte(0x03)
	var data []byte
	if index >= HardenedOffset {
		zTag, cTag = 0x00, 0x01
		data = append(append(data, k.kL[:]...), k.kR[:]...)
	} else {
		data = k.PublicKey()
	}
	defer zero(data)

	z := hmacSHA512(k.chainCode[:], zTag, data, idx[:])
	defer zero(z)
	c := hmacSHA512(k.chainCode[:], cTag, data, idx[:])

	child := &HDKey{depth: k.depth + 1}
	child.kL = add28Mul8(k.kL, z[:28])
	child.kR = add256(k.kR, z[32:])
	copy(child.chainCode[:], c[32:])
	return child, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveRole derives the key at m/1852'/1815'/account'/role/index.
func (k *HDKey) DeriveRole(account, role, index uint32) (*HDKey, error) {
	if account >= HardenedOffset {
		return nil, fmt.Errorf("account index %d out of range", account)
	}
	return k.DerivePath(PurposeCIP1852, CoinTypeAda, HardenedOffset+account, role, index)
}

// Signer returns the extended signing key.
func (k *HDKey) Signer() (*crypto.ExtendedPrivateKey, error) {
	raw := append(append(make([]byte, 0, crypto.ExtendedKeySize), k.kL[:]...), k.kR[:]...)
	defer zero(raw)
	return crypto.NewExtendedPrivateKey(raw)
}

// Depth returns the derivation depth (0 for the root).
func (k *HDKey) Depth() uint8 {
	return k.depth
}

// Zero overwrites the key material.
func (k *HDKey) Zero() {
	zero(k.kL[:])
	zero(k.kR[:])
	zero(k.chainCode[:])
}

func hmacSHA512(key []byte, tag byte, parts ...[]byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte{tag})
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// add28Mul8 returns x + 8·y for the 28-byte little-endian y, modulo 2^256.
func add28Mul8(x [32]byte, y []byte) [32]byte {
	var out [32]byte
	var carry uint16
	for i := 0; i < 28; i++ {
		r := uint16(x[i]) + uint16(y[i])<<3 + carry
		out[i] = byte(r)
		carry = r >> 8
	}
	for i := 28; i < 32; i++ {
		r := uint16(x[i]) + carry
		out[i] = byte(r)
		carry = r >> 8
	}
	return out
}

// add256 returns x + y modulo 2^256, both little-endian.
func add256(x [32]byte, y []byte) [32]byte {
	var out [32]byte
	var carry uint16
	for i := 0; i < 32; i++ {
		r := uint16(x[i]) + uint16(y[i]) + carry
		out[i] = byte(r)
		carry = r >> 8
	}
	return out
}
