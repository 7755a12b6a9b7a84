package crypto

import (
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
)

// ExtendedKeySize is the length of a BIP32-Ed25519 extended private key:
// the scalar half kL followed by the nonce half kR.
const ExtendedKeySize = 64

// Signer signs messages with a private key.
type Signer interface {
	// Sign produces a signature over msg.
	Sign(msg []byte) []byte
	// PublicKey returns the 32-byte verification key.
	PublicKey() []byte
}

// ExtendedPrivateKey is a BIP32-Ed25519 signing key. Unlike an RFC 8032
// seed it is already expanded, so HD-derived children can sign directly.
// Signatures verify as ordinary Ed25519 signatures under PublicKey.
type ExtendedPrivateKey struct {
	key [ExtendedKeySize]byte
	a   *edwards25519.Scalar
	pub []byte
}

// NewExtendedPrivateKey wraps a 64-byte kL||kR key. kL must carry the
// Ed25519 clamping: the low three bits clear and the top bit clear.
func NewExtendedPrivateKey(b []byte) (*ExtendedPrivateKey, error) {
	if len(b) != ExtendedKeySize {
		return nil, fmt.Errorf("extended key must be %d bytes, got %d", ExtendedKeySize, len(b))
	}
	if b[0]&0x07 != 0 || b[31]&0x80 != 0 {
		return nil, fmt.Errorf("extended key scalar is not clamped")
	}
	k := &ExtendedPrivateKey{a: scalarFromKL(b[:32])}
	copy(k.key[:], b)
	k.pub = new(edwards25519.Point).ScalarBaseMult(k.a).Bytes()
	return k, nil
}

// PublicKeyFromScalar returns kL·B for the 32-byte scalar half of an
// extended key.
func PublicKeyFromScalar(kL []byte) ([]byte, error) {
	if len(kL) != 32 {
		return nil, fmt.Errorf("scalar must be 32 bytes, got %d", len(kL))
	}
	return new(edwards25519.Point).ScalarBaseMult(scalarFromKL(kL)).Bytes(), nil
}

// scalarFromKL reduces the little-endian 256-bit kL modulo the group order.
func scalarFromKL(kL []byte) *edwards25519.Scalar {
	var wide [64]byte
	copy(wide[:32], kL)
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		panic(err) // wide is always 64 bytes
	}
	return s
}

func hashToScalar(parts ...[]byte) *edwards25519.Scalar {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	if err != nil {
		panic(err)
	}
	return s
}

// Sign produces a 64-byte Ed25519 signature R||S over msg, with the nonce
// taken from kR.
func (k *ExtendedPrivateKey) Sign(msg []byte) []byte {
	r := hashToScalar(k.key[32:], msg)
	R := new(edwards25519.Point).ScalarBaseMult(r).Bytes()
	h := hashToScalar(R, k.pub, msg)
	S := edwards25519.NewScalar().MultiplyAdd(h, k.a, r)

	sig := make([]byte, 0, ed25519.SignatureSize)
	sig = append(sig, R...)
	return append(sig, S.Bytes()...)
}

// PublicKey returns the 32-byte verification key.
func (k *ExtendedPrivateKey) PublicKey() []byte {
	out := make([]byte, len(k.pub))
	copy(out, k.pub)
	return out
}

// Zero overwrites the private key memory.
func (k *ExtendedPrivateKey) Zero() {
	for i := range k.key {
		k.key[i] = 0
	}
	k.a = edwards25519.NewScalar()
}

// VerifySignature checks an Ed25519 signature. Returns false on malformed input.
func VerifySignature(msg, signature, publicKey []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), msg, signature)
}
