package wallet

import (
	"bytes"
	"testing"

	"github.com/Klingon-tech/txpump/pkg/crypto"
)

func testRoot(t *testing.T) *HDKey {
	t.Helper()
	root, err := RootKeyFromMnemonic(vectorMnemonic12, "")
	if err != nil {
		t.Fatalf("RootKeyFromMnemonic() error: %v", err)
	}
	return root
}

func clamped(k *HDKey) bool {
	return k.kL[0]&0x07 == 0 && k.kL[31]&0x80 == 0
}

func TestNewMasterKey_Clamping(t *testing.T) {
	root := testRoot(t)
	if root.Depth() != 0 {
		t.Errorf("root depth = %d, want 0", root.Depth())
	}
	if root.kL[0]&0x07 != 0 {
		t.Errorf("low bits of kL set: %08b", root.kL[0])
	}
	if root.kL[31]&0xe0 != 0x40 {
		t.Errorf("high bits of kL = %08b, want 010xxxxx", root.kL[31])
	}
}

func TestNewMasterKey_InvalidEntropy(t *testing.T) {
	for _, n := range []int{0, 12, 15, 18, 33} {
		if _, err := NewMasterKey(make([]byte, n), nil); err == nil {
			t.Errorf("NewMasterKey(%d bytes) should fail", n)
		}
	}
}

func TestRootKey_PassphraseChanges(t *testing.T) {
	plain := testRoot(t)
	salted, err := RootKeyFromMnemonic(vectorMnemonic12, "my passphrase")
	if err != nil {
		t.Fatalf("RootKeyFromMnemonic() error: %v", err)
	}
	if plain.kL == salted.kL {
		t.Error("different passphrases should produce different root keys")
	}
}

func TestRootKey_InvalidMnemonic(t *testing.T) {
	if _, err := RootKeyFromMnemonic("not valid words here", ""); err != ErrInvalidMnemonic {
		t.Errorf("error = %v, want ErrInvalidMnemonic", err)
	}
}

func TestDerivePath_EqualsSequential(t *testing.T) {
	root := testRoot(t)

	c1, err := root.DeriveChild(PurposeCIP1852)
	if err != nil {
		t.Fatalf("DeriveChild() error: %v", err)
	}
	c2, err := c1.DeriveChild(CoinTypeAda)
	if err != nil {
		t.Fatalf("DeriveChild() error: %v", err)
	}
	combined, err := root.DerivePath(PurposeCIP1852, CoinTypeAda)
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}
	if c2.kL != combined.kL || c2.kR != combined.kR || c2.chainCode != combined.chainCode {
		t.Error("DerivePath should equal sequential DeriveChild")
	}
}

func TestDeriveChild_HardenedDiffersFromSoft(t *testing.T) {
	root := testRoot(t)
	soft, _ := root.DeriveChild(0)
	hard, _ := root.DeriveChild(HardenedOffset)
	if soft.kL == hard.kL || soft.chainCode == hard.chainCode {
		t.Error("hardened and soft children at the same position should differ")
	}
}

func TestDeriveRole(t *testing.T) {
	root := testRoot(t)

	payment, err := root.DeriveRole(0, RoleExternal, 0)
	if err != nil {
		t.Fatalf("DeriveRole() error: %v", err)
	}
	// m / purpose' / coin' / account' / role / index
	if payment.Depth() != 5 {
		t.Errorf("depth = %d, want 5", payment.Depth())
	}
	if !clamped(payment) {
		t.Error("derived kL lost its clamping")
	}

	stake, _ := root.DeriveRole(0, RoleStake, 0)
	otherAccount, _ := root.DeriveRole(1, RoleExternal, 0)
	if bytes.Equal(payment.PublicKey(), stake.PublicKey()) {
		t.Error("payment and stake keys should differ")
	}
	if bytes.Equal(payment.PublicKey(), otherAccount.PublicKey()) {
		t.Error("different accounts should produce different keys")
	}

	if _, err := root.DeriveRole(HardenedOffset, RoleExternal, 0); err == nil {
		t.Error("account index at the hardened offset should fail")
	}
}

func TestHDKey_Signer(t *testing.T) {
	key, _ := testRoot(t).DeriveRole(0, RoleExternal, 0)

	signer, err := key.Signer()
	if err != nil {
		t.Fatalf("Signer() error: %v", err)
	}
	if !bytes.Equal(signer.PublicKey(), key.PublicKey()) {
		t.Error("signer public key differs from kL·B")
	}
	hash := crypto.Hash([]byte("test message"))
	sig := signer.Sign(hash[:])
	if !crypto.VerifySignature(hash[:], sig, signer.PublicKey()) {
		t.Error("signature from HD-derived key should verify")
	}
}

func TestHDKey_Zero(t *testing.T) {
	key := testRoot(t)
	key.Zero()
	if key.kL != [32]byte{} || key.kR != [32]byte{} || key.chainCode != [32]byte{} {
		t.Error("Zero should clear all key material")
	}
}

func TestAdd28Mul8(t *testing.T) {
	var x [32]byte
	x[0] = 0xff
	y := make([]byte, 28)
	y[0] = 0x01
	got := add28Mul8(x, y)
	// 0xff + 8 = 0x107
	if got[0] != 0x07 || got[1] != 0x01 {
		t.Errorf("add28Mul8 low bytes = %x %x, want 07 01", got[0], got[1])
	}

	// Carry runs past the 28 bytes of y.
	for i := range x {
		x[i] = 0xff
	}
	x[31] = 0x00
	got = add28Mul8(x, y)
	if got[0] != 0x07 || got[30] != 0x00 || got[31] != 0x01 {
		t.Errorf("add28Mul8 carry = %x", got)
	}
}

func TestAdd256_Wraps(t *testing.T) {
	var x [32]byte
	for i := range x {
		x[i] = 0xff
	}
	y := make([]byte, 32)
	y[0] = 0x01
	if got := add256(x, y); got != [32]byte{} {
		t.Errorf("add256 should wrap to zero, got %x", got)
	}
}
