package wallet

import (
	"fmt"

	"github.com/Klingon-tech/txpump/pkg/crypto"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Keys is the key material of one driver account: a payment key that
// signs every transaction and a stake key that completes the base address.
type Keys struct {
	payment   *crypto.ExtendedPrivateKey
	stake     *crypto.ExtendedPrivateKey
	networkID byte
}

// DeriveKeys derives account 0 payment and stake keys from a mnemonic.
func DeriveKeys(mnemonic, passphrase string, networkID byte) (*Keys, error) {
	return DeriveAccountKeys(mnemonic, passphrase, networkID, 0)
}

// DeriveAccountKeys derives the CIP-1852 payment (role 0) and stake
// (role 2) keys of the given account, both at index 0, from the Icarus
// root key of mnemonic.
func DeriveAccountKeys(mnemonic, passphrase string, networkID byte, account uint32) (*Keys, error) {
	master, err := RootKeyFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	defer master.Zero()

	paymentHD, err := master.DeriveRole(account, RoleExternal, 0)
	if err != nil {
		return nil, fmt.Errorf("payment key: %w", err)
	}
	defer paymentHD.Zero()
	stakeHD, err := master.DeriveRole(account, RoleStake, 0)
	if err != nil {
		return nil, fmt.Errorf("stake key: %w", err)
	}
	defer stakeHD.Zero()

	payment, err := paymentHD.Signer()
	if err != nil {
		return nil, fmt.Errorf("payment key: %w", err)
	}
	stake, err := stakeHD.Signer()
	if err != nil {
		return nil, fmt.Errorf("stake key: %w", err)
	}
	return &Keys{payment: payment, stake: stake, networkID: networkID}, nil
}

// Signer returns the payment signing key.
func (k *Keys) Signer() crypto.Signer {
	return k.payment
}

// PaymentKeyHash returns the BLAKE2b-224 hash of the payment verification key.
func (k *Keys) PaymentKeyHash() [types.KeyHashSize]byte {
	return crypto.KeyHash(k.payment.PublicKey())
}

// StakeKeyHash returns the BLAKE2b-224 hash of the stake verification key.
func (k *Keys) StakeKeyHash() [types.KeyHashSize]byte {
	return crypto.KeyHash(k.stake.PublicKey())
}

// Address returns the base address (payment + stake credential). Funds
// and change live here.
func (k *Keys) Address() types.Address {
	return types.NewBaseAddress(k.networkID, k.PaymentKeyHash(), k.StakeKeyHash())
}

// EnterpriseAddress returns the payment-only address of the same key.
func (k *Keys) EnterpriseAddress() types.Address {
	return types.NewEnterpriseAddress(k.networkID, k.PaymentKeyHash())
}

// NetworkID returns the address network id the keys were derived for.
func (k *Keys) NetworkID() byte {
	return k.networkID
}

// Zero overwrites the private key memory.
func (k *Keys) Zero() {
	k.payment.Zero()
	k.stake.Zero()
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
