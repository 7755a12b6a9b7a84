package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const keyfileVersion = 1

// keyfile is the on-disk JSON format of an encrypted mnemonic.
type keyfile struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Address   string    `json:"address,omitempty"`
	Sealed    []byte    `json:"sealed_mnemonic"`
}

// WriteKeyfile seals mnemonic under password and writes it to path with
// owner-only permissions. address is stored in clear for identification.
// An existing file is never overwritten.
func WriteKeyfile(path, mnemonic string, password []byte, address string, params EncryptionParams) error {
	mnemonic = NormalizeMnemonic(mnemonic)
	if !ValidateMnemonic(mnemonic) {
		return ErrInvalidMnemonic
	}
	sealed, err := Seal([]byte(mnemonic), password, params)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(keyfile{
		Version:   keyfileVersion,
		CreatedAt: time.Now().UTC(),
		Address:   address,
		Sealed:    sealed,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keyfile: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("create keyfile: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write keyfile: %w", err)
	}
	return f.Close()
}

// ReadKeyfile opens the keyfile at path and returns the mnemonic.
func ReadKeyfile(path string, password []byte) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read keyfile: %w", err)
	}
	var kf keyfile
	if err := json.Unmarshal(data, &kf); err != nil {
		return "", fmt.Errorf("parse keyfile: %w", err)
	}
	if kf.Version != keyfileVersion {
		return "", fmt.Errorf("unsupported keyfile version %d", kf.Version)
	}
	plain, err := Open(kf.Sealed, password)
	if err != nil {
		return "", err
	}
	defer zero(plain)
	return string(plain), nil
}
