package node

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/txpump/config"
	"github.com/Klingon-tech/txpump/internal/wallet"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// resolveMnemonic finds the seed phrase: the configured mnemonic, then the
// keyfile, then a terminal prompt.
func resolveMnemonic(w config.WalletConfig, in *os.File, out io.Writer) (string, error) {
	if w.Mnemonic != "" {
		m := wallet.NormalizeMnemonic(w.Mnemonic)
		if !wallet.ValidateMnemonic(m) {
			return "", wallet.ErrInvalidMnemonic
		}
		return m, nil
	}

	if w.Keyfile != "" {
		password := []byte(w.Password)
		if len(password) == 0 {
			var err error
			password, err = wallet.ReadSecret("Keyfile password: ", in, out)
			if err != nil {
				return "", fmt.Errorf("keyfile password (set %s for non-interactive use): %w", config.EnvPassword, err)
			}
		}
		m, err := wallet.ReadKeyfile(expandHome(w.Keyfile), password)
		if err != nil {
			return "", fmt.Errorf("open keyfile %s: %w", w.Keyfile, err)
		}
		return m, nil
	}

	m, err := wallet.ReadMnemonic(in, out)
	if errors.Is(err, wallet.ErrNotTerminal) {
		return "", fmt.Errorf("no seed phrase configured: set %s, use --keyfile or run on a terminal", config.EnvMnemonic)
	}
	return m, err
}

// LoadKeys resolves the seed phrase and derives the wallet keys for the
// configured network and account. in and out are used only for prompts.
func LoadKeys(cfg *config.Config, in *os.File, out io.Writer) (*wallet.Keys, error) {
	mnemonic, err := resolveMnemonic(cfg.Wallet, in, out)
	if err != nil {
		return nil, err
	}
	return wallet.DeriveAccountKeys(mnemonic, cfg.Wallet.Passphrase, config.NetworkID(cfg.NetworkMagic), cfg.Wallet.Account)
}
