// txpump-address derives the funding address for a seed phrase, and can
// generate a new phrase or seal one into an encrypted keyfile for txpumpd.
//
// Usage:
//
//	txpump-address [--network preprod] [--account N]
//	txpump-address --new [--keyfile PATH]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Klingon-tech/txpump/config"
	"github.com/Klingon-tech/txpump/internal/wallet"
)

func main() {
	fs := flag.NewFlagSet("txpump-address", flag.ExitOnError)
	network := fs.String("network", "preprod", "Network: mainnet, preprod or preview (or its magic)")
	account := fs.Uint("account", 0, "Account index")
	passphrase := fs.String("passphrase", "", "Optional BIP-39 passphrase")
	generate := fs.Bool("new", false, "Generate a new seed phrase")
	keyfile := fs.String("keyfile", "", "Write the seed phrase to an encrypted keyfile at this path")
	fs.Parse(os.Args[1:])

	magic, err := config.ParseNetwork(*network)
	if err != nil {
		fatal("%v", err)
	}
	if *account >= 1<<31 {
		fatal("account index %d out of range", *account)
	}

	var mnemonic string
	switch {
	case *generate:
		mnemonic, err = wallet.GenerateMnemonic()
		if err != nil {
			fatal("generate mnemonic: %v", err)
		}
		fmt.Println("Mnemonic (write this down!):")
		fmt.Printf("  %s\n\n", mnemonic)
	case os.Getenv(config.EnvMnemonic) != "":
		mnemonic = wallet.NormalizeMnemonic(os.Getenv(config.EnvMnemonic))
		if !wallet.ValidateMnemonic(mnemonic) {
			fatal("%s: %v", config.EnvMnemonic, wallet.ErrInvalidMnemonic)
		}
	default:
		mnemonic, err = wallet.ReadMnemonic(os.Stdin, os.Stderr)
		if err != nil {
			fatal("read seed phrase: %v", err)
		}
	}

	keys, err := wallet.DeriveAccountKeys(mnemonic, *passphrase, config.NetworkID(magic), uint32(*account))
	if err != nil {
		fatal("derive keys: %v", err)
	}
	defer keys.Zero()

	if *keyfile != "" {
		password := readNewPassword()
		if err := wallet.WriteKeyfile(*keyfile, mnemonic, password, keys.Address().String(), wallet.DefaultEncryptionParams()); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Keyfile written: %s\n", *keyfile)
	}

	fmt.Printf("Address:            %s\n", keys.Address())
	fmt.Printf("Enterprise address: %s\n", keys.EnterpriseAddress())
}

// readNewPassword prompts twice for the keyfile password, or takes it
// from the environment.
func readNewPassword() []byte {
	if pw := os.Getenv(config.EnvPassword); pw != "" {
		return []byte(pw)
	}
	password, err := wallet.ReadSecret("Enter password: ", os.Stdin, os.Stderr)
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := wallet.ReadSecret("Confirm password: ", os.Stdin, os.Stderr)
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	if len(password) == 0 {
		fatal("empty password")
	}
	return password
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
