package wallet

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when a secret prompt is attempted without a
// terminal on stdin.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ReadSecret prints prompt to out and reads a line from in with echo
// disabled.
func ReadSecret(prompt string, in *os.File, out io.Writer) ([]byte, error) {
	if !IsTerminal(in) {
		return nil, ErrNotTerminal
	}
	fmt.Fprint(out, prompt)
	secret, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out) // newline after hidden input
	if err != nil {
		return nil, fmt.Errorf("read secret: %w", err)
	}
	return secret, nil
}

// ReadMnemonic prompts for a seed phrase on the terminal and validates it.
func ReadMnemonic(in *os.File, out io.Writer) (string, error) {
	secret, err := ReadSecret("Seed phrase: ", in, out)
	if err != nil {
		return "", err
	}
	defer zero(secret)
	mnemonic := NormalizeMnemonic(string(secret))
	if !ValidateMnemonic(mnemonic) {
		return "", ErrInvalidMnemonic
	}
	return mnemonic, nil
}
