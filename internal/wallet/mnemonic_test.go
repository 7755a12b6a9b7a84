package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

const (
	vectorMnemonic12 = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	vectorMnemonic24 = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"
)

func TestGenerateMnemonic(t *testing.T) {
	m1, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	m2, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}

	if n := len(strings.Fields(m1)); n != 24 {
		t.Errorf("word count = %d, want 24", n)
	}
	if !ValidateMnemonic(m1) {
		t.Error("generated mnemonic should validate")
	}
	if m1 == m2 {
		t.Error("two generated mnemonics should not be identical")
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		valid    bool
	}{
		{"valid 24 words", vectorMnemonic24, true},
		{"valid 12 words", vectorMnemonic12, true},
		{"extra whitespace and caps", "  Abandon abandon\tabandon abandon abandon abandon abandon abandon abandon abandon abandon ABOUT\n", true},
		{"empty", "", false},
		{"random words", "not a valid mnemonic phrase at all", false},
		{"wrong checksum", strings.Repeat("abandon ", 23) + "abandon", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMnemonic(tt.mnemonic); got != tt.valid {
				t.Errorf("ValidateMnemonic() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestNormalizeMnemonic(t *testing.T) {
	got := NormalizeMnemonic(" One\n TWO  three ")
	if got != "one two three" {
		t.Errorf("NormalizeMnemonic() = %q", got)
	}
}

func TestEntropyFromMnemonic_KnownVector(t *testing.T) {
	tests := []struct {
		mnemonic string
		want     string
	}{
		{vectorMnemonic12, "00000000000000000000000000000000"},
		{vectorMnemonic24, "0000000000000000000000000000000000000000000000000000000000000000"},
		{"legal winner thank year wave sausage worth useful legal winner thank yellow", "7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f"},
	}
	for _, tt := range tests {
		got, err := EntropyFromMnemonic(tt.mnemonic)
		if err != nil {
			t.Fatalf("EntropyFromMnemonic(%q) error: %v", tt.mnemonic, err)
		}
		want, _ := hex.DecodeString(tt.want)
		if !bytes.Equal(got, want) {
			t.Errorf("entropy = %x, want %x", got, want)
		}
	}
}

func TestEntropyFromMnemonic_Invalid(t *testing.T) {
	bad := []string{
		"",
		"not valid words here",
		// Valid words, wrong checksum.
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
	}
	for _, m := range bad {
		if _, err := EntropyFromMnemonic(m); !errors.Is(err, ErrInvalidMnemonic) {
			t.Errorf("EntropyFromMnemonic(%q) error = %v, want ErrInvalidMnemonic", m, err)
		}
	}
}
