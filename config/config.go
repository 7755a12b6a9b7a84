// Package config handles txpumpd configuration.
//
// Values are layered: defaults, then an optional .conf file, then the
// environment (secrets only), then command-line flags. Validate runs last
// and resolves derived values such as the network magic.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/txpump/pkg/types"
)

// Known network magics.
const (
	MainnetMagic uint32 = 764824073
	PreprodMagic uint32 = 1
	PreviewMagic uint32 = 2
)

var networkMagics = map[string]uint32{
	"mainnet": MainnetMagic,
	"preprod": PreprodMagic,
	"preview": PreviewMagic,
}

// Environment variables read by Load.
const (
	EnvMnemonic = "TXPUMP_MNEMONIC"
	EnvPassword = "TXPUMP_KEYFILE_PASSWORD"
)

// Config holds txpumpd's runtime configuration.
type Config struct {
	// Network is a known network name or its numeric magic.
	Network     string `conf:"network"`
	Destination string `conf:"destination"`

	Wallet WalletConfig
	Node   NodeConfig
	Submit SubmitConfig
	Driver DriverConfig
	Fee    FeeConfig
	Log    LogConfig

	// Resolved by Validate.
	NetworkMagic   uint32
	DestinationAddr types.Address
}

// WalletConfig selects the key material. Mnemonic and Keyfile are
// alternatives; Password unlocks Keyfile.
type WalletConfig struct {
	Mnemonic   string `conf:"wallet.mnemonic"`
	Passphrase string `conf:"wallet.passphrase"`
	Keyfile    string `conf:"wallet.keyfile"`
	Password   string // environment only
	Account    uint32 `conf:"wallet.account"`
}

// NodeConfig is the Ogmios endpoint.
type NodeConfig struct {
	URL         string        `conf:"node.url"`
	Timeout     time.Duration `conf:"node.timeout"`
	InsecureTLS bool          `conf:"node.insecure_tls"`
}

// SubmitConfig is the submit-api endpoint.
type SubmitConfig struct {
	URL         string        `conf:"submit.url"`
	Timeout     time.Duration `conf:"submit.timeout"`
	InsecureTLS bool          `conf:"submit.insecure_tls"`
}

// DriverConfig holds the loop's tunables.
type DriverConfig struct {
	Amount     uint64        `conf:"amount"`
	RetryDelay time.Duration `conf:"driver.retry_delay"`
	MaxRetries int           `conf:"driver.max_retries"`
	IdleDelay  time.Duration `conf:"driver.idle_delay"`
	RateLimit  float64       `conf:"driver.rate_limit"`
}

// FeeConfig holds the fee and min-output parameters. With FromLedger set,
// txpumpd fetches them from the node at startup instead.
type FeeConfig struct {
	MinFeeA          uint64 `conf:"fee.min_fee_a"`
	MinFeeB          uint64 `conf:"fee.min_fee_b"`
	CoinsPerUTxOByte uint64 `conf:"fee.coins_per_utxo_byte"`
	FromLedger       bool   `conf:"fee.from_ledger"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// ParseNetwork maps a known network name, or the magic of a known
// network written as a number, to its magic. Anything else is an error.
func ParseNetwork(s string) (uint32, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if m, ok := networkMagics[s]; ok {
		return m, nil
	}
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		for _, m := range networkMagics {
			if uint64(m) == n {
				return m, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown network %q (want mainnet, preprod, preview or one of their magics %d, %d, %d)",
		s, MainnetMagic, PreprodMagic, PreviewMagic)
}

// NetworkID returns the address network id used on the network with the
// given magic.
func NetworkID(magic uint32) byte {
	if magic == MainnetMagic {
		return types.NetworkIDMainnet
	}
	return types.NetworkIDTestnet
}
