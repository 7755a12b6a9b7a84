package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Version is the txpumpd version string.
const Version = "0.1.0"

// ErrExit is returned by Load when a command such as --help or
// --write-config has completed and the program should exit successfully.
var ErrExit = errors.New("exit requested")

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help        bool
	Version     bool
	WriteConfig string

	// Core
	Config      string
	Network     string
	Destination string

	// Wallet
	Keyfile string
	Account uint

	// Endpoints
	NodeURL       string
	NodeTimeout   time.Duration
	SubmitURL     string
	SubmitTimeout time.Duration
	InsecureTLS   bool

	// Driver
	Amount     uint64
	RetryDelay time.Duration
	MaxRetries int
	IdleDelay  time.Duration
	RateLimit  float64

	// Fees
	MinFeeA          uint64
	MinFeeB          uint64
	CoinsPerUTxOByte uint64
	LedgerParams     bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	set map[string]bool
}

// IsSet reports whether the named flag was given on the command line.
func (f *Flags) IsSet(name string) bool {
	return f.set[name]
}

// ParseFlags parses command-line arguments, excluding the program name.
func ParseFlags(args []string, stderr io.Writer) (*Flags, error) {
	f := &Flags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("txpumpd", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.StringVar(&f.WriteConfig, "write-config", "", "Write a default config file to the given path and exit")

	// Core
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.StringVar(&f.Network, "network", "", "Network: mainnet, preprod or preview (or its magic)")
	fs.StringVar(&f.Destination, "destination", "", "Destination address (bech32)")

	// Wallet
	fs.StringVar(&f.Keyfile, "keyfile", "", "Encrypted keyfile holding the seed phrase")
	fs.UintVar(&f.Account, "account", 0, "Wallet account index")

	// Endpoints
	fs.StringVar(&f.NodeURL, "node-url", "", "Ogmios endpoint URL")
	fs.DurationVar(&f.NodeTimeout, "node-timeout", 0, "Ledger query timeout")
	fs.StringVar(&f.SubmitURL, "submit-url", "", "Submit API base URL")
	fs.DurationVar(&f.SubmitTimeout, "submit-timeout", 0, "Submission timeout")
	fs.BoolVar(&f.InsecureTLS, "insecure-tls", false, "Skip TLS verification for both endpoints")

	// Driver
	fs.Uint64Var(&f.Amount, "amount", 0, "Lovelace paid per transaction")
	fs.DurationVar(&f.RetryDelay, "retry-delay", 0, "Delay between retries")
	fs.IntVar(&f.MaxRetries, "max-retries", 0, "Consecutive failures before a forced resync")
	fs.DurationVar(&f.IdleDelay, "idle-delay", 0, "Delay before re-checking an empty wallet")
	fs.Float64Var(&f.RateLimit, "rate-limit", 0, "Maximum transactions per second (0 = unlimited)")

	// Fees
	fs.Uint64Var(&f.MinFeeA, "min-fee-a", 0, "Fee per byte")
	fs.Uint64Var(&f.MinFeeB, "min-fee-b", 0, "Constant fee")
	fs.Uint64Var(&f.CoinsPerUTxOByte, "coins-per-utxo-byte", 0, "Minimum-output coefficient (0 = disabled)")
	fs.BoolVar(&f.LedgerParams, "ledger-params", false, "Fetch fee parameters from the node")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() { printUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrExit
		}
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	if f.set["c"] {
		f.set["config"] = true
	}

	f.Args = fs.Args()
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}
	if len(f.Args) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(f.Args, " "))
	}
	return f, nil
}

// ApplyFlags applies explicitly set command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.IsSet("network") {
		cfg.Network = f.Network
	}
	if f.IsSet("destination") {
		cfg.Destination = f.Destination
	}

	if f.IsSet("keyfile") {
		cfg.Wallet.Keyfile = f.Keyfile
	}
	if f.IsSet("account") {
		cfg.Wallet.Account = uint32(f.Account)
	}

	if f.IsSet("node-url") {
		cfg.Node.URL = f.NodeURL
	}
	if f.IsSet("node-timeout") {
		cfg.Node.Timeout = f.NodeTimeout
	}
	if f.IsSet("submit-url") {
		cfg.Submit.URL = f.SubmitURL
	}
	if f.IsSet("submit-timeout") {
		cfg.Submit.Timeout = f.SubmitTimeout
	}
	if f.IsSet("insecure-tls") {
		cfg.Node.InsecureTLS = f.InsecureTLS
		cfg.Submit.InsecureTLS = f.InsecureTLS
	}

	if f.IsSet("amount") {
		cfg.Driver.Amount = f.Amount
	}
	if f.IsSet("retry-delay") {
		cfg.Driver.RetryDelay = f.RetryDelay
	}
	if f.IsSet("max-retries") {
		cfg.Driver.MaxRetries = f.MaxRetries
	}
	if f.IsSet("idle-delay") {
		cfg.Driver.IdleDelay = f.IdleDelay
	}
	if f.IsSet("rate-limit") {
		cfg.Driver.RateLimit = f.RateLimit
	}

	if f.IsSet("min-fee-a") {
		cfg.Fee.MinFeeA = f.MinFeeA
	}
	if f.IsSet("min-fee-b") {
		cfg.Fee.MinFeeB = f.MinFeeB
	}
	if f.IsSet("coins-per-utxo-byte") {
		cfg.Fee.CoinsPerUTxOByte = f.CoinsPerUTxOByte
	}
	if f.IsSet("ledger-params") {
		cfg.Fee.FromLedger = f.LedgerParams
	}

	if f.IsSet("log-level") {
		cfg.Log.Level = f.LogLevel
	}
	if f.IsSet("log-file") {
		cfg.Log.File = f.LogFile
	}
	if f.IsSet("log-json") {
		cfg.Log.JSON = f.LogJSON
	}
}

func printUsage(w io.Writer) {
	usage := `txpumpd - submits a steady stream of self-funded payments to a Cardano network

Usage:
  txpumpd [options]
  txpumpd --help

Commands:
  --help, -h           Show this help message
  --version            Show version information
  --write-config PATH  Write a default config file and exit

Core Options:
  --config, -c         Config file path
  --network            mainnet, preprod or preview (or 764824073, 1, 2)
  --destination        Address receiving every payment

Wallet Options:
  --keyfile            Encrypted keyfile holding the seed phrase
  --account            Wallet account index (default: 0)

  The seed phrase can also come from ` + EnvMnemonic + ` or, when stdin is a
  terminal, an interactive prompt. ` + EnvPassword + ` unlocks --keyfile
  without a prompt.

Endpoint Options:
  --node-url           Ogmios endpoint, e.g. http://127.0.0.1:1337
  --node-timeout       Ledger query timeout (default: 30s)
  --submit-url         Submit API base URL, e.g. http://127.0.0.1:8090
  --submit-timeout     Submission timeout (default: 30s)
  --insecure-tls       Skip TLS certificate verification

Driver Options:
  --amount             Lovelace per transaction (default: 1000000)
  --retry-delay        Delay between retries (default: 1s)
  --max-retries        Failures before a forced resync (default: 5)
  --idle-delay         Delay before re-checking an empty wallet (default: 10s)
  --rate-limit         Maximum transactions per second (default: 0, unlimited)

Fee Options:
  --min-fee-a          Fee per byte (default: 44)
  --min-fee-b          Constant fee (default: 155381)
  --coins-per-utxo-byte  Minimum-output coefficient (default: 0, disabled)
  --ledger-params      Fetch fee parameters from the node at startup

Logging Options:
  --log-level          Log level: trace, debug, info, warn, error (default: info)
  --log-file           Also write JSON logs to this file
  --log-json           Output console logs as JSON

Examples:
  # Pump 2 ADA payments on preprod
  TXPUMP_MNEMONIC="..." txpumpd --network=preprod --destination=addr_test1... \
    --node-url=http://127.0.0.1:1337 --submit-url=http://127.0.0.1:8090 --amount=2000000

  # Use a config file and an encrypted keyfile
  txpumpd -c txpump.conf --keyfile=txpump.key
`
	fmt.Fprint(w, usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Config file (when --config is given)
// 3. Environment (secrets)
// 4. Command-line flags
// Help, version and --write-config print to stdout and return ErrExit.
func Load(args []string, getenv func(string) string, stdout, stderr io.Writer) (*Config, *Flags, error) {
	flags, err := ParseFlags(args, stderr)
	if err != nil {
		return nil, nil, err
	}

	if flags.Help {
		printUsage(stdout)
		return nil, flags, ErrExit
	}
	if flags.Version {
		fmt.Fprintf(stdout, "txpumpd version %s\n", Version)
		return nil, flags, ErrExit
	}
	if flags.WriteConfig != "" {
		if err := WriteDefaultConfig(flags.WriteConfig); err != nil {
			return nil, nil, fmt.Errorf("writing config file: %w", err)
		}
		fmt.Fprintf(stdout, "Wrote %s\n", flags.WriteConfig)
		return nil, flags, ErrExit
	}

	cfg := Default()

	if flags.Config != "" {
		fileValues, err := LoadFile(flags.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config file: %w", err)
		}
		if err := ApplyFileConfig(cfg, fileValues); err != nil {
			return nil, nil, fmt.Errorf("applying config file: %w", err)
		}
	}

	ApplyEnv(cfg, getenv)
	ApplyFlags(cfg, flags)

	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, flags, nil
}

// LoadOS is Load over the process's arguments and environment.
func LoadOS() (*Config, *Flags, error) {
	return Load(os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
}
