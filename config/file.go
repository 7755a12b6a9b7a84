package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration values from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key. Unknown keys are rejected.
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "network":
		cfg.Network = value
	case "destination":
		cfg.Destination = value

	// Wallet
	case "wallet.mnemonic":
		cfg.Wallet.Mnemonic = value
	case "wallet.passphrase":
		cfg.Wallet.Passphrase = value
	case "wallet.keyfile":
		cfg.Wallet.Keyfile = value
	case "wallet.account":
		var n uint64
		n, err = strconv.ParseUint(value, 10, 31)
		cfg.Wallet.Account = uint32(n)

	// Endpoints
	case "node.url":
		cfg.Node.URL = value
	case "node.timeout":
		cfg.Node.Timeout, err = time.ParseDuration(value)
	case "node.insecure_tls":
		cfg.Node.InsecureTLS = parseBool(value)
	case "submit.url":
		cfg.Submit.URL = value
	case "submit.timeout":
		cfg.Submit.Timeout, err = time.ParseDuration(value)
	case "submit.insecure_tls":
		cfg.Submit.InsecureTLS = parseBool(value)

	// Driver
	case "amount":
		cfg.Driver.Amount, err = strconv.ParseUint(value, 10, 64)
	case "driver.retry_delay":
		cfg.Driver.RetryDelay, err = time.ParseDuration(value)
	case "driver.max_retries":
		cfg.Driver.MaxRetries, err = strconv.Atoi(value)
	case "driver.idle_delay":
		cfg.Driver.IdleDelay, err = time.ParseDuration(value)
	case "driver.rate_limit":
		cfg.Driver.RateLimit, err = strconv.ParseFloat(value, 64)

	// Fees
	case "fee.min_fee_a":
		cfg.Fee.MinFeeA, err = strconv.ParseUint(value, 10, 64)
	case "fee.min_fee_b":
		cfg.Fee.MinFeeB, err = strconv.ParseUint(value, 10, 64)
	case "fee.coins_per_utxo_byte":
		cfg.Fee.CoinsPerUTxOByte, err = strconv.ParseUint(value, 10, 64)
	case "fee.from_ledger":
		cfg.Fee.FromLedger = parseBool(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		return fmt.Errorf("unknown key")
	}
	return err
}

// ApplyEnv applies secrets from the environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvMnemonic)); v != "" {
		cfg.Wallet.Mnemonic = v
	}
	if v := getenv(EnvPassword); v != "" {
		cfg.Wallet.Password = v
	}
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a commented default configuration file. It
// refuses to overwrite an existing file.
func WriteDefaultConfig(path string) error {
	d := Default()
	content := `# txpumpd configuration
#
# The seed phrase is best passed through the ` + EnvMnemonic + `
# environment variable or an encrypted keyfile rather than this file.

# Network: mainnet, preprod or preview (or 764824073, 1, 2)
network = preprod

# Address receiving every payment (bech32)
# destination = addr_test1...

# ============================================================================
# Wallet
# ============================================================================

# wallet.keyfile = txpump.key
# wallet.mnemonic =
# wallet.passphrase =
wallet.account = 0

# ============================================================================
# Endpoints
# ============================================================================

# Ogmios JSON-RPC endpoint
node.url = http://127.0.0.1:1337
node.timeout = ` + d.Node.Timeout.String() + `
node.insecure_tls = false

# cardano-submit-api base URL
submit.url = http://127.0.0.1:8090
submit.timeout = ` + d.Submit.Timeout.String() + `
submit.insecure_tls = false

# ============================================================================
# Driver
# ============================================================================

# Lovelace paid per transaction
amount = ` + strconv.FormatUint(d.Driver.Amount, 10) + `
driver.retry_delay = ` + d.Driver.RetryDelay.String() + `
driver.max_retries = ` + strconv.Itoa(d.Driver.MaxRetries) + `
driver.idle_delay = ` + d.Driver.IdleDelay.String() + `
# Transactions per second, 0 for no limit
driver.rate_limit = 0

# ============================================================================
# Fees
# ============================================================================

fee.min_fee_a = ` + strconv.FormatUint(d.Fee.MinFeeA, 10) + `
fee.min_fee_b = ` + strconv.FormatUint(d.Fee.MinFeeB, 10) + `
# Minimum-output policy, 0 disables it
fee.coins_per_utxo_byte = 0
# Fetch the three values above from the node instead
fee.from_ledger = false

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
