package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Klingon-tech/txpump/internal/log"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Validate checks the configuration for operator mistakes and resolves
// NetworkMagic and DestinationAddr.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Network == "" {
		return fmt.Errorf("network is required")
	}
	magic, err := ParseNetwork(cfg.Network)
	if err != nil {
		return err
	}
	cfg.NetworkMagic = magic

	if cfg.Destination == "" {
		return fmt.Errorf("destination is required")
	}
	dest, err := types.ParseAddress(strings.TrimSpace(cfg.Destination))
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if want := NetworkID(magic); dest.NetworkID() != want {
		return fmt.Errorf("destination is for network id %d, %s uses %d", dest.NetworkID(), cfg.Network, want)
	}
	cfg.DestinationAddr = dest

	if cfg.Wallet.Mnemonic != "" && cfg.Wallet.Keyfile != "" {
		return fmt.Errorf("wallet.mnemonic and wallet.keyfile are mutually exclusive")
	}
	if cfg.Wallet.Account >= 1<<31 {
		return fmt.Errorf("wallet.account must be below 2^31")
	}

	if err := validateURL(cfg.Node.URL, "node.url"); err != nil {
		return err
	}
	if err := validateURL(cfg.Submit.URL, "submit.url"); err != nil {
		return err
	}
	if cfg.Node.Timeout <= 0 {
		return fmt.Errorf("node.timeout must be positive")
	}
	if cfg.Submit.Timeout <= 0 {
		return fmt.Errorf("submit.timeout must be positive")
	}

	if cfg.Driver.Amount == 0 {
		return fmt.Errorf("amount must be positive")
	}
	if cfg.Driver.MaxRetries < 1 {
		return fmt.Errorf("driver.max_retries must be at least 1")
	}
	if cfg.Driver.RetryDelay < 0 || cfg.Driver.IdleDelay < 0 {
		return fmt.Errorf("driver delays must not be negative")
	}
	if cfg.Driver.RateLimit < 0 {
		return fmt.Errorf("driver.rate_limit must not be negative")
	}

	if !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level must be trace, debug, info, warn or error")
	}
	return nil
}

func validateURL(raw, field string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", field)
	}
	return nil
}
