package config

import (
	"time"

	"github.com/Klingon-tech/txpump/pkg/tx"
)

// Default returns the default configuration. Network, destination and
// endpoints have no defaults.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			Timeout: 30 * time.Second,
		},
		Submit: SubmitConfig{
			Timeout: 30 * time.Second,
		},
		Driver: DriverConfig{
			Amount:     1_000_000,
			RetryDelay: time.Second,
			MaxRetries: 5,
			IdleDelay:  10 * time.Second,
		},
		Fee: FeeConfig{
			MinFeeA: tx.DefaultMinFeeA,
			MinFeeB: tx.DefaultMinFeeB,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// FeeParams returns the configured protocol parameters.
func (c *Config) FeeParams() tx.Params {
	return tx.Params{
		MinFeeA:          c.Fee.MinFeeA,
		MinFeeB:          c.Fee.MinFeeB,
		CoinsPerUTxOByte: c.Fee.CoinsPerUTxOByte,
	}
}
