// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Postgres connection string for the mirror store. Empty selects the
	// in-memory repository, which also swaps the remote ledger for the
	// in-process escrow program.
	DatabaseURL string `env:"DATABASE_URL"`

	// RPC Server URL used to learn the checkpoint tip
	RPCServerURL string `env:"RPC_SERVER_URL" envDefault:"https://soroban-testnet.stellar.org"`

	// HTTP API port
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Log level: debug, info, warn, error
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// How often to poll for a new checkpoint
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`

	// Retry behavior for checkpoint tip polls
	RetryEnabled      bool          `env:"RETRY_ENABLED" envDefault:"true"`
	RetryMaxAttempts  int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryInitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"500ms"`
	RetryMaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"10s"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.RPCServerURL == "" {
		return fmt.Errorf("RPC_SERVER_URL is required")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be a valid port, got %d", c.HTTPPort)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must not be negative")
	}
	return nil
}
