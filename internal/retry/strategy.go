package retry

import (
	"context"
	"log/slog"
	"time"
)

// Strategy defines the interface for retry strategies
type Strategy interface {
	// Execute runs the operation with the configured retry logic
	Execute(ctx context.Context, operation Operation) error

	// Name returns the name of the strategy for logging
	Name() string
}

// Operation is a function that can be retried
type Operation func() error

// NewStrategy creates a retry strategy based on configuration
func NewStrategy(enabled bool, maxRetries int, initialDelay, maxDelay time.Duration) Strategy {
	if !enabled {
		slog.Info("Retry disabled, using NoRetryStrategy")
		return NewNoRetryStrategy()
	}

	slog.Info("Retry enabled, using ExponentialBackoffStrategy",
		"max_retries", maxRetries,
		"initial_delay", initialDelay,
		"max_delay", maxDelay,
	)

	return NewExponentialBackoffStrategy(maxRetries, initialDelay, maxDelay)
}
