package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which request keys have already produced a
// payment, so a retried collect call returns the original payment instead
// of recording a second one.
type IdempotencyStore interface {
	// Record stores the payment ID produced for a request key with a TTL.
	// Returns false if the key was already recorded.
	Record(ctx context.Context, key, paymentID string, ttl time.Duration) (bool, error)

	// Lookup returns the payment ID previously recorded for a request key.
	Lookup(ctx context.Context, key string) (string, bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for recorded request keys.
	// After this duration, the same key can produce a new payment.
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
