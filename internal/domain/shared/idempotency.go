package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers submission keys so a retried request
// cannot settle the same sales twice
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL
	// Returns true if the key was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a key so a rejected submission can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
