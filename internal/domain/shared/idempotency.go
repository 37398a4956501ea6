package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys that were already applied so a
// retried submission (goods receipt, payment) is not applied twice.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	Close() error
}

// OrderLocker serializes mutating operations per order id.
// The returned release function must be called exactly once.
type OrderLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
