package db

import (
	"context"
	"time"
)

// Store is the database facade used by the composition root.
type Store interface {
	Pinger
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CounterStore provides self-expiring integer counters.
type CounterStore interface {
	// IncrWithExpiry atomically adds val to the counter at key and returns the new value.
	// expireAt is applied only if the key has no expiry yet, so concurrent first writers
	// never overwrite each other.
	IncrWithExpiry(ctx context.Context, key string, val int64, expireAt time.Time) (int64, error)
	// GetCounter returns the counter value. Returns ErrKeyNotFound if the key does not exist.
	GetCounter(ctx context.Context, key string) (int64, error)
}
