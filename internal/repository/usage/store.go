package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/geminibot/internal/db"
	"github.com/kailas-cloud/geminibot/internal/domain"
	domusage "github.com/kailas-cloud/geminibot/internal/domain/usage"
)

// store is the consumer interface for usage counters (ISP).
type store interface {
	IncrWithExpiry(ctx context.Context, key string, val int64, expireAt time.Time) (int64, error)
	GetCounter(ctx context.Context, key string) (int64, error)
}

// Store persists one self-expiring UsageRecord per calendar day.
type Store struct {
	store     store
	keyPrefix string
}

// New creates a usage store. keyPrefix is prepended to the date key
// (e.g. "geminibot:usage:" for Redis, "" for a DynamoDB table keyed by date).
func New(s store, keyPrefix string) *Store {
	return &Store{store: s, keyPrefix: keyPrefix}
}

// Increment atomically adds one to the day's usage count, creating the record
// with expiresAt if it does not exist yet, and returns the updated record.
func (s *Store) Increment(ctx context.Context, date string, expiresAt time.Time) (domusage.Record, error) {
	key := s.key(date)
	n, err := s.store.IncrWithExpiry(ctx, key, 1, expiresAt)
	if err != nil {
		return domusage.Record{}, fmt.Errorf("%w: usage INCR %s: %w", domain.ErrQuotaStore, key, err)
	}
	return domusage.NewRecord(date, n, expiresAt.Unix()), nil
}

// Count returns the day's usage count. Returns 0 if no record exists.
func (s *Store) Count(ctx context.Context, date string) (int64, error) {
	key := s.key(date)
	n, err := s.store.GetCounter(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: usage GET %s: %w", domain.ErrQuotaStore, key, err)
	}
	return n, nil
}

func (s *Store) key(date string) string {
	return s.keyPrefix + date
}
