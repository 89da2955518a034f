package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/geminibot/internal/db"
)

// IncrWithExpiry runs INCRBY and then EXPIREAT NX on key.
// INCRBY is atomic on its own; NX keeps the first expiry ever set for the key.
// If EXPIREAT fails the increment has already happened; the next call retries the NX.
func (s *Store) IncrWithExpiry(ctx context.Context, key string, val int64, expireAt time.Time) (int64, error) {
	n, err := s.IncrBy(ctx, key, val)
	if err != nil {
		return 0, err
	}
	if err := s.ExpireAt(ctx, key, expireAt, true); err != nil {
		return n, err
	}
	return n, nil
}

// GetCounter reads an integer counter.
func (s *Store) GetCounter(ctx context.Context, key string) (int64, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, &db.Error{Op: db.OpGet, Err: fmt.Errorf("parse %s: %w", key, err)}
	}
	return n, nil
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// IncrBy atomically increments a key by the given amount and returns the new value.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	cmd := s.b().Incrby().Key(key).Increment(val).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return n, nil
}

// ExpireAt sets an absolute expiry on key. When nx=true the expiry is set only if the key has none (EXPIREAT NX).
func (s *Store) ExpireAt(ctx context.Context, key string, at time.Time, nx bool) error {
	var cmd rueidis.Completed
	if nx {
		cmd = s.b().Expireat().Key(key).Timestamp(at.Unix()).Nx().Build()
	} else {
		cmd = s.b().Expireat().Key(key).Timestamp(at.Unix()).Build()
	}
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpExpireAt, Err: err}
	}
	return nil
}
