// Package memory implements an in-process counter store for local runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/geminibot/internal/db"
)

var _ db.Store = (*Store)(nil)

type entry struct {
	value    int64
	expireAt time.Time // zero: no expiry
}

// Store is a mutex-guarded map. Expired keys are dropped on access.
type Store struct {
	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]*entry), now: time.Now}
}

// WithClock overrides the clock used for expiry checks.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// IncrWithExpiry adds val and sets expireAt only if the key has no expiry yet.
func (s *Store) IncrWithExpiry(_ context.Context, key string, val int64, expireAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		e = &entry{}
		s.data[key] = e
	}
	e.value += val
	if e.expireAt.IsZero() {
		e.expireAt = expireAt
	}
	return e.value, nil
}

// GetCounter returns the counter value or db.ErrKeyNotFound.
func (s *Store) GetCounter(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(key)
	if e == nil {
		return 0, db.ErrKeyNotFound
	}
	return e.value, nil
}

// ExpireAt reports the expiry of key, zero if absent.
func (s *Store) ExpireAt(key string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.lookup(key); e != nil {
		return e.expireAt
	}
	return time.Time{}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close drops all keys.
func (s *Store) Close() {
	s.mu.Lock()
	s.data = make(map[string]*entry)
	s.mu.Unlock()
}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// lookup must be called with mu held.
func (s *Store) lookup(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		delete(s.data, key)
		return nil
	}
	return e
}
