// Package memory provides an in-process cache.Store. It backs tests and
// cache-less deployments where a Redis backend is not available.
package memory

import (
	"context"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/feedwise/feedwise/cache"
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store is a concurrency-safe in-memory implementation of cache.Store.
// Expired entries are dropped lazily on access and during pattern deletes.
type Store struct {
	entries *xsync.MapOf[string, entry]
	clock   func() time.Time
}

var _ cache.Store = (*Store)(nil)

// NewStore builds an empty in-memory store.
func NewStore() *Store {
	return &Store{
		entries: xsync.NewMapOf[string, entry](),
		clock:   time.Now,
	}
}

// WithClock overrides the time source (useful for TTL tests).
func (s *Store) WithClock(fn func() time.Time) {
	if fn != nil {
		s.clock = fn
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.entries.Load(key)
	if !ok {
		return nil, cache.ErrNotFound
	}
	if e.expired(s.clock()) {
		s.entries.Delete(key)
		return nil, cache.ErrNotFound
	}
	return append([]byte(nil), e.payload...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{payload: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.clock().Add(ttl)
	}
	s.entries.Store(key, e)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if _, ok := s.entries.LoadAndDelete(key); !ok {
		return cache.ErrNotFound
	}
	return nil
}

// DeleteMatching removes every key matching the pattern. Supported patterns
// are exact keys and trailing-glob prefixes ("users:*"), which is the full
// set of patterns the service emits.
func (s *Store) DeleteMatching(_ context.Context, pattern string) error {
	prefix, glob := strings.CutSuffix(pattern, "*")
	now := s.clock()
	s.entries.Range(func(key string, e entry) bool {
		switch {
		case glob && strings.HasPrefix(key, prefix):
			s.entries.Delete(key)
		case !glob && key == pattern:
			s.entries.Delete(key)
		case e.expired(now):
			s.entries.Delete(key)
		}
		return true
	})
	return nil
}

func (s *Store) Close() error {
	s.entries.Clear()
	return nil
}

// Len reports the number of live entries; expired ones still pending lazy
// removal are excluded.
func (s *Store) Len() int {
	now := s.clock()
	n := 0
	s.entries.Range(func(_ string, e entry) bool {
		if !e.expired(now) {
			n++
		}
		return true
	})
	return n
}
