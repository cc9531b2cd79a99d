package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a cache miss: the key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")

// ErrUnavailable reports that the cache backend could not be reached.
// Callers are expected to fail open: treat reads as misses and tolerate
// failed invalidations, relying on TTL to bound staleness.
var ErrUnavailable = errors.New("cache: backend unavailable")

// Store represents a TTL-based cache abstraction that can be backed by
// memory, Redis, or any other KV store. Values are opaque byte payloads;
// serialization is the caller's concern.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// DeleteMatching removes every key whose name matches a namespace
	// pattern such as "users:*". Matching nothing is a no-op, not an error.
	DeleteMatching(ctx context.Context, pattern string) error

	Close() error
}
