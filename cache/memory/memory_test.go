package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feedwise/feedwise/cache"
)

func TestStoreSetGetDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Set(ctx, "users:1:10", []byte("payload"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	payload, err := store.Get(ctx, "users:1:10")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(payload) != "payload" {
		t.Fatalf("Get() = %q, want %q", payload, "payload")
	}

	if err := store.Delete(ctx, "users:1:10"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "users:1:10"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreTTLExpiry(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.WithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := store.Set(ctx, "users:1:10", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := store.Get(ctx, "users:1:10"); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	now = now.Add(61 * time.Second)

	if _, err := store.Get(ctx, "users:1:10"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestSetResetsTTL(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.WithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("a"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	now = now.Add(50 * time.Second)
	if err := store.Set(ctx, "k", []byte("b"), time.Minute); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	now = now.Add(50 * time.Second)

	payload, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v; overwrite should have reset the TTL", err)
	}
	if string(payload) != "b" {
		t.Fatalf("Get() = %q, want %q", payload, "b")
	}
}

func TestDeleteMatchingPrefix(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	keys := []string{"users:1:10", "users:2:10", "users:1:25", "posts:1:10"}
	for _, key := range keys {
		if err := store.Set(ctx, key, []byte("v"), 0); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	if err := store.DeleteMatching(ctx, "users:*"); err != nil {
		t.Fatalf("DeleteMatching() error = %v", err)
	}

	for _, key := range []string{"users:1:10", "users:2:10", "users:1:25"} {
		if _, err := store.Get(ctx, key); !errors.Is(err, cache.ErrNotFound) {
			t.Fatalf("key %q survived pattern delete: %v", key, err)
		}
	}
	if _, err := store.Get(ctx, "posts:1:10"); err != nil {
		t.Fatalf("unrelated key deleted: %v", err)
	}
}

func TestDeleteMatchingNoMatchIsNoop(t *testing.T) {
	store := NewStore()
	if err := store.DeleteMatching(context.Background(), "users:*"); err != nil {
		t.Fatalf("DeleteMatching() on empty store error = %v", err)
	}
}
