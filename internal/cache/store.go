package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Fixed collection keys. Each cached collection lives under exactly one key.
const (
	KeyCategories = "categories:all"
	KeyProducts   = "products:all"
	KeyUsers      = "users:all"
)

var (
	// ErrNotInitialised is returned by a nil or closed store.
	ErrNotInitialised = errors.New("cache: store not initialised")
	// ErrRejected is returned when a backend declines to keep a value (admission or size policy).
	ErrRejected = errors.New("cache: value rejected by store")
)

// Store represents a shared key-value cache with per-entry expiry.
// Get reports a missing or expired key as (nil, false, nil). Delete of an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Counter is implemented by stores able to keep fixed-window counters, used for rate limiting.
type Counter interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Backend is a Store with an explicit lifecycle, as opened by the server at startup.
type Backend interface {
	Store
	Counter
	Ping(ctx context.Context) error
	Close() error
}

func normalizeKey(key string) string {
	return strings.TrimSpace(key)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Invalidator is the write-side view of a collection. Services hold one per
// collection they affect, regardless of its element type.
type Invalidator interface {
	Name() string
	Invalidate(ctx context.Context) bool
}

// InvalidateAll invalidates each collection in order and reports how many succeeded.
func InvalidateAll(ctx context.Context, collections ...Invalidator) int {
	ok := 0
	for _, c := range collections {
		if c != nil && c.Invalidate(ctx) {
			ok++
		}
	}
	return ok
}
