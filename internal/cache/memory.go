package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// MemoryConfig sizes the in-process ristretto cache.
type MemoryConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

func (c MemoryConfig) withDefaults() MemoryConfig {
	if c.NumCounters <= 0 {
		c.NumCounters = 1e5
	}
	if c.MaxCost <= 0 {
		c.MaxCost = 64 << 20
	}
	if c.BufferItems <= 0 {
		c.BufferItems = 64
	}
	return c
}

type windowCounter struct {
	count   int64
	expires time.Time
}

// MemoryStore implements Backend in process memory. Values live in ristretto with
// per-entry TTL; rate-limit counters are kept in a guarded map.
type MemoryStore struct {
	cache *ristretto.Cache
	now   func() time.Time

	mu       sync.Mutex
	counters map[string]windowCounter
}

// NewMemoryStore builds a ristretto-backed store.
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	cfg = cfg.withDefaults()
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryStore{
		cache:    c,
		now:      time.Now,
		counters: make(map[string]windowCounter),
	}, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.cache == nil {
		return nil, false, ErrNotInitialised
	}
	if err := ensureContext(ctx).Err(); err != nil {
		return nil, false, err
	}
	v, ok := s.cache.Get(normalizeKey(key))
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		s.cache.Del(normalizeKey(key))
		return nil, false, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

// Set stores a copy of value. Ristretto applies writes asynchronously, so Set waits
// for the buffer to drain to keep read-your-writes behaviour for the next Get.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil || s.cache == nil {
		return ErrNotInitialised
	}
	if err := ensureContext(ctx).Err(); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	if !s.cache.SetWithTTL(normalizeKey(key), stored, int64(len(stored))+1, ttl) {
		return ErrRejected
	}
	s.cache.Wait()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil || s.cache == nil {
		return ErrNotInitialised
	}
	if err := ensureContext(ctx).Err(); err != nil {
		return err
	}
	for _, key := range keys {
		s.cache.Del(normalizeKey(key))
	}
	return nil
}

func (s *MemoryStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, ErrNotInitialised
	}
	if err := ensureContext(ctx).Err(); err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.counters[key]
	if !ok || !now.Before(entry.expires) {
		entry = windowCounter{expires: now.Add(window)}
	}
	entry.count++
	s.counters[key] = entry
	return entry.count, entry.expires.Sub(now), nil
}

// PurgeExpired drops counters whose window has elapsed and returns how many were removed.
// Cached values are expired by ristretto itself.
func (s *MemoryStore) PurgeExpired(context.Context) (int64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, entry := range s.counters {
		if !now.Before(entry.expires) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	if s == nil || s.cache == nil {
		return errors.New("cache: memory store closed")
	}
	return nil
}

func (s *MemoryStore) Close() error {
	if s == nil || s.cache == nil {
		return nil
	}
	s.cache.Close()
	s.cache = nil
	return nil
}
