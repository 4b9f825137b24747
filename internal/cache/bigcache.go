package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigCacheConfig sizes the bigcache shards. LifeWindow is the upper bound on any entry's TTL.
type BigCacheConfig struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	HardMaxCacheSizeMB int
}

// BigCacheStore implements Backend on bigcache. Bigcache only knows a global life
// window, so every value is prefixed with its own deadline and expired on read.
type BigCacheStore struct {
	cache      *bigcache.BigCache
	lifeWindow time.Duration
	now        func() time.Time
	mu         sync.Mutex
}

const deadlineHeader = 8

// NewBigCacheStore builds a bigcache-backed store.
func NewBigCacheStore(ctx context.Context, cfg BigCacheConfig) (*BigCacheStore, error) {
	if cfg.LifeWindow <= 0 {
		cfg.LifeWindow = 2 * time.Hour
	}
	conf := bigcache.DefaultConfig(cfg.LifeWindow)
	conf.Verbose = false
	conf.Shards = 16
	conf.MaxEntriesInWindow = 4096
	conf.MaxEntrySize = 2048
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	} else {
		conf.CleanWindow = time.Minute
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bigcache.New(ensureContext(ctx), conf)
	if err != nil {
		return nil, err
	}
	return &BigCacheStore{cache: c, lifeWindow: cfg.LifeWindow, now: time.Now}, nil
}

func (s *BigCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.cache == nil {
		return nil, false, ErrNotInitialised
	}
	if err := ensureContext(ctx).Err(); err != nil {
		return nil, false, err
	}
	entry, err := s.cache.Get(normalizeKey(key))
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, deadline, ok := unpackEntry(entry)
	if !ok || (!deadline.IsZero() && !s.now().Before(deadline)) {
		_ = s.cache.Delete(normalizeKey(key))
		return nil, false, nil
	}
	return value, true, nil
}

func (s *BigCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil || s.cache == nil {
		return ErrNotInitialised
	}
	if err := ensureContext(ctx).Err(); err != nil {
		return err
	}
	if ttl > s.lifeWindow {
		ttl = s.lifeWindow
	}
	var deadline time.Time
	if ttl > 0 {
		deadline = s.now().Add(ttl)
	}
	return s.cache.Set(normalizeKey(key), packEntry(value, deadline))
}

func (s *BigCacheStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil || s.cache == nil {
		return ErrNotInitialised
	}
	if err := ensureContext(ctx).Err(); err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.cache.Delete(normalizeKey(key)); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// IncrementWithTTL keeps a counter as an 8 byte big-endian value under the same deadline header.
func (s *BigCacheStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil || s.cache == nil {
		return 0, 0, ErrNotInitialised
	}
	if window <= 0 {
		window = time.Minute
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return 0, 0, err
	}
	var count int64
	deadline := now.Add(window)
	if ok && len(raw) == 8 {
		count = int64(binary.BigEndian.Uint64(raw))
		if entry, getErr := s.cache.Get(normalizeKey(key)); getErr == nil {
			if _, d, valid := unpackEntry(entry); valid && !d.IsZero() {
				deadline = d
			}
		}
	}
	count++

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(count))
	if err := s.cache.Set(normalizeKey(key), packEntry(buf, deadline)); err != nil {
		return 0, 0, err
	}
	return count, deadline.Sub(now), nil
}

func (s *BigCacheStore) Ping(context.Context) error {
	if s == nil || s.cache == nil {
		return errors.New("cache: bigcache store closed")
	}
	return nil
}

func (s *BigCacheStore) Close() error {
	if s == nil || s.cache == nil {
		return nil
	}
	err := s.cache.Close()
	s.cache = nil
	return err
}

func packEntry(value []byte, deadline time.Time) []byte {
	out := make([]byte, deadlineHeader+len(value))
	if !deadline.IsZero() {
		binary.BigEndian.PutUint64(out[:deadlineHeader], uint64(deadline.UnixNano()))
	}
	copy(out[deadlineHeader:], value)
	return out
}

func unpackEntry(entry []byte) ([]byte, time.Time, bool) {
	if len(entry) < deadlineHeader {
		return nil, time.Time{}, false
	}
	var deadline time.Time
	if nanos := binary.BigEndian.Uint64(entry[:deadlineHeader]); nanos != 0 {
		deadline = time.Unix(0, int64(nanos))
	}
	value := make([]byte, len(entry)-deadlineHeader)
	copy(value, entry[deadlineHeader:])
	return value, deadline, true
}
