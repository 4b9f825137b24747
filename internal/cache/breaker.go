package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/charlesng35/catalog/pkg/logger"
)

// BreakerConfig controls when the breaker opens around a cache backend.
type BreakerConfig struct {
	Name string
	// ConsecutiveFailures opens the breaker once reached.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
}

// BreakerStore guards a Backend with a circuit breaker. While open, calls fail
// immediately with gobreaker.ErrOpenState instead of waiting on an unhealthy server;
// the read-through collections then degrade to the persistent store.
type BreakerStore struct {
	next Backend
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps next.
func NewBreakerStore(next Backend, cfg BreakerConfig) *BreakerStore {
	if cfg.Name == "" {
		cfg.Name = "cache"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}

	log := logger.WithModule("cache")
	threshold := cfg.ConsecutiveFailures
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("cache circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State exposes the breaker state for health reporting.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	type result struct {
		value []byte
		ok    bool
	}
	out, err := s.cb.Execute(func() (interface{}, error) {
		value, ok, err := s.next.Get(ctx, key)
		return result{value: value, ok: ok}, err
	})
	if err != nil {
		return nil, false, err
	}
	r := out.(result)
	return r.value, r.ok, nil
}

func (s *BreakerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Set(ctx, key, value, ttl)
	})
	return err
}

func (s *BreakerStore) Delete(ctx context.Context, keys ...string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Delete(ctx, keys...)
	})
	return err
}

func (s *BreakerStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	type result struct {
		count int64
		ttl   time.Duration
	}
	out, err := s.cb.Execute(func() (interface{}, error) {
		count, ttl, err := s.next.IncrementWithTTL(ctx, key, window)
		return result{count: count, ttl: ttl}, err
	})
	if err != nil {
		return 0, 0, err
	}
	r := out.(result)
	return r.count, r.ttl, nil
}

// Ping bypasses the breaker so health checks always see the real backend.
func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *BreakerStore) Close() error {
	return s.next.Close()
}
