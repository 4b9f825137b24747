package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/charlesng35/catalog/pkg/logger"
	"github.com/charlesng35/catalog/pkg/metrics"
)

// Outcome describes how a read-through lookup was served.
type Outcome string

const (
	// OutcomeHit means the snapshot came from the cache and the loader was not called.
	OutcomeHit Outcome = "hit"
	// OutcomeMissPopulated means the loader ran and its result was written back to the cache.
	OutcomeMissPopulated Outcome = "miss_populated"
	// OutcomeMissDegraded means the loader ran but the cache could not be read or written.
	OutcomeMissDegraded Outcome = "miss_degraded"
)

// Degraded reports whether the cache store misbehaved while serving the lookup.
func (o Outcome) Degraded() bool { return o == OutcomeMissDegraded }

// ErrInvalidTTL is returned when a collection is configured without a positive TTL.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

// LoaderError wraps a failure of the persistent store loader. It is the only
// error GetOrPopulate surfaces once the collection is constructed.
type LoaderError struct {
	Key string
	Err error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("cache: load %s: %v", e.Key, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// Loader queries the persistent store for a full collection snapshot.
type Loader[T any] func(ctx context.Context) (T, error)

// CollectionOptions configures a read-through collection.
type CollectionOptions[T any] struct {
	// Name labels logs and metrics, e.g. "products". Defaults to the key prefix.
	Name string
	Key  string
	TTL  time.Duration
	// Codec defaults to JSON.
	Codec  Codec[T]
	Logger *zap.Logger
	// Singleflight collapses concurrent misses in this process onto one loader call.
	Singleflight bool
}

// Collection is a read-through cache for one logical collection stored under a fixed key.
// It holds no cached data itself; all state lives in the Store, so a Collection is safe
// for concurrent use.
type Collection[T any] struct {
	store Store
	name  string
	key   string
	ttl   time.Duration
	codec Codec[T]
	log   *zap.Logger
	group *singleflight.Group
}

type populated[T any] struct {
	value   T
	outcome Outcome
}

// NewCollection validates opts and binds them to store.
func NewCollection[T any](store Store, opts CollectionOptions[T]) (*Collection[T], error) {
	if store == nil {
		return nil, ErrNotInitialised
	}
	key := normalizeKey(opts.Key)
	if key == "" {
		return nil, errors.New("cache: collection key is required")
	}
	if opts.TTL <= 0 {
		return nil, ErrInvalidTTL
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name, _, _ = strings.Cut(key, ":")
	}
	codec := opts.Codec
	if codec == nil {
		codec = JSONCodec[T]{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.WithModule("cache")
	}

	c := &Collection[T]{
		store: store,
		name:  name,
		key:   key,
		ttl:   opts.TTL,
		codec: codec,
		log:   log.With(zap.String("collection", name), zap.String("key", key)),
	}
	if opts.Singleflight {
		c.group = &singleflight.Group{}
	}
	return c, nil
}

// GetOrPopulate is the one-off form of Collection.GetOrPopulate for callers without a long-lived collection.
func GetOrPopulate[T any](ctx context.Context, store Store, key string, ttl time.Duration, loader Loader[T]) (T, Outcome, error) {
	c, err := NewCollection(store, CollectionOptions[T]{Key: key, TTL: ttl})
	if err != nil {
		var zero T
		return zero, "", err
	}
	return c.GetOrPopulate(ctx, loader)
}

func (c *Collection[T]) Name() string       { return c.name }
func (c *Collection[T]) Key() string        { return c.key }
func (c *Collection[T]) TTL() time.Duration { return c.ttl }

// GetOrPopulate returns the cached snapshot when present. Otherwise it calls loader,
// writes the result back with the collection TTL and returns it. Cache store failures
// never fail the call; they are reported through the Outcome. Loader failures are
// returned as *LoaderError.
func (c *Collection[T]) GetOrPopulate(ctx context.Context, loader Loader[T]) (T, Outcome, error) {
	ctx = ensureContext(ctx)
	if loader == nil {
		var zero T
		return zero, "", errors.New("cache: loader is required")
	}

	readFailed := false
	raw, ok, err := c.store.Get(ctx, c.key)
	switch {
	case err != nil:
		readFailed = true
		c.log.Warn("cache read failed, falling back to store", zap.Error(err))
	case ok:
		value, decodeErr := c.codec.Decode(raw)
		if decodeErr == nil {
			c.record(OutcomeHit)
			return value, OutcomeHit, nil
		}
		c.log.Warn("discarding undecodable cache entry", zap.String("codec", c.codec.Name()), zap.Error(decodeErr))
		if delErr := c.store.Delete(ctx, c.key); delErr != nil {
			c.log.Warn("failed to delete undecodable cache entry", zap.Error(delErr))
		}
	}

	if c.group == nil {
		value, outcome, err := c.populate(ctx, loader, readFailed)
		if err != nil {
			c.record("loader_error")
			return value, "", err
		}
		c.record(outcome)
		return value, outcome, nil
	}

	// The shared load outlives any single caller; each caller still stops waiting
	// when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(c.key, func() (interface{}, error) {
		value, outcome, err := c.populate(loadCtx, loader, readFailed)
		return populated[T]{value: value, outcome: outcome}, err
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.record("loader_error")
			return zero, "", res.Err
		}
		p := res.Val.(populated[T])
		c.record(p.outcome)
		return p.value, p.outcome, nil
	}
}

func (c *Collection[T]) populate(ctx context.Context, loader Loader[T], readFailed bool) (T, Outcome, error) {
	started := time.Now()
	value, err := loader(ctx)
	metrics.CacheLoadDuration.WithLabelValues(c.name).Observe(time.Since(started).Seconds())
	if err != nil {
		var zero T
		return zero, "", &LoaderError{Key: c.key, Err: err}
	}

	payload, err := c.codec.Encode(value)
	if err != nil {
		c.log.Warn("failed to encode collection snapshot", zap.String("codec", c.codec.Name()), zap.Error(err))
		return value, OutcomeMissDegraded, nil
	}
	if err := c.store.Set(ctx, c.key, payload, c.ttl); err != nil {
		c.log.Warn("cache write failed, serving uncached result", zap.Error(err))
		return value, OutcomeMissDegraded, nil
	}
	if readFailed {
		return value, OutcomeMissDegraded, nil
	}
	return value, OutcomeMissPopulated, nil
}

// Invalidate deletes the collection snapshot. Deleting an absent key succeeds.
// A store failure is logged and reported as false; callers treat the cache as
// advisory and rely on the TTL to bound staleness.
func (c *Collection[T]) Invalidate(ctx context.Context) bool {
	ctx = ensureContext(ctx)
	if c.group != nil {
		c.group.Forget(c.key)
	}
	if err := c.store.Delete(ctx, c.key); err != nil {
		metrics.CacheInvalidations.WithLabelValues(c.name, "error").Inc()
		c.log.Warn("cache invalidation failed, entry expires with ttl", zap.Duration("ttl", c.ttl), zap.Error(err))
		return false
	}
	metrics.CacheInvalidations.WithLabelValues(c.name, "ok").Inc()
	c.log.Debug("cache invalidated")
	return true
}

func (c *Collection[T]) record(outcome Outcome) {
	metrics.CacheRequests.WithLabelValues(c.name, string(outcome)).Inc()
}
