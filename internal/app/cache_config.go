package app

import (
	"strings"
	"time"

	"github.com/charlesng35/catalog/internal/cache"
)

// DefaultCollectionTTL applies to every collection snapshot unless overridden.
const DefaultCollectionTTL = time.Hour

// BackendName returns the normalised cache backend, defaulting to redis.
func (c CacheConfig) BackendName() string {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if backend == "" {
		return "redis"
	}
	return backend
}

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:   strings.TrimSpace(c.Redis.Address),
		Username:  strings.TrimSpace(c.Redis.Username),
		Password:  c.Redis.Password,
		DB:        c.Redis.DB,
		TLS:       c.Redis.TLS,
		Timeout:   c.Redis.Timeout,
		PoolSize:  c.Redis.PoolSize,
		KeyPrefix: c.Redis.KeyPrefix,
	}
}

// MemoryStoreConfig converts the ristretto sizing options.
func (c CacheConfig) MemoryStoreConfig() cache.MemoryConfig {
	return cache.MemoryConfig{
		NumCounters: c.Memory.NumCounters,
		MaxCost:     c.Memory.MaxCostMB << 20,
	}
}

// BigCacheStoreConfig converts the bigcache sizing options.
func (c CacheConfig) BigCacheStoreConfig() cache.BigCacheConfig {
	return cache.BigCacheConfig{
		LifeWindow:         c.BigCache.LifeWindow,
		CleanWindow:        c.BigCache.CleanWindow,
		HardMaxCacheSizeMB: c.BigCache.MaxSizeMB,
	}
}

// BreakerConfig converts the circuit breaker options.
func (c CacheConfig) BreakerConfig() cache.BreakerConfig {
	return cache.BreakerConfig{
		Name:                "cache-" + c.BackendName(),
		ConsecutiveFailures: c.Breaker.ConsecutiveFailures,
		OpenTimeout:         c.Breaker.OpenTimeout,
	}
}

// Resolved fills unset collection TTLs with DefaultCollectionTTL.
func (t CacheTTLConfig) Resolved() CacheTTLConfig {
	if t.Categories <= 0 {
		t.Categories = DefaultCollectionTTL
	}
	if t.Products <= 0 {
		t.Products = DefaultCollectionTTL
	}
	if t.Users <= 0 {
		t.Users = DefaultCollectionTTL
	}
	return t
}
