package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisTimeout = 5 * time.Second
	defaultRedisPrefix  = "catalog:"
)

// RedisConfig captures the connection parameters for the Redis backend.
type RedisConfig struct {
	Address   string
	Username  string
	Password  string
	DB        int
	TLS       bool
	Timeout   time.Duration
	PoolSize  int
	KeyPrefix string
}

// RedisStore implements Backend on top of go-redis. All keys are namespaced with a prefix
// so the catalog can share a Redis instance.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	ownsClient bool
}

// NewRedisStore builds a client from cfg. No network I/O happens until Connect or the first command.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		PoolSize:     cfg.PoolSize,
	}
	if cfg.TLS {
		host := cfg.Address
		if idx := strings.LastIndex(host, ":"); idx > 0 {
			host = host[:idx]
		}
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}

	store := NewRedisStoreWithClient(redis.NewClient(opts), cfg.KeyPrefix)
	store.ownsClient = true
	return store, nil
}

// NewRedisStoreWithClient wraps an existing client. The caller keeps ownership of the client.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Connect verifies the server is reachable so misconfiguration surfaces at startup.
func (s *RedisStore) Connect(ctx context.Context) error {
	return s.Ping(ctx)
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return ErrNotInitialised
	}
	return s.client.Ping(ensureContext(ctx)).Err()
}

// Close releases the client when the store created it.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil || !s.ownsClient {
		return nil
	}
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, ErrNotInitialised
	}
	value, err := s.client.Get(ensureContext(ctx), s.prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return ErrNotInitialised
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ensureContext(ctx), s.prefixed(key), value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil || s.client == nil {
		return ErrNotInitialised
	}
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.prefixed(key))
	}
	return s.client.Del(ensureContext(ctx), prefixed...).Err()
}

// IncrementWithTTL increments key and starts its window on first use.
// It returns the current count and the remaining time-to-live.
func (s *RedisStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil || s.client == nil {
		return 0, 0, ErrNotInitialised
	}
	ctx = ensureContext(ctx)
	if window <= 0 {
		window = time.Minute
	}

	k := s.prefixed(key)
	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}

	ttl, err := s.client.PTTL(ctx, k).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

func (s *RedisStore) prefixed(key string) string {
	return s.prefix + normalizeKey(key)
}
