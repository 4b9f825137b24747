package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/catalog/internal/auth"
	"github.com/charlesng35/catalog/internal/cache"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.Server.CORS.AllowedOrigins)
	require.EqualValues(t, 8<<20, cfg.Server.Uploads.MaxMemory)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.Equal(t, "memory", cfg.Cache.BackendName())
	require.Equal(t, "msgpack", cfg.Cache.Codec)
	require.True(t, cfg.Cache.Singleflight)
	require.Equal(t, 30*time.Minute, cfg.Cache.TTL.Categories)
	require.Equal(t, time.Hour, cfg.Cache.TTL.Products)
	require.Equal(t, time.Hour, cfg.Cache.TTL.Users)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.Timeout)
	require.Equal(t, "catalog:", cfg.Cache.Redis.KeyPrefix)
	require.False(t, cfg.Cache.Breaker.Enabled)

	require.Equal(t, "s3", cfg.Storage.BackendName())
	require.Equal(t, "catalog-media", cfg.Storage.S3.Bucket)
	require.False(t, cfg.Storage.S3.UseSSL)

	require.Equal(t, "admin@example.com", cfg.Auth.NormalizedAdminEmail())
	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 12*time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.ResetTokenTTL)
	require.Equal(t, 3, cfg.Auth.OTP.MaxAttempts)
	require.Equal(t, 5*time.Minute, cfg.Auth.OTP.TTL)

	requests, window := cfg.Auth.RateLimitWindow()
	require.Equal(t, 5, requests)
	require.Equal(t, 30*time.Second, window)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, "@every 1m", cfg.Maintenance.CacheSweep)
	require.Equal(t, "@every 15m", cfg.Maintenance.OTPCleanup)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "redis", cfg.Cache.BackendName())
	require.Equal(t, time.Hour, cfg.Cache.TTL.Categories)
	require.Equal(t, time.Hour, cfg.Cache.TTL.Products)
	require.Equal(t, time.Hour, cfg.Cache.TTL.Users)
	require.Equal(t, "local", cfg.Storage.BackendName())
	require.Equal(t, 24*time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 4, cfg.Auth.OTP.Digits)
	require.Equal(t, 4, cfg.Auth.OTP.MaxAttempts)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("CATALOG_SERVER_PORT", "7070")
	t.Setenv("CATALOG_CACHE_BACKEND", "database")
	t.Setenv("CATALOG_AUTH_ADMIN_EMAIL", "owner@example.com")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "database", cfg.Cache.BackendName())
	require.Equal(t, "owner@example.com", cfg.Auth.AdminEmail)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT: JWTSettings{
			Secret:        "secret",
			Issuer:        "issuer",
			TTL:           30 * time.Minute,
			ResetTokenTTL: 10 * time.Minute,
		},
		OTP: OTPSettings{Digits: 6, TTL: time.Minute, MaxAttempts: 2},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
		ResetTokenTTL:  10 * time.Minute,
	}, cfg.JWTServiceConfig())

	require.Equal(t, auth.OTPPolicy{Digits: 6, TTL: time.Minute, MaxAttempts: 2}, cfg.OTPPolicy())
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, auth.DefaultAccessTokenTTL, jwtCfg.AccessTokenTTL)
	require.Equal(t, auth.DefaultResetTokenTTL, jwtCfg.ResetTokenTTL)
	require.Equal(t, auth.DefaultOTPPolicy(), cfg.OTPPolicy())

	requests, window := cfg.RateLimitWindow()
	require.Equal(t, defaultRateLimitRequests, requests)
	require.Equal(t, time.Minute, window)
}

func TestCacheConfigAdapters(t *testing.T) {
	cfg := CacheConfig{
		Redis:    RedisCacheConfig{Address: " 10.0.0.5:6379 ", Username: " app ", DB: 3, Timeout: time.Second, KeyPrefix: "shop:"},
		Memory:   MemoryCacheConfig{MaxCostMB: 8, NumCounters: 1000},
		BigCache: BigCacheConfig{LifeWindow: time.Hour, MaxSizeMB: 16},
		Breaker:  BreakerCacheConfig{ConsecutiveFailures: 2, OpenTimeout: time.Second},
	}

	require.Equal(t, cache.RedisConfig{
		Address:   "10.0.0.5:6379",
		Username:  "app",
		DB:        3,
		Timeout:   time.Second,
		KeyPrefix: "shop:",
	}, cfg.RedisClientConfig())
	require.Equal(t, cache.MemoryConfig{NumCounters: 1000, MaxCost: 8 << 20}, cfg.MemoryStoreConfig())
	require.Equal(t, 16, cfg.BigCacheStoreConfig().HardMaxCacheSizeMB)

	breaker := cfg.BreakerConfig()
	require.Equal(t, "cache-redis", breaker.Name)
	require.EqualValues(t, 2, breaker.ConsecutiveFailures)
}

func TestDatabaseSettingsPicksDriverCredentials(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:   " MySQL ",
		Postgres: DBAuthConfig{Host: "pg"},
		MySQL:    DBAuthConfig{Host: "mysql", Port: 3306, Database: "catalog", Username: "root"},
	}

	settings := cfg.DatabaseSettings()
	require.Equal(t, "mysql", settings.Driver)
	require.Equal(t, "mysql", settings.Host)
	require.Equal(t, "catalog", settings.Name)
	require.Equal(t, "root", settings.User)

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./x.db", MySQL: DBAuthConfig{Host: "mysql"}}.DatabaseSettings()
	require.Empty(t, sqlite.Host)
	require.Equal(t, "./x.db", sqlite.Path)
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)
}

func TestStorageConfigAdapters(t *testing.T) {
	cfg := StorageConfig{
		Local: LocalStorageConfig{Root: " ./uploads ", BaseURL: "/uploads"},
		S3:    S3StorageConfig{Endpoint: "minio:9000", Bucket: " media ", UseSSL: true},
	}

	require.Equal(t, "local", cfg.BackendName())
	require.Equal(t, "./uploads", cfg.LocalStoreConfig().Root)
	s3 := cfg.S3StoreConfig()
	require.Equal(t, "media", s3.Bucket)
	require.True(t, s3.UseSSL)
}
