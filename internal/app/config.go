package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the catalog backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Email       EmailConfig       `mapstructure:"email"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
	Uploads         UploadConfig  `mapstructure:"uploads"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UploadConfig bounds multipart uploads.
type UploadConfig struct {
	// MaxMemory is the part of a multipart body held in memory; the rest spills to temp files.
	MaxMemory int64 `mapstructure:"max_memory"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// CacheConfig selects and tunes the collection cache backend.
type CacheConfig struct {
	Backend      string             `mapstructure:"backend"`
	Codec        string             `mapstructure:"codec"`
	Singleflight bool               `mapstructure:"singleflight"`
	TTL          CacheTTLConfig     `mapstructure:"ttl"`
	Redis        RedisCacheConfig   `mapstructure:"redis"`
	Memory       MemoryCacheConfig  `mapstructure:"memory"`
	BigCache     BigCacheConfig     `mapstructure:"bigcache"`
	Breaker      BreakerCacheConfig `mapstructure:"breaker"`
}

// CacheTTLConfig holds the snapshot lifetime of each collection.
type CacheTTLConfig struct {
	Categories time.Duration `mapstructure:"categories"`
	Products   time.Duration `mapstructure:"products"`
	Users      time.Duration `mapstructure:"users"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Address   string        `mapstructure:"address"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TLS       bool          `mapstructure:"tls"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PoolSize  int           `mapstructure:"pool_size"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// MemoryCacheConfig sizes the in-process ristretto cache.
type MemoryCacheConfig struct {
	MaxCostMB   int64 `mapstructure:"max_cost_mb"`
	NumCounters int64 `mapstructure:"num_counters"`
}

// BigCacheConfig sizes the in-process bigcache shards.
type BigCacheConfig struct {
	LifeWindow  time.Duration `mapstructure:"life_window"`
	CleanWindow time.Duration `mapstructure:"clean_window"`
	MaxSizeMB   int           `mapstructure:"max_size_mb"`
}

// BreakerCacheConfig controls the circuit breaker wrapped around the cache backend.
type BreakerCacheConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

// StorageConfig selects where uploaded images are stored.
type StorageConfig struct {
	Backend string             `mapstructure:"backend"`
	Local   LocalStorageConfig `mapstructure:"local"`
	S3      S3StorageConfig    `mapstructure:"s3"`
}

// LocalStorageConfig stores blobs on the local filesystem and serves them under BaseURL.
type LocalStorageConfig struct {
	Root    string `mapstructure:"root"`
	BaseURL string `mapstructure:"base_url"`
}

// S3StorageConfig targets an S3 compatible bucket.
type S3StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT        JWTSettings       `mapstructure:"jwt"`
	AdminEmail string            `mapstructure:"admin_email"`
	OTP        OTPSettings       `mapstructure:"otp"`
	RateLimit  RateLimitSettings `mapstructure:"rate_limit"`
}

// JWTSettings configures access and reset tokens.
type JWTSettings struct {
	Secret        string        `mapstructure:"secret"`
	Issuer        string        `mapstructure:"issuer"`
	TTL           time.Duration `mapstructure:"access_token_ttl"`
	ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`
}

// OTPSettings configures password reset codes.
type OTPSettings struct {
	Digits      int           `mapstructure:"digits"`
	TTL         time.Duration `mapstructure:"ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// RateLimitSettings throttles the public auth endpoints per client IP.
type RateLimitSettings struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MaintenanceConfig holds cron specs for background housekeeping.
type MaintenanceConfig struct {
	CacheSweep string `mapstructure:"cache_sweep"`
	OTPCleanup string `mapstructure:"otp_cleanup"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.uploads.max_memory", 8<<20)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/catalog.sqlite")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("cache.backend", "redis")
	v.SetDefault("cache.codec", "json")
	v.SetDefault("cache.singleflight", false)
	v.SetDefault("cache.ttl.categories", "1h")
	v.SetDefault("cache.ttl.products", "1h")
	v.SetDefault("cache.ttl.users", "1h")
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.key_prefix", "catalog:")
	v.SetDefault("cache.memory.max_cost_mb", 64)
	v.SetDefault("cache.memory.num_counters", 100000)
	v.SetDefault("cache.bigcache.life_window", "1h")
	v.SetDefault("cache.bigcache.clean_window", "5m")
	v.SetDefault("cache.bigcache.max_size_mb", 64)
	v.SetDefault("cache.breaker.enabled", true)
	v.SetDefault("cache.breaker.consecutive_failures", 5)
	v.SetDefault("cache.breaker.open_timeout", "30s")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.root", "./data/uploads")
	v.SetDefault("storage.local.base_url", "/uploads")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_ssl", true)

	v.SetDefault("auth.admin_email", "")
	v.SetDefault("auth.jwt.issuer", "catalog")
	v.SetDefault("auth.jwt.access_token_ttl", "24h")
	v.SetDefault("auth.jwt.reset_token_ttl", "15m")
	v.SetDefault("auth.otp.digits", 4)
	v.SetDefault("auth.otp.ttl", "5m")
	v.SetDefault("auth.otp.max_attempts", 4)
	v.SetDefault("auth.rate_limit.enabled", true)
	v.SetDefault("auth.rate_limit.requests", 20)
	v.SetDefault("auth.rate_limit.window", "1m")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
	v.SetDefault("monitoring.health_check.timeout", "3s")

	v.SetDefault("maintenance.cache_sweep", "@every 10m")
	v.SetDefault("maintenance.otp_cleanup", "@every 15m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
