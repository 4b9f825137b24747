package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/catalog/internal/api"
	"github.com/charlesng35/catalog/internal/app"
	"github.com/charlesng35/catalog/internal/app/maintenance"
	iauth "github.com/charlesng35/catalog/internal/auth"
	"github.com/charlesng35/catalog/internal/cache"
	"github.com/charlesng35/catalog/internal/database"
	"github.com/charlesng35/catalog/internal/monitoring"
	"github.com/charlesng35/catalog/internal/monitoring/checks"
	"github.com/charlesng35/catalog/internal/services"
	"github.com/charlesng35/catalog/internal/storage"
	"github.com/charlesng35/catalog/pkg/logger"
	"github.com/charlesng35/catalog/pkg/mail"
)

// maintenanceMaxAge is how long a cleanup job may go without a run before readiness degrades.
const maintenanceMaxAge = time.Hour

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB           *gorm.DB
	Cache        cache.Backend
	CacheBackend string
	Blobs        storage.Store
	UploadsDir   string
	Monitoring   *monitoring.Module
	Cleaner      *maintenance.Cleaner
	Router       *gin.Engine
}

// bootstrapRuntime initialises the database, cache, blob storage, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			_ = stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var purger maintenance.ExpiredPurger
	stack.Cache, stack.CacheBackend, purger, err = openCacheBackend(ctx, cfg, stack.DB, log)
	if err != nil {
		return nil, err
	}

	ttl := cfg.Cache.TTL.Resolved()
	collections, err := services.NewCollections(stack.Cache, services.CollectionConfig{
		CategoriesTTL: ttl.Categories,
		ProductsTTL:   ttl.Products,
		UsersTTL:      ttl.Users,
		Codec:         cfg.Cache.Codec,
		Singleflight:  cfg.Cache.Singleflight,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise cache collections: %w", err)
	}

	stack.Blobs, stack.UploadsDir, err = openBlobStore(cfg)
	if err != nil {
		return nil, err
	}

	mailer, err := openMailer(cfg, log)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	authSvc, err := services.NewAuthService(stack.DB, jwtSvc, collections, services.AuthServiceConfig{
		AdminEmail: cfg.Auth.NormalizedAdminEmail(),
		OTP:        cfg.Auth.OTPPolicy(),
		Mailer:     mailer,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise auth service: %w", err)
	}
	categorySvc, err := services.NewCategoryService(stack.DB, collections, stack.Blobs)
	if err != nil {
		return nil, fmt.Errorf("initialise category service: %w", err)
	}
	productSvc, err := services.NewProductService(stack.DB, collections, stack.Blobs)
	if err != nil {
		return nil, fmt.Errorf("initialise product service: %w", err)
	}
	userSvc, err := services.NewUserService(stack.DB, collections)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	stack.Monitoring = newMonitoring(cfg, stack)

	stack.Cleaner = maintenance.NewCleaner(stack.DB, purger,
		maintenance.WithJobTracker(stack.Monitoring.Jobs()),
		maintenance.WithCacheSchedule(cfg.Maintenance.CacheSweep),
		maintenance.WithOTPSchedule(cfg.Maintenance.OTPCleanup),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:         cfg,
		JWT:            jwtSvc,
		Auth:           authSvc,
		Categories:     categorySvc,
		Products:       productSvc,
		Users:          userSvc,
		Monitoring:     stack.Monitoring,
		RateLimitStore: stack.Cache,
		UploadsDir:     stack.UploadsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background jobs and releases the cache and database. It is safe on a
// partially initialised stack.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs still running at shutdown")
		}
		s.Cleaner = nil
	}
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close cache: %w", err))
		}
		s.Cache = nil
	}
	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close database: %w", err))
		}
		s.DB = nil
	}
	if errs != nil {
		log.Warn("runtime shutdown incomplete", zap.Error(errs))
	}
	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Initialise(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

// openCacheBackend opens the configured collection cache. An unreachable Redis falls back
// to the in-process store so the catalog still serves reads. The returned purger is the
// raw backend when it needs help dropping expired entries.
func openCacheBackend(ctx context.Context, cfg *app.Config, db *gorm.DB, log *zap.Logger) (cache.Backend, string, maintenance.ExpiredPurger, error) {
	name := cfg.Cache.BackendName()

	var backend cache.Backend
	switch name {
	case "redis":
		store, err := cache.NewRedisStore(cfg.Cache.RedisClientConfig())
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = store.Connect(pingCtx)
			cancel()
			if err != nil {
				_ = store.Close()
			}
		}
		if err != nil {
			log.Warn("redis unavailable; falling back to in-memory cache", zap.Error(err))
			name = "memory"
			break
		}
		log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		backend = store
	case "memory":
	case "bigcache":
		store, err := cache.NewBigCacheStore(ctx, cfg.Cache.BigCacheStoreConfig())
		if err != nil {
			return nil, "", nil, fmt.Errorf("open bigcache: %w", err)
		}
		backend = store
	case "database":
		if db == nil {
			return nil, "", nil, fmt.Errorf("database cache backend requires a database")
		}
		backend = cache.NewDatabaseStore(db)
	default:
		return nil, "", nil, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}

	if name == "memory" {
		store, err := cache.NewMemoryStore(cfg.Cache.MemoryStoreConfig())
		if err != nil {
			return nil, "", nil, fmt.Errorf("open memory cache: %w", err)
		}
		backend = store
	}

	purger, _ := backend.(maintenance.ExpiredPurger)

	if cfg.Cache.Breaker.Enabled && name != "memory" && name != "bigcache" {
		breakerCfg := cfg.Cache.BreakerConfig()
		breakerCfg.Name = "cache-" + name
		backend = cache.NewBreakerStore(backend, breakerCfg)
	}

	return backend, name, purger, nil
}

// openBlobStore returns the image store and, for the local backend, the directory served
// under the configured base URL.
func openBlobStore(cfg *app.Config) (storage.Store, string, error) {
	switch cfg.Storage.BackendName() {
	case "local":
		store, err := storage.NewLocalStore(cfg.Storage.LocalStoreConfig())
		if err != nil {
			return nil, "", fmt.Errorf("open local storage: %w", err)
		}
		return store, store.Root(), nil
	case "s3", "minio":
		store, err := storage.NewS3Store(cfg.Storage.S3StoreConfig())
		if err != nil {
			return nil, "", fmt.Errorf("open s3 storage: %w", err)
		}
		return store, "", nil
	default:
		return nil, "", fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func openMailer(cfg *app.Config, log *zap.Logger) (mail.Mailer, error) {
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; password reset codes cannot be delivered")
		return nil, nil
	}
	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	return mailer, nil
}

func newMonitoring(cfg *app.Config, stack *runtimeStack) *monitoring.Module {
	timeout := cfg.Monitoring.Health.Timeout
	mod := monitoring.NewModule(monitoring.Options{HealthTimeout: timeout})

	started := time.Now()
	mod.Health().RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{
			Status:  monitoring.StatusUp,
			Details: "uptime " + time.Since(started).Truncate(time.Second).String(),
		}
	}))
	mod.Health().RegisterReadiness(checks.Database(stack.DB, timeout))
	mod.Health().RegisterReadiness(checks.Cache(stack.CacheBackend, stack.Cache, timeout))
	mod.Health().RegisterReadiness(checks.Maintenance(mod.Jobs(), maintenanceMaxAge))
	return mod
}
