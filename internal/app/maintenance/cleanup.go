package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/catalog/internal/models"
	"github.com/charlesng35/catalog/internal/monitoring"
	"github.com/charlesng35/catalog/pkg/logger"
)

const (
	defaultCacheSweepSpec = "@every 10m"
	defaultOTPSpec        = "@every 15m"

	// Job names as reported to the job tracker and metrics.
	JobCacheSweep = "cache_sweep"
	JobOTPCleanup = "otp_cleanup"
)

// ExpiredPurger is implemented by cache backends that need help dropping expired entries.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance tasks such as sweeping expired cache rows
// and clearing password reset codes that can no longer be used.
type Cleaner struct {
	db     *gorm.DB
	purger ExpiredPurger
	cron   *cron.Cron
	now    func() time.Time
	log    *zap.Logger
	jobs   *monitoring.JobTracker

	cacheSchedule string
	otpSchedule   string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithJobTracker reports every run to tracker.
func WithJobTracker(tracker *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.jobs = tracker
	}
}

// WithCacheSchedule overrides the cron specification for the cache sweep.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithOTPSchedule overrides the cron specification for OTP cleanup.
func WithOTPSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.otpSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil purger skips the cache sweep and a nil db skips
// OTP cleanup.
func NewCleaner(db *gorm.DB, purger ExpiredPurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:            db,
		purger:        purger,
		now:           time.Now,
		cacheSchedule: defaultCacheSweepSpec,
		otpSchedule:   defaultOTPSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if c.purger == nil && c.db == nil {
		return nil
	}

	if c.purger != nil {
		c.jobs.Register(JobCacheSweep)
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			_ = c.sweepCache(context.Background())
		}); err != nil {
			return fmt.Errorf("schedule cache sweep: %w", err)
		}
	}

	if c.db != nil {
		c.jobs.Register(JobOTPCleanup)
		if _, err := c.cron.AddFunc(c.otpSchedule, func() {
			_ = c.cleanupOTPs(context.Background())
		}); err != nil {
			return fmt.Errorf("schedule otp cleanup: %w", err)
		}
	}

	c.cron.Start()
	return nil
}

func (c *Cleaner) sweepCache(ctx context.Context) error {
	start := time.Now()
	removed, err := c.purger.PurgeExpired(ctx)
	c.jobs.RecordRun(JobCacheSweep, time.Since(start), err)
	if err != nil {
		c.log.Warn("cache sweep failed", zap.Error(err))
		return fmt.Errorf("cache sweep: %w", err)
	}
	if removed > 0 {
		c.log.Debug("cache sweep removed expired entries", zap.Int64("removed", removed))
	}
	return nil
}

func (c *Cleaner) cleanupOTPs(ctx context.Context) error {
	start := time.Now()
	cleared, err := CleanupOTPs(ctx, c.db, c.now())
	c.jobs.RecordRun(JobOTPCleanup, time.Since(start), err)
	if err != nil {
		c.log.Warn("otp cleanup failed", zap.Error(err))
		return err
	}
	if cleared > 0 {
		c.log.Debug("cleared expired otp codes", zap.Int64("cleared", cleared))
	}
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.purger != nil {
		errs = multierr.Append(errs, c.sweepCache(ctx))
	}
	if c.db != nil {
		errs = multierr.Append(errs, c.cleanupOTPs(ctx))
	}
	return errs
}

// CleanupOTPs clears reset codes whose expiry has passed and resets their attempt counters.
// The cached users snapshot does not include OTP columns, so no invalidation is needed.
func CleanupOTPs(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup otps: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("otp IS NOT NULL AND otp_expiry < ?", now).
		Updates(map[string]any{"otp": nil, "otp_expiry": nil, "otp_count": 0})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup otps: %w", result.Error)
	}
	return result.RowsAffected, nil
}
