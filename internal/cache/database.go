package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/catalog/internal/models"
)

// DatabaseStore implements Backend on the primary SQL database using the cache_entries table.
// It is the fallback when no dedicated cache server is configured.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// IncrementWithTTL atomically increments a counter for the supplied key.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, ErrNotInitialised
	}
	if window <= 0 {
		window = time.Minute
	}

	key = normalizeKey(key)
	now := s.now()
	expiry := now.Add(window)
	var count int64

	err := s.db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		// Open the window with an insert that yields to a concurrent first hit.
		seed := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoNothing: true,
		}).Create(&models.CacheEntry{Key: key, Value: []byte("1"), ExpiresAt: expiry})
		if seed.Error != nil {
			return seed.Error
		}
		if seed.RowsAffected == 1 {
			count = 1
			return nil
		}

		var entry models.CacheEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, "cache_key = ?", key).Error; err != nil {
			return err
		}

		if entry.ExpiresAt.Before(now) {
			count = 1
			entry.ExpiresAt = expiry
		} else {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count = current + 1
			expiry = entry.ExpiresAt
		}
		entry.Value = []byte(strconv.FormatInt(count, 10))
		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return count, expiry.Sub(now), nil
}

// Set upserts the value for a given key with expiry. A zero ttl never expires.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return ErrNotInitialised
	}

	var expiry time.Time
	if ttl > 0 {
		expiry = s.now().Add(ttl)
	}

	entry := models.CacheEntry{
		Key:       normalizeKey(key),
		Value:     value,
		ExpiresAt: expiry,
	}

	return s.db.WithContext(ensureContext(ctx)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// Get retrieves a value by key, treating expired rows as missing.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, ErrNotInitialised
	}
	ctx = ensureContext(ctx)

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, "cache_key = ?", normalizeKey(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !entry.ExpiresAt.IsZero() && !s.now().Before(entry.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}

	return entry.Value, true, nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return ErrNotInitialised
	}
	if len(keys) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(keys))
	for _, key := range keys {
		normalized = append(normalized, normalizeKey(key))
	}

	return s.db.WithContext(ensureContext(ctx)).Where("cache_key IN ?", normalized).Delete(&models.CacheEntry{}).Error
}

// PurgeExpired deletes rows whose expiry has passed and returns how many were removed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, ErrNotInitialised
	}
	res := s.db.WithContext(ensureContext(ctx)).
		Where("expires_at > ? AND expires_at <= ?", time.Time{}, s.now()).
		Delete(&models.CacheEntry{})
	return res.RowsAffected, res.Error
}

// Ping checks the underlying connection pool.
func (s *DatabaseStore) Ping(ctx context.Context) error {
	if s == nil {
		return ErrNotInitialised
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ensureContext(ctx))
}

// Close is a no-op; the database handle is owned by the caller.
func (s *DatabaseStore) Close() error { return nil }
