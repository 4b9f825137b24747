package models

import (
	"time"
)

// CacheEntry is a cached value kept in the database backend of the cache store.
// A zero ExpiresAt never expires.
type CacheEntry struct {
	Key       string `gorm:"column:cache_key;primaryKey;size:191"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
