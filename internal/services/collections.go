package services

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesng35/catalog/internal/cache"
	"github.com/charlesng35/catalog/internal/models"
)

// CollectionConfig tunes the three cached collections.
type CollectionConfig struct {
	CategoriesTTL time.Duration
	ProductsTTL   time.Duration
	UsersTTL      time.Duration
	// Codec names the snapshot encoding: json, msgpack or cbor.
	Codec        string
	Singleflight bool
}

// Collections holds the read-through caches for every listed collection. All three
// share one Store and are safe for concurrent use.
type Collections struct {
	Categories *cache.Collection[[]models.Category]
	Products   *cache.Collection[[]models.Product]
	Users      *cache.Collection[[]models.UserSummary]
}

// NewCollections binds the catalog collections to store.
func NewCollections(store cache.Store, cfg CollectionConfig) (*Collections, error) {
	categories, err := newCollection[[]models.Category](store, cache.KeyCategories, cfg.CategoriesTTL, cfg)
	if err != nil {
		return nil, err
	}
	products, err := newCollection[[]models.Product](store, cache.KeyProducts, cfg.ProductsTTL, cfg)
	if err != nil {
		return nil, err
	}
	users, err := newCollection[[]models.UserSummary](store, cache.KeyUsers, cfg.UsersTTL, cfg)
	if err != nil {
		return nil, err
	}
	return &Collections{Categories: categories, Products: products, Users: users}, nil
}

func newCollection[T any](store cache.Store, key string, ttl time.Duration, cfg CollectionConfig) (*cache.Collection[T], error) {
	codec, err := cache.CodecByName[T](cfg.Codec)
	if err != nil {
		return nil, err
	}
	c, err := cache.NewCollection(store, cache.CollectionOptions[T]{
		Key:          key,
		TTL:          ttl,
		Codec:        codec,
		Singleflight: cfg.Singleflight,
	})
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", key, err)
	}
	return c, nil
}

// invalidateCatalog drops both catalog snapshots. The category snapshot embeds products,
// so any product or category write stales both.
func (c *Collections) invalidateCatalog(ctx context.Context) {
	cache.InvalidateAll(ctx, c.Categories, c.Products)
}

func (c *Collections) invalidateUsers(ctx context.Context) {
	c.Users.Invalidate(ctx)
}
