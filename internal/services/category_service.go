package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/catalog/internal/cache"
	"github.com/charlesng35/catalog/internal/models"
	"github.com/charlesng35/catalog/internal/storage"
	apperrors "github.com/charlesng35/catalog/pkg/errors"
	"github.com/charlesng35/catalog/pkg/logger"
)

// CreateCategoryInput describes a new category and its optional images.
type CreateCategoryInput struct {
	Name   string
	Banner *Upload
	Icon   *Upload
}

// UpdateCategoryInput enumerates mutable category attributes. Nil fields are left unchanged.
type UpdateCategoryInput struct {
	Name   *string
	Banner *Upload
	Icon   *Upload
}

// CategoryService manages categories. Listing is served through the categories cache.
type CategoryService struct {
	db          *gorm.DB
	collections *Collections
	blobs       storage.Store
	namer       storage.Namer
	log         *zap.Logger
}

// NewCategoryService constructs a CategoryService instance.
func NewCategoryService(db *gorm.DB, collections *Collections, blobs storage.Store) (*CategoryService, error) {
	if db == nil {
		return nil, errors.New("category service: db is required")
	}
	if collections == nil {
		return nil, errors.New("category service: collections are required")
	}
	if blobs == nil {
		return nil, errors.New("category service: blob store is required")
	}
	return &CategoryService{
		db:          db,
		collections: collections,
		blobs:       blobs,
		namer:       storage.DefaultNamer(),
		log:         logger.WithModule("categories"),
	}, nil
}

// List returns every category with its products and their images, ordered by id.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, cache.Outcome, error) {
	ctx = ensureContext(ctx)
	categories, outcome, err := s.collections.Categories.GetOrPopulate(ctx, s.loadAll)
	if err != nil {
		return nil, outcome, fmt.Errorf("category service: list: %w", err)
	}
	return categories, outcome, nil
}

func (s *CategoryService) loadAll(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.WithContext(ctx).
		Preload("Products", orderByID).
		Preload("Products.Images", orderByID).
		Order("id ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// GetByID reads a category straight from the database, bypassing the cache.
func (s *CategoryService) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	ctx = ensureContext(ctx)

	var category models.Category
	err := s.db.WithContext(ctx).
		Preload("Products", orderByID).
		Preload("Products.Images", orderByID).
		First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category service: get category: %w", err)
	}
	return &category, nil
}

// Create uploads the supplied images, inserts the category and invalidates the catalog caches.
func (s *CategoryService) Create(ctx context.Context, input CreateCategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("Category name is required")
	}

	category := &models.Category{Name: name}
	stored, err := s.uploadImages(ctx, category, input.Banner, input.Icon)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		deleteBlobs(s.blobs, s.log, stored)
		return nil, fmt.Errorf("category service: create category: %w", err)
	}

	s.collections.invalidateCatalog(ctx)
	return category, nil
}

// Update applies the supplied changes. New images replace the stored URLs.
func (s *CategoryService) Update(ctx context.Context, id uint, input UpdateCategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	var category models.Category
	err := s.db.WithContext(ctx).First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category service: load category: %w", err)
	}

	if name := trimmedPtr(input.Name); name != nil {
		category.Name = *name
	}
	stored, err := s.uploadImages(ctx, &category, input.Banner, input.Icon)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(&category).Error; err != nil {
		deleteBlobs(s.blobs, s.log, stored)
		return nil, fmt.Errorf("category service: update category: %w", err)
	}

	s.collections.invalidateCatalog(ctx)
	return &category, nil
}

// Delete removes the category together with its products and their media.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Select("id").First(&category, id).Error; err != nil {
			return err
		}

		productIDs := tx.Model(&models.Product{}).Select("id").Where("category_id = ?", id)
		if err := tx.Where("product_id IN (?)", productIDs).Delete(&models.ProductMedia{}).Error; err != nil {
			return fmt.Errorf("delete product media: %w", err)
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return fmt.Errorf("delete products: %w", err)
		}
		return tx.Delete(&category).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("category service: delete category: %w", err)
	}

	s.collections.invalidateCatalog(ctx)
	return nil
}

// uploadImages stores the supplied banner and icon and points category at them. It returns
// the stored object names so the caller can remove them if the row is not written. A failed
// upload removes whatever was already stored.
func (s *CategoryService) uploadImages(ctx context.Context, category *models.Category, banner, icon *Upload) ([]string, error) {
	var stored []string
	for _, img := range []struct {
		kind string
		file *Upload
		url  *string
	}{
		{kind: "banner", file: banner, url: &category.BannerURL},
		{kind: "icon", file: icon, url: &category.IconURL},
	} {
		if img.file == nil {
			continue
		}
		name := s.namer.CategoryMedia(img.kind, img.file.Filename)
		url, err := putUpload(ctx, s.blobs, "category_"+img.kind, name, *img.file)
		if err != nil {
			deleteBlobs(s.blobs, s.log, stored)
			return nil, fmt.Errorf("category service: upload %s: %w", img.kind, err)
		}
		stored = append(stored, name)
		*img.url = url
	}
	return stored, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
