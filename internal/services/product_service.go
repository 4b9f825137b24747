package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/catalog/internal/cache"
	"github.com/charlesng35/catalog/internal/models"
	"github.com/charlesng35/catalog/internal/storage"
	apperrors "github.com/charlesng35/catalog/pkg/errors"
	"github.com/charlesng35/catalog/pkg/logger"
)

// Limits on the images attached to a product.
const (
	MaxCoverImages   = 1
	MaxGalleryImages = 3
	MinSmartIcons    = 2
	MaxSmartIcons    = 7
)

// ProductMediaInput carries uploaded product images grouped by type.
type ProductMediaInput struct {
	Cover          []Upload
	Gallery        []Upload
	SmartIcons     []Upload
	SmartIconsText []string
}

// Validate enforces per type file counts. Smart icons, when present, must pair one to one
// with their captions.
func (m ProductMediaInput) Validate() error {
	if len(m.Cover) > MaxCoverImages {
		return ErrInvalidUpload.WithMessage("Cover image cannot be more than 1")
	}
	if len(m.Gallery) > MaxGalleryImages {
		return ErrInvalidUpload.WithMessage("Gallery images cannot exceed 3")
	}
	if n := len(m.SmartIcons); n > 0 {
		if n != len(m.SmartIconsText) {
			return ErrInvalidUpload.WithMessage("Number of smart icons must match the smart text")
		}
		if n < MinSmartIcons || n > MaxSmartIcons {
			return ErrInvalidUpload.WithMessage("Smart icons and text must be between 2 and 7 items")
		}
	}
	return nil
}

func (m ProductMediaInput) empty() bool {
	return len(m.Cover) == 0 && len(m.Gallery) == 0 && len(m.SmartIcons) == 0
}

// CreateProductInput describes a new product.
type CreateProductInput struct {
	CategoryID  uint
	Name        string
	SubName     string
	Code        string
	CoverDesc   string
	MainDesc    string
	KeyFeatures []string
	Media       ProductMediaInput
}

// UpdateProductInput enumerates mutable product attributes. Nil fields are left unchanged;
// a media type with uploads replaces every stored image of that type.
type UpdateProductInput struct {
	CategoryID  *uint
	Name        *string
	SubName     *string
	Code        *string
	CoverDesc   *string
	MainDesc    *string
	KeyFeatures []string
	Media       ProductMediaInput
}

// ProductService manages products and their media. Listing is served through the products cache.
type ProductService struct {
	db          *gorm.DB
	collections *Collections
	blobs       storage.Store
	namer       storage.Namer
	log         *zap.Logger
}

// NewProductService constructs a ProductService instance.
func NewProductService(db *gorm.DB, collections *Collections, blobs storage.Store) (*ProductService, error) {
	if db == nil {
		return nil, errors.New("product service: db is required")
	}
	if collections == nil {
		return nil, errors.New("product service: collections are required")
	}
	if blobs == nil {
		return nil, errors.New("product service: blob store is required")
	}
	return &ProductService{
		db:          db,
		collections: collections,
		blobs:       blobs,
		namer:       storage.DefaultNamer(),
		log:         logger.WithModule("products"),
	}, nil
}

// List returns every product with its images, ordered by id.
func (s *ProductService) List(ctx context.Context) ([]models.Product, cache.Outcome, error) {
	ctx = ensureContext(ctx)
	products, outcome, err := s.collections.Products.GetOrPopulate(ctx, s.loadAll)
	if err != nil {
		return nil, outcome, fmt.Errorf("product service: list: %w", err)
	}
	return products, outcome, nil
}

func (s *ProductService) loadAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Images", orderByID).Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// GetByID reads a product with its images and category straight from the database.
func (s *ProductService) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	ctx = ensureContext(ctx)

	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Images", orderByID).
		Preload("Category").
		First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("product service: get product: %w", err)
	}
	return &product, nil
}

// Create inserts the product, uploads its media and invalidates the catalog caches.
// When an upload fails the product row and any stored blobs are removed again.
func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	if err := input.Media.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		SubName:     input.SubName,
		Code:        input.Code,
		CoverDesc:   strings.TrimSpace(input.CoverDesc),
		MainDesc:    strings.TrimSpace(input.MainDesc),
		KeyFeatures: datatypes.JSONSlice[string](input.KeyFeatures),
	}
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("product service: create product: %w", err)
	}
	// The row is committed; whatever happens next the cached snapshots are stale.
	defer s.collections.invalidateCatalog(ctx)

	media, stored, err := s.uploadMedia(ctx, product.ID, input.Media)
	if err == nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return insertMedia(tx, media)
		})
	}
	if err != nil {
		s.rollbackCreate(product.ID, stored)
		return nil, fmt.Errorf("product service: store media: %w", err)
	}

	if media == nil {
		media = []models.ProductMedia{}
	}
	product.Images = media
	return product, nil
}

// Update applies field changes and replaces media types present in the request.
func (s *ProductService) Update(ctx context.Context, id uint, input UpdateProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	if err := input.Media.Validate(); err != nil {
		return nil, err
	}

	var product models.Product
	err := s.db.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("product service: load product: %w", err)
	}

	updates := map[string]any{}
	if input.CategoryID != nil && *input.CategoryID != product.CategoryID {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *input.CategoryID
	}
	setIfPresent(updates, "name", input.Name)
	setIfPresent(updates, "sub_name", input.SubName)
	setIfPresent(updates, "code", input.Code)
	setIfPresent(updates, "cover_desc", input.CoverDesc)
	setIfPresent(updates, "main_desc", input.MainDesc)
	if features := cleanFeatures(input.KeyFeatures); len(features) > 0 {
		updates["key_features"] = features
	}

	var media []models.ProductMedia
	var stored []string
	if !input.Media.empty() {
		if media, stored, err = s.uploadMedia(ctx, id, input.Media); err != nil {
			s.deleteBlobs(stored)
			return nil, fmt.Errorf("product service: store media: %w", err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&product).Updates(updates).Error; err != nil {
				return err
			}
		}
		for _, kind := range replacedTypes(input.Media) {
			if err := tx.Where("product_id = ? AND type = ?", id, kind).Delete(&models.ProductMedia{}).Error; err != nil {
				return err
			}
		}
		return insertMedia(tx, media)
	})
	if err != nil {
		s.deleteBlobs(stored)
		return nil, fmt.Errorf("product service: update product: %w", err)
	}

	s.collections.invalidateCatalog(ctx)
	return s.GetByID(ctx, id)
}

// Delete removes the product and its media.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id").First(&product, id).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductMedia{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("product service: delete product: %w", err)
	}

	s.collections.invalidateCatalog(ctx)
	return nil
}

func (s *ProductService) ensureCategory(ctx context.Context, id uint) error {
	if id == 0 {
		return apperrors.NewBadRequest("categoryId is required")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("product service: check category: %w", err)
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// uploadMedia stores every upload and returns the rows to insert plus the stored object names.
func (s *ProductService) uploadMedia(ctx context.Context, productID uint, in ProductMediaInput) ([]models.ProductMedia, []string, error) {
	var media []models.ProductMedia
	var stored []string

	put := func(kind models.MediaType, u Upload, text *string) error {
		name := s.namer.ProductMedia(productID, kind.Folder(), u.Filename)
		url, err := putUpload(ctx, s.blobs, "product_"+string(kind), name, u)
		if err != nil {
			return err
		}
		stored = append(stored, name)
		media = append(media, models.ProductMedia{ProductID: productID, Type: kind, Text: text, ImageURL: url})
		return nil
	}

	for _, u := range in.Cover {
		if err := put(models.MediaCover, u, nil); err != nil {
			return nil, stored, err
		}
	}
	for _, u := range in.Gallery {
		if err := put(models.MediaGallery, u, nil); err != nil {
			return nil, stored, err
		}
	}
	for i, u := range in.SmartIcons {
		var text *string
		if i < len(in.SmartIconsText) {
			if caption := strings.TrimSpace(in.SmartIconsText[i]); caption != "" {
				text = &caption
			}
		}
		if err := put(models.MediaSmartIcon, u, text); err != nil {
			return nil, stored, err
		}
	}
	return media, stored, nil
}

func (s *ProductService) rollbackCreate(productID uint, stored []string) {
	ctx := context.Background()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductMedia{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, productID).Error
	})
	if err != nil {
		s.log.Warn("failed to remove partially created product", zap.Uint("product_id", productID), zap.Error(err))
	}
	s.deleteBlobs(stored)
}

func (s *ProductService) deleteBlobs(names []string) {
	deleteBlobs(s.blobs, s.log, names)
}

func insertMedia(tx *gorm.DB, media []models.ProductMedia) error {
	if len(media) == 0 {
		return nil
	}
	return tx.Create(&media).Error
}

func replacedTypes(in ProductMediaInput) []models.MediaType {
	var kinds []models.MediaType
	if len(in.Cover) > 0 {
		kinds = append(kinds, models.MediaCover)
	}
	if len(in.Gallery) > 0 {
		kinds = append(kinds, models.MediaGallery)
	}
	if len(in.SmartIcons) > 0 {
		kinds = append(kinds, models.MediaSmartIcon)
	}
	return kinds
}

func setIfPresent(updates map[string]any, column string, value *string) {
	if v := trimmedPtr(value); v != nil {
		updates[column] = *v
	}
}

// cleanFeatures drops blank entries. Map updates bypass the model's BeforeSave hook.
func cleanFeatures(in []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(in))
	for _, f := range in {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
