package services

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/catalog/internal/cache"
	"github.com/charlesng35/catalog/internal/models"
	"github.com/charlesng35/catalog/pkg/logger"
)

func newCategoryService(t *testing.T, f *fixture) *CategoryService {
	t.Helper()
	svc, err := NewCategoryService(f.db, f.collections, f.blobs)
	require.NoError(t, err)
	return svc
}

func TestCategoryServiceListIsReadThrough(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(t, f)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&models.Category{Name: "Cameras"}).Error)

	first, outcome, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, cache.OutcomeMissPopulated, outcome)
	require.Len(t, first, 1)
	require.True(t, f.store.has(cache.KeyCategories))

	// A write that bypasses the service is not visible until the snapshot is dropped.
	require.NoError(t, f.db.Create(&models.Category{Name: "Sensors"}).Error)

	second, outcome, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, cache.OutcomeHit, outcome)
	require.Len(t, second, 1)
}

func TestCategoryServiceListEmpty(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(t, f)

	categories, _, err := svc.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, categories)
	require.Empty(t, categories)
}

func TestCategoryServiceCreateInvalidatesCatalog(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(t, f)
	products, err := NewProductService(f.db, f.collections, f.blobs)
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = svc.List(ctx)
	require.NoError(t, err)
	_, _, err = products.List(ctx)
	require.NoError(t, err)

	banner := pngUpload("Summer Banner.png")
	created, err := svc.Create(ctx, CreateCategoryInput{Name: "  Cameras ", Banner: &banner})
	require.NoError(t, err)
	require.Equal(t, "Cameras", created.Name)
	require.True(t, strings.HasPrefix(created.BannerURL, "/uploads/categories/category-banner-"), created.BannerURL)
	require.Empty(t, created.IconURL)

	require.False(t, f.store.has(cache.KeyCategories))
	require.False(t, f.store.has(cache.KeyProducts))

	listed, outcome, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, cache.OutcomeMissPopulated, outcome)
	require.Len(t, listed, 1)
	require.Equal(t, created.ID, listed[0].ID)
}

func TestCategoryServiceCreateRequiresName(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(t, f)

	_, err := svc.Create(context.Background(), CreateCategoryInput{Name: "   "})
	require.Error(t, err)
}

func TestCategoryServiceCreateFailsWhenUploadFails(t *testing.T) {
	f := newFixture(t)
	svc, err := NewCategoryService(f.db, f.collections, &failingBlobs{})
	require.NoError(t, err)

	icon := pngUpload("icon.png")
	_, err = svc.Create(context.Background(), CreateCategoryInput{Name: "Cameras", Icon: &icon})
	require.Error(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.Category{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCategoryServiceCreateRemovesStoredImagesOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("second upload fails", func(t *testing.T) {
		blobs := &flakyBlobs{next: f.blobs, failOn: 2}
		svc, err := NewCategoryService(f.db, f.collections, blobs)
		require.NoError(t, err)

		banner, icon := pngUpload("banner.png"), pngUpload("icon.png")
		_, err = svc.Create(ctx, CreateCategoryInput{Name: "Cameras", Banner: &banner, Icon: &icon})
		require.Error(t, err)
		require.Len(t, blobs.stored, 1)
		require.Equal(t, blobs.stored, blobs.deleted)

		exists, err := afero.Exists(f.fs, "/"+blobs.stored[0])
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("insert fails", func(t *testing.T) {
		blobs := &flakyBlobs{next: f.blobs}
		svc, err := NewCategoryService(f.db, f.collections, blobs)
		require.NoError(t, err)
		require.NoError(t, f.db.Migrator().DropTable(&models.Category{}))

		banner, icon := pngUpload("banner.png"), pngUpload("icon.png")
		_, err = svc.Create(ctx, CreateCategoryInput{Name: "Cameras", Banner: &banner, Icon: &icon})
		require.Error(t, err)
		require.Len(t, blobs.stored, 2)
		require.ElementsMatch(t, blobs.stored, blobs.deleted)
	})
}

func TestCategoryServiceUpdateRemovesStoredImagesOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := newCategoryService(t, f).Create(ctx, CreateCategoryInput{Name: "Cameras"})
	require.NoError(t, err)

	blobs := &flakyBlobs{next: f.blobs, failOn: 2}
	svc, err := NewCategoryService(f.db, f.collections, blobs)
	require.NoError(t, err)

	banner, icon := pngUpload("banner.png"), pngUpload("icon.png")
	_, err = svc.Update(ctx, created.ID, UpdateCategoryInput{Banner: &banner, Icon: &icon})
	require.Error(t, err)
	require.Len(t, blobs.stored, 1)
	require.Equal(t, blobs.stored, blobs.deleted)

	stored, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Empty(t, stored.BannerURL)
}

func TestCategoryServiceLogsOrphansItCannotDelete(t *testing.T) {
	core, recorded := observer.New(zap.WarnLevel)
	logger.Replace(zap.New(core))
	t.Cleanup(func() { logger.Replace(nil) })

	f := newFixture(t)
	blobs := &flakyBlobs{next: f.blobs, failOn: 2, failDelete: true}
	svc, err := NewCategoryService(f.db, f.collections, blobs)
	require.NoError(t, err)

	banner, icon := pngUpload("banner.png"), pngUpload("icon.png")
	_, err = svc.Create(context.Background(), CreateCategoryInput{Name: "Cameras", Banner: &banner, Icon: &icon})
	require.Error(t, err)

	entries := recorded.FilterMessage("failed to delete orphaned blob").All()
	require.Len(t, entries, 1)
	require.Equal(t, blobs.stored[0], entries[0].ContextMap()["name"])
	require.Equal(t, "categories", entries[0].ContextMap()["module"])
}

func TestCategoryServiceUpdateKeepsNameWhenBlank(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(t, f)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCategoryInput{Name: "Cameras"})
	require.NoError(t, err)

	blank := "  "
	icon := pngUpload("icon.svg")
	updated, err := svc.Update(ctx, created.ID, UpdateCategoryInput{Name: &blank, Icon: &icon})
	require.NoError(t, err)
	require.Equal(t, "Cameras", updated.Name)
	require.True(t, strings.HasPrefix(updated.IconURL, "/uploads/categories/category-icon-"), updated.IconURL)

	renamed := "Security Cameras"
	updated, err = svc.Update(ctx, created.ID, UpdateCategoryInput{Name: &renamed})
	require.NoError(t, err)
	require.Equal(t, "Security Cameras", updated.Name)
	require.Equal(t, "Security Cameras", mustGetCategory(t, svc, created.ID).Name)
}

func TestCategoryServiceUpdateNotFound(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(t, f)

	_, err := svc.Update(context.Background(), 404, UpdateCategoryInput{})
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryServiceDeleteRemovesProductsAndMedia(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(t, f)
	products, err := NewProductService(f.db, f.collections, f.blobs)
	require.NoError(t, err)
	ctx := context.Background()

	category, err := svc.Create(ctx, CreateCategoryInput{Name: "Cameras"})
	require.NoError(t, err)
	_, err = products.Create(ctx, CreateProductInput{
		CategoryID:  category.ID,
		Name:        "Dome Camera",
		KeyFeatures: []string{"4K", "Night vision"},
		Media:       ProductMediaInput{Cover: []Upload{pngUpload("cover.png")}},
	})
	require.NoError(t, err)

	_, _, err = svc.List(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, category.ID))
	require.False(t, f.store.has(cache.KeyCategories))

	var productCount, mediaCount int64
	require.NoError(t, f.db.Model(&models.Product{}).Count(&productCount).Error)
	require.NoError(t, f.db.Model(&models.ProductMedia{}).Count(&mediaCount).Error)
	require.Zero(t, productCount)
	require.Zero(t, mediaCount)

	require.ErrorIs(t, svc.Delete(ctx, category.ID), ErrCategoryNotFound)
}

func TestCategoryServiceGetByIDBypassesCache(t *testing.T) {
	f := newFixture(t)
	svc := newCategoryService(t, f)
	ctx := context.Background()

	category, err := svc.Create(ctx, CreateCategoryInput{Name: "Cameras"})
	require.NoError(t, err)

	gets := f.store.gets
	got := mustGetCategory(t, svc, category.ID)
	require.Equal(t, "Cameras", got.Name)
	require.Equal(t, gets, f.store.gets)

	_, err = svc.GetByID(ctx, 999)
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func mustGetCategory(t *testing.T, svc *CategoryService, id uint) *models.Category {
	t.Helper()
	category, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	return category
}
