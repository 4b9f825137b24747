package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/catalog/internal/models"
)

func productFields(categoryID uint) []formField {
	return []formField{
		{name: "categoryId", value: strconv.FormatUint(uint64(categoryID), 10)},
		{name: "name", value: "Dome Camera"},
		{name: "subName", value: "Indoor 4MP"},
		{name: "code", value: "DC-4MP"},
		{name: "coverDesc", value: "Compact dome camera"},
		{name: "mainDesc", value: "A compact dome camera for indoor use."},
		{name: "keyFeatures", value: "Night vision, Two-way audio, "},
		{name: "smartIconsText", value: "WiFi,4MP"},
	}
}

func productFiles() []formFile {
	return []formFile{
		{field: "cover", filename: "cover.png", data: pngBytes(256)},
		{field: "gallery", filename: "side.png", data: pngBytes(256)},
		{field: "smartIcons", filename: "wifi.png", data: pngBytes(64)},
		{field: "smartIcons", filename: "4mp.png", data: pngBytes(64)},
	}
}

func (env *handlerTestEnv) createProduct(t *testing.T, categoryID uint) models.Product {
	t.Helper()
	rec := env.doMultipart(t, http.MethodPost, "/api/products/add", productFields(categoryID), productFiles(), env.adminToken(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product models.Product
	decodeData(t, rec, &product)
	return product
}

func TestProductHandlerCreateThenList(t *testing.T) {
	env := setupHandlerTestEnv(t)
	category := env.seedCategory(t, "Cameras")

	rec := env.do(newRequest(http.MethodGet, "/api/products/list"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "miss_populated", rec.Header().Get(CacheHeader))

	product := env.createProduct(t, category.ID)
	require.Equal(t, []string{"Night vision", "Two-way audio"}, []string(product.KeyFeatures))
	require.Len(t, product.Images, 4)

	var captions []string
	for _, img := range product.Images {
		if img.Type == models.MediaSmartIcon {
			require.NotNil(t, img.Text)
			captions = append(captions, *img.Text)
		}
	}
	require.Equal(t, []string{"WiFi", "4MP"}, captions)

	rec = env.do(newRequest(http.MethodGet, "/api/products/list"))
	require.Equal(t, "miss_populated", rec.Header().Get(CacheHeader))
	var listed []models.Product
	decodeData(t, rec, &listed)
	require.Len(t, listed, 1)
	require.Equal(t, product.ID, listed[0].ID)
	require.Len(t, listed[0].Images, 4)

	rec = env.do(newRequest(http.MethodGet, "/api/products/list"))
	require.Equal(t, "hit", rec.Header().Get(CacheHeader))
	require.Equal(t, 1, decodeResponse(t, rec).Meta.Total)
}

func TestProductHandlerCreateValidation(t *testing.T) {
	env := setupHandlerTestEnv(t)
	category := env.seedCategory(t, "Cameras")
	token := env.adminToken(t)

	override := func(name, value string) []formField {
		fields := productFields(category.ID)
		for i := range fields {
			if fields[i].name == name {
				fields[i].value = value
			}
		}
		return fields
	}

	cases := []struct {
		name    string
		fields  []formField
		files   []formFile
		status  int
		message string
	}{
		{
			name:    "single key feature",
			fields:  override("keyFeatures", "Night vision"),
			files:   productFiles(),
			status:  http.StatusBadRequest,
			message: "key features must contain at least 2 items",
		},
		{
			name:    "bad code",
			fields:  override("code", "DC 4MP"),
			files:   productFiles(),
			status:  http.StatusBadRequest,
			message: "code can only contain letters, numbers and hyphens",
		},
		{
			name:    "icons without matching captions",
			fields:  override("smartIconsText", "WiFi,4MP,PoE"),
			files:   productFiles(),
			status:  http.StatusBadRequest,
			message: "Number of smart icons must match the smart text",
		},
		{
			name:   "too many gallery images",
			fields: productFields(category.ID),
			files: append(productFiles(),
				formFile{field: "gallery", filename: "a.png", data: pngBytes(8)},
				formFile{field: "gallery", filename: "b.png", data: pngBytes(8)},
				formFile{field: "gallery", filename: "c.png", data: pngBytes(8)},
			),
			status:  http.StatusBadRequest,
			message: `Too many files for field "gallery"`,
		},
		{
			name:   "oversized cover",
			fields: productFields(category.ID),
			files: []formFile{
				{field: "cover", filename: "cover.png", data: pngBytes(int(MaxUploadSize) + 1)},
			},
			status:  http.StatusBadRequest,
			message: `File "cover" is too large. Max 2MB allowed`,
		},
		{
			name:    "unknown category",
			fields:  override("categoryId", "4242"),
			files:   productFiles(),
			status:  http.StatusNotFound,
			message: "Category not found",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.doMultipart(t, http.MethodPost, "/api/products/add", tc.fields, tc.files, token)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			require.Contains(t, decodeResponse(t, rec).Error.Message, tc.message)
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Product{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestProductHandlerUpdate(t *testing.T) {
	env := setupHandlerTestEnv(t)
	category := env.seedCategory(t, "Cameras")
	product := env.createProduct(t, category.ID)

	rec := env.doMultipart(t, http.MethodPut, fmt.Sprintf("/api/products/update/%d", product.ID),
		[]formField{
			{name: "name", value: "Dome Camera Pro"},
			{name: "keyFeatures", value: `["Night vision","Two-way audio","Motion alerts"]`},
		},
		[]formFile{
			{field: "gallery", filename: "front.png", data: pngBytes(32)},
			{field: "gallery", filename: "back.png", data: pngBytes(32)},
		}, env.adminToken(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Product updated successfully", decodeResponse(t, rec).Message)

	var updated models.Product
	decodeData(t, rec, &updated)
	require.Equal(t, "Dome Camera Pro", updated.Name)
	require.Equal(t, "Indoor 4MP", updated.SubName)
	require.Len(t, updated.KeyFeatures, 3)

	counts := map[models.MediaType]int{}
	for _, img := range updated.Images {
		counts[img.Type]++
	}
	require.Equal(t, map[models.MediaType]int{
		models.MediaCover:     1,
		models.MediaGallery:   2,
		models.MediaSmartIcon: 2,
	}, counts)

	rec = env.doMultipart(t, http.MethodPut, "/api/products/update/4242",
		[]formField{{name: "name", value: "Ghost"}}, nil, env.adminToken(t))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductHandlerGetAndDelete(t *testing.T) {
	env := setupHandlerTestEnv(t)
	category := env.seedCategory(t, "Cameras")
	product := env.createProduct(t, category.ID)

	rec := env.do(newRequest(http.MethodGet, fmt.Sprintf("/api/products/get/%d", product.ID)))
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched models.Product
	decodeData(t, rec, &fetched)
	require.NotNil(t, fetched.Category)
	require.Equal(t, "Cameras", fetched.Category.Name)

	rec = env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/products/delete/%d", product.ID), nil, env.adminToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Product and all related images deleted successfully", decodeResponse(t, rec).Message)

	rec = env.do(newRequest(http.MethodGet, fmt.Sprintf("/api/products/get/%d", product.ID)))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "PRODUCT_NOT_FOUND", decodeResponse(t, rec).Error.Code)
}
