package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/catalog/internal/auth"
	"github.com/charlesng35/catalog/internal/database/testutil"
	"github.com/charlesng35/catalog/internal/middleware"
	"github.com/charlesng35/catalog/internal/models"
	"github.com/charlesng35/catalog/internal/services"
	"github.com/charlesng35/catalog/internal/storage"
	"github.com/charlesng35/catalog/pkg/mail"
	"github.com/charlesng35/catalog/pkg/response"
)

const (
	testAdminEmail = "admin@example.com"
	testPassword   = "Secret@123"
)

// mapStore is a minimal in-memory cache.Store.
type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *mapStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

type handlerTestEnv struct {
	db     *gorm.DB
	router *gin.Engine
	jwt    *iauth.JWTService
	mailer *outbox
	fs     afero.Fs
}

func setupHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	collections, err := services.NewCollections(&mapStore{data: map[string][]byte{}}, services.CollectionConfig{
		CategoriesTTL: time.Hour,
		ProductsTTL:   time.Hour,
		UsersTTL:      time.Hour,
	})
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	blobs := storage.NewLocalStoreWithFs(fs, storage.LocalConfig{BaseURL: "/uploads"})

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "handler-secret"})
	require.NoError(t, err)

	mailer := &outbox{}
	authSvc, err := services.NewAuthService(db, jwtSvc, collections, services.AuthServiceConfig{
		AdminEmail: testAdminEmail,
		OTP:        iauth.DefaultOTPPolicy(),
		Mailer:     mailer,
	})
	require.NoError(t, err)
	categorySvc, err := services.NewCategoryService(db, collections, blobs)
	require.NoError(t, err)
	productSvc, err := services.NewProductService(db, collections, blobs)
	require.NoError(t, err)
	userSvc, err := services.NewUserService(db, collections)
	require.NoError(t, err)

	router := gin.New()
	api := router.Group("/api")
	admin := []gin.HandlerFunc{middleware.Auth(jwtSvc), middleware.RequireAdmin()}

	authHandler := NewAuthHandler(authSvc)
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/verify-otp", authHandler.VerifyOTP)
	authGroup.POST("/reset-password/:token", authHandler.ResetPassword)

	userHandler := NewUserHandler(userSvc)
	users := api.Group("/users", admin...)
	users.GET("/all", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.DELETE("/:id", userHandler.Delete)

	categoryHandler := NewCategoryHandler(categorySvc)
	categories := api.Group("/categories")
	categories.GET("", categoryHandler.List)
	categories.GET("/:id", categoryHandler.Get)
	categories.POST("", append(admin, categoryHandler.Create)...)
	categories.PUT("/:id", append(admin, categoryHandler.Update)...)
	categories.DELETE("/:id", append(admin, categoryHandler.Delete)...)

	productHandler := NewProductHandler(productSvc)
	products := api.Group("/products")
	products.GET("/list", productHandler.List)
	products.GET("/get/:id", productHandler.Get)
	products.POST("/add", append(admin, productHandler.Create)...)
	products.PUT("/update/:id", append(admin, productHandler.Update)...)
	products.DELETE("/delete/:id", append(admin, productHandler.Delete)...)

	return &handlerTestEnv{db: db, router: router, jwt: jwtSvc, mailer: mailer, fs: fs}
}

func (env *handlerTestEnv) adminToken(t *testing.T) string {
	t.Helper()
	token, err := env.jwt.GenerateAccessToken(999, string(models.RoleAdmin))
	require.NoError(t, err)
	return token
}

func (env *handlerTestEnv) userToken(t *testing.T, id uint) string {
	t.Helper()
	token, err := env.jwt.GenerateAccessToken(id, string(models.RoleUser))
	require.NoError(t, err)
	return token
}

func (env *handlerTestEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *handlerTestEnv) doJSON(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return env.do(req)
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field    string
	filename string
	data     []byte
}

func (env *handlerTestEnv) doMultipart(t *testing.T, method, path string, fields []formField, files []formFile, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		require.NoError(t, w.WriteField(f.name, f.value))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return env.do(req)
}

func (env *handlerTestEnv) seedCategory(t *testing.T, name string) models.Category {
	t.Helper()
	category := models.Category{Name: name}
	require.NoError(t, env.db.Create(&category).Error)
	return category
}

func pngBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, "\x89PNG\r\n\x1a\n")
	return data
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// decodeData re-decodes the data member of the envelope into dest.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
