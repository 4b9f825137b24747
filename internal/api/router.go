package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalog/internal/app"
	iauth "github.com/charlesng35/catalog/internal/auth"
	"github.com/charlesng35/catalog/internal/cache"
	"github.com/charlesng35/catalog/internal/handlers"
	"github.com/charlesng35/catalog/internal/middleware"
	"github.com/charlesng35/catalog/internal/monitoring"
	"github.com/charlesng35/catalog/internal/services"
)

// Dependencies are the services and infrastructure the router wires into handlers.
type Dependencies struct {
	Config     *app.Config
	JWT        *iauth.JWTService
	Auth       *services.AuthService
	Categories *services.CategoryService
	Products   *services.ProductService
	Users      *services.UserService
	Monitoring *monitoring.Module

	// RateLimitStore backs the auth rate limiter. Nil disables rate limiting.
	RateLimitStore cache.Counter
	// UploadsDir is served at the local storage base URL when the local blob backend is active.
	UploadsDir string
}

func (d Dependencies) validate() error {
	var missing []string
	if d.Config == nil {
		missing = append(missing, "config")
	}
	if d.JWT == nil {
		missing = append(missing, "jwt service")
	}
	if d.Auth == nil {
		missing = append(missing, "auth service")
	}
	if d.Categories == nil {
		missing = append(missing, "category service")
	}
	if d.Products == nil {
		missing = append(missing, "product service")
	}
	if d.Users == nil {
		missing = append(missing, "user service")
	}
	if len(missing) > 0 {
		return errors.New("router: missing " + strings.Join(missing, ", "))
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()
	r.HandleMethodNotAllowed = true
	if cfg.Server.Uploads.MaxMemory > 0 {
		r.MaxMultipartMemory = cfg.Server.Uploads.MaxMemory
	}

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))

	registerHealthRoutes(r, cfg, deps.Monitoring)
	registerMetricsRoutes(r, cfg, deps.Monitoring)
	registerUploadRoutes(r, cfg, deps.UploadsDir)

	api := r.Group("/api")
	requireAdmin := []gin.HandlerFunc{middleware.Auth(deps.JWT), middleware.RequireAdmin()}

	registerAuthRoutes(api, handlers.NewAuthHandler(deps.Auth), authRateLimit(cfg, deps.RateLimitStore))
	registerUserRoutes(api, handlers.NewUserHandler(deps.Users), requireAdmin)
	registerCategoryRoutes(api, handlers.NewCategoryHandler(deps.Categories), requireAdmin)
	registerProductRoutes(api, handlers.NewProductHandler(deps.Products), requireAdmin)

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}

// withAdmin prepends the admin guard to handler.
func withAdmin(guard []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(guard)+1)
	chain = append(chain, guard...)
	return append(chain, handler)
}
