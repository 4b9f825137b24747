package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalog/internal/app"
	"github.com/charlesng35/catalog/internal/cache"
	"github.com/charlesng35/catalog/internal/handlers"
	"github.com/charlesng35/catalog/internal/middleware"
)

func registerAuthRoutes(api *gin.RouterGroup, handler *handlers.AuthHandler, limiter gin.HandlerFunc) {
	auth := api.Group("/auth")

	limited := auth.Group("")
	if limiter != nil {
		limited.Use(limiter)
	}
	{
		limited.POST("/register", handler.Register)
		limited.POST("/login", handler.Login)
		limited.POST("/forgot-password", handler.ForgotPassword)
		limited.POST("/verify-otp", handler.VerifyOTP)
	}

	auth.POST("/reset-password/:token", handler.ResetPassword)
}

func authRateLimit(cfg *app.Config, store cache.Counter) gin.HandlerFunc {
	if store == nil || !cfg.Auth.RateLimit.Enabled {
		return nil
	}
	requests, window := cfg.Auth.RateLimitWindow()
	return middleware.RateLimit(store, requests, window)
}
