package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalog/internal/handlers"
)

func registerCategoryRoutes(api *gin.RouterGroup, handler *handlers.CategoryHandler, requireAdmin []gin.HandlerFunc) {
	categories := api.Group("/categories")
	{
		categories.GET("", handler.List)
		categories.GET("/:id", handler.Get)
		categories.POST("", withAdmin(requireAdmin, handler.Create)...)
		categories.PUT("/:id", withAdmin(requireAdmin, handler.Update)...)
		categories.DELETE("/:id", withAdmin(requireAdmin, handler.Delete)...)
	}
}

func registerProductRoutes(api *gin.RouterGroup, handler *handlers.ProductHandler, requireAdmin []gin.HandlerFunc) {
	products := api.Group("/products")
	{
		products.GET("/list", handler.List)
		products.GET("/get/:id", handler.Get)
		products.POST("/add", withAdmin(requireAdmin, handler.Create)...)
		products.PUT("/update/:id", withAdmin(requireAdmin, handler.Update)...)
		products.DELETE("/delete/:id", withAdmin(requireAdmin, handler.Delete)...)
	}
}
