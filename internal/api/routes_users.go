package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalog/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler, requireAdmin []gin.HandlerFunc) {
	users := api.Group("/users", requireAdmin...)
	{
		users.GET("/all", handler.List)
		users.GET("/:id", handler.Get)
		users.DELETE("/:id", handler.Delete)
	}
}
