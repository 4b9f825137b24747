package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalog/internal/models"
	"github.com/charlesng35/catalog/pkg/errors"
	"github.com/charlesng35/catalog/pkg/response"
)

var errAdminRequired = errors.ErrForbidden.WithMessage("Admin access required")

// RequireAdmin lets the request through only when Auth stored the ADMIN role.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

// RequireRole checks the role claim of the authenticated user.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(CtxUserIDKey); !ok {
			response.Error(c, errNoToken)
			c.Abort()
			return
		}
		if c.GetString(CtxRoleKey) != string(role) {
			response.Error(c, errAdminRequired)
			c.Abort()
			return
		}
		c.Next()
	}
}
