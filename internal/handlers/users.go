package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalog/internal/middleware"
	"github.com/charlesng35/catalog/internal/services"
	appErrors "github.com/charlesng35/catalog/pkg/errors"
	"github.com/charlesng35/catalog/pkg/response"
)

// UserHandler serves the administrator user endpoints.
type UserHandler struct {
	svc *services.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// List GET /api/users/all
func (h *UserHandler) List(c *gin.Context) {
	users, outcome, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header(CacheHeader, string(outcome))
	c.JSON(http.StatusOK, response.Response{
		Success: true,
		Message: "All registered users",
		Data:    users,
		Meta:    &response.Meta{Total: len(users), Cache: string(outcome)},
	})
}

// Get GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.svc.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// Delete DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if id == middleware.UserID(c) {
		response.Error(c, appErrors.NewBadRequest("You cannot delete your own account"))
		return
	}

	if err := h.svc.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "User deleted successfully")
}
