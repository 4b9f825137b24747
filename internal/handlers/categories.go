package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalog/internal/cache"
	"github.com/charlesng35/catalog/internal/services"
	appErrors "github.com/charlesng35/catalog/pkg/errors"
	"github.com/charlesng35/catalog/pkg/response"
)

// CacheHeader reports how a list response was served.
const CacheHeader = "X-Cache"

// CategoryHandler serves the category endpoints.
type CategoryHandler struct {
	svc *services.CategoryService
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(svc *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

type createCategoryRequest struct {
	Name string `form:"name" json:"name" validate:"required,min=3,max=50"`
}

type updateCategoryRequest struct {
	Name *string `form:"name" json:"name" validate:"omitempty,min=3,max=50"`
}

// List GET /api/categories
func (h *CategoryHandler) List(c *gin.Context) {
	categories, outcome, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, categories, len(categories), outcome)
}

// Get GET /api/categories/:id
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	category, err := h.svc.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// Create POST /api/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	uploads, err := readUploads(c, categoryFileFields)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req createCategoryRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid form payload"))
		return
	}
	if !validatePayload(c, &req) {
		return
	}

	category, err := h.svc.Create(requestContext(c), services.CreateCategoryInput{
		Name:   req.Name,
		Banner: firstUpload(uploads, "banner"),
		Icon:   firstUpload(uploads, "icon"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, category)
}

// Update PUT /api/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	uploads, err := readUploads(c, categoryFileFields)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req updateCategoryRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid form payload"))
		return
	}
	if !validatePayload(c, &req) {
		return
	}

	category, err := h.svc.Update(requestContext(c), id, services.UpdateCategoryInput{
		Name:   req.Name,
		Banner: firstUpload(uploads, "banner"),
		Icon:   firstUpload(uploads, "icon"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// Delete DELETE /api/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(requestContext(c), id); err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			err = services.ErrCategoryNotFound.WithMessage(fmt.Sprintf("Category with id %d not found", id))
		}
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, fmt.Sprintf("Category with id %d deleted successfully", id))
}

// writeList renders a cached collection with its cache outcome in both the header and meta.
func writeList(c *gin.Context, data any, total int, outcome cache.Outcome) {
	c.Header(CacheHeader, string(outcome))
	response.SuccessWithMeta(c, http.StatusOK, data, &response.Meta{Total: total, Cache: string(outcome)})
}
