package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/charlesng35/catalog/internal/services"
	appErrors "github.com/charlesng35/catalog/pkg/errors"
	"github.com/charlesng35/catalog/pkg/response"
)

// ProductHandler serves the product endpoints.
type ProductHandler struct {
	svc *services.ProductService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(svc *services.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

type createProductRequest struct {
	CategoryID     uint     `form:"categoryId" json:"categoryId" validate:"required,gt=0"`
	Name           string   `form:"name" json:"name" validate:"required,min=3,max=100"`
	SubName        string   `form:"subName" json:"subName" validate:"required,min=3,max=100"`
	Code           string   `form:"code" json:"code" validate:"required,productcode"`
	CoverDesc      string   `form:"coverDesc" json:"coverDesc" validate:"required,max=300"`
	MainDesc       string   `form:"mainDesc" json:"mainDesc" validate:"required,max=1000"`
	KeyFeatures    []string `form:"-" json:"keyFeatures" validate:"required,min=2,dive,min=2,max=500"`
	SmartIconsText []string `form:"-" json:"smartIconsText" validate:"required,min=2,max=7,dive,min=1,max=50"`
}

func (r *createProductRequest) lists() (*[]string, *[]string) {
	return &r.KeyFeatures, &r.SmartIconsText
}

type updateProductRequest struct {
	CategoryID     *uint    `form:"categoryId" json:"categoryId" validate:"omitempty,gt=0"`
	Name           *string  `form:"name" json:"name" validate:"omitempty,min=3,max=100"`
	SubName        *string  `form:"subName" json:"subName" validate:"omitempty,min=3,max=100"`
	Code           *string  `form:"code" json:"code" validate:"omitempty,productcode"`
	CoverDesc      *string  `form:"coverDesc" json:"coverDesc" validate:"omitempty,max=300"`
	MainDesc       *string  `form:"mainDesc" json:"mainDesc" validate:"omitempty,max=1000"`
	KeyFeatures    []string `form:"-" json:"keyFeatures" validate:"omitempty,min=2,dive,min=2,max=500"`
	SmartIconsText []string `form:"-" json:"smartIconsText" validate:"omitempty,min=2,max=7,dive,min=1,max=50"`
}

func (r *updateProductRequest) lists() (*[]string, *[]string) {
	return &r.KeyFeatures, &r.SmartIconsText
}

type productForm interface {
	lists() (keyFeatures, smartIconsText *[]string)
}

// List GET /api/products/list
func (h *ProductHandler) List(c *gin.Context) {
	products, outcome, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, products, len(products), outcome)
}

// Get GET /api/products/get/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.svc.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// Create POST /api/products/add
func (h *ProductHandler) Create(c *gin.Context) {
	uploads, err := readUploads(c, productFileFields)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req createProductRequest
	if !bindProductForm(c, &req) {
		return
	}

	product, err := h.svc.Create(requestContext(c), services.CreateProductInput{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		SubName:     req.SubName,
		Code:        req.Code,
		CoverDesc:   req.CoverDesc,
		MainDesc:    req.MainDesc,
		KeyFeatures: req.KeyFeatures,
		Media:       mediaInput(uploads, req.SmartIconsText),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Success: true,
		Message: "Product created successfully",
		Data:    product,
	})
}

// Update PUT /api/products/update/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	uploads, err := readUploads(c, productFileFields)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req updateProductRequest
	if !bindProductForm(c, &req) {
		return
	}

	product, err := h.svc.Update(requestContext(c), id, services.UpdateProductInput{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		SubName:     req.SubName,
		Code:        req.Code,
		CoverDesc:   req.CoverDesc,
		MainDesc:    req.MainDesc,
		KeyFeatures: req.KeyFeatures,
		Media:       mediaInput(uploads, req.SmartIconsText),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Success: true,
		Message: "Product updated successfully",
		Data:    product,
	})
}

// Delete DELETE /api/products/delete/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Product and all related images deleted successfully")
}

// bindProductForm binds scalar fields, then reads the list fields from the form
// unless the body was JSON, and validates the result.
func bindProductForm[T productForm](c *gin.Context, req T) bool {
	if err := c.ShouldBind(req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid form payload"))
		return false
	}

	if c.ContentType() != binding.MIMEJSON {
		features, texts := req.lists()
		for key, dest := range map[string]*[]string{"keyFeatures": features, "smartIconsText": texts} {
			items, present, err := parseList(c, key)
			if err != nil {
				response.Error(c, appErrors.NewBadRequest(err.Error()))
				return false
			}
			if present {
				*dest = items
			}
		}
	}

	return validatePayload(c, req)
}

func mediaInput(uploads map[string][]services.Upload, smartIconsText []string) services.ProductMediaInput {
	return services.ProductMediaInput{
		Cover:          uploads["cover"],
		Gallery:        uploads["gallery"],
		SmartIcons:     uploads["smartIcons"],
		SmartIconsText: smartIconsText,
	}
}
