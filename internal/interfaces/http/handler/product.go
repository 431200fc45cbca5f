package handler

import (
	"github.com/gin-gonic/gin"
	appcatalog "github.com/tenantapi/backend/internal/application/catalog"
	"github.com/tenantapi/backend/internal/domain/catalog"
)

// ProductHandler serves the tenant's product catalog
type ProductHandler struct {
	BaseHandler
	productService *appcatalog.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *appcatalog.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// List returns the newest products of the caller's tenant
func (h *ProductHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}

	products, err := h.productService.List(c.Request.Context(), actor, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ToProductResponses(products))
}

// Create adds a product
func (h *ProductHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	product, err := h.productService.Create(c.Request.Context(), actor, appcatalog.CreateProductInput{
		SKU:   req.SKU,
		Name:  req.Name,
		Unit:  req.Unit,
		Price: req.Price,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, ToProductResponse(product))
}

// Update applies a partial update. Products of other tenants are not found.
func (h *ProductHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	product, err := h.productService.Update(c.Request.Context(), actor, c.Param("id"), catalog.ProductUpdate{
		Name:  req.Name,
		Unit:  req.Unit,
		Price: req.Price,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ToProductResponse(product))
}

// Delete soft-deletes a product
func (h *ProductHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
