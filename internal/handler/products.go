package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-marketplace/internal/middleware"
	"github.com/safar/go-marketplace/internal/store"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	Name        string          `json:"name" binding:"required,max=255"`
	Description string          `json:"description"`
	CategoryID  *int64          `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock_quantity" binding:"gte=0"`
}

type updateProductRequest struct {
	productRequest
	Version int `json:"version" binding:"required,gt=0"`
}

type suspendRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := store.NormalizePage(queryInt(c, "page", 1), queryInt(c, "limit", store.DefaultPageSize))

	result, err := store.ListProducts(c.Request.Context(), h.db, int64(queryInt(c, "vendor_id", 0)), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, result)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	product, err := store.GetProduct(c.Request.Context(), h.db, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, product)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	product, err := store.CreateProduct(c.Request.Context(), h.db, store.CreateProductParams{
		VendorID:    middleware.VendorIDFrom(c),
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	product, err := store.UpdateProduct(c.Request.Context(), h.db, store.UpdateProductParams{
		VendorID:    middleware.VendorIDFrom(c),
		ProductID:   id,
		Version:     req.Version,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, product)
}

func (h *Handler) SuspendProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req suspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	product, err := store.SuspendProduct(c.Request.Context(), h.db, id, middleware.ClaimsFrom(c).UserID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, product)
}

func (h *Handler) UnsuspendProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	product, err := store.UnsuspendProduct(c.Request.Context(), h.db, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, product)
}
