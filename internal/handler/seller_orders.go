package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-marketplace/internal/middleware"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
)

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,substatus"`
	Note   string `json:"note" binding:"max=1000"`
}

func (h *Handler) ListSellerOrders(c *gin.Context) {
	page, err := store.ListSubOrders(c.Request.Context(), h.db, store.SubOrderFilter{
		VendorID: middleware.VendorIDFrom(c),
		Status:   c.Query("status"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", store.DefaultPageSize),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, page)
}

func (h *Handler) SellerStats(c *gin.Context) {
	stats, err := store.GetVendorStats(c.Request.Context(), h.db, middleware.VendorIDFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, stats)
}

func (h *Handler) GetSellerOrder(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	so, err := store.GetSubOrder(c.Request.Context(), h.db, middleware.VendorIDFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, so)
}

func (h *Handler) UpdateSellerOrderStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	so, err := store.TransitionSubOrder(c.Request.Context(), h.db, store.TransitionRequest{
		VendorID:        middleware.VendorIDFrom(c),
		SubOrderID:      id,
		Status:          models.SubOrderStatus(req.Status),
		Note:            req.Note,
		RestockOnCancel: h.checkout.RestockOnCancel,
		MaxRetries:      h.checkout.MaxRetries,
		LockTimeout:     h.checkout.LockTimeout,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, so)
}
