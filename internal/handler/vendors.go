package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-marketplace/internal/middleware"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
)

type vendorProfileRequest struct {
	ShopName        string `json:"shop_name" binding:"max=255"`
	BusinessType    string `json:"business_type" binding:"required,oneof=individual business"`
	CategoryID      *int64 `json:"category_id"`
	BusinessAddress string `json:"business_address" binding:"required"`
	ContactEmail    string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone    string `json:"contact_phone" binding:"required"`
}

func (r vendorProfileRequest) params(userID int64) store.VendorProfileParams {
	return store.VendorProfileParams{
		UserID:          userID,
		ShopName:        r.ShopName,
		BusinessType:    models.BusinessType(r.BusinessType),
		CategoryID:      r.CategoryID,
		BusinessAddress: r.BusinessAddress,
		ContactEmail:    r.ContactEmail,
		ContactPhone:    r.ContactPhone,
	}
}

// ApplyVendor turns the caller into an approved seller.
func (h *Handler) ApplyVendor(c *gin.Context) {
	var req vendorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	userID := middleware.ClaimsFrom(c).UserID
	vendor, err := store.ApplyVendor(c.Request.Context(), h.db, req.params(userID))
	if err != nil {
		respondError(c, err)
		return
	}
	h.vendors.Forget(c.Request.Context(), userID)

	respondJSON(c, http.StatusCreated, vendor)
}

func (h *Handler) MyVendorProfile(c *gin.Context) {
	vendor, err := store.GetVendorByUser(c.Request.Context(), h.db, middleware.ClaimsFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, vendor)
}

func (h *Handler) UpdateMyVendorProfile(c *gin.Context) {
	var req vendorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	vendor, err := store.UpdateVendorProfile(c.Request.Context(), h.db, req.params(middleware.ClaimsFrom(c).UserID))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, vendor)
}
