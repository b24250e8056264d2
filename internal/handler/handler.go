package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-marketplace/internal/cache"
	"github.com/safar/go-marketplace/internal/config"
	"github.com/safar/go-marketplace/internal/middleware"
	"github.com/safar/go-marketplace/internal/store"
)

type Handler struct {
	db       *sql.DB
	vendors  *VendorResolver
	checkout config.CheckoutConfig
}

func New(db *sql.DB, vendorCache cache.VendorCache, checkout config.CheckoutConfig) *Handler {
	return &Handler{
		db:       db,
		vendors:  &VendorResolver{db: db, cache: vendorCache},
		checkout: checkout,
	}
}

// Vendors is the resolver used by middleware.RequireApprovedVendor.
func (h *Handler) Vendors() *VendorResolver {
	return h.vendors
}

func (h *Handler) checkoutOptions() store.CheckoutOptions {
	return store.CheckoutOptions{
		MaxRetries:  h.checkout.MaxRetries,
		LockTimeout: h.checkout.LockTimeout,
	}
}

// VendorResolver looks up approved vendor ids through the vendor cache.
type VendorResolver struct {
	db    *sql.DB
	cache cache.VendorCache
}

func (r *VendorResolver) VendorID(ctx context.Context, userID int64) (int64, error) {
	if id, ok := r.cache.Get(ctx, userID); ok {
		return id, nil
	}

	id, err := store.GetApprovedVendorID(ctx, r.db, userID)
	if err != nil {
		return 0, err
	}

	r.cache.Set(ctx, userID, id)
	return id, nil
}

func (r *VendorResolver) Forget(ctx context.Context, userID int64) {
	r.cache.Delete(ctx, userID)
}

func respondJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id", "code": "VALIDATION_ERROR"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
