package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/middleware"
	"github.com/safar/go-marketplace/internal/store"
)

// createOrderRequest carries client-declared prices for shape validation
// only; the stored product price is always used.
type createOrderRequest struct {
	PaymentMethod string             `json:"payment_method" binding:"required"`
	Address       string             `json:"address" binding:"required"`
	DeclaredTotal *float64           `json:"declared_total" binding:"omitempty,gte=0"`
	Items         []orderItemRequest `json:"items" binding:"dive"`
}

type orderItemRequest struct {
	ProductID         int64    `json:"product_id" binding:"required"`
	Quantity          int      `json:"quantity"`
	DeclaredUnitPrice *float64 `json:"declared_unit_price" binding:"omitempty,gte=0"`
	DeclaredLineTotal *float64 `json:"declared_line_total" binding:"omitempty,gte=0"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	items := make([]store.OrderItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, store.OrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	invoice, err := store.CreateInvoice(c.Request.Context(), h.db, store.CreateInvoiceRequest{
		CustomerID:      middleware.ClaimsFrom(c).UserID,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.Address,
		Items:           items,
	}, h.checkoutOptions())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, invoice)
}

func (h *Handler) MyOrders(c *gin.Context) {
	page, err := store.ListInvoicesCursor(c.Request.Context(), h.db,
		middleware.ClaimsFrom(c).UserID, c.Query("cursor"), queryInt(c, "limit", store.DefaultPageSize))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, page)
}

// GetOrder returns an invoice. Customers only see their own; vendors and
// moderators get the overview.
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	invoice, err := store.GetInvoice(c.Request.Context(), h.db, id)
	if err != nil {
		respondError(c, err)
		return
	}

	claims := middleware.ClaimsFrom(c)
	if invoice.CustomerID != claims.UserID && !claims.Role.CanReadAnyInvoice() {
		respondError(c, database.ErrForbidden)
		return
	}

	respondJSON(c, http.StatusOK, invoice)
}
