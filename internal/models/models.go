package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Vendor struct {
	ID              int64        `json:"id"`
	UserID          int64        `json:"user_id"`
	ShopName        string       `json:"shop_name,omitempty"`
	BusinessType    BusinessType `json:"business_type"`
	Status          VendorStatus `json:"status"`
	CategoryID      *int64       `json:"category_id,omitempty"`
	BusinessAddress string       `json:"business_address"`
	ContactEmail    string       `json:"contact_email,omitempty"`
	ContactPhone    string       `json:"contact_phone"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	ApprovedAt      *time.Time   `json:"approved_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type Product struct {
	ID               int64           `json:"id"`
	VendorID         int64           `json:"vendor_id"`
	CategoryID       *int64          `json:"category_id,omitempty"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	StockQuantity    int             `json:"stock_quantity"`
	Status           ProductStatus   `json:"status"`
	SuspensionReason string          `json:"suspension_reason,omitempty"`
	SuspendedAt      *time.Time      `json:"suspended_at,omitempty"`
	SuspendedBy      *int64          `json:"suspended_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// Invoice is the master record of one checkout across all vendors.
type Invoice struct {
	ID              int64           `json:"id"`
	InvoiceNumber   string          `json:"invoice_number"`
	CustomerID      int64           `json:"customer_id"`
	Customer        *User           `json:"customer,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress string          `json:"shipping_address"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []LineItem      `json:"items"`
	SubOrders       []SubOrder      `json:"sub_orders,omitempty"`
}

type LineItem struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoice_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
	Product   *Product        `json:"product,omitempty"`
}

// SubOrder is the per-vendor slice of an invoice and the unit of fulfilment.
type SubOrder struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoice_id"`
	VendorID  int64           `json:"vendor_id"`
	Status    SubOrderStatus  `json:"status"`
	SubTotal  decimal.Decimal `json:"sub_total"`
	Note      string          `json:"note,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
	Invoice   *Invoice        `json:"invoice,omitempty"`
}

type VendorStats struct {
	TotalOrders      int             `json:"total_orders"`
	PlacedOrders     int             `json:"placed_orders"`
	ProcessingOrders int             `json:"processing_orders"`
	ShippingOrders   int             `json:"shipping_orders"`
	DeliveredOrders  int             `json:"delivered_orders"`
	CancelledOrders  int             `json:"cancelled_orders"`
	NewOrders        int             `json:"new_orders"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalProducts    int             `json:"total_products"`
}

const InvoiceStatusPlaced = "placed"

type VendorStatus string

const (
	VendorStatusPending  VendorStatus = "pending"
	VendorStatusApproved VendorStatus = "approved"
	VendorStatusRejected VendorStatus = "rejected"
)

type BusinessType string

const (
	BusinessTypeIndividual BusinessType = "individual"
	BusinessTypeBusiness   BusinessType = "business"
)

type ProductStatus string

const (
	ProductStatusActive    ProductStatus = "active"
	ProductStatusSuspended ProductStatus = "suspended"
)
