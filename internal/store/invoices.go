package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/idgen"
	"github.com/safar/go-marketplace/internal/logger"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateInvoiceRequest struct {
	CustomerID      int64
	PaymentMethod   string
	ShippingAddress string
	Items           []OrderItemRequest
}

// OrderItemRequest is one claimed cart line. Prices are never taken from
// the client.
type OrderItemRequest struct {
	ProductID int64
	Quantity  int
}

func (r CreateInvoiceRequest) Validate() error {
	if len(r.Items) == 0 {
		return database.ErrEmptyCart
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		return fmt.Errorf("%w: payment_method", database.ErrMissingField)
	}
	if strings.TrimSpace(r.ShippingAddress) == "" {
		return fmt.Errorf("%w: address", database.ErrMissingField)
	}
	for _, item := range r.Items {
		if item.ProductID <= 0 {
			return fmt.Errorf("%w: product_id", database.ErrMissingField)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: product %d quantity %d", database.ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
	}
	return nil
}

type CheckoutOptions struct {
	MaxRetries  int
	LockTimeout time.Duration
}

// CreateInvoice places one order across any number of vendors. Everything
// happens in one transaction: the master invoice, every line item, one
// sub-order per vendor and the stock decrements either all commit or none do.
func CreateInvoice(ctx context.Context, db *sql.DB, req CreateInvoiceRequest, opts CheckoutOptions) (*models.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var invoiceID int64

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     opts.MaxRetries,
		LockTimeout:    opts.LockTimeout,
	}, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
			req.CustomerID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check customer exists: %w", err)
		}
		if !exists {
			return database.ErrUserNotFound
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO invoices (invoice_number, customer_id, total_amount, payment_method, shipping_address, status, created_at)
			 VALUES ($1, $2, 0, $3, $4, $5, NOW())
			 RETURNING id`,
			idgen.InvoiceNumber(), req.CustomerID, req.PaymentMethod, req.ShippingAddress, models.InvoiceStatusPlaced).Scan(&invoiceID)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		totals := newVendorTotals()
		for _, item := range lockOrder(req.Items) {
			lock, err := lockProductForOrder(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}

			lineTotal := lock.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

			_, err = tx.ExecContext(ctx,
				`INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price, line_total, created_at)
				 VALUES ($1, $2, $3, $4, $5, NOW())`,
				invoiceID, item.ProductID, item.Quantity, lock.UnitPrice, lineTotal)
			if err != nil {
				return fmt.Errorf("create invoice item: %w", err)
			}

			totals.Add(lock.VendorID, lineTotal)
		}

		for _, vendorID := range totals.Vendors() {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO sub_orders (invoice_id, vendor_id, status, sub_total, updated_at)
				 VALUES ($1, $2, $3, $4, NOW())`,
				invoiceID, vendorID, models.SubOrderPlaced, totals.Subtotal(vendorID))
			if err != nil {
				return fmt.Errorf("create sub-order for vendor %d: %w", vendorID, err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE invoices SET total_amount = $1 WHERE id = $2`,
			totals.Sum(), invoiceID)
		if err != nil {
			return fmt.Errorf("update invoice total: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("invoice created",
		zap.Int64("invoice_id", invoiceID),
		zap.Int64("customer_id", req.CustomerID),
		zap.Int("lines", len(req.Items)),
	)

	return GetInvoice(ctx, db, invoiceID)
}

// GetInvoice returns the invoice with its customer, line items (with
// products) and sub-orders.
func GetInvoice(ctx context.Context, db *sql.DB, id int64) (*models.Invoice, error) {
	headers, err := loadInvoiceHeaders(ctx, db, []int64{id})
	if err != nil {
		return nil, err
	}
	invoice, ok := headers[id]
	if !ok {
		return nil, database.ErrInvoiceNotFound
	}

	if err := composeInvoices(ctx, db, headers, 0, true); err != nil {
		return nil, err
	}

	return invoice, nil
}

// ListInvoicesCursor lists a customer's invoices newest first.
func ListInvoicesCursor(ctx context.Context, db *sql.DB, customerID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: cursor", database.ErrMissingField)
	}
	_, limit = NormalizePage(1, limit)

	query := `
		SELECT id
		FROM invoices
		WHERE customer_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, customerID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan invoice id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(ids) > limit
	if hasMore {
		ids = ids[:limit]
	}

	invoices := []models.Invoice{}
	if len(ids) > 0 {
		headers, err := loadInvoiceHeaders(ctx, db, ids)
		if err != nil {
			return nil, err
		}
		if err := composeInvoices(ctx, db, headers, 0, true); err != nil {
			return nil, err
		}
		for _, id := range ids {
			if inv, ok := headers[id]; ok {
				invoices = append(invoices, *inv)
			}
		}
	}

	var nextCursor string
	if hasMore && len(invoices) > 0 {
		last := invoices[len(invoices)-1]
		nextCursor = EncodeCursor(InvoiceCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &CursorPage{
		Items:      invoices,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func loadInvoiceHeaders(ctx context.Context, db *sql.DB, ids []int64) (map[int64]*models.Invoice, error) {
	query := `
		SELECT i.id, i.invoice_number, i.customer_id, i.total_amount, i.payment_method,
		       i.shipping_address, i.status, i.created_at,
		       ` + qualify("u", userColumns) + `
		FROM invoices i
		JOIN users u ON u.id = i.customer_id
		WHERE i.id = ANY($1)`

	rows, err := db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get invoices: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*models.Invoice, len(ids))
	for rows.Next() {
		inv := &models.Invoice{Customer: &models.User{}, Items: []models.LineItem{}}
		c := inv.Customer
		err := rows.Scan(
			&inv.ID,
			&inv.InvoiceNumber,
			&inv.CustomerID,
			&inv.TotalAmount,
			&inv.PaymentMethod,
			&inv.ShippingAddress,
			&inv.Status,
			&inv.CreatedAt,
			&c.ID, &c.Email, &c.Name, &c.Role, &c.CreatedAt, &c.UpdatedAt, &c.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out[inv.ID] = inv
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// composeInvoices attaches line items and optionally sub-orders. A non-zero
// vendorID restricts line items to that vendor's products.
func composeInvoices(ctx context.Context, db *sql.DB, invoices map[int64]*models.Invoice, vendorID int64, withSubOrders bool) error {
	if len(invoices) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(invoices))
	for id := range invoices {
		ids = append(ids, id)
	}

	items, err := loadLineItems(ctx, db, ids, vendorID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if inv, ok := invoices[item.InvoiceID]; ok {
			inv.Items = append(inv.Items, item)
		}
	}

	if !withSubOrders {
		return nil
	}

	subOrders, err := loadSubOrdersByInvoice(ctx, db, ids)
	if err != nil {
		return err
	}
	for _, so := range subOrders {
		if inv, ok := invoices[so.InvoiceID]; ok {
			inv.SubOrders = append(inv.SubOrders, so)
		}
	}

	return nil
}

func loadLineItems(ctx context.Context, db *sql.DB, invoiceIDs []int64, vendorID int64) ([]models.LineItem, error) {
	query := `
		SELECT it.id, it.invoice_id, it.product_id, it.quantity, it.unit_price, it.line_total, it.created_at,
		       ` + qualify("p", productColumns) + `
		FROM invoice_items it
		JOIN products p ON p.id = it.product_id
		WHERE it.invoice_id = ANY($1)
		  AND ($2::bigint = 0 OR p.vendor_id = $2)
		ORDER BY it.invoice_id, it.id`

	rows, err := db.QueryContext(ctx, query, pq.Array(invoiceIDs), vendorID)
	if err != nil {
		return nil, fmt.Errorf("get invoice items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		product := &models.Product{}
		var reason sql.NullString
		err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
			&item.CreatedAt,
			&product.ID,
			&product.VendorID,
			&product.CategoryID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.StockQuantity,
			&product.Status,
			&reason,
			&product.SuspendedAt,
			&product.SuspendedBy,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		product.SuspensionReason = reason.String
		item.Product = product
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// qualify prefixes every column in a comma separated list with alias.
func qualify(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
