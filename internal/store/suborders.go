package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/logger"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const subOrderColumns = `id, invoice_id, vendor_id, status, sub_total, note, updated_at`

func scanSubOrder(row interface{ Scan(...any) error }, so *models.SubOrder) error {
	var note sql.NullString
	err := row.Scan(
		&so.ID,
		&so.InvoiceID,
		&so.VendorID,
		&so.Status,
		&so.SubTotal,
		&note,
		&so.UpdatedAt,
	)
	so.Note = note.String
	return err
}

// SubOrderFilter selects a vendor's sub-orders. An empty Status or "all"
// disables the status filter.
type SubOrderFilter struct {
	VendorID int64
	Status   string
	Page     int
	PageSize int
}

func ListSubOrders(ctx context.Context, db *sql.DB, f SubOrderFilter) (*OffsetPage, error) {
	status := f.Status
	if status == "all" {
		status = ""
	}
	if status != "" && !models.SubOrderStatus(status).IsValid() {
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidStatus, status)
	}
	page, pageSize := NormalizePage(f.Page, f.PageSize)

	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sub_orders WHERE vendor_id = $1 AND ($2::text = '' OR status = $2)`,
		f.VendorID, status).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count sub-orders: %w", err)
	}

	query := `
		SELECT ` + subOrderColumns + `
		FROM sub_orders
		WHERE vendor_id = $1 AND ($2::text = '' OR status = $2)
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`

	rows, err := db.QueryContext(ctx, query, f.VendorID, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list sub-orders: %w", err)
	}
	defer rows.Close()

	subOrders := []models.SubOrder{}
	for rows.Next() {
		var so models.SubOrder
		if err := scanSubOrder(rows, &so); err != nil {
			return nil, fmt.Errorf("scan sub-order: %w", err)
		}
		subOrders = append(subOrders, so)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := attachVendorInvoices(ctx, db, f.VendorID, subOrders); err != nil {
		return nil, err
	}

	return newOffsetPage(subOrders, total, page, pageSize), nil
}

// GetSubOrder returns a sub-order owned by vendorID with its invoice, the
// customer and only this vendor's line items.
func GetSubOrder(ctx context.Context, db *sql.DB, vendorID, id int64) (*models.SubOrder, error) {
	so := &models.SubOrder{}

	query := `SELECT ` + subOrderColumns + ` FROM sub_orders WHERE id = $1 AND vendor_id = $2`

	if err := scanSubOrder(db.QueryRowContext(ctx, query, id, vendorID), so); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSubOrderNotFound
		}
		return nil, fmt.Errorf("get sub-order: %w", err)
	}

	subOrders := []models.SubOrder{*so}
	if err := attachVendorInvoices(ctx, db, vendorID, subOrders); err != nil {
		return nil, err
	}

	return &subOrders[0], nil
}

func attachVendorInvoices(ctx context.Context, db *sql.DB, vendorID int64, subOrders []models.SubOrder) error {
	if len(subOrders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(subOrders))
	for _, so := range subOrders {
		ids = append(ids, so.InvoiceID)
	}

	invoices, err := loadInvoiceHeaders(ctx, db, ids)
	if err != nil {
		return err
	}
	if err := composeInvoices(ctx, db, invoices, vendorID, false); err != nil {
		return err
	}

	for i := range subOrders {
		subOrders[i].Invoice = invoices[subOrders[i].InvoiceID]
	}
	return nil
}

func loadSubOrdersByInvoice(ctx context.Context, db *sql.DB, invoiceIDs []int64) ([]models.SubOrder, error) {
	query := `
		SELECT ` + subOrderColumns + `
		FROM sub_orders
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, id`

	rows, err := db.QueryContext(ctx, query, pq.Array(invoiceIDs))
	if err != nil {
		return nil, fmt.Errorf("get sub-orders: %w", err)
	}
	defer rows.Close()

	var subOrders []models.SubOrder
	for rows.Next() {
		var so models.SubOrder
		if err := scanSubOrder(rows, &so); err != nil {
			return nil, fmt.Errorf("scan sub-order: %w", err)
		}
		subOrders = append(subOrders, so)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return subOrders, nil
}

type TransitionRequest struct {
	VendorID        int64
	SubOrderID      int64
	Status          models.SubOrderStatus
	Note            string
	RestockOnCancel bool
	MaxRetries      int
	LockTimeout     time.Duration
}

// TransitionSubOrder moves one sub-order along the status graph. Sibling
// sub-orders of the same invoice are never read or written.
func TransitionSubOrder(ctx context.Context, db *sql.DB, req TransitionRequest) (*models.SubOrder, error) {
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidStatus, req.Status)
	}

	var from models.SubOrderStatus

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     req.MaxRetries,
		LockTimeout:    req.LockTimeout,
	}, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM sub_orders WHERE id = $1 AND vendor_id = $2 FOR UPDATE`,
			req.SubOrderID, req.VendorID).Scan(&from)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrSubOrderNotFound
			}
			return fmt.Errorf("lock sub-order: %w", err)
		}

		if !from.CanTransitionTo(req.Status) {
			return fmt.Errorf("%w: cannot move from %s to %s", database.ErrInvalidTransition, from, req.Status)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE sub_orders
			 SET status = $1, note = COALESCE(NULLIF($2, ''), note), updated_at = NOW()
			 WHERE id = $3`,
			req.Status, req.Note, req.SubOrderID)
		if err != nil {
			return fmt.Errorf("update sub-order status: %w", err)
		}

		if req.Status == models.SubOrderCancelled && req.RestockOnCancel {
			if err := restockSubOrder(ctx, tx, req.SubOrderID, req.VendorID); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("sub-order status changed",
		zap.Int64("sub_order_id", req.SubOrderID),
		zap.Int64("vendor_id", req.VendorID),
		zap.String("from", from.String()),
		zap.String("to", req.Status.String()),
	)

	return GetSubOrder(ctx, db, req.VendorID, req.SubOrderID)
}

// restockSubOrder returns the quantities of this vendor's lines on the
// sub-order's invoice to stock.
func restockSubOrder(ctx context.Context, tx *sql.Tx, subOrderID, vendorID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE products p
		 SET stock_quantity = p.stock_quantity + q.quantity,
		     version = p.version + 1,
		     updated_at = NOW()
		 FROM (
		     SELECT it.product_id, SUM(it.quantity) AS quantity
		     FROM invoice_items it
		     JOIN sub_orders so ON so.invoice_id = it.invoice_id
		     WHERE so.id = $1
		     GROUP BY it.product_id
		 ) q
		 WHERE p.id = q.product_id AND p.vendor_id = $2`,
		subOrderID, vendorID)
	if err != nil {
		return fmt.Errorf("restock sub-order: %w", err)
	}
	return nil
}

// GetVendorStats aggregates a vendor's sub-orders by status.
func GetVendorStats(ctx context.Context, db *sql.DB, vendorID int64) (*models.VendorStats, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(sub_total), 0)
		 FROM sub_orders
		 WHERE vendor_id = $1
		 GROUP BY status`,
		vendorID)
	if err != nil {
		return nil, fmt.Errorf("vendor stats: %w", err)
	}
	defer rows.Close()

	stats := &models.VendorStats{TotalRevenue: decimal.Zero}
	for rows.Next() {
		var (
			status models.SubOrderStatus
			count  int
			sum    decimal.Decimal
		)
		if err := rows.Scan(&status, &count, &sum); err != nil {
			return nil, fmt.Errorf("scan vendor stats: %w", err)
		}

		stats.TotalOrders += count
		switch status {
		case models.SubOrderPlaced:
			stats.PlacedOrders = count
		case models.SubOrderProcessing:
			stats.ProcessingOrders = count
		case models.SubOrderShipping:
			stats.ShippingOrders = count
		case models.SubOrderDelivered:
			stats.DeliveredOrders = count
			stats.TotalRevenue = sum
		case models.SubOrderCancelled:
			stats.CancelledOrders = count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	stats.NewOrders = stats.PlacedOrders + stats.ProcessingOrders

	stats.TotalProducts, err = countVendorProducts(ctx, db, vendorID)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
