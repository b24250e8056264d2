package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, vendor_id, category_id, name, description, price, stock_quantity, status,
	suspension_reason, suspended_at, suspended_by, created_at, updated_at, version`

func scanProduct(row interface{ Scan(...any) error }, product *models.Product) error {
	var reason sql.NullString
	err := row.Scan(
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
	product.SuspensionReason = reason.String
	return err
}

type CreateProductParams struct {
	VendorID    int64
	CategoryID  *int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

func CreateProduct(ctx context.Context, db *sql.DB, p CreateProductParams) (*models.Product, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name", database.ErrMissingField)
	}
	if p.Price.IsNegative() || p.Stock < 0 {
		return nil, fmt.Errorf("%w: price and stock must not be negative", database.ErrInvalidQuantity)
	}

	product := &models.Product{}

	query := `
		INSERT INTO products (vendor_id, category_id, name, description, price, stock_quantity, status, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query, p.VendorID, p.CategoryID, p.Name, p.Description, p.Price, p.Stock, models.ProductStatusActive)
	if err := scanProduct(row, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	if err := scanProduct(db.QueryRowContext(ctx, query, id), product); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

type UpdateProductParams struct {
	VendorID    int64
	ProductID   int64
	Version     int
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// UpdateProduct edits a vendor's own product. The caller's version must
// match the stored one.
func UpdateProduct(ctx context.Context, db *sql.DB, p UpdateProductParams) (*models.Product, error) {
	if p.Price.IsNegative() || p.Stock < 0 {
		return nil, fmt.Errorf("%w: price and stock must not be negative", database.ErrInvalidQuantity)
	}

	current, err := GetProduct(ctx, db, p.ProductID)
	if err != nil {
		return nil, err
	}
	if current.VendorID != p.VendorID {
		return nil, database.ErrProductNotFound
	}
	if current.Status == models.ProductStatusSuspended {
		return nil, database.ErrProductSuspended
	}

	product := &models.Product{}
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock_quantity = $4,
		    version = version + 1, updated_at = NOW()
		WHERE id = $5 AND vendor_id = $6 AND version = $7 AND status = $8
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query,
		p.Name, p.Description, p.Price, p.Stock,
		p.ProductID, p.VendorID, p.Version, models.ProductStatusActive)
	if err := scanProduct(row, product); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func SuspendProduct(ctx context.Context, db *sql.DB, productID, moderatorID int64, reason string) (*models.Product, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: reason", database.ErrMissingField)
	}

	product := &models.Product{}
	query := `
		UPDATE products
		SET status = $1, suspension_reason = $2, suspended_at = NOW(), suspended_by = $3,
		    version = version + 1, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query, models.ProductStatusSuspended, reason, moderatorID, productID)
	if err := scanProduct(row, product); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("suspend product: %w", err)
	}

	return product, nil
}

func UnsuspendProduct(ctx context.Context, db *sql.DB, productID int64) (*models.Product, error) {
	product := &models.Product{}
	query := `
		UPDATE products
		SET status = $1, suspension_reason = NULL, suspended_at = NULL, suspended_by = NULL,
		    version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query, models.ProductStatusActive, productID)
	if err := scanProduct(row, product); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("unsuspend product: %w", err)
	}

	return product, nil
}

// ListProducts pages through the catalog. A zero vendorID lists every vendor.
func ListProducts(ctx context.Context, db *sql.DB, vendorID int64, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE ($1::bigint = 0 OR vendor_id = $1)`, vendorID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1::bigint = 0 OR vendor_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.QueryContext(ctx, query, vendorID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}

// orderLock is what the inventory guard learned about a product while
// holding its row lock.
type orderLock struct {
	ProductID int64
	VendorID  int64
	Name      string
	UnitPrice decimal.Decimal
}

// lockProductForOrder locks the product row until tx ends, checks that it
// can be sold in the requested quantity and takes the stock.
func lockProductForOrder(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (*orderLock, error) {
	var (
		lock         orderLock
		stock        int
		status       models.ProductStatus
		vendorStatus models.VendorStatus
	)

	err := tx.QueryRowContext(ctx,
		`SELECT p.id, p.vendor_id, p.name, p.price, p.stock_quantity, p.status, v.status
		 FROM products p
		 JOIN vendors v ON v.id = p.vendor_id
		 WHERE p.id = $1
		 FOR UPDATE OF p`,
		productID).Scan(&lock.ProductID, &lock.VendorID, &lock.Name, &lock.UnitPrice, &stock, &status, &vendorStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: product %d", database.ErrUnknownProduct, productID)
		}
		return nil, fmt.Errorf("lock product %d: %w", productID, err)
	}

	if vendorStatus != models.VendorStatusApproved {
		return nil, fmt.Errorf("%w: product %q", database.ErrVendorNotAcceptingOrders, lock.Name)
	}
	if status == models.ProductStatusSuspended {
		return nil, fmt.Errorf("%w: product %q", database.ErrProductUnavailable, lock.Name)
	}
	if stock < quantity {
		return nil, fmt.Errorf("%w: product %q requested %d, available %d",
			database.ErrInsufficientStock, lock.Name, quantity, stock)
	}

	if err := DecrementStock(ctx, tx, productID, quantity); err != nil {
		return nil, err
	}

	return &lock, nil
}

func DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

func countVendorProducts(ctx context.Context, db *sql.DB, vendorID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE vendor_id = $1`, vendorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count vendor products: %w", err)
	}
	return n, nil
}
