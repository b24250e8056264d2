package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productRow(id, vendorID int64, status string, version int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(productCols).
		AddRow(id, vendorID, nil, "Lamp", "desk lamp", "100.00", 10, status, nil, nil, nil, now, now, version)
}

func TestUpdateProductVersionConflict(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM products WHERE id`).WithArgs(int64(1)).
		WillReturnRows(productRow(1, 100, "active", 3))
	mock.ExpectQuery(`UPDATE products`).
		WithArgs("Lamp", "desk lamp", amount("120"), int64(5), int64(1), int64(100), int64(2), "active").
		WillReturnError(sql.ErrNoRows)

	_, err := UpdateProduct(context.Background(), db, UpdateProductParams{
		VendorID:    100,
		ProductID:   1,
		Version:     2,
		Name:        "Lamp",
		Description: "desk lamp",
		Price:       decimal.NewFromInt(120),
		Stock:       5,
	})

	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductOwnership(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM products WHERE id`).
		WillReturnRows(productRow(1, 100, "active", 1))

	_, err := UpdateProduct(context.Background(), db, UpdateProductParams{
		VendorID:  200,
		ProductID: 1,
		Version:   1,
		Name:      "Lamp",
		Price:     decimal.NewFromInt(1),
	})

	assert.ErrorIs(t, err, database.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductSuspended(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM products WHERE id`).
		WillReturnRows(productRow(1, 100, "suspended", 1))

	_, err := UpdateProduct(context.Background(), db, UpdateProductParams{
		VendorID:  100,
		ProductID: 1,
		Version:   1,
		Name:      "Lamp",
		Price:     decimal.NewFromInt(1),
	})

	assert.ErrorIs(t, err, database.ErrProductSuspended)
}

func TestSuspendProduct(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`UPDATE products`).
		WithArgs("suspended", "counterfeit", int64(9), int64(1)).
		WillReturnRows(productRow(1, 100, "suspended", 2))

	product, err := SuspendProduct(context.Background(), db, 1, 9, "counterfeit")

	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusSuspended, product.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuspendProductRequiresReason(t *testing.T) {
	db, _ := newMockDB(t)

	_, err := SuspendProduct(context.Background(), db, 1, 9, "")

	assert.ErrorIs(t, err, database.ErrMissingField)
}

func TestCreateProductRejectsNegativeStock(t *testing.T) {
	db, _ := newMockDB(t)

	_, err := CreateProduct(context.Background(), db, CreateProductParams{
		VendorID: 100,
		Name:     "Lamp",
		Price:    decimal.NewFromInt(10),
		Stock:    -1,
	})

	assert.ErrorIs(t, err, database.ErrInvalidQuantity)
}

func TestListProductsPages(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products`).
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WithArgs(int64(0), int64(10), int64(10)).
		WillReturnRows(productRow(11, 100, "active", 1))

	page, err := ListProducts(context.Background(), db, 0, 2, 10)

	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
