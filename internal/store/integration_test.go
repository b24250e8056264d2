//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *sql.DB {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start postgres container")

	host, err := postgres.Host(ctx)
	require.NoError(t, err)
	port, err := postgres.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	return db
}

type fixture struct {
	customer *models.User
	vendorA  *models.Vendor
	vendorB  *models.Vendor
}

func seed(t *testing.T, ctx context.Context, db *sql.DB) fixture {
	customer, err := store.CreateUser(ctx, db, "buyer@example.com", "Buyer", models.RoleCustomer)
	require.NoError(t, err)

	vendor := func(email string) *models.Vendor {
		u, err := store.CreateUser(ctx, db, email, email, models.RoleCustomer)
		require.NoError(t, err)
		v, err := store.ApplyVendor(ctx, db, store.VendorProfileParams{
			UserID:          u.ID,
			ShopName:        email,
			BusinessType:    models.BusinessTypeIndividual,
			BusinessAddress: "1 Market Rd",
			ContactPhone:    "555",
		})
		require.NoError(t, err)
		return v
	}

	return fixture{customer: customer, vendorA: vendor("a@example.com"), vendorB: vendor("b@example.com")}
}

func product(t *testing.T, ctx context.Context, db *sql.DB, vendorID int64, name string, price int64, stock int) *models.Product {
	p, err := store.CreateProduct(ctx, db, store.CreateProductParams{
		VendorID: vendorID,
		Name:     name,
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
	})
	require.NoError(t, err)
	return p
}

func order(customerID int64, items ...store.OrderItemRequest) store.CreateInvoiceRequest {
	return store.CreateInvoiceRequest{
		CustomerID:      customerID,
		PaymentMethod:   "card",
		ShippingAddress: "1 Main St",
		Items:           items,
	}
}

var checkout = store.CheckoutOptions{MaxRetries: 3, LockTimeout: 5 * time.Second}

func TestCheckoutSplitsAcrossVendors(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seed(t, ctx, db)

	lamp := product(t, ctx, db, f.vendorA.ID, "Lamp", 100, 10)
	mug := product(t, ctx, db, f.vendorB.ID, "Mug", 50, 10)

	invoice, err := store.CreateInvoice(ctx, db, order(f.customer.ID,
		store.OrderItemRequest{ProductID: lamp.ID, Quantity: 1},
		store.OrderItemRequest{ProductID: mug.ID, Quantity: 2},
	), checkout)
	require.NoError(t, err)

	assert.True(t, invoice.TotalAmount.Equal(decimal.NewFromInt(200)))
	require.Len(t, invoice.SubOrders, 2)
	for _, so := range invoice.SubOrders {
		assert.Equal(t, models.SubOrderPlaced, so.Status)
		assert.True(t, so.SubTotal.Equal(decimal.NewFromInt(100)))
	}

	lampAfter, err := store.GetProduct(ctx, db, lamp.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, lampAfter.StockQuantity)

	mugAfter, err := store.GetProduct(ctx, db, mug.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, mugAfter.StockQuantity)
}

func TestCheckoutIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seed(t, ctx, db)

	lamp := product(t, ctx, db, f.vendorA.ID, "Lamp", 100, 10)
	mug := product(t, ctx, db, f.vendorB.ID, "Mug", 50, 3)

	_, err := store.CreateInvoice(ctx, db, order(f.customer.ID,
		store.OrderItemRequest{ProductID: lamp.ID, Quantity: 2},
		store.OrderItemRequest{ProductID: mug.ID, Quantity: 5},
	), checkout)
	require.ErrorIs(t, err, database.ErrInsufficientStock)

	lampAfter, err := store.GetProduct(ctx, db, lamp.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, lampAfter.StockQuantity)

	var invoices, subOrders int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM invoices`).Scan(&invoices))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sub_orders`).Scan(&subOrders))
	assert.Zero(t, invoices)
	assert.Zero(t, subOrders)
}

func TestConcurrentCheckoutNeverOversells(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seed(t, ctx, db)

	lamp := product(t, ctx, db, f.vendorA.ID, "Lamp", 100, 20)
	mug := product(t, ctx, db, f.vendorB.ID, "Mug", 50, 20)

	const buyers = 15
	results := make(chan error, buyers)

	var wg conc.WaitGroup
	for i := 0; i < buyers; i++ {
		// Alternate line order so carts overlap in both directions.
		items := []store.OrderItemRequest{
			{ProductID: lamp.ID, Quantity: 2},
			{ProductID: mug.ID, Quantity: 2},
		}
		if i%2 == 1 {
			items[0], items[1] = items[1], items[0]
		}
		wg.Go(func() {
			_, err := store.CreateInvoice(ctx, db, order(f.customer.ID, items...), checkout)
			results <- err
		})
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, database.ErrInsufficientStock):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 10, succeeded)

	for _, id := range []int64{lamp.ID, mug.ID} {
		p, err := store.GetProduct(ctx, db, id)
		require.NoError(t, err)
		assert.Equal(t, 20-succeeded*2, p.StockQuantity)
	}
}

func TestSubOrderLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seed(t, ctx, db)

	lamp := product(t, ctx, db, f.vendorA.ID, "Lamp", 100, 10)
	mug := product(t, ctx, db, f.vendorB.ID, "Mug", 50, 10)

	invoice, err := store.CreateInvoice(ctx, db, order(f.customer.ID,
		store.OrderItemRequest{ProductID: lamp.ID, Quantity: 3},
		store.OrderItemRequest{ProductID: mug.ID, Quantity: 1},
	), checkout)
	require.NoError(t, err)

	var subA, subB models.SubOrder
	for _, so := range invoice.SubOrders {
		if so.VendorID == f.vendorA.ID {
			subA = so
		} else {
			subB = so
		}
	}

	transition := func(vendorID, id int64, status models.SubOrderStatus) error {
		_, err := store.TransitionSubOrder(ctx, db, store.TransitionRequest{
			VendorID:        vendorID,
			SubOrderID:      id,
			Status:          status,
			RestockOnCancel: true,
		})
		return err
	}

	// Vendor B cannot see or move vendor A's sub-order.
	_, err = store.GetSubOrder(ctx, db, f.vendorB.ID, subA.ID)
	assert.ErrorIs(t, err, database.ErrSubOrderNotFound)
	assert.ErrorIs(t, transition(f.vendorB.ID, subA.ID, models.SubOrderProcessing), database.ErrSubOrderNotFound)

	for _, next := range []models.SubOrderStatus{models.SubOrderProcessing, models.SubOrderShipping, models.SubOrderDelivered} {
		require.NoError(t, transition(f.vendorA.ID, subA.ID, next))
	}
	assert.ErrorIs(t, transition(f.vendorA.ID, subA.ID, models.SubOrderCancelled), database.ErrInvalidTransition)

	require.NoError(t, transition(f.vendorB.ID, subB.ID, models.SubOrderCancelled))

	mugAfter, err := store.GetProduct(ctx, db, mug.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, mugAfter.StockQuantity)

	lampAfter, err := store.GetProduct(ctx, db, lamp.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, lampAfter.StockQuantity)

	gotA, err := store.GetSubOrder(ctx, db, f.vendorA.ID, subA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubOrderDelivered, gotA.Status)
	require.Len(t, gotA.Invoice.Items, 1)
	assert.Equal(t, lamp.ID, gotA.Invoice.Items[0].ProductID)

	stats, err := store.GetVendorStats(ctx, db, f.vendorA.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DeliveredOrders)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(300)))
}

func TestListInvoicesCursor(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seed(t, ctx, db)

	lamp := product(t, ctx, db, f.vendorA.ID, "Lamp", 100, 100)

	for i := 0; i < 15; i++ {
		_, err := store.CreateInvoice(ctx, db, order(f.customer.ID,
			store.OrderItemRequest{ProductID: lamp.ID, Quantity: 1}), checkout)
		require.NoError(t, err, "create invoice %d", i)
	}

	page1, err := store.ListInvoicesCursor(ctx, db, f.customer.ID, "", 10)
	require.NoError(t, err)
	assert.True(t, page1.HasMore)
	assert.NotEmpty(t, page1.NextCursor)
	assert.Len(t, page1.Items, 10)

	page2, err := store.ListInvoicesCursor(ctx, db, f.customer.ID, page1.NextCursor, 10)
	require.NoError(t, err)
	assert.False(t, page2.HasMore)
	assert.Len(t, page2.Items, 5)
}

func TestSuspendedProductCannotBeOrdered(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seed(t, ctx, db)

	admin, err := store.CreateUser(ctx, db, "admin@example.com", "Admin", models.RoleAdmin)
	require.NoError(t, err)

	lamp := product(t, ctx, db, f.vendorA.ID, "Lamp", 100, 10)
	_, err = store.SuspendProduct(ctx, db, lamp.ID, admin.ID, "counterfeit")
	require.NoError(t, err)

	_, err = store.CreateInvoice(ctx, db, order(f.customer.ID,
		store.OrderItemRequest{ProductID: lamp.ID, Quantity: 1}), checkout)
	assert.ErrorIs(t, err, database.ErrProductUnavailable)

	_, err = store.UnsuspendProduct(ctx, db, lamp.ID)
	require.NoError(t, err)

	_, err = store.CreateInvoice(ctx, db, order(f.customer.ID,
		store.OrderItemRequest{ProductID: lamp.ID, Quantity: 1}), checkout)
	assert.NoError(t, err)
}
