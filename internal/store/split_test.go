package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestVendorTotalsKeepsFirstSeenOrder(t *testing.T) {
	totals := newVendorTotals()
	totals.Add(9, decimal.NewFromInt(100))
	totals.Add(3, decimal.NewFromInt(50))
	totals.Add(9, decimal.RequireFromString("0.10"))
	totals.Add(3, decimal.NewFromInt(50))

	assert.Equal(t, []int64{9, 3}, totals.Vendors())
	assert.True(t, totals.Subtotal(9).Equal(decimal.RequireFromString("100.10")))
	assert.True(t, totals.Subtotal(3).Equal(decimal.NewFromInt(100)))
	assert.True(t, totals.Sum().Equal(decimal.RequireFromString("200.10")))
	assert.True(t, totals.Subtotal(42).IsZero())
}

func TestVendorTotalsEmpty(t *testing.T) {
	totals := newVendorTotals()
	assert.Empty(t, totals.Vendors())
	assert.True(t, totals.Sum().IsZero())
}

func TestLockOrderSortsWithoutMutatingInput(t *testing.T) {
	items := []OrderItemRequest{
		{ProductID: 30, Quantity: 1},
		{ProductID: 10, Quantity: 2},
		{ProductID: 30, Quantity: 3},
		{ProductID: 20, Quantity: 4},
	}

	sorted := lockOrder(items)

	assert.Equal(t, []OrderItemRequest{
		{ProductID: 10, Quantity: 2},
		{ProductID: 20, Quantity: 4},
		{ProductID: 30, Quantity: 1},
		{ProductID: 30, Quantity: 3},
	}, sorted)
	assert.Equal(t, int64(30), items[0].ProductID)
}
