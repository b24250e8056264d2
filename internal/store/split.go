package store

import (
	"sort"

	"github.com/shopspring/decimal"
)

// vendorTotals accumulates line totals per vendor. Vendors keep the order in
// which they were first seen so sub-orders are created deterministically.
type vendorTotals struct {
	order  []int64
	totals map[int64]decimal.Decimal
}

func newVendorTotals() *vendorTotals {
	return &vendorTotals{totals: make(map[int64]decimal.Decimal)}
}

func (v *vendorTotals) Add(vendorID int64, amount decimal.Decimal) {
	current, ok := v.totals[vendorID]
	if !ok {
		v.order = append(v.order, vendorID)
	}
	v.totals[vendorID] = current.Add(amount)
}

func (v *vendorTotals) Vendors() []int64 {
	return v.order
}

func (v *vendorTotals) Subtotal(vendorID int64) decimal.Decimal {
	return v.totals[vendorID]
}

func (v *vendorTotals) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, id := range v.order {
		sum = sum.Add(v.totals[id])
	}
	return sum
}

// lockOrder returns the lines sorted by product id. Every checkout takes
// product row locks in the same global order, so two carts sharing products
// cannot deadlock on each other.
func lockOrder(items []OrderItemRequest) []OrderItemRequest {
	sorted := make([]OrderItemRequest, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProductID < sorted[j].ProductID
	})
	return sorted
}
