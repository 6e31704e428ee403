package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func priceLine(id, unitPrice string, qty int) CartLine {
	return CartLine{
		ProductID: id,
		Product: Product{
			ID:                 id,
			Name:               id,
			UnitPrice:          decimal.RequireFromString(unitPrice),
			AvailableInventory: 1000,
		},
		Quantity: qty,
	}
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: got %s, want %s", name, got, want)
	}
}

func TestComputeTotals_FlatRates(t *testing.T) {
	// Two units at 50.00: subtotal lands exactly on the free-shipping
	// threshold, which is strictly greater-than, so shipping still applies.
	totals := ComputeTotals([]CartLine{priceLine("p1", "50.00", 2)})

	assertDecimal(t, "subtotal", totals.Subtotal, "100.00")
	assertDecimal(t, "shipping", totals.Shipping, "9.99")
	assertDecimal(t, "tax", totals.Tax, "8.00")
	assertDecimal(t, "total", totals.Total, "117.99")
}

func TestComputeTotals_FreeShippingBoundary(t *testing.T) {
	cases := []struct {
		name     string
		subtotal string
		shipping string
	}{
		{"exactly at threshold pays shipping", "100.00", "9.99"},
		{"one cent over is free", "100.01", "0"},
		{"under threshold pays shipping", "99.99", "9.99"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals := ComputeTotals([]CartLine{priceLine("p1", tc.subtotal, 1)})
			assertDecimal(t, "shipping", totals.Shipping, tc.shipping)
		})
	}
}

func TestComputeTotals_SalePricePreferred(t *testing.T) {
	sale := decimal.RequireFromString("8.50")
	line := priceLine("p1", "10.00", 3)
	line.Product.SalePrice = &sale

	totals := ComputeTotals([]CartLine{line})
	assertDecimal(t, "subtotal", totals.Subtotal, "25.50")
}

func TestComputeTotals_RoundsHalfAwayFromZero(t *testing.T) {
	// 3 x 4.375 = 13.125; the half cent rounds up, not to even.
	totals := ComputeTotals([]CartLine{priceLine("p1", "4.375", 3)})
	assertDecimal(t, "subtotal", totals.Subtotal, "13.13")

	// Tax is rounded only at output: 13.125 * 0.08 = 1.05 exactly from the
	// full-precision subtotal, not 1.0504 from the rounded one.
	assertDecimal(t, "tax", totals.Tax, "1.05")
}

func TestComputeTotals_Deterministic(t *testing.T) {
	lines := []CartLine{
		priceLine("p1", "19.99", 2),
		priceLine("p2", "0.01", 7),
		priceLine("p3", "104.95", 1),
	}

	first := ComputeTotals(lines)
	second := ComputeTotals(lines)

	if first.Subtotal.String() != second.Subtotal.String() ||
		first.Shipping.String() != second.Shipping.String() ||
		first.Tax.String() != second.Tax.String() ||
		first.Total.String() != second.Total.String() {
		t.Errorf("totals not deterministic: %+v vs %+v", first, second)
	}
}

func TestComputeTotals_EmptyCart(t *testing.T) {
	totals := ComputeTotals(nil)
	assertDecimal(t, "subtotal", totals.Subtotal, "0")
	assertDecimal(t, "shipping", totals.Shipping, "9.99")
	assertDecimal(t, "tax", totals.Tax, "0")
	assertDecimal(t, "total", totals.Total, "9.99")
}
