package domain

import "github.com/shopspring/decimal"

// Flat-rate pricing policy: free shipping strictly above the threshold, flat
// tax on the subtotal.
var (
	freeShippingThreshold = decimal.RequireFromString("100.00")
	flatShippingRate      = decimal.RequireFromString("9.99")
	taxRate               = decimal.RequireFromString("0.08")
)

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals derives cart totals from the lines alone. Intermediate math
// runs at full precision; each output is rounded to two places
// half-away-from-zero only at the end. Deterministic for identical input.
func ComputeTotals(lines []CartLine) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}

	shipping := flatShippingRate
	if subtotal.GreaterThan(freeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(taxRate)
	total := subtotal.Add(shipping).Add(tax)

	return Totals{
		Subtotal: subtotal.Round(2),
		Shipping: shipping.Round(2),
		Tax:      tax.Round(2),
		Total:    total.Round(2),
	}
}
