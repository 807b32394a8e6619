// Package pricing derives cart and sale totals. Amounts are stored as float64
// but every sum is computed in decimal and rounded to cents.
package pricing

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// DefaultTaxRate is the VAT applied when no rate is configured.
const DefaultTaxRate = 0.16

type Line struct {
	UnitPrice float64
	Quantity  int
}

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	TaxRate  float64 `json:"tax_rate"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

func cents(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

// Round2 rounds an aggregate (sum, average) to cents.
func Round2(v float64) float64 { return cents(decimal.NewFromFloat(v)) }

// LineSubtotal returns price x qty rounded to cents.
func LineSubtotal(price float64, qty int) float64 {
	return cents(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))))
}

// Compute returns subtotal, tax = round2(subtotal*rate) and total = subtotal+tax.
func Compute(lines []Line, rate float64) Totals {
	sub := decimal.Zero
	for _, l := range lines {
		sub = sub.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	sub = sub.Round(2)
	tax := sub.Mul(decimal.NewFromFloat(rate)).Round(2)
	return Totals{
		Subtotal: cents(sub),
		TaxRate:  rate,
		Tax:      cents(tax),
		Total:    cents(sub.Add(tax)),
	}
}

func ForCart(c *domain.Cart, rate float64) Totals {
	if c == nil {
		return Compute(nil, rate)
	}
	lines := make([]Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	return Compute(lines, rate)
}

// Growth returns the percentage change from prev to cur. A positive cur over a
// zero prev counts as 100%.
func Growth(cur, prev float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	c, p := decimal.NewFromFloat(cur), decimal.NewFromFloat(prev)
	return cents(c.Sub(p).Div(p).Mul(decimal.NewFromInt(100)))
}
