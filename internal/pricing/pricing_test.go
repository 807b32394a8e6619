package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

func TestComputeScenario(t *testing.T) {
	got := pricing.Compute([]pricing.Line{{UnitPrice: 10.00, Quantity: 2}, {UnitPrice: 5.00, Quantity: 1}}, pricing.DefaultTaxRate)
	assert.Equal(t, 25.00, got.Subtotal)
	assert.Equal(t, 4.00, got.Tax)
	assert.Equal(t, 29.00, got.Total)
	assert.Equal(t, 0.16, got.TaxRate)
}

func TestComputeRoundsTaxToCents(t *testing.T) {
	cases := []struct {
		lines           []pricing.Line
		sub, tax, total float64
	}{
		{[]pricing.Line{{UnitPrice: 0.10, Quantity: 3}}, 0.30, 0.05, 0.35},
		{[]pricing.Line{{UnitPrice: 19.99, Quantity: 3}}, 59.97, 9.60, 69.57},
		{[]pricing.Line{{UnitPrice: 1299.50, Quantity: 1}, {UnitPrice: 0.01, Quantity: 7}}, 1299.57, 207.93, 1507.50},
		{nil, 0, 0, 0},
	}
	for _, tc := range cases {
		got := pricing.Compute(tc.lines, 0.16)
		assert.Equal(t, tc.sub, got.Subtotal)
		assert.Equal(t, tc.tax, got.Tax)
		assert.Equal(t, tc.total, got.Total)
	}
}

func TestForCartMatchesCompute(t *testing.T) {
	c := &domain.Cart{Lines: []domain.CartLine{
		{ProductID: primitive.NewObjectID(), UnitPrice: 10, Quantity: 2},
		{ProductID: primitive.NewObjectID(), UnitPrice: 5, Quantity: 1},
	}}
	assert.Equal(t, 29.00, pricing.ForCart(c, 0.16).Total)
	assert.Equal(t, 0.0, pricing.ForCart(nil, 0.16).Total)
}

func TestLineSubtotal(t *testing.T) {
	assert.Equal(t, 0.3, pricing.LineSubtotal(0.1, 3))
}

func TestGrowth(t *testing.T) {
	assert.Equal(t, 100.0, pricing.Growth(50, 0))
	assert.Equal(t, 0.0, pricing.Growth(0, 0))
	assert.Equal(t, 50.0, pricing.Growth(150, 100))
	assert.Equal(t, -25.0, pricing.Growth(75, 100))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 52.2, pricing.Round2(29.0+11.6+11.6))
	assert.Equal(t, 17.4, pricing.Round2(52.2/3))
}
