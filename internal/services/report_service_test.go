package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/domain"
	"storefront/internal/services"
)

type fixedComments int

func (n fixedComments) CountActive() (int, error) { return int(n), nil }

func (f *fixture) sell(t *testing.T, u *domain.User, at time.Time, method string, lines ...any) *domain.Sale {
	t.Helper()
	ctx := context.Background()
	f.now = at
	for i := 0; i < len(lines); i += 2 {
		_, err := f.cart.AddItem(ctx, u, lines[i].(primitive.ObjectID), lines[i+1].(int))
		require.NoError(t, err)
	}
	s, err := f.checkout.Checkout(ctx, u, method, "")
	require.NoError(t, err)
	return s
}

func TestSalesReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "Game A", 10, 100)
	b := f.product(t, "Game B", 5, 100)

	f.sell(t, alice, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), "cash", a, 2, b, 1)
	f.sell(t, bob, time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC), "card", b, 4)
	old := f.sell(t, alice, time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC), "card", a, 1)
	require.NoError(t, f.checkout.UpdateStatus(ctx, staff, old.ID, domain.SalePending))

	f.now = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	rs := services.NewReportService(f.store, services.NewInventoryService(f.store.Products, f.audit), fixedComments(0))
	rs.Now = func() time.Time { return f.now }

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rep, err := rs.SalesReport(ctx, domain.ReportFilter{From: &from, PaymentMethod: "card"})
	require.NoError(t, err)

	require.Len(t, rep.Sales, 1)
	assert.Equal(t, 1, rep.Sales[0].ItemCount)
	assert.Equal(t, 1, rep.Stats.Count)
	assert.Equal(t, 23.2, rep.Stats.Revenue)

	// status breakdown ignores the payment method and fills missing statuses
	require.Len(t, rep.ByStatus, 3)
	assert.Equal(t, domain.StatusBucket{Status: domain.SaleCompleted, Count: 2, Revenue: 52.2}, rep.ByStatus[0])
	assert.Equal(t, domain.SalePending, rep.ByStatus[1].Status)
	assert.Zero(t, rep.ByStatus[1].Count)
	assert.Zero(t, rep.ByStatus[2].Count)

	require.Len(t, rep.TopProducts, 1)
	assert.Equal(t, "Game B", rep.TopProducts[0].Name)
	assert.Equal(t, []string{"card", "cash"}, rep.PaymentMethods)

	// trailing 7 days: Mar 8..14
	require.Len(t, rep.ByDay, 2)
	assert.Equal(t, "2025-03-10", rep.ByDay[0].Day)
	assert.Equal(t, "2025-03-12", rep.ByDay[1].Day)

	to := from.Add(-time.Hour)
	_, err = rs.SalesReport(ctx, domain.ReportFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// the daily series covers whole UTC days: today and the six before it
func TestSalesReportDailyWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "Game A", 10, 100)

	// within 168 hours of now but on the eighth calendar day back
	f.sell(t, alice, time.Date(2025, 3, 7, 23, 0, 0, 0, time.UTC), "cash", a, 1)
	f.sell(t, alice, time.Date(2025, 3, 8, 0, 30, 0, 0, time.UTC), "cash", a, 1)

	f.now = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	rs := services.NewReportService(f.store, services.NewInventoryService(f.store.Products, f.audit), fixedComments(0))
	rs.Now = func() time.Time { return f.now }

	rep, err := rs.SalesReport(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, rep.ByDay, 1)
	assert.Equal(t, "2025-03-08", rep.ByDay[0].Day)
	assert.Equal(t, 1, rep.ByDay[0].Count)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "Game A", 10, 100)
	f.product(t, "Game B", 5, 2)

	f.sell(t, alice, time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC), "cash", a, 1)
	f.sell(t, alice, time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC), "cash", a, 1)
	f.sell(t, bob, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), "cash", a, 2)

	f.now = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	rs := services.NewReportService(f.store, services.NewInventoryService(f.store.Products, f.audit), fixedComments(3))
	rs.Now = func() time.Time { return f.now }

	d, err := rs.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, d.ActiveProducts)
	assert.Len(t, d.Stock.Critical, 1)
	assert.Equal(t, 2, d.MonthSales)
	assert.Equal(t, 34.8, d.MonthRevenue)
	assert.Equal(t, 1, d.PrevMonthSales)
	assert.Equal(t, 11.6, d.PrevMonthRevenue)
	assert.Equal(t, 200.0, d.RevenueGrowth)
	assert.Equal(t, 100.0, d.SalesGrowth)
	assert.Len(t, d.Daily, 3)
	assert.Equal(t, 3, d.ActiveComments)
}

func TestDashboardGrowthFromZero(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "Game A", 10, 100)
	f.sell(t, alice, time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC), "cash", a, 1)

	rs := services.NewReportService(f.store, services.NewInventoryService(f.store.Products, f.audit), nil)
	rs.Now = func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) }
	d, err := rs.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, d.RevenueGrowth)
	assert.Equal(t, 100.0, d.SalesGrowth)
}
