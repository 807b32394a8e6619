package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/docstore"
	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/telemetry"
)

const (
	DefaultTopProducts = 5
	reportDays         = 7
	dashboardDays      = 30
)

// ActiveCounter is satisfied by the relational comment repo.
type ActiveCounter interface {
	CountActive() (int, error)
}

type ReportService struct {
	Reports   docstore.ReportStore
	Inventory *InventoryService
	Prods     docstore.ProductStore
	Comments  ActiveCounter
	Now       func() time.Time
}

func NewReportService(store *docstore.Store, inv *InventoryService, comments ActiveCounter) *ReportService {
	return &ReportService{Reports: store.Reports, Inventory: inv, Prods: store.Products, Comments: comments}
}

type SalesReport struct {
	Filter          domain.ReportFilter   `json:"-"`
	Sales           []domain.ReportRow    `json:"sales"`
	Stats           domain.SalesStats     `json:"stats"`
	ByStatus        []domain.StatusBucket `json:"by_status"`
	ByPaymentMethod []domain.MethodBucket `json:"by_payment_method"`
	TopProducts     []domain.ProductSales `json:"top_products"`
	ByDay           []domain.DayBucket    `json:"by_day"`
	PaymentMethods  []string              `json:"payment_methods"`
}

// SalesReport runs every report query concurrently. The status breakdown
// only honours the date window of f.
func (s *ReportService) SalesReport(ctx context.Context, f domain.ReportFilter) (rep *SalesReport, err error) {
	ctx, span := telemetry.Start(ctx, "report.sales")
	defer func() { telemetry.End(span, err) }()

	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, domain.Invalid("to", "must not be before from")
	}
	now := clock(s.Now).now()
	rep = &SalesReport{Filter: f}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rep.Sales, err = s.Reports.Sales(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		rep.Stats, err = s.Reports.Stats(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		rep.ByStatus, err = s.Reports.ByStatus(gctx, f.DateOnly())
		return err
	})
	g.Go(func() (err error) {
		rep.ByPaymentMethod, err = s.Reports.ByPaymentMethod(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		rep.TopProducts, err = s.Reports.TopProducts(gctx, f, DefaultTopProducts)
		return err
	})
	g.Go(func() (err error) {
		rep.ByDay, err = s.Reports.ByDay(gctx, startOfDay(now).AddDate(0, 0, -(reportDays-1)))
		return err
	})
	g.Go(func() (err error) {
		rep.PaymentMethods, err = s.Reports.PaymentMethods(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep.Stats.Revenue = pricing.Round2(rep.Stats.Revenue)
	rep.Stats.Average = pricing.Round2(rep.Stats.Average)
	rep.ByStatus = fillStatuses(rep.ByStatus)
	if rep.Sales == nil {
		rep.Sales = []domain.ReportRow{}
	}
	return rep, nil
}

// fillStatuses returns one bucket per known status, in display order, with
// zero counts for the ones that never occurred.
func fillStatuses(in []domain.StatusBucket) []domain.StatusBucket {
	seen := make(map[string]domain.StatusBucket, len(in))
	for _, b := range in {
		seen[b.Status] = b
	}
	out := make([]domain.StatusBucket, 0, len(domain.SaleStatuses))
	for _, st := range domain.SaleStatuses {
		b, ok := seen[st]
		if !ok {
			b = domain.StatusBucket{Status: st}
		}
		b.Revenue = pricing.Round2(b.Revenue)
		out = append(out, b)
		delete(seen, st)
	}
	for _, b := range in {
		if _, extra := seen[b.Status]; extra {
			out = append(out, b)
		}
	}
	return out
}

type Dashboard struct {
	ActiveProducts   int64               `json:"active_products"`
	Stock            domain.StockBuckets `json:"stock"`
	MonthRevenue     float64             `json:"month_revenue"`
	MonthSales       int                 `json:"month_sales"`
	PrevMonthRevenue float64             `json:"prev_month_revenue"`
	PrevMonthSales   int                 `json:"prev_month_sales"`
	RevenueGrowth    float64             `json:"revenue_growth"`
	SalesGrowth      float64             `json:"sales_growth"`
	Daily            []domain.DayBucket  `json:"daily"`
	ActiveComments   int                 `json:"active_comments"`
}

// Dashboard compares the current calendar month (UTC) with the previous one.
func (s *ReportService) Dashboard(ctx context.Context) (d *Dashboard, err error) {
	ctx, span := telemetry.Start(ctx, "report.dashboard")
	defer func() { telemetry.End(span, err) }()

	now := clock(s.Now).now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevStart := monthStart.AddDate(0, -1, 0)
	prevEnd := monthStart.Add(-time.Nanosecond)

	d = &Dashboard{}
	var cur, prev domain.SalesStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.ActiveProducts, err = s.Prods.CountActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Stock, err = s.Inventory.Buckets(gctx)
		return err
	})
	g.Go(func() (err error) {
		cur, err = s.Reports.Stats(gctx, domain.ReportFilter{From: &monthStart})
		return err
	})
	g.Go(func() (err error) {
		prev, err = s.Reports.Stats(gctx, domain.ReportFilter{From: &prevStart, To: &prevEnd})
		return err
	})
	g.Go(func() (err error) {
		d.Daily, err = s.Reports.ByDay(gctx, startOfDay(now).AddDate(0, 0, -(dashboardDays-1)))
		return err
	})
	if s.Comments != nil {
		g.Go(func() (err error) {
			d.ActiveComments, err = s.Comments.CountActive()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.MonthRevenue = pricing.Round2(cur.Revenue)
	d.MonthSales = cur.Count
	d.PrevMonthRevenue = pricing.Round2(prev.Revenue)
	d.PrevMonthSales = prev.Count
	d.RevenueGrowth = pricing.Growth(cur.Revenue, prev.Revenue)
	d.SalesGrowth = pricing.Growth(float64(cur.Count), float64(prev.Count))
	return d, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
