// Package storetest holds the behaviour every docstore backend must share.
// Backends call Run from their own tests with a factory that yields an empty
// store.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/docstore"
	"storefront/internal/domain"
	"storefront/internal/invoice"
)

type Factory func(t *testing.T) *docstore.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("Products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("ConditionalDecrement", func(t *testing.T) { testDecrement(t, newStore(t)) })
	t.Run("ConcurrentDecrement", func(t *testing.T) { testConcurrentDecrement(t, newStore(t)) })
	t.Run("Carts", func(t *testing.T) { testCarts(t, newStore(t)) })
	t.Run("Sales", func(t *testing.T) { testSales(t, newStore(t)) })
	t.Run("Audit", func(t *testing.T) { testAudit(t, newStore(t)) })
	t.Run("Avatars", func(t *testing.T) { testAvatars(t, newStore(t)) })
	t.Run("Reports", func(t *testing.T) { testReports(t, newStore(t)) })
	t.Run("Atomic", func(t *testing.T) { testAtomic(t, newStore(t)) })
}

func ms(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

func seedProduct(t *testing.T, s *docstore.Store, name string, price float64, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: name, Price: price, Stock: stock, Active: true, Category: "misc"}
	require.NoError(t, s.Products.Insert(context.Background(), p))
	require.False(t, p.ID.IsZero())
	return p
}

func testProducts(t *testing.T, s *docstore.Store) {
	ctx := context.Background()
	a := seedProduct(t, s, "Alpha", 10, 3)
	b := seedProduct(t, s, "Bravo", 5, 0)
	b.Image = domain.ImageURL("https://img.example/b.png")

	got, err := s.Products.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Name)
	assert.Equal(t, 3, got.Stock)
	assert.True(t, got.Image.IsZero())

	b.Price = 6.5
	b.Description = "second"
	require.NoError(t, s.Products.Update(ctx, b))
	got, err = s.Products.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.5, got.Price)
	assert.Equal(t, "second", got.Description)
	assert.Equal(t, "https://img.example/b.png", got.Image.DisplayURL())

	require.NoError(t, s.Products.SetStock(ctx, b.ID, 9))
	got, _ = s.Products.Get(ctx, b.ID)
	assert.Equal(t, 9, got.Stock)

	require.NoError(t, s.Products.IncrementStock(ctx, b.ID, 2))
	got, _ = s.Products.Get(ctx, b.ID)
	assert.Equal(t, 11, got.Stock)

	require.NoError(t, s.Products.Deactivate(ctx, a.ID))
	active, err := s.Products.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	all, err := s.Products.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := s.Products.CountActive(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.Products.Get(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(s.Products.SetStock(ctx, primitive.NewObjectID(), 1), domain.ErrNotFound))
	missing := &domain.Product{ID: primitive.NewObjectID(), Name: "ghost"}
	assert.True(t, errors.Is(s.Products.Update(ctx, missing), domain.ErrNotFound))
}

func testDecrement(t *testing.T, s *docstore.Store) {
	ctx := context.Background()
	p := seedProduct(t, s, "Widget", 2, 3)

	require.NoError(t, s.Products.DecrementStock(ctx, p.ID, 2))
	err := s.Products.DecrementStock(ctx, p.ID, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	var se *domain.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Available)
	assert.Equal(t, 2, se.Requested)
	assert.Equal(t, "Widget", se.Name)

	got, _ := s.Products.Get(ctx, p.ID)
	assert.Equal(t, 1, got.Stock)

	err = s.Products.DecrementStock(ctx, primitive.NewObjectID(), 1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func testConcurrentDecrement(t *testing.T, s *docstore.Store) {
	ctx := context.Background()
	p := seedProduct(t, s, "Scarce", 1, 5)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		ok     int
		denied int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Products.DecrementStock(ctx, p.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				denied++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, ok)
	assert.Equal(t, 15, denied)
	got, _ := s.Products.Get(ctx, p.ID)
	assert.Equal(t, 0, got.Stock)
}

func testCarts(t *testing.T, s *docstore.Store) {
	ctx := context.Background()
	c, err := s.Carts.GetOrCreate(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.UserID)
	assert.Empty(t, c.Lines)

	pid := primitive.NewObjectID()
	lines := []domain.CartLine{{ProductID: pid, Name: "Alpha", UnitPrice: 10, Quantity: 2, Image: domain.ImageURL("https://x/y.png")}}
	require.NoError(t, s.Carts.SaveLines(ctx, "u-1", lines))
	lines[0].Quantity = 99

	again, err := s.Carts.GetOrCreate(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, again.Lines, 1)
	assert.Equal(t, 2, again.Lines[0].Quantity)
	assert.Equal(t, pid, again.Lines[0].ProductID)
	assert.Equal(t, "https://x/y.png", again.Lines[0].Image.URL)
	assert.Equal(t, 0, again.Line(pid))

	_, err = s.Carts.GetOrCreate(ctx, "u-2")
	require.NoError(t, err)
	_, err = s.Carts.GetOrCreate(ctx, "u-3")
	require.NoError(t, err)

	n, err := s.Carts.PurgeEmpty(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	kept, err := s.Carts.GetOrCreate(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, kept.Lines, 1)

	// RemoveLines touches only the named products.
	other := primitive.NewObjectID()
	require.NoError(t, s.Carts.SaveLines(ctx, "u-1", []domain.CartLine{
		{ProductID: pid, Name: "Alpha", UnitPrice: 10, Quantity: 2},
		{ProductID: other, Name: "Beta", UnitPrice: 4, Quantity: 1},
	}))
	require.NoError(t, s.Carts.RemoveLines(ctx, "u-1", []primitive.ObjectID{pid}))
	left, err := s.Carts.GetOrCreate(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, left.Lines, 1)
	assert.Equal(t, other, left.Lines[0].ProductID)

	// RestoreLines skips products that are back in the cart.
	require.NoError(t, s.Carts.RestoreLines(ctx, "u-1", []domain.CartLine{
		{ProductID: pid, Name: "Alpha", UnitPrice: 10, Quantity: 2},
		{ProductID: other, Name: "Beta", UnitPrice: 4, Quantity: 9},
	}))
	back, err := s.Carts.GetOrCreate(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, back.Lines, 2)
	assert.Equal(t, 1, back.Lines[back.Line(other)].Quantity)
	assert.Equal(t, 2, back.Lines[back.Line(pid)].Quantity)
}

func newSale(inv, user, method, status string, at time.Time, lines ...domain.SaleLine) *domain.Sale {
	s := &domain.Sale{
		InvoiceNumber: inv, UserID: user, UserEmail: user + "@example.test",
		PaymentMethod: method, Status: status, CreatedAt: ms(at), TaxRate: 0.16, Lines: lines,
	}
	for _, l := range lines {
		s.Subtotal += l.Subtotal
	}
	s.Tax = s.Subtotal * 0.16
	s.Total = s.Subtotal + s.Tax
	return s
}

func line(name string, qty int, price float64) domain.SaleLine {
	return domain.SaleLine{ProductID: primitive.NewObjectID(), Name: name, Quantity: qty, UnitPrice: price, Subtotal: price * float64(qty)}
}

func testSales(t *testing.T, s *docstore.Store) {
	ctx := context.Background()
	pattern := invoice.YearPattern("FAC", 2024)

	last, err := s.Sales.LastInvoice(ctx, pattern)
	require.NoError(t, err)
	assert.Equal(t, "", last)

	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := newSale("FAC-2024-00001", "u-1", "card", domain.SaleCompleted, t0, line("A", 1, 10))
	require.NoError(t, s.Sales.Insert(ctx, first))
	require.False(t, first.ID.IsZero())
	require.NoError(t, s.Sales.Insert(ctx, newSale("FAC-2024-00002", "u-1", "cash", domain.SaleCompleted, t0.Add(time.Hour), line("B", 2, 5))))
	require.NoError(t, s.Sales.Insert(ctx, newSale("FAC-2023-00007", "u-2", "cash", domain.SaleCompleted, t0.AddDate(-1, 0, 0), line("C", 1, 1))))

	err = s.Sales.Insert(ctx, newSale("FAC-2024-00002", "u-3", "card", domain.SaleCompleted, t0))
	assert.True(t, errors.Is(err, domain.ErrDuplicateInvoice), "got %v", err)

	last, err = s.Sales.LastInvoice(ctx, pattern)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2024-00002", last)
	last, err = s.Sales.LastInvoice(ctx, invoice.YearPattern("FAC", 2025))
	require.NoError(t, err)
	assert.Equal(t, "", last)

	got, err := s.Sales.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2024-00001", got.InvoiceNumber)
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt))
	require.Len(t, got.Lines, 1)

	mine, err := s.Sales.ListByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "FAC-2024-00002", mine[0].InvoiceNumber)

	require.NoError(t, s.Sales.UpdateStatus(ctx, first.ID, domain.SaleCancelled))
	got, _ = s.Sales.Get(ctx, first.ID)
	assert.Equal(t, domain.SaleCancelled, got.Status)

	n, err := s.Sales.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	_, err = s.Sales.Get(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(s.Sales.UpdateStatus(ctx, primitive.NewObjectID(), domain.SalePending), domain.ErrNotFound))
}

func testAudit(t *testing.T, s *docstore.Store) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	recs := []domain.AuditRecord{
		{Action: domain.ActionLogin, Actor: "Alice@Example.test", Detail: "login", At: base},
		{Action: domain.ActionAddToCart, Actor: "alice@example.test", Detail: "add", At: base.Add(time.Minute), Extra: map[string]any{"qty": 2}},
		{Action: domain.ActionAddToCart, Actor: "bob@example.test", Detail: "add", At: base.Add(2 * time.Minute)},
		{Action: domain.ActionCreateSale, Actor: "bob@example.test", Detail: "sale", At: base.Add(3 * time.Minute)},
		{Action: domain.ActionLogin, Actor: domain.AnonymousActor, Detail: "login", At: base.Add(4 * time.Minute)},
	}
	for i := range recs {
		require.NoError(t, s.Audit.Append(ctx, &recs[i]))
	}

	all, err := s.Audit.List(ctx, domain.AuditFilter{}, 100)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, domain.AnonymousActor, all[0].Actor)

	alice, err := s.Audit.List(ctx, domain.AuditFilter{Actor: "ALICE"}, 100)
	require.NoError(t, err)
	assert.Len(t, alice, 2)

	adds, err := s.Audit.List(ctx, domain.AuditFilter{Action: domain.ActionAddToCart}, 1)
	require.NoError(t, err)
	require.Len(t, adds, 1)
	assert.Equal(t, "bob@example.test", adds[0].Actor)

	from, to := base.Add(time.Minute), base.Add(3*time.Minute)
	n, err := s.Audit.Count(ctx, domain.AuditFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	top, err := s.Audit.TopActions(ctx, domain.AuditFilter{}, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, domain.ActionCount{Action: domain.ActionAddToCart, Count: 2}, top[0])
	assert.Equal(t, domain.ActionCount{Action: domain.ActionLogin, Count: 2}, top[1])

	actions, err := s.Audit.Actions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Action{domain.ActionAddToCart, domain.ActionCreateSale, domain.ActionLogin}, actions)
}

func testAvatars(t *testing.T, s *docstore.Store) {
	ctx := context.Background()
	_, err := s.Avatars.Get(ctx, "u-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	png := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	require.NoError(t, s.Avatars.Put(ctx, &domain.Avatar{UserID: "u-1", Email: "a@example.test", Image: domain.EmbeddedImage(png, "image/png")}))
	got, err := s.Avatars.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ImageEmbedded, got.Image.Kind)
	assert.Equal(t, png, got.Image.Data)
	assert.Equal(t, "image/png", got.Image.ContentType)

	require.NoError(t, s.Avatars.Clear(ctx, "u-1"))
	got, err = s.Avatars.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, got.Image.IsZero())
	assert.NoError(t, s.Avatars.Clear(ctx, "nobody"))
}

func testReports(t *testing.T, s *docstore.Store) {
	ctx := context.Background()
	// 2024-06-02 is a Sunday.
	sun := time.Date(2024, 6, 2, 9, 30, 0, 0, time.UTC)
	sales := []*domain.Sale{
		newSale("FAC-2024-00001", "u-1", "card", domain.SaleCompleted, sun, line("Alpha", 2, 10), line("Bravo", 1, 5)),
		newSale("FAC-2024-00002", "u-2", "cash", domain.SaleCompleted, sun.Add(26*time.Hour), line("Alpha", 1, 10)),
		newSale("FAC-2024-00003", "u-1", "card", domain.SalePending, sun.Add(50*time.Hour), line("Charlie", 5, 2)),
		newSale("FAC-2024-00004", "u-3", "", domain.SaleCompleted, sun.AddDate(0, 0, -30), line("Bravo", 4, 5)),
	}
	for _, x := range sales {
		require.NoError(t, s.Sales.Insert(ctx, x))
	}
	from := sun.Add(-time.Hour)
	f := domain.ReportFilter{From: &from}

	rows, err := s.Reports.Sales(ctx, f)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "FAC-2024-00003", rows[0].InvoiceNumber)
	assert.Equal(t, 1, rows[0].ItemCount)
	first := rows[2]
	assert.Equal(t, "FAC-2024-00001", first.InvoiceNumber)
	assert.Equal(t, 1, first.Weekday)
	assert.Equal(t, 9, first.Hour)
	// two lines, three units
	assert.Equal(t, 2, first.ItemCount)

	st, err := s.Reports.Stats(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Count)
	assert.InDelta(t, 29.0+11.6+11.6, st.Revenue, 0.001)
	assert.InDelta(t, 29.0, st.Max, 0.001)
	assert.InDelta(t, 11.6, st.Min, 0.001)
	assert.InDelta(t, (29.0+11.6+11.6)/3, st.Average, 0.001)
	assert.Equal(t, 4, st.ItemsTotal)

	empty, err := s.Reports.Stats(ctx, domain.ReportFilter{Status: "nope"})
	require.NoError(t, err)
	assert.Equal(t, domain.SalesStats{}, empty)

	byStatus, err := s.Reports.ByStatus(ctx, f)
	require.NoError(t, err)
	require.Len(t, byStatus, 2)
	assert.Equal(t, domain.SaleCompleted, byStatus[0].Status)
	assert.Equal(t, 2, byStatus[0].Count)
	assert.Equal(t, domain.SalePending, byStatus[1].Status)

	methods, err := s.Reports.ByPaymentMethod(ctx, f)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "card", methods[0].Method)
	assert.Equal(t, 2, methods[0].Count)
	assert.InDelta(t, 40.6, methods[0].Total, 0.001)

	onlyCard, err := s.Reports.Sales(ctx, domain.ReportFilter{From: &from, PaymentMethod: "card", Status: domain.SaleCompleted})
	require.NoError(t, err)
	require.Len(t, onlyCard, 1)

	minTotal, maxTotal := 11.5, 11.7
	bounded, err := s.Reports.Sales(ctx, domain.ReportFilter{MinTotal: &minTotal, MaxTotal: &maxTotal})
	require.NoError(t, err)
	assert.Len(t, bounded, 2)

	top, err := s.Reports.TopProducts(ctx, domain.ReportFilter{}, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, domain.ProductSales{Name: "Bravo", Quantity: 5, Revenue: 25}, top[0])
	assert.Equal(t, "Charlie", top[1].Name)
	assert.Equal(t, 5, top[1].Quantity)

	days, err := s.Reports.ByDay(ctx, sun.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, "2024-06-02", days[0].Day)
	assert.Equal(t, "2024-06-04", days[2].Day)
	assert.Equal(t, 1, days[1].Count)

	all, err := s.Reports.PaymentMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"card", "cash"}, all)
}

func testAtomic(t *testing.T, s *docstore.Store) {
	ctx := context.Background()
	p := seedProduct(t, s, "Tx", 1, 2)
	err := s.Tx.RunAtomic(ctx, func(ctx context.Context) error {
		return s.Products.DecrementStock(ctx, p.ID, 1)
	})
	require.NoError(t, err)
	got, _ := s.Products.Get(ctx, p.ID)
	assert.Equal(t, 1, got.Stock)

	boom := errors.New("boom")
	err = s.Tx.RunAtomic(ctx, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, s.Ping(ctx))
}
