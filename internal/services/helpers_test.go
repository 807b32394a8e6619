package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/docstore"
	"storefront/internal/docstore/memstore"
	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/services"
)

var (
	alice = &domain.User{ID: "u-alice", Email: "alice@storefront.test", FirstName: "Alice", LastName: "Moreno", Role: domain.RoleUser}
	bob   = &domain.User{ID: "u-bob", Email: "bob@storefront.test", FirstName: "Bob", Role: domain.RoleUser}
	staff = &domain.User{ID: "u-admin", Email: "admin@storefront.test", FirstName: "Admin", Role: domain.RoleAdmin}
)

type fixture struct {
	store    *docstore.Store
	audit    *services.AuditService
	cart     *services.CartService
	checkout *services.CheckoutService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	f.store = memstore.New(memstore.WithClock(clock))
	f.audit = services.NewAuditService(f.store.Audit)
	f.audit.Now = clock
	f.cart = services.NewCartService(f.store, f.audit, pricing.DefaultTaxRate)
	f.checkout = services.NewCheckoutService(f.store, f.audit, pricing.DefaultTaxRate, "")
	f.checkout.Now = clock
	return f
}

func (f *fixture) product(t *testing.T, name string, price float64, stock int) primitive.ObjectID {
	t.Helper()
	p := &domain.Product{Name: name, Price: price, Stock: stock, Active: true, Category: "games"}
	require.NoError(t, f.store.Products.Insert(context.Background(), p))
	return p.ID
}

func (f *fixture) stock(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := f.store.Products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) auditCount(t *testing.T, a domain.Action) int64 {
	t.Helper()
	n, err := f.store.Audit.Count(context.Background(), domain.AuditFilter{Action: a})
	require.NoError(t, err)
	return n
}
