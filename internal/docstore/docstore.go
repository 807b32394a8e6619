// Package docstore declares the document-side persistence used by the cart,
// checkout, audit and reporting services. mongostore implements it over
// MongoDB and memstore keeps everything in process.
package docstore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/domain"
)

type ProductStore interface {
	List(ctx context.Context, activeOnly bool) ([]domain.Product, error)
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	// Insert assigns p.ID when it is zero.
	Insert(ctx context.Context, p *domain.Product) error
	// Update overwrites the editable fields. Stock is left alone.
	Update(ctx context.Context, p *domain.Product) error
	SetStock(ctx context.Context, id primitive.ObjectID, stock int) error
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	// DecrementStock removes qty units only if at least qty remain. It fails
	// with a StockError otherwise, or NotFound when the product is gone.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	CountActive(ctx context.Context) (int64, error)
}

type CartStore interface {
	// GetOrCreate returns the user's cart, creating an empty one if needed.
	GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error)
	SaveLines(ctx context.Context, userID string, lines []domain.CartLine) error
	// RemoveLines drops the lines for productIDs and leaves every other line
	// as it is now, including lines added after the caller read the cart.
	RemoveLines(ctx context.Context, userID string, productIDs []primitive.ObjectID) error
	// RestoreLines puts lines back for products the cart no longer holds.
	// Lines present again are left untouched.
	RestoreLines(ctx context.Context, userID string, lines []domain.CartLine) error
	// PurgeEmpty deletes carts holding no lines and reports how many went.
	PurgeEmpty(ctx context.Context) (int64, error)
}

type SaleStore interface {
	// LastInvoice returns the highest invoice number matching pattern (a
	// regular expression anchored on prefix and year) or "" if none.
	LastInvoice(ctx context.Context, pattern string) (string, error)
	// Insert fails with domain.ErrDuplicateInvoice when the number is taken.
	Insert(ctx context.Context, s *domain.Sale) error
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Sale, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Sale, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
	Count(ctx context.Context) (int64, error)
}

type AuditStore interface {
	Append(ctx context.Context, rec *domain.AuditRecord) error
	// List returns matching records newest first.
	List(ctx context.Context, f domain.AuditFilter, limit int) ([]domain.AuditRecord, error)
	Count(ctx context.Context, f domain.AuditFilter) (int64, error)
	TopActions(ctx context.Context, f domain.AuditFilter, n int) ([]domain.ActionCount, error)
	Actions(ctx context.Context) ([]domain.Action, error)
}

type AvatarStore interface {
	Get(ctx context.Context, userID string) (*domain.Avatar, error)
	Put(ctx context.Context, a *domain.Avatar) error
	Clear(ctx context.Context, userID string) error
}

// ReportStore runs the read-only sales aggregations. Results are in UTC.
type ReportStore interface {
	Sales(ctx context.Context, f domain.ReportFilter) ([]domain.ReportRow, error)
	Stats(ctx context.Context, f domain.ReportFilter) (domain.SalesStats, error)
	// ByStatus returns only the statuses that occur.
	ByStatus(ctx context.Context, f domain.ReportFilter) ([]domain.StatusBucket, error)
	// ByPaymentMethod is ordered by total, largest first.
	ByPaymentMethod(ctx context.Context, f domain.ReportFilter) ([]domain.MethodBucket, error)
	TopProducts(ctx context.Context, f domain.ReportFilter, n int) ([]domain.ProductSales, error)
	// ByDay buckets sales created at or after since, ascending by day.
	ByDay(ctx context.Context, since time.Time) ([]domain.DayBucket, error)
	PaymentMethods(ctx context.Context) ([]string, error)
}

// Transactor runs fn so that its writes commit together where the backend
// supports it. Callers still compensate on error.
type Transactor interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}

type Lifecycle interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Store struct {
	Products ProductStore
	Carts    CartStore
	Sales    SaleStore
	Audit    AuditStore
	Avatars  AvatarStore
	Reports  ReportStore
	Tx       Transactor
	Lifecycle
}

// ParseID converts a hex id from a URL into an ObjectID. Malformed ids are
// reported as NotFound for kind.
func ParseID(kind, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, domain.NotFound(kind, hex)
	}
	return id, nil
}
