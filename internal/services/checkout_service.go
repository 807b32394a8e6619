package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/docstore"
	"storefront/internal/domain"
	"storefront/internal/invoice"
	applog "storefront/internal/log"
	"storefront/internal/pricing"
	"storefront/internal/telemetry"
	"storefront/internal/validate"
)

// invoiceAttempts bounds retries when a concurrent checkout takes the same
// invoice number.
const invoiceAttempts = 5

type CheckoutService struct {
	Store   *docstore.Store
	Audit   *AuditService
	TaxRate float64
	Prefix  string
	Now     func() time.Time
}

func NewCheckoutService(store *docstore.Store, audit *AuditService, taxRate float64, prefix string) *CheckoutService {
	if prefix == "" {
		prefix = invoice.DefaultPrefix
	}
	return &CheckoutService{Store: store, Audit: audit, TaxRate: taxRate, Prefix: prefix}
}

// Checkout turns the buyer's cart into a completed sale. Stock is taken with
// a conditional decrement per line, then the sold lines leave the cart and
// the sale is written. Any failure undoes the steps already done, so stock, cart and
// sales are left as they were.
func (s *CheckoutService) Checkout(ctx context.Context, buyer *domain.User, paymentMethod, notes string) (sale *domain.Sale, err error) {
	ctx, span := telemetry.Start(ctx, "checkout")
	defer func() { telemetry.End(span, err) }()

	if buyer == nil {
		return nil, domain.Invalid("user", "login required")
	}
	method, ok := validate.PaymentMethod(paymentMethod)
	if !ok {
		return nil, domain.Invalid("payment_method", "unsupported payment method")
	}
	if len(notes) > 500 {
		return nil, domain.Invalid("notes", "must be at most 500 characters")
	}

	cart, err := s.Store.Carts.GetOrCreate(ctx, buyer.ID)
	if err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	// Nothing is written until every line is covered.
	for _, l := range cart.Lines {
		p, err := s.Store.Products.Get(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, domain.NotFound("product", l.ProductID.Hex())
		}
		if p.Stock < l.Quantity {
			return nil, &domain.StockError{ProductID: p.ID.Hex(), Name: p.Name, Requested: l.Quantity, Available: p.Stock}
		}
	}

	totals := pricing.ForCart(cart, s.TaxRate)
	sale = &domain.Sale{
		UserID:        buyer.ID,
		UserName:      buyer.FullName(),
		UserEmail:     buyer.Email,
		Lines:         make([]domain.SaleLine, 0, len(cart.Lines)),
		Subtotal:      totals.Subtotal,
		TaxRate:       totals.TaxRate,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaymentMethod: method,
		Status:        domain.SaleCompleted,
		CreatedAt:     clock(s.Now).now().Truncate(time.Millisecond),
		Notes:         notes,
	}
	for _, l := range cart.Lines {
		sale.Lines = append(sale.Lines, domain.SaleLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  pricing.LineSubtotal(l.UnitPrice, l.Quantity),
		})
	}

	// A duplicate invoice aborts a server-side transaction, so every retry
	// runs the whole commit again in a fresh atomic unit.
	for attempt := 1; ; attempt++ {
		err = s.Store.Tx.RunAtomic(ctx, func(ctx context.Context) error {
			return s.commit(ctx, buyer.ID, cart.Lines, sale)
		})
		if !errors.Is(err, domain.ErrDuplicateInvoice) || attempt >= invoiceAttempts {
			break
		}
		span.AddEvent("invoice.collision", trace.WithAttributes(attribute.String("invoice", sale.InvoiceNumber)))
	}
	if err != nil {
		applog.Event(ctx, "warn", "checkout.fail", err, map[string]any{"user_id": buyer.ID})
		return nil, err
	}
	span.SetAttributes(
		attribute.String("invoice", sale.InvoiceNumber),
		attribute.Float64("total", sale.Total),
	)

	actor := actorEmail(buyer)
	s.Audit.Record(ctx, domain.ActionCreateSale, actor,
		fmt.Sprintf("Sale %s for $%.2f", sale.InvoiceNumber, sale.Total),
		map[string]any{"sale_id": sale.ID.Hex(), "invoice": sale.InvoiceNumber, "total": sale.Total, "items": len(sale.Lines)})
	for _, l := range sale.Lines {
		s.Audit.Record(ctx, domain.ActionUpdateStock, actor,
			fmt.Sprintf("Stock -%d for %s (sale %s)", l.Quantity, l.Name, sale.InvoiceNumber),
			map[string]any{"product_id": l.ProductID.Hex(), "quantity": -l.Quantity})
	}
	applog.Event(ctx, "info", "checkout.complete", nil, map[string]any{
		"invoice": sale.InvoiceNumber, "total": sale.Total, "user_id": buyer.ID,
	})
	return sale, nil
}

func (s *CheckoutService) commit(ctx context.Context, userID string, lines []domain.CartLine, sale *domain.Sale) error {
	var undo []func(context.Context) error
	fail := func(cause error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](ctx); err != nil {
				applog.Event(ctx, "error", "checkout.compensate.fail", err, map[string]any{"user_id": userID})
			}
		}
		return cause
	}

	for _, l := range lines {
		if err := s.Store.Products.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			return fail(err)
		}
		id, q := l.ProductID, l.Quantity
		undo = append(undo, func(ctx context.Context) error {
			return s.Store.Products.IncrementStock(ctx, id, q)
		})
	}

	// Only the sold lines leave the cart; anything added meanwhile stays.
	sold := make([]primitive.ObjectID, len(lines))
	for i, l := range lines {
		sold[i] = l.ProductID
	}
	if err := s.Store.Carts.RemoveLines(ctx, userID, sold); err != nil {
		return fail(err)
	}
	saved := append([]domain.CartLine(nil), lines...)
	undo = append(undo, func(ctx context.Context) error {
		return s.Store.Carts.RestoreLines(ctx, userID, saved)
	})

	if err := s.insertWithInvoice(ctx, sale); err != nil {
		return fail(err)
	}
	return nil
}

// insertWithInvoice numbers the sale after the highest invoice of its year
// and inserts it. A concurrent checkout taking the same number surfaces as
// ErrDuplicateInvoice.
func (s *CheckoutService) insertWithInvoice(ctx context.Context, sale *domain.Sale) error {
	year := sale.CreatedAt.Year()
	last, err := s.Store.Sales.LastInvoice(ctx, invoice.YearPattern(s.Prefix, year))
	if err != nil {
		return err
	}
	num, err := invoice.Next(s.Prefix, year, last)
	if err != nil {
		return err
	}
	sale.InvoiceNumber = num
	return s.Store.Sales.Insert(ctx, sale)
}

// Sale returns a sale visible to viewer: its buyer or staff.
func (s *CheckoutService) Sale(ctx context.Context, viewer *domain.User, id primitive.ObjectID) (*domain.Sale, error) {
	sale, err := s.Store.Sales.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer == nil || (!viewer.IsStaff() && sale.UserID != viewer.ID) {
		return nil, domain.NotFound("sale", id.Hex())
	}
	return sale, nil
}

func (s *CheckoutService) SalesFor(ctx context.Context, userID string) ([]domain.Sale, error) {
	return s.Store.Sales.ListByUser(ctx, userID)
}

// UpdateStatus is the only mutation a sale accepts after creation.
func (s *CheckoutService) UpdateStatus(ctx context.Context, actor *domain.User, id primitive.ObjectID, status string) error {
	if !actor.IsStaff() {
		return domain.NotFound("sale", id.Hex())
	}
	valid := false
	for _, st := range domain.SaleStatuses {
		valid = valid || st == status
	}
	if !valid {
		return domain.Invalid("status", "must be one of completed, pending, cancelled")
	}
	sale, err := s.Store.Sales.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Sales.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.Audit.Record(ctx, domain.ActionUpdateSaleStatus, actorEmail(actor),
		fmt.Sprintf("Sale %s: %s -> %s", sale.InvoiceNumber, sale.Status, status),
		map[string]any{"sale_id": id.Hex(), "status": status})
	return nil
}
