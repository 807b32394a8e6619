// Package memstore is an in-process docstore used for local runs and tests.
// All collections share one mutex, so every operation is linearizable.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/docstore"
	"storefront/internal/domain"
)

var errClosed = errors.New("memstore: closed")

type db struct {
	mu       sync.Mutex
	now      func() time.Time
	products map[primitive.ObjectID]domain.Product
	carts    map[string]domain.Cart
	sales    []domain.Sale
	audit    []domain.AuditRecord
	avatars  map[string]domain.Avatar
	closed   bool
}

type Option func(*db)

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) Option { return func(d *db) { d.now = now } }

func New(opts ...Option) *docstore.Store {
	d := &db{
		now:      time.Now,
		products: map[primitive.ObjectID]domain.Product{},
		carts:    map[string]domain.Cart{},
		avatars:  map[string]domain.Avatar{},
	}
	for _, o := range opts {
		o(d)
	}
	return &docstore.Store{
		Products:  &products{d},
		Carts:     &carts{d},
		Sales:     &sales{d},
		Audit:     &audit{d},
		Avatars:   &avatars{d},
		Reports:   &reports{d},
		Tx:        tx{},
		Lifecycle: d,
	}
}

func (d *db) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.Unavailable("ping", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return domain.Unavailable("ping", errClosed)
	}
	return nil
}

func (d *db) Close(context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// tx runs fn directly. Compensation in the caller restores state.
type tx struct{}

func (tx) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

func cloneLines(in []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, len(in))
	copy(out, in)
	return out
}

func cloneSale(s domain.Sale) domain.Sale {
	s.Lines = append([]domain.SaleLine(nil), s.Lines...)
	return s
}

func cloneExtra(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
