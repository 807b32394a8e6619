package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/docstore"
	"storefront/internal/domain"
)

const (
	lowStockMax      = 5
	criticalStockMax = 2
)

type InventoryService struct {
	Prods docstore.ProductStore
	Audit *AuditService
}

func NewInventoryService(prods docstore.ProductStore, audit *AuditService) *InventoryService {
	return &InventoryService{Prods: prods, Audit: audit}
}

// Level maps a unit count to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func Level(qty int) string {
	switch {
	case qty > lowStockMax:
		return "IN_STOCK"
	case qty > 0:
		return "LOW_STOCK"
	default:
		return "OUT_OF_STOCK"
	}
}

func (s *InventoryService) CheckAvailability(ctx context.Context, productID primitive.ObjectID) (domain.Availability, error) {
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return domain.Availability{}, err
	}
	if !p.Active {
		return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
	}
	return domain.Availability{Status: Level(p.Stock), Qty: p.Stock}, nil
}

func (s *InventoryService) SetStock(ctx context.Context, actor *domain.User, productID primitive.ObjectID, stock int) (*domain.Product, error) {
	if stock < 0 {
		return nil, domain.Invalid("stock", "must not be negative")
	}
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.Prods.SetStock(ctx, productID, stock); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionUpdateStock, actorEmail(actor),
		fmt.Sprintf("Stock for %s set from %d to %d", p.Name, p.Stock, stock),
		map[string]any{"product_id": productID.Hex(), "from": p.Stock, "to": stock})
	p.Stock = stock
	return p, nil
}

// Buckets groups active products as critical (<=2), low (3..5) or good (>5).
func (s *InventoryService) Buckets(ctx context.Context) (domain.StockBuckets, error) {
	ps, err := s.Prods.List(ctx, true)
	if err != nil {
		return domain.StockBuckets{}, err
	}
	b := domain.StockBuckets{Critical: []domain.Product{}, Low: []domain.Product{}, Good: []domain.Product{}}
	for _, p := range ps {
		switch {
		case p.Stock <= criticalStockMax:
			b.Critical = append(b.Critical, p)
		case p.Stock <= lowStockMax:
			b.Low = append(b.Low, p)
		default:
			b.Good = append(b.Good, p)
		}
	}
	return b, nil
}
