package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/docstore"
	"storefront/internal/domain"
	"storefront/internal/validate"
)

type CatalogService struct {
	Prods docstore.ProductStore
	Audit *AuditService
}

func NewCatalogService(prods docstore.ProductStore, audit *AuditService) *CatalogService {
	return &CatalogService{Prods: prods, Audit: audit}
}

type ProductQuery struct {
	Q               string
	Category        string
	IncludeInactive bool
}

// ProductInput carries the editable product fields. ImageData, when set,
// wins over ImageURL.
type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"image_url"`
	ImageData   []byte  `json:"image_data"`
	Active      *bool   `json:"active"`
}

func (in ProductInput) image() (domain.ImageRef, error) {
	if len(in.ImageData) > 0 {
		ct, ok := validate.Image(in.ImageData)
		if !ok {
			return domain.ImageRef{}, domain.Invalid("image_data", "must be a jpeg, png, gif or webp of at most 1 MiB")
		}
		return domain.EmbeddedImage(in.ImageData, ct), nil
	}
	if strings.TrimSpace(in.ImageURL) == "" {
		return domain.ImageRef{}, nil
	}
	u, ok := validate.ImageURL(in.ImageURL)
	if !ok {
		return domain.ImageRef{}, domain.Invalid("image_url", "must be an http(s) URL")
	}
	return domain.ImageURL(u), nil
}

func (in ProductInput) apply(p *domain.Product) error {
	name, ok := validate.Text(in.Name, 100)
	if !ok {
		return domain.Invalid("name", "is required (max 100 characters)")
	}
	if in.Price < 0 {
		return domain.Invalid("price", "must not be negative")
	}
	if len(in.Description) > 2000 {
		return domain.Invalid("description", "must be at most 2000 characters")
	}
	img, err := in.image()
	if err != nil {
		return err
	}
	p.Name = name
	p.Description = strings.TrimSpace(in.Description)
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.Image = img
	if in.Active != nil {
		p.Active = *in.Active
	}
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) ([]domain.Product, error) {
	all, err := s.Prods.List(ctx, !q.IncludeInactive)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := all[:0]
	for _, p := range all {
		if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Product returns an active product. Inactive ones are hidden unless staff asks.
func (s *CatalogService) Product(ctx context.Context, viewer *domain.User, id primitive.ObjectID) (*domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active && !viewer.IsStaff() {
		return nil, domain.NotFound("product", id.Hex())
	}
	return p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor *domain.User, in ProductInput) (*domain.Product, error) {
	if in.Stock < 0 {
		return nil, domain.Invalid("stock", "must not be negative")
	}
	p := &domain.Product{Active: true, Stock: in.Stock, CreatedBy: actorEmail(actor)}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.Prods.Insert(ctx, p); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionCreateProduct, actorEmail(actor),
		fmt.Sprintf("Created product %s", p.Name),
		map[string]any{"product_id": p.ID.Hex(), "price": p.Price, "stock": p.Stock})
	return p, nil
}

// UpdateProduct edits everything but stock, which has its own operation.
func (s *CatalogService) UpdateProduct(ctx context.Context, actor *domain.User, id primitive.ObjectID, in ProductInput) (*domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	keep := p.Image
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if p.Image.IsZero() && in.ImageURL == "" && len(in.ImageData) == 0 {
		p.Image = keep
	}
	if err := s.Prods.Update(ctx, p); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionUpdateProduct, actorEmail(actor),
		fmt.Sprintf("Updated product %s", p.Name),
		map[string]any{"product_id": id.Hex()})
	return p, nil
}

// DeactivateProduct hides a product. Past sales keep referring to it.
func (s *CatalogService) DeactivateProduct(ctx context.Context, actor *domain.User, id primitive.ObjectID) error {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Prods.Deactivate(ctx, id); err != nil {
		return err
	}
	s.Audit.Record(ctx, domain.ActionDeleteProduct, actorEmail(actor),
		fmt.Sprintf("Deactivated product %s", p.Name),
		map[string]any{"product_id": id.Hex()})
	return nil
}
