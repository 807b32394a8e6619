package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/docstore"
	"storefront/internal/domain"
	"storefront/internal/pricing"
)

type CartService struct {
	Carts   docstore.CartStore
	Prods   docstore.ProductStore
	Audit   *AuditService
	TaxRate float64
}

func NewCartService(store *docstore.Store, audit *AuditService, taxRate float64) *CartService {
	return &CartService{Carts: store.Carts, Prods: store.Products, Audit: audit, TaxRate: taxRate}
}

type CartView struct {
	Cart      *domain.Cart   `json:"cart"`
	Totals    pricing.Totals `json:"totals"`
	ItemCount int            `json:"item_count"`
}

func (s *CartService) view(c *domain.Cart) *CartView {
	return &CartView{Cart: c, Totals: pricing.ForCart(c, s.TaxRate), ItemCount: c.ItemCount()}
}

func (s *CartService) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.Carts.GetOrCreate(ctx, userID)
}

func (s *CartService) View(ctx context.Context, userID string) (*CartView, error) {
	c, err := s.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// activeProduct loads a product that can still be bought.
func (s *CartService) activeProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, domain.NotFound("product", id.Hex())
	}
	return p, nil
}

// AddItem puts qty units of a product in the cart, merging with an existing
// line. The merged quantity must fit in current stock.
func (s *CartService) AddItem(ctx context.Context, u *domain.User, productID primitive.ObjectID, qty int) (*CartView, error) {
	if qty < 1 {
		return nil, domain.Invalid("quantity", "must be at least 1")
	}
	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	c, err := s.Carts.GetOrCreate(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	i := c.Line(productID)
	existing := 0
	if i >= 0 {
		existing = c.Lines[i].Quantity
	}
	if existing+qty > p.Stock {
		return nil, &domain.StockError{ProductID: productID.Hex(), Name: p.Name, Requested: existing + qty, Available: p.Stock}
	}
	if i >= 0 {
		c.Lines[i].Quantity += qty
	} else {
		c.Lines = append(c.Lines, domain.CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  qty,
			Image:     p.Image,
		})
	}
	if err := s.Carts.SaveLines(ctx, u.ID, c.Lines); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionAddToCart, actorEmail(u),
		fmt.Sprintf("Added %d x %s to cart", qty, p.Name),
		map[string]any{"product_id": productID.Hex(), "quantity": qty})
	return s.view(c), nil
}

// SetQuantity replaces the quantity of an existing line.
func (s *CartService) SetQuantity(ctx context.Context, u *domain.User, productID primitive.ObjectID, qty int) (*CartView, error) {
	if qty < 1 {
		return nil, domain.Invalid("quantity", "must be at least 1")
	}
	c, err := s.Carts.GetOrCreate(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	i := c.Line(productID)
	if i < 0 {
		return nil, domain.NotFound("cart line", productID.Hex())
	}
	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if qty > p.Stock {
		return nil, &domain.StockError{ProductID: productID.Hex(), Name: p.Name, Requested: qty, Available: p.Stock}
	}
	prev := c.Lines[i].Quantity
	c.Lines[i].Quantity = qty
	if err := s.Carts.SaveLines(ctx, u.ID, c.Lines); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionUpdateCart, actorEmail(u),
		fmt.Sprintf("Changed %s quantity from %d to %d", p.Name, prev, qty),
		map[string]any{"product_id": productID.Hex(), "quantity": qty})
	return s.view(c), nil
}

// RemoveItem drops a line. Removing a product that is not in the cart is a
// no-op.
func (s *CartService) RemoveItem(ctx context.Context, u *domain.User, productID primitive.ObjectID) (*CartView, error) {
	c, err := s.Carts.GetOrCreate(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	i := c.Line(productID)
	if i < 0 {
		return s.view(c), nil
	}
	removed := c.Lines[i]
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	if err := s.Carts.SaveLines(ctx, u.ID, c.Lines); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionRemoveFromCart, actorEmail(u),
		fmt.Sprintf("Removed %s from cart", removed.Name),
		map[string]any{"product_id": productID.Hex()})
	return s.view(c), nil
}

func (s *CartService) Clear(ctx context.Context, u *domain.User) (*CartView, error) {
	c, err := s.Carts.GetOrCreate(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	c.Lines = []domain.CartLine{}
	if err := s.Carts.SaveLines(ctx, u.ID, c.Lines); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionClearCart, actorEmail(u), "Cleared cart", nil)
	return s.view(c), nil
}
