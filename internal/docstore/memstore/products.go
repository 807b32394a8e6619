package memstore

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/domain"
)

type products struct{ d *db }

func (s *products) List(_ context.Context, activeOnly bool) ([]domain.Product, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := make([]domain.Product, 0, len(s.d.products))
	for _, p := range s.d.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *products) Get(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	p, ok := s.d.products[id]
	if !ok {
		return nil, domain.NotFound("product", id.Hex())
	}
	return &p, nil
}

func (s *products) Insert(_ context.Context, p *domain.Product) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := s.d.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.d.products[p.ID] = *p
	return nil
}

func (s *products) Update(_ context.Context, p *domain.Product) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	cur, ok := s.d.products[p.ID]
	if !ok {
		return domain.NotFound("product", p.ID.Hex())
	}
	cur.Name, cur.Description, cur.Category = p.Name, p.Description, p.Category
	cur.Price, cur.Active, cur.Image = p.Price, p.Active, p.Image
	cur.UpdatedAt = s.d.now().UTC()
	s.d.products[p.ID] = cur
	*p = cur
	return nil
}

func (s *products) mutate(id primitive.ObjectID, fn func(p *domain.Product) error) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	p, ok := s.d.products[id]
	if !ok {
		return domain.NotFound("product", id.Hex())
	}
	if err := fn(&p); err != nil {
		return err
	}
	p.UpdatedAt = s.d.now().UTC()
	s.d.products[id] = p
	return nil
}

func (s *products) SetStock(_ context.Context, id primitive.ObjectID, stock int) error {
	return s.mutate(id, func(p *domain.Product) error { p.Stock = stock; return nil })
}

func (s *products) Deactivate(_ context.Context, id primitive.ObjectID) error {
	return s.mutate(id, func(p *domain.Product) error { p.Active = false; return nil })
}

func (s *products) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	return s.mutate(id, func(p *domain.Product) error {
		if p.Stock < qty {
			return &domain.StockError{ProductID: id.Hex(), Name: p.Name, Requested: qty, Available: p.Stock}
		}
		p.Stock -= qty
		return nil
	})
}

func (s *products) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	return s.mutate(id, func(p *domain.Product) error { p.Stock += qty; return nil })
}

func (s *products) CountActive(context.Context) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var n int64
	for _, p := range s.d.products {
		if p.Active {
			n++
		}
	}
	return n, nil
}

type carts struct{ d *db }

func (s *carts) GetOrCreate(_ context.Context, userID string) (*domain.Cart, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	c, ok := s.d.carts[userID]
	if !ok {
		now := s.d.now().UTC()
		c = domain.Cart{ID: primitive.NewObjectID(), UserID: userID, Lines: []domain.CartLine{}, CreatedAt: now, UpdatedAt: now}
		s.d.carts[userID] = c
	}
	c.Lines = cloneLines(c.Lines)
	return &c, nil
}

func (s *carts) SaveLines(_ context.Context, userID string, lines []domain.CartLine) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	now := s.d.now().UTC()
	c, ok := s.d.carts[userID]
	if !ok {
		c = domain.Cart{ID: primitive.NewObjectID(), UserID: userID, CreatedAt: now}
	}
	c.Lines = cloneLines(lines)
	c.UpdatedAt = now
	s.d.carts[userID] = c
	return nil
}

func (s *carts) RemoveLines(_ context.Context, userID string, productIDs []primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	c, ok := s.d.carts[userID]
	if !ok || len(productIDs) == 0 {
		return nil
	}
	drop := make(map[primitive.ObjectID]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	kept := []domain.CartLine{}
	for _, l := range c.Lines {
		if !drop[l.ProductID] {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
	c.UpdatedAt = s.d.now().UTC()
	s.d.carts[userID] = c
	return nil
}

func (s *carts) RestoreLines(_ context.Context, userID string, lines []domain.CartLine) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	c, ok := s.d.carts[userID]
	if !ok {
		return nil
	}
	c.Lines = cloneLines(c.Lines)
	for _, l := range lines {
		if c.Line(l.ProductID) < 0 {
			c.Lines = append(c.Lines, l)
		}
	}
	c.UpdatedAt = s.d.now().UTC()
	s.d.carts[userID] = c
	return nil
}

func (s *carts) PurgeEmpty(context.Context) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var n int64
	for uid, c := range s.d.carts {
		if len(c.Lines) == 0 {
			delete(s.d.carts, uid)
			n++
		}
	}
	return n, nil
}

type avatars struct{ d *db }

func (s *avatars) Get(_ context.Context, userID string) (*domain.Avatar, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	a, ok := s.d.avatars[userID]
	if !ok {
		return nil, domain.NotFound("avatar", userID)
	}
	return &a, nil
}

func (s *avatars) Put(_ context.Context, a *domain.Avatar) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = s.d.now().UTC()
	}
	s.d.avatars[a.UserID] = *a
	return nil
}

func (s *avatars) Clear(_ context.Context, userID string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	a, ok := s.d.avatars[userID]
	if !ok {
		return nil
	}
	a.Image = domain.ImageRef{}
	a.UpdatedAt = s.d.now().UTC()
	s.d.avatars[userID] = a
	return nil
}
