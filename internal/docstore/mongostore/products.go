package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/domain"
)

type productStore struct{ coll *mongo.Collection }

func (s *productStore) List(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, mapErr("list products", err)
	}
	out := []domain.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr("decode products", err)
	}
	return out, nil
}

func (s *productStore) Get(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	var p domain.Product
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("product", id.Hex())
	}
	if err != nil {
		return nil, mapErr("get product", err)
	}
	return &p, nil
}

func (s *productStore) Insert(ctx context.Context, p *domain.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	t := now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = t
	}
	p.UpdatedAt = t
	_, err := s.coll.InsertOne(ctx, p)
	return mapErr("insert product", err)
}

func (s *productStore) update(ctx context.Context, op string, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = now()
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return mapErr(op, err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("product", id.Hex())
	}
	return nil
}

func (s *productStore) Update(ctx context.Context, p *domain.Product) error {
	return s.update(ctx, "update product", p.ID, bson.M{
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"price":       p.Price,
		"active":      p.Active,
		"image":       p.Image,
	})
}

func (s *productStore) SetStock(ctx context.Context, id primitive.ObjectID, stock int) error {
	return s.update(ctx, "set stock", id, bson.M{"stock": stock})
}

func (s *productStore) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return s.update(ctx, "deactivate product", id, bson.M{"active": false})
}

func (s *productStore) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updated_at": now()}},
	)
	if err != nil {
		return mapErr("decrement stock", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return &domain.StockError{ProductID: id.Hex(), Name: p.Name, Requested: qty, Available: p.Stock}
}

func (s *productStore) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"stock": qty}, "$set": bson.M{"updated_at": now()}})
	if err != nil {
		return mapErr("increment stock", err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("product", id.Hex())
	}
	return nil
}

func (s *productStore) CountActive(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"active": true})
	return n, mapErr("count products", err)
}
