package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/domain"
)

type cartStore struct{ coll *mongo.Collection }

func (s *cartStore) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	t := now()
	upsert := bson.M{"$setOnInsert": bson.M{
		"user_id":    userID,
		"lines":      bson.A{},
		"created_at": t,
		"updated_at": t,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c domain.Cart
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, upsert, opts).Decode(&c)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the upsert race against another request; the cart exists now.
		err = s.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&c)
	}
	if err != nil {
		return nil, mapErr("get cart", err)
	}
	if c.Lines == nil {
		c.Lines = []domain.CartLine{}
	}
	return &c, nil
}

func (s *cartStore) SaveLines(ctx context.Context, userID string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	t := now()
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set":         bson.M{"lines": lines, "updated_at": t},
			"$setOnInsert": bson.M{"created_at": t},
		},
		options.Update().SetUpsert(true),
	)
	return mapErr("save cart", err)
}

func (s *cartStore) RemoveLines(ctx context.Context, userID string, productIDs []primitive.ObjectID) error {
	if len(productIDs) == 0 {
		return nil
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$pull": bson.M{"lines": bson.M{"product_id": bson.M{"$in": productIDs}}},
			"$set":  bson.M{"updated_at": now()},
		},
	)
	return mapErr("remove cart lines", err)
}

// RestoreLines pushes each line only while its product is absent, so a line
// the user re-added in the meantime wins.
func (s *cartStore) RestoreLines(ctx context.Context, userID string, lines []domain.CartLine) error {
	for _, l := range lines {
		t := now()
		_, err := s.coll.UpdateOne(ctx,
			bson.M{"user_id": userID, "lines.product_id": bson.M{"$ne": l.ProductID}},
			bson.M{"$push": bson.M{"lines": l}, "$set": bson.M{"updated_at": t}},
		)
		if err != nil {
			return mapErr("restore cart lines", err)
		}
	}
	return nil
}

func (s *cartStore) PurgeEmpty(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"lines.0": bson.M{"$exists": false}})
	if err != nil {
		return 0, mapErr("purge carts", err)
	}
	return res.DeletedCount, nil
}
