package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/domain"
)

type saleStore struct{ coll *mongo.Collection }

func (s *saleStore) LastInvoice(ctx context.Context, pattern string) (string, error) {
	var doc struct {
		InvoiceNumber string `bson:"invoice_number"`
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "invoice_number", Value: -1}}).
		SetProjection(bson.M{"invoice_number": 1})
	err := s.coll.FindOne(ctx, bson.M{"invoice_number": primitive.Regex{Pattern: pattern}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", mapErr("last invoice", err)
	}
	return doc.InvoiceNumber, nil
}

func (s *saleStore) Insert(ctx context.Context, sale *domain.Sale) error {
	if sale.ID.IsZero() {
		sale.ID = primitive.NewObjectID()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now()
	}
	_, err := s.coll.InsertOne(ctx, sale)
	if mongo.IsDuplicateKeyError(err) {
		sale.ID = primitive.NilObjectID
		return fmt.Errorf("insert sale %s: %w", sale.InvoiceNumber, domain.ErrDuplicateInvoice)
	}
	return mapErr("insert sale", err)
}

func (s *saleStore) Get(ctx context.Context, id primitive.ObjectID) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&sale)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("sale", id.Hex())
	}
	if err != nil {
		return nil, mapErr("get sale", err)
	}
	return &sale, nil
}

func (s *saleStore) ListByUser(ctx context.Context, userID string) ([]domain.Sale, error) {
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, mapErr("list sales", err)
	}
	out := []domain.Sale{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr("decode sales", err)
	}
	return out, nil
}

func (s *saleStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return mapErr("update sale status", err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("sale", id.Hex())
	}
	return nil
}

func (s *saleStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	return n, mapErr("count sales", err)
}

type auditStore struct{ coll *mongo.Collection }

func auditFilter(f domain.AuditFilter) bson.M {
	m := bson.M{}
	if f.Action != "" {
		m["action"] = f.Action
	}
	if f.Actor != "" {
		m["actor"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Actor), Options: "i"}
	}
	if r := timeRange(f.From, f.To); r != nil {
		m["at"] = r
	}
	return m
}

func (s *auditStore) Append(ctx context.Context, rec *domain.AuditRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.At.IsZero() {
		rec.At = now()
	}
	_, err := s.coll.InsertOne(ctx, rec)
	return mapErr("append audit", err)
}

func (s *auditStore) List(ctx context.Context, f domain.AuditFilter, limit int) ([]domain.AuditRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, auditFilter(f), opts)
	if err != nil {
		return nil, mapErr("list audit", err)
	}
	out := []domain.AuditRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr("decode audit", err)
	}
	return out, nil
}

func (s *auditStore) Count(ctx context.Context, f domain.AuditFilter) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, auditFilter(f))
	return n, mapErr("count audit", err)
}

func topActionsPipeline(f domain.AuditFilter, n int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: auditFilter(f)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$action"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: n}},
	}
}

func (s *auditStore) TopActions(ctx context.Context, f domain.AuditFilter, n int) ([]domain.ActionCount, error) {
	out := []domain.ActionCount{}
	if err := aggregate(ctx, s.coll, "top actions", topActionsPipeline(f, n), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *auditStore) Actions(ctx context.Context) ([]domain.Action, error) {
	raw, err := s.coll.Distinct(ctx, "action", bson.M{})
	if err != nil {
		return nil, mapErr("distinct actions", err)
	}
	out := make([]domain.Action, 0, len(raw))
	for _, v := range raw {
		if a, ok := v.(string); ok {
			out = append(out, domain.Action(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type avatarStore struct{ coll *mongo.Collection }

func (s *avatarStore) Get(ctx context.Context, userID string) (*domain.Avatar, error) {
	var a domain.Avatar
	err := s.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFound("avatar", userID)
	}
	if err != nil {
		return nil, mapErr("get avatar", err)
	}
	return &a, nil
}

func (s *avatarStore) Put(ctx context.Context, a *domain.Avatar) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now()
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"user_id": a.UserID},
		bson.M{"$set": bson.M{"email": a.Email, "avatar": a.Image, "avatar_updated_at": a.UpdatedAt}},
		options.Update().SetUpsert(true),
	)
	return mapErr("put avatar", err)
}

func (s *avatarStore) Clear(ctx context.Context, userID string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$unset": bson.M{"avatar": ""}, "$set": bson.M{"avatar_updated_at": now()}},
	)
	return mapErr("clear avatar", err)
}
