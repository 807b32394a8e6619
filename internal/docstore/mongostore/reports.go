package mongostore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/domain"
)

type reportStore struct{ coll *mongo.Collection }

func timeRange(from, to *time.Time) bson.M {
	if from == nil && to == nil {
		return nil
	}
	r := bson.M{}
	if from != nil {
		r["$gte"] = *from
	}
	if to != nil {
		r["$lte"] = *to
	}
	return r
}

// saleFilter is the $match document for f. Bounds are inclusive.
func saleFilter(f domain.ReportFilter) bson.M {
	m := bson.M{}
	if r := timeRange(f.From, f.To); r != nil {
		m["created_at"] = r
	}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if f.PaymentMethod != "" {
		m["payment_method"] = f.PaymentMethod
	}
	if f.MinTotal != nil || f.MaxTotal != nil {
		t := bson.M{}
		if f.MinTotal != nil {
			t["$gte"] = *f.MinTotal
		}
		if f.MaxTotal != nil {
			t["$lte"] = *f.MaxTotal
		}
		m["total"] = t
	}
	return m
}

func match(f domain.ReportFilter) bson.D {
	return bson.D{{Key: "$match", Value: saleFilter(f)}}
}

// itemCountExpr counts the lines of a sale, not the units on them.
var itemCountExpr = bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$lines", bson.A{}}}}}}

func salesPipeline(f domain.ReportFilter) mongo.Pipeline {
	return mongo.Pipeline{
		match(f),
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "item_count", Value: itemCountExpr},
			{Key: "weekday", Value: bson.D{{Key: "$dayOfWeek", Value: "$created_at"}}},
			{Key: "hour", Value: bson.D{{Key: "$hour", Value: "$created_at"}}},
		}}},
	}
}

func statsPipeline(f domain.ReportFilter) mongo.Pipeline {
	return mongo.Pipeline{
		match(f),
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$total"}}},
			{Key: "average", Value: bson.D{{Key: "$avg", Value: "$total"}}},
			{Key: "max", Value: bson.D{{Key: "$max", Value: "$total"}}},
			{Key: "min", Value: bson.D{{Key: "$min", Value: "$total"}}},
			{Key: "items_total", Value: bson.D{{Key: "$sum", Value: itemCountExpr}}},
		}}},
	}
}

func statusPipeline(f domain.ReportFilter) mongo.Pipeline {
	return mongo.Pipeline{
		match(f),
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$total"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func methodPipeline(f domain.ReportFilter) mongo.Pipeline {
	return mongo.Pipeline{
		match(f),
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$payment_method"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$total"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "method", Value: "$_id"},
			{Key: "count", Value: 1},
			{Key: "total", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total", Value: -1}, {Key: "method", Value: 1}}}},
	}
}

func topProductsPipeline(f domain.ReportFilter, n int) mongo.Pipeline {
	return mongo.Pipeline{
		match(f),
		{{Key: "$unwind", Value: "$lines"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$lines.name"},
			{Key: "quantity", Value: bson.D{{Key: "$sum", Value: "$lines.quantity"}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$lines.subtotal"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "quantity", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: n}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "name", Value: "$_id"},
			{Key: "quantity", Value: 1},
			{Key: "revenue", Value: 1},
		}}},
	}
}

func dayPipeline(since time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$created_at"},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$total"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func aggregate(ctx context.Context, coll *mongo.Collection, op string, p mongo.Pipeline, out any) error {
	cur, err := coll.Aggregate(ctx, p)
	if err != nil {
		return mapErr(op, err)
	}
	return mapErr(op, cur.All(ctx, out))
}

func (s *reportStore) Sales(ctx context.Context, f domain.ReportFilter) ([]domain.ReportRow, error) {
	out := []domain.ReportRow{}
	if err := aggregate(ctx, s.coll, "report sales", salesPipeline(f), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *reportStore) Stats(ctx context.Context, f domain.ReportFilter) (domain.SalesStats, error) {
	var rows []domain.SalesStats
	if err := aggregate(ctx, s.coll, "report stats", statsPipeline(f), &rows); err != nil {
		return domain.SalesStats{}, err
	}
	if len(rows) == 0 {
		return domain.SalesStats{}, nil
	}
	return rows[0], nil
}

func (s *reportStore) ByStatus(ctx context.Context, f domain.ReportFilter) ([]domain.StatusBucket, error) {
	out := []domain.StatusBucket{}
	if err := aggregate(ctx, s.coll, "report by status", statusPipeline(f), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *reportStore) ByPaymentMethod(ctx context.Context, f domain.ReportFilter) ([]domain.MethodBucket, error) {
	out := []domain.MethodBucket{}
	if err := aggregate(ctx, s.coll, "report by method", methodPipeline(f), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *reportStore) TopProducts(ctx context.Context, f domain.ReportFilter, n int) ([]domain.ProductSales, error) {
	out := []domain.ProductSales{}
	if err := aggregate(ctx, s.coll, "report top products", topProductsPipeline(f, n), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *reportStore) ByDay(ctx context.Context, since time.Time) ([]domain.DayBucket, error) {
	out := []domain.DayBucket{}
	if err := aggregate(ctx, s.coll, "report by day", dayPipeline(since), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *reportStore) PaymentMethods(ctx context.Context) ([]string, error) {
	raw, err := s.coll.Distinct(ctx, "payment_method", bson.M{"payment_method": bson.M{"$nin": bson.A{nil, ""}}})
	if err != nil {
		return nil, mapErr("distinct payment methods", err)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(string); ok && m != "" {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}
