// Package mongostore implements docstore on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"storefront/internal/docstore"
	"storefront/internal/domain"
)

const (
	collProducts = "products"
	collCarts    = "carts"
	collSales    = "sales"
	collAudit    = "audit"
	collUsers    = "users"
)

type Config struct {
	URI            string
	Database       string
	Transactions   bool
	SelectTimeout  time.Duration
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
}

// Open connects, verifies the deployment answers and creates indexes. The
// returned store owns the client; Close disconnects it.
func Open(ctx context.Context, cfg Config) (*docstore.Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.SelectTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.SelectTimeout)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.OpTimeout > 0 {
		opts.SetTimeout(cfg.OpTimeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, domain.Unavailable("mongo connect", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, domain.Unavailable("mongo ping", err)
	}
	db := client.Database(cfg.Database)
	if err := EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return New(client, db, cfg.Transactions), nil
}

// New builds a store over an already connected client.
func New(client *mongo.Client, db *mongo.Database, transactions bool) *docstore.Store {
	return &docstore.Store{
		Products:  &productStore{coll: db.Collection(collProducts)},
		Carts:     &cartStore{coll: db.Collection(collCarts)},
		Sales:     &saleStore{coll: db.Collection(collSales)},
		Audit:     &auditStore{coll: db.Collection(collAudit)},
		Avatars:   &avatarStore{coll: db.Collection(collUsers)},
		Reports:   &reportStore{coll: db.Collection(collSales)},
		Tx:        txRunner{client: client, enabled: transactions},
		Lifecycle: lifecycle{client: client},
	}
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		collProducts: {
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "name", Value: 1}}},
		},
		collCarts: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collSales: {
			{Keys: bson.D{{Key: "invoice_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collAudit: {
			{Keys: bson.D{{Key: "at", Value: -1}}},
			{Keys: bson.D{{Key: "action", Value: 1}}},
		},
		collUsers: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return mapErr("create indexes on "+coll, err)
		}
	}
	return nil
}

type lifecycle struct{ client *mongo.Client }

func (l lifecycle) Ping(ctx context.Context) error {
	return mapErr("mongo ping", l.client.Ping(ctx, readpref.Primary()))
}

func (l lifecycle) Close(ctx context.Context) error { return l.client.Disconnect(ctx) }

type txRunner struct {
	client  *mongo.Client
	enabled bool
}

// RunAtomic wraps fn in a multi-document transaction when enabled. Standalone
// servers do not support transactions, so it is off by default.
func (t txRunner) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}
	sess, err := t.client.StartSession()
	if err != nil {
		return mapErr("start session", err)
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// mapErr turns driver failures that mean "cannot reach the server" into
// ConnectivityError and wraps the rest with op.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var sse topology.ServerSelectionError
	switch {
	case errors.As(err, &sse),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded),
		mongo.IsNetworkError(err),
		mongo.IsTimeout(err):
		return domain.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func now() time.Time { return time.Now().UTC() }
