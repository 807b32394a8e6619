package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/docstore"
	"storefront/internal/docstore/memstore"
	"storefront/internal/docstore/mongostore"
	"storefront/internal/domain"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := applog.Tee(cfg.LogFile)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "storefront", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		log.Printf("[warn] tracing disabled: %v", err)
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	var seeds []repos.SeedUser
	if cfg.SeedDemo {
		seeds = append(seeds, repos.DemoUsers()...)
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		seeds = append(seeds, repos.SeedUser{
			Email: cfg.AdminEmail, FirstName: "Admin", Role: domain.RoleAdmin, Password: cfg.AdminPassword,
		})
	}
	if err := repos.SeedUsers(db, seeds); err != nil {
		return err
	}

	store, err := openDocstore(ctx, cfg)
	if err != nil {
		return err
	}

	deps := handlers.NewDeps(db, store, cfg)
	app := handlers.NewApp(deps, handlers.Options{Origins: cfg.Origins(), AccessLog: true})

	errc := make(chan error, 1)
	go func() {
		log.Printf("[http] listening on :%s", cfg.Port)
		errc <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err = <-errc:
	case <-ctx.Done():
		log.Printf("[http] shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = errors.Join(err,
		app.ShutdownWithContext(sctx),
		store.Close(sctx),
		shutdownTracing(sctx),
	)
	return err
}

func openDocstore(ctx context.Context, cfg config.Config) (*docstore.Store, error) {
	if cfg.DocstoreDriver == "memory" {
		log.Printf("[docstore] using in-memory store; data is lost on exit")
		return memstore.New(), nil
	}
	log.Printf("[docstore] connecting to mongodb database %s", cfg.Mongo.Name)
	return mongostore.Open(ctx, mongostore.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Name,
		Transactions:   cfg.Mongo.Transactions,
		SelectTimeout:  cfg.Mongo.SelectTimeout,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		OpTimeout:      cfg.Mongo.OpTimeout,
	})
}
