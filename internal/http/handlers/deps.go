package handlers

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/internal/config"
	"storefront/internal/docstore"
	"storefront/internal/repos"
	"storefront/internal/services"
)

// Check is one dependency probed by /healthz.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	AuthHandler      *AuthHandler
	AccountHandler   *AccountHandler
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	CartHandler      *CartHandler
	SaleHandler      *SaleHandler
	CommentHandler   *CommentHandler
	AdminHandler     *AdminHandler

	Auth   *services.AuthService
	Checks []Check
}

func NewDeps(db *sqlx.DB, store *docstore.Store, cfg config.Config) *Deps {
	userRepo := repos.NewUserRepo(db)
	commentRepo := repos.NewCommentRepo(db)

	auditSvc := services.NewAuditService(store.Audit)
	authSvc := services.NewAuthService(userRepo, auditSvc, cfg.JWTSecret, cfg.TokenTTL)
	accountSvc := services.NewAccountService(userRepo, store.Avatars, auditSvc)
	catalogSvc := services.NewCatalogService(store.Products, auditSvc)
	invSvc := services.NewInventoryService(store.Products, auditSvc)
	cartSvc := services.NewCartService(store, auditSvc, cfg.TaxRate)
	checkoutSvc := services.NewCheckoutService(store, auditSvc, cfg.TaxRate, cfg.InvoicePrefix)
	commentSvc := services.NewCommentService(commentRepo, auditSvc)
	reportSvc := services.NewReportService(store, invSvc, commentRepo)
	maintSvc := services.NewMaintenanceService(store.Carts, auditSvc)

	return &Deps{
		AuthHandler:      &AuthHandler{Auth: authSvc, Accounts: accountSvc, Secure: cfg.AppEnv != "dev"},
		AccountHandler:   &AccountHandler{Accounts: accountSvc, Comments: commentSvc},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		CartHandler:      &CartHandler{Cart: cartSvc},
		SaleHandler:      &SaleHandler{Checkout: checkoutSvc},
		CommentHandler:   &CommentHandler{Comments: commentSvc},
		AdminHandler: &AdminHandler{
			Reports:     reportSvc,
			Audit:       auditSvc,
			Maintenance: maintSvc,
			Checkout:    checkoutSvc,
		},
		Auth: authSvc,
		Checks: []Check{
			{Name: "relational", Ping: func(context.Context) error { return userRepo.Ping() }},
			{Name: "docstore", Ping: store.Ping},
		},
	}
}
