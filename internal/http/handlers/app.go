package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	applog "storefront/internal/log"
	"storefront/internal/telemetry"
	"storefront/internal/validate"
)

const csrfContextKey = "csrf"

type Options struct {
	Origins     []string
	GlobalLimit int           // requests per minute per IP, default 60
	LoginLimit  int           // login attempts per window, default 5
	LoginWindow time.Duration // default 10m
	AccessLog   bool
}

func (o *Options) defaults() {
	if o.GlobalLimit <= 0 {
		o.GlobalLimit = 60
	}
	if o.LoginLimit <= 0 {
		o.LoginLimit = 5
	}
	if o.LoginWindow <= 0 {
		o.LoginWindow = 10 * time.Minute
	}
	if len(o.Origins) == 0 {
		o.Origins = []string{"*"}
	}
}

// traceRequests opens one span per request and hands its context to the
// handlers through UserContext.
func traceRequests(c *fiber.Ctx) error {
	ctx, span := telemetry.Start(c.UserContext(), c.Method())
	c.SetUserContext(ctx)
	err := c.Next()
	span.SetName(c.Method() + " " + c.Route().Path)
	telemetry.End(span, err)
	return err
}

// NewApp builds the HTTP API with its middleware chain and routes.
func NewApp(d *Deps, opts Options) *fiber.App {
	opts.defaults()

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
		// avatars and product pictures are capped at 1 MiB, plus multipart framing
		BodyLimit: validate.MaxImageBytes + 64<<10,
	})

	app.Use(requestid.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(opts.Origins, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + csrf.HeaderName,
		AllowCredentials: !contains(opts.Origins, "*"),
	}))
	app.Use(traceRequests)
	app.Use(limiter.New(limiter.Config{
		Max:        opts.GlobalLimit,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))
	app.Use(Authenticate(d.Auth))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "header:" + csrf.HeaderName,
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		ContextKey:     csrfContextKey,
		// Bearer clients do not ride on ambient cookies.
		Next: func(c *fiber.Ctx) bool { return bearer(c) != "" },
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Security check failed. Please refresh and try again."})
		},
	}))

	app.Get("/healthz", health(d.Checks))

	api := app.Group("/api/v1")
	user := RequireUser()
	admin := RequireAdmin()

	// Auth & account
	api.Get("/auth/csrf", d.AuthHandler.CSRF)
	api.Post("/auth/register", d.AuthHandler.Register)
	api.Post("/auth/login", limiter.New(limiter.Config{
		Max:        opts.LoginLimit,
		Expiration: opts.LoginWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|login"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many attempts. Please try again later."})
		},
	}), d.AuthHandler.Login)
	api.Post("/auth/logout", user, d.AuthHandler.Logout)
	api.Get("/me", user, d.AuthHandler.Me)
	api.Put("/me", user, d.AuthHandler.UpdateMe)
	api.Get("/me/avatar", user, d.AccountHandler.GetAvatar)
	api.Put("/me/avatar", user, d.AccountHandler.PutAvatar)
	api.Delete("/me/avatar", user, d.AccountHandler.DeleteAvatar)
	api.Get("/me/comments", user, d.AccountHandler.MyComments)

	// Catalog
	api.Get("/products", d.ProductHandler.List)
	api.Get("/products/:id", d.ProductHandler.Detail)
	api.Get("/products/:id/availability", d.InventoryHandler.Check)

	// Cart & sales
	api.Get("/cart", user, d.CartHandler.View)
	api.Post("/cart/items", user, d.CartHandler.Add)
	api.Put("/cart/items/:productId", user, d.CartHandler.SetQuantity)
	api.Delete("/cart/items/:productId", user, d.CartHandler.Remove)
	api.Delete("/cart", user, d.CartHandler.Clear)
	api.Post("/checkout", user, d.SaleHandler.Place)
	api.Get("/sales", user, d.SaleHandler.History)
	api.Get("/sales/:id", user, d.SaleHandler.View)

	// Comments
	api.Get("/comments", d.CommentHandler.List)
	api.Post("/comments", user, d.CommentHandler.Post)

	// Admin
	adm := api.Group("/admin", admin)
	adm.Get("/dashboard", d.AdminHandler.Dashboard)
	adm.Post("/products", d.ProductHandler.Create)
	adm.Put("/products/:id", d.ProductHandler.Update)
	adm.Delete("/products/:id", d.ProductHandler.Delete)
	adm.Put("/products/:id/stock", d.InventoryHandler.SetStock)
	adm.Get("/reports/sales", d.AdminHandler.SalesReport)
	adm.Get("/reports/sales.xlsx", d.AdminHandler.SalesReportXLSX)
	adm.Put("/sales/:id/status", d.AdminHandler.UpdateSaleStatus)
	adm.Get("/audit", d.AdminHandler.AuditLog)
	adm.Post("/maintenance/purge-empty-carts", d.AdminHandler.PurgeEmptyCarts)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "not found")
	})
	return app
}

func health(checks []Check) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		status := fiber.Map{}
		ok := true
		for _, ch := range checks {
			if err := ch.Ping(ctx); err != nil {
				applog.Error(c, "health.fail", err, map[string]any{"check": ch.Name})
				status[ch.Name] = "down"
				ok = false
				continue
			}
			status[ch.Name] = "up"
		}
		code := fiber.StatusOK
		if !ok {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{"ok": ok, "checks": status})
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
