package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

const sidCookie = "sid"

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Authenticate attaches the caller to Locals("user") when a valid bearer token
// or session cookie is present. It never rejects a request.
func Authenticate(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tok := bearer(c); tok != "" {
			u, err := auth.UserFromToken(tok)
			if err != nil {
				applog.Security(c, "auth.token.invalid", nil)
				return c.Next()
			}
			c.Locals("user", u)
			return c.Next()
		}
		if sid := c.Cookies(sidCookie); sid != "" {
			if u, err := auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

// RequireUser rejects anonymous callers with 401.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "login required")
		}
		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "login required")
		}
		if !u.IsStaff() {
			applog.Security(c, "access.denied.admin", map[string]any{"user_id": u.ID})
			return fiber.NewError(fiber.StatusForbidden, "Access denied")
		}
		return c.Next()
	}
}
