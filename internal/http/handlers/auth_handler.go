package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type AuthHandler struct {
	Auth     *services.AuthService
	Accounts *services.AccountService
	Secure   bool
}

func (h *AuthHandler) setSID(c *fiber.Ctx, sid string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     sidCookie,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.Secure,
		Expires:  expires,
	})
}

// CSRF hands browser clients the token they must echo in X-CSRF-Token.
func (h *AuthHandler) CSRF(c *fiber.Ctx) error {
	tok, _ := c.Locals(csrfContextKey).(string)
	return c.JSON(fiber.Map{"csrf_token": tok})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed body")
	}
	u, err := h.Auth.Register(c.UserContext(), in)
	if err != nil {
		log.Security(c, "auth.register.fail", map[string]any{"email": in.Email})
		return err
	}
	log.Audit(c, "auth.register", map[string]any{"user_id": u.ID})
	return c.Status(fiber.StatusCreated).JSON(u)
}

type loginInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in loginInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed body")
	}
	if _, ok := validate.Email(in.Email); !ok {
		log.Security(c, "auth.login.fail", map[string]any{"email": in.Email, "reason": "bad_format"})
		return services.ErrBadCreds
	}
	if !validate.Password(in.Password) {
		log.Security(c, "auth.login.fail", map[string]any{"email": in.Email, "reason": "bad_password_format"})
		return services.ErrBadCreds
	}

	sid := uuid.NewString()
	u, tok, err := h.Auth.Login(c.UserContext(), sid, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, services.ErrBadCreds) {
			log.Security(c, "auth.login.fail", map[string]any{"email": in.Email})
		}
		return err
	}
	h.setSID(c, sid, time.Time{})
	c.Locals("user", u)
	log.Audit(c, "auth.login.success", map[string]any{"email": u.Email})
	return c.JSON(fiber.Map{"token": tok, "user": u})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := c.Cookies(sidCookie)
	if err := h.Auth.Logout(c.UserContext(), sid, currentUser(c)); err != nil {
		return err
	}
	h.setSID(c, "", time.Now().Add(-time.Hour))
	log.Audit(c, "auth.logout", nil)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed body")
	}
	u, err := h.Accounts.UpdateProfile(c.UserContext(), currentUser(c), in)
	if err != nil {
		return err
	}
	return c.JSON(u)
}
