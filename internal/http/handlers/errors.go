package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

const genericError = "Something went wrong. Please try again."

// ErrorHandler turns errors returned by handlers into JSON responses. Domain
// errors keep their message. Anything unexpected is logged and answered with
// a generic 500 so internals never reach the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, msg := classify(err)
	switch {
	case status >= fiber.StatusInternalServerError:
		applog.Error(c, "server.error", err, nil)
	case status == fiber.StatusUnauthorized || status == fiber.StatusForbidden:
		applog.Security(c, "request.denied", map[string]any{"status": status})
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest, ve.Error()
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrEmptyCart):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrConnectivity):
		return fiber.StatusServiceUnavailable, "Service temporarily unavailable. Please retry shortly."
	case errors.Is(err, services.ErrBadCreds):
		return fiber.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, services.ErrBadToken):
		return fiber.StatusUnauthorized, "invalid or expired token"
	case errors.As(err, &fe):
		if fe.Code >= fiber.StatusInternalServerError {
			return fe.Code, genericError
		}
		return fe.Code, fe.Message
	default:
		return fiber.StatusInternalServerError, genericError
	}
}
