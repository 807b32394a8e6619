package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/docstore"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

type SaleHandler struct {
	Checkout *services.CheckoutService
}

type checkoutInput struct {
	PaymentMethod string `json:"payment_method" form:"payment_method"`
	Notes         string `json:"notes" form:"notes"`
}

func (h *SaleHandler) Place(c *fiber.Ctx) error {
	var in checkoutInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "malformed body")
		}
	}
	u := currentUser(c)
	sale, err := h.Checkout.Checkout(c.UserContext(), u, in.PaymentMethod, in.Notes)
	if err != nil {
		applog.Security(c, "sale.place.fail", map[string]any{"error": err.Error()})
		return err
	}
	applog.Audit(c, "sale.place", map[string]any{
		"sale_id": sale.ID.Hex(),
		"invoice": sale.InvoiceNumber,
		"total":   sale.Total,
	})
	return c.Status(fiber.StatusCreated).JSON(sale)
}

func (h *SaleHandler) View(c *fiber.Ctx) error {
	id, err := docstore.ParseID("sale", c.Params("id"))
	if err != nil {
		return err
	}
	sale, err := h.Checkout.Sale(c.UserContext(), currentUser(c), id)
	if errors.Is(err, domain.ErrNotFound) {
		applog.Security(c, "access.denied.sale", map[string]any{"sale_id": id.Hex()})
	}
	if err != nil {
		return err
	}
	return c.JSON(sale)
}

// History lists the caller's own sales, newest first.
func (h *SaleHandler) History(c *fiber.Ctx) error {
	list, err := h.Checkout.SalesFor(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(list)
}
