package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/docstore"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	id, err := docstore.ParseID("product", c.Params("id"))
	if err != nil {
		return err
	}
	avail, err := h.Inv.CheckAvailability(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(avail)
}

type stockInput struct {
	Stock *int `json:"stock" form:"stock"`
}

// PUT /api/v1/admin/products/:id/stock
func (h *InventoryHandler) SetStock(c *fiber.Ctx) error {
	id, err := docstore.ParseID("product", c.Params("id"))
	if err != nil {
		return err
	}
	var in stockInput
	if err := c.BodyParser(&in); err != nil || in.Stock == nil {
		return fiber.NewError(fiber.StatusBadRequest, "stock is required")
	}
	p, err := h.Inv.SetStock(c.UserContext(), currentUser(c), id, *in.Stock)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.inventory.save", map[string]any{"product": id.Hex(), "qty": *in.Stock})
	return c.JSON(p)
}
