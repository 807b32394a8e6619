package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/docstore"
	"storefront/internal/services"
)

type CartHandler struct {
	Cart *services.CartService
}

type cartItemInput struct {
	ProductID string `json:"product_id" form:"product_id"`
	Quantity  int    `json:"quantity" form:"quantity"`
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	var in cartItemInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed body")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	id, err := docstore.ParseID("product", in.ProductID)
	if err != nil {
		return err
	}
	cv, err := h.Cart.AddItem(c.UserContext(), currentUser(c), id, in.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	id, err := docstore.ParseID("product", c.Params("productId"))
	if err != nil {
		return err
	}
	var in cartItemInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed body")
	}
	cv, err := h.Cart.SetQuantity(c.UserContext(), currentUser(c), id, in.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	id, err := docstore.ParseID("product", c.Params("productId"))
	if err != nil {
		return err
	}
	cv, err := h.Cart.RemoveItem(c.UserContext(), currentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	cv, err := h.Cart.Clear(c.UserContext(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(cv)
}
