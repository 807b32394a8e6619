package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/docstore"
	"storefront/internal/log"
	"storefront/internal/services"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	q := services.ProductQuery{
		Q:        c.Query("q"),
		Category: c.Query("category"),
	}
	if len(q.Q) > 100 {
		log.Security(c, "validation.fail", map[string]any{"field": "q"})
		return fiber.NewError(fiber.StatusBadRequest, "search text too long")
	}
	if u := currentUser(c); u.IsStaff() {
		q.IncludeInactive = c.QueryBool("all")
	}
	list, err := h.Catalog.ListProducts(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, err := docstore.ParseID("product", c.Params("id"))
	if err != nil {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return err
	}
	p, err := h.Catalog.Product(c.UserContext(), currentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed body")
	}
	p, err := h.Catalog.CreateProduct(c.UserContext(), currentUser(c), in)
	if err != nil {
		return err
	}
	log.Audit(c, "admin.product.create", map[string]any{"product_id": p.ID.Hex()})
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := docstore.ParseID("product", c.Params("id"))
	if err != nil {
		return err
	}
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed body")
	}
	p, err := h.Catalog.UpdateProduct(c.UserContext(), currentUser(c), id, in)
	if err != nil {
		return err
	}
	log.Audit(c, "admin.product.update", map[string]any{"product_id": p.ID.Hex()})
	return c.JSON(p)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := docstore.ParseID("product", c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.Catalog.DeactivateProduct(c.UserContext(), currentUser(c), id); err != nil {
		return err
	}
	log.Audit(c, "admin.product.deactivate", map[string]any{"product_id": id.Hex()})
	return c.SendStatus(fiber.StatusNoContent)
}
