package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/services"
)

type CommentHandler struct {
	Comments *services.CommentService
}

type commentInput struct {
	Body   string `json:"body" form:"body"`
	Rating int    `json:"rating" form:"rating"`
}

func (h *CommentHandler) List(c *fiber.Ctx) error {
	list, err := h.Comments.Active(c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (h *CommentHandler) Post(c *fiber.Ctx) error {
	var in commentInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed body")
	}
	cm, err := h.Comments.Post(c.UserContext(), currentUser(c), in.Body, in.Rating)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cm)
}
