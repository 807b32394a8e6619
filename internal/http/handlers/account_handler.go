package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type AccountHandler struct {
	Accounts *services.AccountService
	Comments *services.CommentService
}

// avatarBytes reads a multipart "avatar" file or, failing that, the raw body.
func avatarBytes(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return c.Body(), nil
	}
	if fh.Size > validate.MaxImageBytes {
		return nil, domain.Invalid("avatar", "must be at most 1 MiB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, validate.MaxImageBytes+1))
}

func (h *AccountHandler) PutAvatar(c *fiber.Ctx) error {
	data, err := avatarBytes(c)
	if err != nil {
		return err
	}
	// Body() is only valid for the handler's lifetime.
	data = append([]byte(nil), data...)
	a, err := h.Accounts.SetAvatar(c.UserContext(), currentUser(c), data)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"avatar_url": a.Image.DisplayURLOr(domain.DefaultAvatarImage), "updated_at": a.UpdatedAt})
}

func (h *AccountHandler) GetAvatar(c *fiber.Ctx) error {
	img, err := h.Accounts.Avatar(c.UserContext(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"avatar_url": img.DisplayURLOr(domain.DefaultAvatarImage), "custom": !img.IsZero()})
}

func (h *AccountHandler) DeleteAvatar(c *fiber.Ctx) error {
	if err := h.Accounts.RemoveAvatar(c.UserContext(), currentUser(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AccountHandler) MyComments(c *fiber.Ctx) error {
	list, err := h.Comments.ByUser(currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(list)
}
