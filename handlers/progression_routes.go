// handlers/progression_routes.go
package handlers

import (
	"challenge-arena/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetMyProgress(c *fiber.Ctx) error {
	prog, err := h.svc.Progression.GetUserProgress(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(prog)
}

func (h *Handler) GetUserProgress(c *fiber.Ctx) error {
	prog, err := h.svc.Progression.GetUserProgress(c.UserContext(), c.Params("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(prog)
}
