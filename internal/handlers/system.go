package handlers

import (
	"github.com/gofiber/fiber/v2"
)

const Version = "1.0.0"

type SystemHandler struct {
	multiInstance bool
}

func NewSystemHandler(multiInstance bool) *SystemHandler {
	return &SystemHandler{multiInstance: multiInstance}
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"version":        Version,
		"multi_instance": h.multiInstance,
	})
}
