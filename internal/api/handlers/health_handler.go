package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/medbot/backend/internal/engine"
)

type HealthHandler struct {
	engine *engine.Engine
}

func NewHealthHandler(eng *engine.Engine) *HealthHandler {
	return &HealthHandler{engine: eng}
}

func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleReady reports 503 until the knowledge base can serve queries.
func (h *HealthHandler) HandleReady(c *fiber.Ctx) error {
	status := h.engine.Status(c.Context())
	if !status.Initialized {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
			"detail": status,
		})
	}
	return c.JSON(fiber.Map{
		"status": "ready",
		"detail": status,
	})
}
