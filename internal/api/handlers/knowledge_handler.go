package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/medbot/backend/internal/engine"
	"github.com/medbot/backend/internal/ingest"
)

type KnowledgeHandler struct {
	engine *engine.Engine
}

func NewKnowledgeHandler(eng *engine.Engine) *KnowledgeHandler {
	return &KnowledgeHandler{engine: eng}
}

// HandleInitialize (re)builds the knowledge base, from the configured
// document directory or an explicit one in the request. Runs synchronously;
// ingestion of a medical corpus is an operator action, not a user-facing one.
func (h *KnowledgeHandler) HandleInitialize(c *fiber.Ctx) error {
	var req struct {
		Directory string `json:"directory"`
	}
	// Body is optional.
	_ = c.BodyParser(&req)

	var ok bool
	if req.Directory != "" {
		ok = h.engine.InitializeFrom(c.Context(), ingest.NewDirSource(req.Directory))
	} else {
		ok = h.engine.Initialize(c.Context())
	}
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Knowledge base initialization failed",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"status":  h.engine.Status(c.Context()),
	})
}

func (h *KnowledgeHandler) HandleReset(c *fiber.Ctx) error {
	ok := h.engine.Reset(c.Context())
	return c.JSON(fiber.Map{
		"success": ok,
		"status":  h.engine.Status(c.Context()),
	})
}

func (h *KnowledgeHandler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.engine.Status(c.Context()))
}
