package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/medbot/backend/internal/metrics"
	"github.com/medbot/backend/internal/storage/models"
	"github.com/medbot/backend/internal/storage/sqlite"
	"github.com/medbot/backend/pkg/logger"
)

type FeedbackHandler struct {
	db *sqlite.Client
}

func NewFeedbackHandler(db *sqlite.Client) *FeedbackHandler {
	return &FeedbackHandler{db: db}
}

func (h *FeedbackHandler) HandleFeedback(c *fiber.Ctx) error {
	var req struct {
		QueryID string `json:"query_id"`
		Helpful *bool  `json:"helpful"`
		Comment string `json:"comment"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.QueryID == "" || req.Helpful == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query_id and helpful are required",
		})
	}

	helpfulLabel := "false"
	if *req.Helpful {
		helpfulLabel = "true"
	}
	metrics.FeedbackTotal.WithLabelValues(helpfulLabel).Inc()

	if h.db != nil {
		err := h.db.StoreFeedback(&models.Feedback{
			QueryID: req.QueryID,
			Helpful: *req.Helpful,
			Comment: req.Comment,
		})
		if err != nil {
			logger.Error("Failed to store feedback", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to store feedback",
			})
		}
	}

	return c.JSON(fiber.Map{"success": true})
}
