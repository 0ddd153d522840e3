package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medbot/backend/internal/engine"
	"github.com/medbot/backend/internal/session"
	"github.com/medbot/backend/internal/storage/sqlite"
	"github.com/medbot/backend/pkg/logger"
)

type ChatHandler struct {
	engine *engine.Engine
	db     *sqlite.Client
}

func NewChatHandler(eng *engine.Engine, db *sqlite.Client) *ChatHandler {
	return &ChatHandler{engine: eng, db: db}
}

// HandleChat answers one message. Refusals come back as HTTP 200 with a
// conversational message; only system failures surface as 503.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Message        string `json:"message"`
		UserID         string `json:"user_id"`
		ConversationID string `json:"conversation_id"`
		// Optional client-side transcript; when present it overrides the
		// server-side session for this request.
		History []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"history"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	var history []session.Turn
	if len(req.History) > 0 {
		history = make([]session.Turn, 0, len(req.History))
		for _, t := range req.History {
			history = append(history, session.Turn{Role: t.Role, Content: t.Content})
		}
	}

	result := h.engine.AnswerWithHistory(c.Context(), req.UserID, req.ConversationID, req.Message, history)

	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"id":                  result.ID,
		"success":             result.Success,
		"conversation_id":     req.ConversationID,
		"answer":              result.Answer,
		"query_type":          result.QueryType,
		"refusal":             result.Refusal,
		"sources":             result.Sources,
		"chunks_used":         result.ChunksUsed,
		"enrichment_fallback": result.EnrichmentFallback,
		"generation_fallback": result.GenerationFallback,
		"duration_ms":         result.DurationMs,
	})
}

func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	if h.db == nil {
		return c.JSON(fiber.Map{"history": []interface{}{}})
	}

	records, err := h.db.GetQueryHistory(userID, limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(fiber.Map{"history": records})
}
