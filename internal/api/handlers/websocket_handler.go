package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medbot/backend/internal/engine"
	"github.com/medbot/backend/pkg/logger"
)

type WebSocketHandler struct {
	engine *engine.Engine
}

func NewWebSocketHandler(eng *engine.Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: eng}
}

// HandleConnection serves one chat session over a websocket, streaming each
// answer word by word before the final envelope.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	conversationID := uuid.NewString()

	for {
		var msg struct {
			Type           string `json:"type"`
			Message        string `json:"message"`
			UserID         string `json:"user_id"`
			ConversationID string `json:"conversation_id"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "chat" || strings.TrimSpace(msg.Message) == "" {
			continue
		}
		if msg.UserID == "" {
			msg.UserID = "anonymous"
		}
		if msg.ConversationID == "" {
			msg.ConversationID = conversationID
		}

		if err := h.streamAnswer(c, msg.UserID, msg.ConversationID, msg.Message); err != nil {
			logger.Error("Failed to stream answer", zap.Error(err))
			h.sendError(c, "Failed to process message")
		}
	}
}

func (h *WebSocketHandler) streamAnswer(c *websocket.Conn, userID, conversationID, message string) error {
	h.send(c, "status", "Thinking...")

	result := h.engine.Answer(context.Background(), userID, conversationID, message)

	words := strings.Fields(result.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.send(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":            "complete",
		"message_id":      result.ID,
		"success":         result.Success,
		"conversation_id": conversationID,
		"query_type":      result.QueryType,
		"refusal":         result.Refusal,
		"sources":         result.Sources,
		"duration_ms":     result.DurationMs,
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
