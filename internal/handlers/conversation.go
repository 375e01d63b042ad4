package handlers

import (
	"time"

	"github.com/ekinacar/solace/internal/realtime"
	"github.com/ekinacar/solace/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type ConversationHandler struct {
	conversations *store.ConversationStore
	hub           *realtime.Hub
	historyLimit  int
}

func NewConversationHandler(conversations *store.ConversationStore, hub *realtime.Hub, historyLimit int) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, hub: hub, historyLimit: historyLimit}
}

// History returns the caller's visible messages, oldest first. Messages at
// or before the cleared-at boundary are never returned.
func (h *ConversationHandler) History(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	conv, err := h.conversations.FindByUser(c.Context(), userID)
	if errors.Is(err, store.ErrConversationNotFound) {
		return c.JSON(fiber.Map{"messages": []fiber.Map{}})
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load conversation")
	}

	msgs, err := h.conversations.VisibleMessages(c.Context(), conv.ID, conv.ClearedAt, h.historyLimit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load messages")
	}

	out := make([]fiber.Map, len(msgs))
	for i, m := range msgs {
		out[i] = fiber.Map{
			"id":         m.ID,
			"role":       m.Role,
			"content":    m.Content,
			"created_at": m.CreatedAt,
		}
	}

	return c.JSON(fiber.Map{
		"conversation_id": conv.ID,
		"message_count":   conv.MessageCount,
		"total_tokens":    conv.TotalTokens,
		"messages":        out,
	})
}

// Clear sets the visibility boundary; a logical reset, not a delete.
func (h *ConversationHandler) Clear(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	err := h.conversations.Clear(c.Context(), userID, time.Now())
	if errors.Is(err, store.ErrConversationNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "No conversation to clear",
		})
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to clear conversation")
	}

	return c.JSON(fiber.Map{"message": "Conversation cleared"})
}

// Presence tells the notification collaborator whether realtime delivery
// will reach the user or a push notification is needed.
func (h *ConversationHandler) Presence(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid user ID",
		})
	}

	return c.JSON(fiber.Map{
		"user_id":   userID,
		"connected": h.hub.IsUserConnected(userID),
	})
}
