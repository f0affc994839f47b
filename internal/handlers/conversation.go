package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"agentegen/internal/models"
)

// Chatter runs one chat exchange
type Chatter interface {
	Chat(ctx context.Context, session *models.Session, agentID, message string) (*models.ChatResponse, error)
}

// ConversationLister lists stored exchanges for an agent
type ConversationLister interface {
	ListRecent(ctx context.Context, agentID string, limit int64) ([]*models.Conversation, error)
}

// ConversationHandler handles chat with an agent and its stored history
type ConversationHandler struct {
	chat          Chatter
	conversations ConversationLister
	warnings      WarningSink
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(chat Chatter, conversations ConversationLister, warnings WarningSink) *ConversationHandler {
	return &ConversationHandler{chat: chat, conversations: conversations, warnings: warnings}
}

// Chat sends a message to an agent
// POST /api/agents/:id/chat
func (h *ConversationHandler) Chat(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.chat.Chat(c.UserContext(), session, c.Params("id"), req.Message)
	if err != nil {
		return respondError(c, err)
	}

	resp.Warnings = flushWarnings(c, h.warnings, session)
	return c.JSON(resp)
}

// List returns the most recent stored exchanges with an agent
// GET /api/agents/:id/conversations?limit=10
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	limit := int64(c.QueryInt("limit", 10))

	conversations, err := h.conversations.ListRecent(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return respondError(c, err)
	}
	if conversations == nil {
		conversations = []*models.Conversation{}
	}

	return c.JSON(fiber.Map{
		"conversations": conversations,
		"total":         len(conversations),
	})
}
