package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"agentegen/internal/models"
)

// SessionEditor applies the user-driven session transitions
type SessionEditor interface {
	SelectAgent(ctx context.Context, session *models.Session, agentID string) error
	SetSegments(ctx context.Context, session *models.Session, segments []models.Segment) error
	ClearMessages(ctx context.Context, session *models.Session) error
}

// SessionHandler exposes the caller's session state
type SessionHandler struct {
	sessions SessionEditor
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionEditor) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get returns the current session
// GET /api/session
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// SelectAgentRequest is the body of PUT /api/session/agent
type SelectAgentRequest struct {
	AgentID string `json:"agent_id"`
}

// SelectAgent changes the agent the session talks to
// PUT /api/session/agent
func (h *SessionHandler) SelectAgent(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}

	var req SelectAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.AgentID == "" {
		return badRequest(c, "agent_id is required")
	}

	if err := h.sessions.SelectAgent(c.UserContext(), session, req.AgentID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// SegmentsRequest is the body of PUT /api/session/segments
type SegmentsRequest struct {
	Segments []models.Segment `json:"segments"`
}

// SetSegments chooses which agent segments go into the model context
// PUT /api/session/segments
func (h *SessionHandler) SetSegments(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}

	var req SegmentsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.sessions.SetSegments(c.UserContext(), session, req.Segments); err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// ClearMessages drops the chat transcript
// DELETE /api/session/messages
func (h *SessionHandler) ClearMessages(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.sessions.ClearMessages(c.UserContext(), session); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
