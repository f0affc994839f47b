package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"agentegen/internal/llm"
	"agentegen/internal/logging"
	"agentegen/internal/models"
	"agentegen/internal/notice"
)

// ResolvedAgentSource returns agents with inheritance applied
type ResolvedAgentSource interface {
	GetResolved(ctx context.Context, id string) (*models.Agent, error)
}

// ConversationLog appends chat exchanges
type ConversationLog interface {
	Append(ctx context.Context, conv *models.Conversation) error
}

// ChatService runs one chat turn against the session's agent
type ChatService struct {
	agents        ResolvedAgentSource
	conversations ConversationLog
	sessions      *SessionService
	generator     llm.Generator
}

// NewChatService creates a chat service
func NewChatService(agents ResolvedAgentSource, conversations ConversationLog, sessions *SessionService, generator llm.Generator) *ChatService {
	return &ChatService{
		agents:        agents,
		conversations: conversations,
		sessions:      sessions,
		generator:     generator,
	}
}

// Chat sends message to agentID using the session transcript as history.
// Chatting with a different agent than the session's current one starts a new
// transcript. The session is only changed once the reply has been generated.
func (s *ChatService) Chat(ctx context.Context, session *models.Session, agentID, message string) (*models.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, validationError("message is required")
	}

	agent, err := s.agents.GetResolved(ctx, agentID)
	if err != nil {
		return nil, err
	}

	var prior []models.Message
	if session.AgentID == agentID {
		prior = session.Messages
	}

	userTurn := models.Message{Role: models.RoleUser, Content: message}
	history := append(append([]models.Message(nil), prior...), userTurn)
	prompt := BuildContext(agent, session.Segments, history)

	started := time.Now()
	reply, err := s.generator.Generate(ctx, prompt)
	observeGeneration("chat", started, err)
	if err != nil {
		return nil, generationError(err)
	}

	assistantTurn := models.Message{Role: models.RoleAssistant, Content: reply}
	if err := s.sessions.recordExchange(ctx, session, agentID, userTurn, assistantTurn); err != nil {
		return nil, err
	}

	conv := &models.Conversation{
		AgentID:      agent.ID,
		UserID:       session.UserID,
		Messages:     append([]models.Message(nil), session.Messages...),
		SegmentsUsed: append([]models.Segment(nil), session.Segments...),
	}
	if err := s.conversations.Append(ctx, conv); err != nil {
		notice.Warn(ctx, "Conversation could not be saved (%v)", err)
	}

	logging.WithAgent(logging.WithSession(session.ID, session.UserID), agentID, agent.Name).
		Info("chat reply generated", "turns", len(session.Messages), "latency", time.Since(started))

	return &models.ChatResponse{
		Reply:    reply,
		Messages: session.Messages,
		Segments: session.Segments,
	}, nil
}

// agentObjectID parses an optional agent id for document records
func agentObjectID(id string) *primitive.ObjectID {
	if id == "" {
		return nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	return &oid
}
