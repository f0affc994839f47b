package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"agentegen/internal/models"
)

// AgentGetter loads an agent by hex id. Implemented by AgentService.
type AgentGetter interface {
	Get(ctx context.Context, id string) (*models.Agent, error)
}

// SessionService owns every change to a session. Handlers read sessions but
// only mutate them through the transitions below.
type SessionService struct {
	store  SessionStore
	agents AgentGetter
}

// NewSessionService creates a session service
func NewSessionService(store SessionStore, agents AgentGetter) *SessionService {
	return &SessionService{store: store, agents: agents}
}

// Start creates the session for a freshly authenticated user
func (s *SessionService) Start(ctx context.Context, userID, role string) (*models.Session, error) {
	now := time.Now()
	session := &models.Session{
		ID:           uuid.New().String(),
		UserID:       userID,
		Role:         role,
		Segments:     append([]models.Segment(nil), models.CanonicalSegments...),
		Messages:     []models.Message{},
		PipelineStep: models.StepBriefing,
		Pipeline:     map[models.PipelineStep]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}

	log.Printf("🔐 [SESSION] Started session %s for %s", session.ID, userID)
	return session, nil
}

// Get loads a session
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	return s.store.Get(ctx, id)
}

// End removes a session
func (s *SessionService) End(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("🔐 [SESSION] Ended session %s", id)
	return nil
}

// SelectAgent makes agentID the session's working agent. Switching to a
// different agent clears the chat transcript. An empty id deselects.
func (s *SessionService) SelectAgent(ctx context.Context, session *models.Session, agentID string) error {
	if agentID != "" {
		if _, err := s.agents.Get(ctx, agentID); err != nil {
			return err
		}
	}

	return s.update(ctx, session, func(sess *models.Session) {
		if sess.AgentID != agentID {
			sess.Messages = []models.Message{}
		}
		sess.AgentID = agentID
	})
}

// SetSegments replaces the active segment filter
func (s *SessionService) SetSegments(ctx context.Context, session *models.Session, segments []models.Segment) error {
	normalized, err := normalizeSegments(segments)
	if err != nil {
		return err
	}
	return s.update(ctx, session, func(sess *models.Session) {
		sess.Segments = normalized
	})
}

// ClearMessages empties the chat transcript
func (s *SessionService) ClearMessages(ctx context.Context, session *models.Session) error {
	return s.update(ctx, session, func(sess *models.Session) {
		sess.Messages = []models.Message{}
	})
}

// AddWarnings records user-visible notices on the session
func (s *SessionService) AddWarnings(ctx context.Context, session *models.Session, warnings []string) error {
	if len(warnings) == 0 {
		return nil
	}
	return s.update(ctx, session, func(sess *models.Session) {
		sess.AddWarnings(warnings...)
	})
}

// recordExchange stores a chat exchange with agentID, starting a new
// transcript when the session was working with another agent
func (s *SessionService) recordExchange(ctx context.Context, session *models.Session, agentID string, messages ...models.Message) error {
	return s.update(ctx, session, func(sess *models.Session) {
		if sess.AgentID != agentID {
			sess.Messages = []models.Message{}
			sess.AgentID = agentID
		}
		sess.Messages = append(sess.Messages, messages...)
	})
}

// completeStep stores the document produced by step and moves the pipeline forward
func (s *SessionService) completeStep(ctx context.Context, session *models.Session, step models.PipelineStep, documentID string) error {
	return s.update(ctx, session, func(sess *models.Session) {
		if sess.Pipeline == nil {
			sess.Pipeline = map[models.PipelineStep]string{}
		}
		sess.Pipeline[step] = documentID
		if step == models.StepReview {
			sess.Completed = true
			return
		}
		sess.PipelineStep = step + 1
	})
}

// ResetPipeline returns the content pipeline to its first step
func (s *SessionService) ResetPipeline(ctx context.Context, session *models.Session) error {
	return s.update(ctx, session, func(sess *models.Session) {
		sess.PipelineStep = models.StepBriefing
		sess.Pipeline = map[models.PipelineStep]string{}
		sess.Completed = false
	})
}

func (s *SessionService) update(ctx context.Context, session *models.Session, mutate func(*models.Session)) error {
	mutate(session)
	session.UpdatedAt = time.Now()
	return s.store.Save(ctx, session)
}
