package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"agentegen/internal/llm"
	"agentegen/internal/logging"
	"agentegen/internal/models"
)

// DocumentStore saves and loads generated documents. Implemented by DocumentService.
type DocumentStore interface {
	Save(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
}

// PipelineInput is the form data for one pipeline step
type PipelineInput struct {
	Title    string            `json:"title"`
	Category string            `json:"category"`
	Params   map[string]string `json:"params"`
	Text     string            `json:"text"`
}

// PipelineStatus summarizes a session's position in the pipeline
type PipelineStatus struct {
	Step      models.PipelineStep `json:"step"`
	StepName  string              `json:"step_name"`
	Completed bool                `json:"completed"`
	Documents map[string]string   `json:"documents"` // step name -> document id
}

var stepInstructions = map[models.PipelineStep]string{
	models.StepBriefing: "Write a content briefing from the parameters below. " +
		"Cover goal, audience, key messages, tone and format.",
	models.StepContent: "Write the content described by the briefing below. " +
		"Follow its structure, audience and tone.",
	models.StepOptimization: "Optimize the content below for clarity, readability and search. " +
		"Keep its meaning and structure.",
	models.StepReview: "Review the content below. List concrete issues by severity, " +
		"then give a final verdict on whether it is ready to publish.",
}

// PipelineService drives the four-step content wizard
type PipelineService struct {
	agents    ResolvedAgentSource
	documents DocumentStore
	sessions  *SessionService
	generator llm.Generator
}

// NewPipelineService creates a pipeline service
func NewPipelineService(agents ResolvedAgentSource, documents DocumentStore, sessions *SessionService, generator llm.Generator) *PipelineService {
	return &PipelineService{
		agents:    agents,
		documents: documents,
		sessions:  sessions,
		generator: generator,
	}
}

// Status reports where the session is in the pipeline
func (s *PipelineService) Status(session *models.Session) PipelineStatus {
	status := PipelineStatus{
		Step:      session.PipelineStep,
		StepName:  session.PipelineStep.String(),
		Completed: session.Completed,
		Documents: map[string]string{},
	}
	for step, id := range session.Pipeline {
		status.Documents[step.String()] = id
	}
	return status
}

// Advance runs step for the session. The step must be the session's current
// one; every step after the first consumes the previous step's document.
func (s *PipelineService) Advance(ctx context.Context, session *models.Session, step models.PipelineStep, input *PipelineInput) (*models.Document, error) {
	if session.Completed {
		return nil, fmt.Errorf("%w: pipeline already completed, reset to start again", ErrStepOutOfOrder)
	}
	if step != session.PipelineStep {
		return nil, fmt.Errorf("%w: expected step %s, got %s", ErrStepOutOfOrder, session.PipelineStep, step)
	}
	if input == nil {
		input = &PipelineInput{}
	}

	var previous *models.Document
	if step == models.StepBriefing {
		if len(input.Params) == 0 && strings.TrimSpace(input.Text) == "" {
			return nil, validationError("briefing parameters are required")
		}
	} else {
		prevID, ok := session.Pipeline[step-1]
		if !ok {
			return nil, fmt.Errorf("%w: no %s document to build on", ErrStepOutOfOrder, step-1)
		}
		doc, err := s.documents.Get(ctx, prevID)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s document: %w", step-1, err)
		}
		previous = doc
	}

	var agent *models.Agent
	if session.AgentID != "" {
		resolved, err := s.agents.GetResolved(ctx, session.AgentID)
		if err != nil {
			return nil, err
		}
		agent = resolved
	}

	prompt := buildTaskPrompt(agent, session.Segments, buildStepTask(step, input, previous))

	started := time.Now()
	body, err := s.generator.Generate(ctx, prompt)
	observeGeneration("pipeline_"+step.String(), started, err)
	if err != nil {
		return nil, generationError(err)
	}

	doc := &models.Document{
		Type:      step.DocumentType(),
		Category:  input.Category,
		Title:     input.Title,
		Body:      body,
		Params:    input.Params,
		AgentID:   agentObjectID(session.AgentID),
		CreatedBy: session.UserID,
	}
	if previous != nil {
		sourceID := previous.ID
		doc.SourceID = &sourceID
		if doc.Title == "" {
			doc.Title = previous.Title
		}
		if doc.Category == "" {
			doc.Category = previous.Category
		}
	}

	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.sessions.completeStep(ctx, session, step, doc.ID.Hex()); err != nil {
		return nil, err
	}

	logging.WithSession(session.ID, session.UserID).
		Info("pipeline step completed", "step", step.String(), "document_id", doc.ID.Hex())
	return doc, nil
}

// Reset returns the session to the briefing step
func (s *PipelineService) Reset(ctx context.Context, session *models.Session) error {
	return s.sessions.ResetPipeline(ctx, session)
}

func buildStepTask(step models.PipelineStep, input *PipelineInput, previous *models.Document) string {
	var sb strings.Builder
	sb.WriteString(stepInstructions[step])
	sb.WriteString("\n")

	if len(input.Params) > 0 {
		keys := make([]string, 0, len(input.Params))
		for k := range input.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nParameters:\n")
		for _, k := range keys {
			if v := strings.TrimSpace(input.Params[k]); v != "" {
				fmt.Fprintf(&sb, "- %s: %s\n", k, v)
			}
		}
	}

	if text := strings.TrimSpace(input.Text); text != "" {
		sb.WriteString("\nAdditional instructions:\n")
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	if previous != nil {
		fmt.Fprintf(&sb, "\n%s:\n", strings.ToUpper(string(previous.Type)))
		sb.WriteString(previous.Body)
		sb.WriteString("\n")
	}

	return sb.String()
}
