package models

import "time"

// PipelineStep is the position of the linear content wizard
type PipelineStep int

const (
	StepBriefing     PipelineStep = 1
	StepContent      PipelineStep = 2
	StepOptimization PipelineStep = 3
	StepReview       PipelineStep = 4
)

// String returns the step name used in routes and documents
func (s PipelineStep) String() string {
	switch s {
	case StepBriefing:
		return "briefing"
	case StepContent:
		return "content"
	case StepOptimization:
		return "optimization"
	case StepReview:
		return "review"
	}
	return "unknown"
}

// DocumentType returns the type of the document a step produces
func (s PipelineStep) DocumentType() DocumentType {
	switch s {
	case StepBriefing:
		return DocumentBriefing
	case StepContent:
		return DocumentContent
	case StepOptimization:
		return DocumentOptimized
	case StepReview:
		return DocumentReview
	}
	return ""
}

// ParsePipelineStep maps a step name back to its value
func ParsePipelineStep(name string) (PipelineStep, bool) {
	for _, s := range []PipelineStep{StepBriefing, StepContent, StepOptimization, StepReview} {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// maxSessionWarnings bounds the notices kept on a session
const maxSessionWarnings = 20

// Session is the explicit per-user state of a logged-in client: selected agent,
// active segment filter, chat transcript and content-pipeline progress.
// It is created at login, mutated only through SessionService and removed at logout.
type Session struct {
	ID           string                  `json:"id"`
	UserID       string                  `json:"user_id"`
	Role         string                  `json:"role"`
	AgentID      string                  `json:"agent_id,omitempty"`
	Segments     []Segment               `json:"segments"`
	Messages     []Message               `json:"messages,omitempty"`
	PipelineStep PipelineStep            `json:"pipeline_step"`
	Pipeline     map[PipelineStep]string `json:"pipeline,omitempty"` // step -> document id
	Completed    bool                    `json:"completed"`
	Warnings     []string                `json:"warnings,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// AddWarnings appends user-visible notices, keeping only the most recent ones
func (s *Session) AddWarnings(warnings ...string) {
	s.Warnings = append(s.Warnings, warnings...)
	if len(s.Warnings) > maxSessionWarnings {
		s.Warnings = s.Warnings[len(s.Warnings)-maxSessionWarnings:]
	}
}
