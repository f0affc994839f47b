package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"agentegen/internal/models"
	"agentegen/internal/services"
)

// PipelineRunner drives the content wizard
type PipelineRunner interface {
	Status(session *models.Session) services.PipelineStatus
	Advance(ctx context.Context, session *models.Session, step models.PipelineStep, input *services.PipelineInput) (*models.Document, error)
	Reset(ctx context.Context, session *models.Session) error
}

// PipelineHandler handles the four-step content pipeline
type PipelineHandler struct {
	pipeline PipelineRunner
	warnings WarningSink
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(pipeline PipelineRunner, warnings WarningSink) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline, warnings: warnings}
}

// Status returns the session's pipeline position
// GET /api/pipeline
func (h *PipelineHandler) Status(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.pipeline.Status(session))
}

// Step runs the named step
// POST /api/pipeline/:step
func (h *PipelineHandler) Step(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}

	step, ok := models.ParsePipelineStep(c.Params("step"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown pipeline step"})
	}

	var input services.PipelineInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	doc, err := h.pipeline.Advance(c.UserContext(), session, step, &input)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("📝 [PIPELINE] %s completed %s (document %s)", session.UserID, step, doc.ID.Hex())
	return c.JSON(fiber.Map{
		"document": doc,
		"status":   h.pipeline.Status(session),
		"warnings": flushWarnings(c, h.warnings, session),
	})
}

// Reset returns the session to the first step
// POST /api/pipeline/reset
func (h *PipelineHandler) Reset(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.pipeline.Reset(c.UserContext(), session); err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.pipeline.Status(session))
}
