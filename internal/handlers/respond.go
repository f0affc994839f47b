package handlers

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"agentegen/internal/audio"
	"agentegen/internal/extract"
	"agentegen/internal/middleware"
	"agentegen/internal/models"
	"agentegen/internal/services"
)

// WarningSink stores request warnings on the session so they survive the response
type WarningSink interface {
	AddWarnings(ctx context.Context, session *models.Session, warnings []string) error
}

// respondError maps service errors to HTTP status codes
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, audio.ErrEmptyAudio),
		errors.Is(err, audio.ErrUnsupportedFormat),
		errors.Is(err, extract.ErrUnsupportedFormat):
		status = fiber.StatusBadRequest
	case errors.Is(err, audio.ErrTooLarge):
		status = fiber.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrAgentNotFound),
		errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, services.ErrProductNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrStepOutOfOrder):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrGeneration),
		errors.Is(err, audio.ErrTranscription):
		status = fiber.StatusBadGateway
	case errors.Is(err, services.ErrSessionNotFound):
		status = fiber.StatusUnauthorized
	}

	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [API] %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// badRequest responds 400 with msg
func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// currentSession returns the session loaded by the auth middleware
func currentSession(c *fiber.Ctx) (*models.Session, error) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		return nil, services.ErrSessionNotFound
	}
	return session, nil
}

// flushWarnings drains the request's warnings onto the session and returns them
func flushWarnings(c *fiber.Ctx, sink WarningSink, session *models.Session) []string {
	warnings := middleware.Warnings(c)
	if len(warnings) == 0 || sink == nil || session == nil {
		return warnings
	}
	if err := sink.AddWarnings(c.UserContext(), session, warnings); err != nil {
		log.Printf("⚠️  [SESSION] Failed to store warnings on session %s: %v", session.ID, err)
	}
	return warnings
}

// splitList parses a comma separated query value
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
