package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the services. Handlers map them to HTTP status codes.
var (
	ErrValidation       = errors.New("validation failed")
	ErrAgentNotFound    = errors.New("agent not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrStepOutOfOrder   = errors.New("pipeline step out of order")
	ErrGeneration       = errors.New("generation failed")
)

// validationError wraps ErrValidation with a user-facing message
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// generationError wraps ErrGeneration with the cause
func generationError(err error) error {
	return fmt.Errorf("%w: %w", ErrGeneration, err)
}
