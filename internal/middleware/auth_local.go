package middleware

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"agentegen/internal/models"
	"agentegen/internal/services"
	"agentegen/pkg/auth"
)

// Locals keys set by SessionAuthMiddleware
const (
	LocalUserID  = "user_id"
	LocalRole    = "user_role"
	LocalSession = "session"
)

// SessionLoader loads the session referenced by a token
type SessionLoader interface {
	Get(ctx context.Context, id string) (*models.Session, error)
}

// SessionAuthMiddleware verifies the bearer token and loads its session.
// A valid token whose session has expired or was ended is rejected.
func SessionAuthMiddleware(jwtAuth *auth.LocalJWTAuth, sessions SessionLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ExtractToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid authorization token",
			})
		}

		user, err := jwtAuth.VerifyAccessToken(token)
		if err != nil {
			log.Printf("❌ Auth failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		session, err := sessions.Get(c.UserContext(), user.SessionID)
		if err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Session expired, please log in again",
				})
			}
			log.Printf("❌ Failed to load session %s: %v", user.SessionID, err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Session store unavailable",
			})
		}
		if session.UserID != user.Username {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(LocalUserID, user.Username)
		c.Locals(LocalRole, user.Role)
		c.Locals(LocalSession, session)
		return c.Next()
	}
}

// SessionFromContext returns the session loaded by SessionAuthMiddleware
func SessionFromContext(c *fiber.Ctx) (*models.Session, bool) {
	session, ok := c.Locals(LocalSession).(*models.Session)
	return session, ok && session != nil
}
