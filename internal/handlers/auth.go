package handlers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"agentegen/internal/middleware"
	"agentegen/internal/models"
	"agentegen/pkg/auth"
)

// Authenticator checks login credentials
type Authenticator interface {
	Authenticate(username, password string) (*auth.User, error)
}

// SessionLifecycle creates and ends sessions
type SessionLifecycle interface {
	Start(ctx context.Context, userID, role string) (*models.Session, error)
	End(ctx context.Context, id string) error
}

// TokenIssuer signs session tokens. Implemented by *auth.LocalJWTAuth.
type TokenIssuer interface {
	GenerateToken(username, role, sessionID string) (string, time.Time, error)
}

// AuthHandler handles login, logout and the current-user endpoint
type AuthHandler struct {
	users    Authenticator
	sessions SessionLifecycle
	jwtAuth  TokenIssuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users Authenticator, sessions SessionLifecycle, jwtAuth TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, jwtAuth: jwtAuth}
}

// LoginRequest is the login body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the new session
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      auth.User       `json:"user"`
	Session   *models.Session `json:"session"`
}

// Login authenticates a user and starts a session
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Printf("🚫 [AUTH] Failed login for %q from %s", req.Username, c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
		}
		return respondError(c, err)
	}

	session, err := h.sessions.Start(c.UserContext(), user.Username, user.Role)
	if err != nil {
		return respondError(c, err)
	}
	user.SessionID = session.ID

	token, expiresAt, err := h.jwtAuth.GenerateToken(user.Username, user.Role, session.ID)
	if err != nil {
		if endErr := h.sessions.End(c.UserContext(), session.ID); endErr != nil {
			log.Printf("⚠️  [AUTH] Failed to end session %s after token error: %v", session.ID, endErr)
		}
		return respondError(c, err)
	}

	log.Printf("✅ [AUTH] %s logged in (session %s)", user.Username, session.ID)
	return c.JSON(LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      *user,
		Session:   session,
	})
}

// Logout ends the current session
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.sessions.End(c.UserContext(), session.ID); err != nil {
		return respondError(c, err)
	}

	log.Printf("👋 [AUTH] %s logged out (session %s)", session.UserID, session.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

// Me returns the logged-in user
// GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}
	role, _ := c.Locals(middleware.LocalRole).(string)
	return c.JSON(auth.User{Username: session.UserID, Role: role, SessionID: session.ID})
}
