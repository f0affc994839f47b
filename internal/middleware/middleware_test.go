package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentegen/internal/models"
	"agentegen/internal/notice"
	"agentegen/internal/services"
	"agentegen/pkg/auth"
)

type fakeSessions struct {
	sessions map[string]*models.Session
	err      error
}

func (f *fakeSessions) Get(_ context.Context, id string) (*models.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, services.ErrSessionNotFound
}

func TestSessionAuthMiddleware(t *testing.T) {
	jwtAuth, err := auth.NewLocalJWTAuth("middleware-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	store := &fakeSessions{sessions: map[string]*models.Session{
		"s1": {ID: "s1", UserID: "alice"},
		"s2": {ID: "s2", UserID: "bob"},
	}}

	app := fiber.New()
	app.Use(SessionAuthMiddleware(jwtAuth, store))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(c.Locals(LocalUserID).(string) + "@" + session.ID)
	})

	token := func(user, sid string) string {
		tok, _, err := jwtAuth.GenerateToken(user, "user", sid)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "Valid token", header: "Bearer " + token("alice", "s1"), status: fiber.StatusOK},
		{name: "Missing header", header: "", status: fiber.StatusUnauthorized},
		{name: "Garbage token", header: "Bearer nope", status: fiber.StatusUnauthorized},
		{name: "Ended session", header: "Bearer " + token("alice", "gone"), status: fiber.StatusUnauthorized},
		{name: "Session of another user", header: "Bearer " + token("alice", "s2"), status: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	t.Run("Store unavailable", func(t *testing.T) {
		down := fiber.New()
		down.Use(SessionAuthMiddleware(jwtAuth, &fakeSessions{err: errors.New("redis down")}))
		down.Get("/whoami", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token("alice", "s1"))
		resp, err := down.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestNoticeMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(NoticeMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		notice.Warn(c.UserContext(), "fallback used for %s", "embedding")
		return c.JSON(Warnings(c))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var warnings []string
	require.NoError(t, decodeJSON(resp.Body, &warnings))
	assert.Equal(t, []string{"fallback used for embedding"}, warnings)
}

func TestLoginRateLimiter(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.LoginMax = 2

	app := fiber.New()
	app.Post("/login", LoginRateLimiter(config), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, codes)
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_LOGIN", "3")
	t.Setenv("RATE_LIMIT_UPLOAD", "not-a-number")

	config := LoadRateLimitConfig("production")
	assert.Equal(t, 3, config.LoginMax)
	assert.Equal(t, DefaultRateLimitConfig().UploadMax, config.UploadMax)
	assert.Equal(t, 200, config.GlobalAPIMax)

	assert.Equal(t, 1000, LoadRateLimitConfig("development").GlobalAPIMax)
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
