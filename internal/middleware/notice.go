package middleware

import (
	"github.com/gofiber/fiber/v2"

	"agentegen/internal/notice"
)

// NoticeMiddleware attaches a warning recorder to the request context so that
// services can report degraded results back to the handler
func NoticeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(notice.WithRecorder(c.UserContext(), notice.NewRecorder()))
		return c.Next()
	}
}

// Warnings returns the warnings recorded during this request
func Warnings(c *fiber.Ctx) []string {
	if rec := notice.FromContext(c.UserContext()); rec != nil {
		return rec.Warnings()
	}
	return nil
}
