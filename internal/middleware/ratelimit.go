package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP)
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration

	// Login attempts (per IP)
	LoginMax        int
	LoginExpiration time.Duration

	// Model-backed operations: chat, pipeline steps, tools (per user)
	GenerationMax        int
	GenerationExpiration time.Duration

	// File uploads: transcription and extraction (per user)
	UploadMax        int
	UploadExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Global: 200/min = ~3.3 req/sec
		GlobalAPIMax:        200,
		GlobalAPIExpiration: 1 * time.Minute,

		// Login: 10/min to slow down password guessing
		LoginMax:        10,
		LoginExpiration: 1 * time.Minute,

		// Generation: 30/min, every call costs model tokens
		GenerationMax:        30,
		GenerationExpiration: 1 * time.Minute,

		// Uploads: 10/min
		UploadMax:        10,
		UploadExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig(environment string) *RateLimitConfig {
	config := DefaultRateLimitConfig()

	overrides := map[string]*int{
		"RATE_LIMIT_GLOBAL_API": &config.GlobalAPIMax,
		"RATE_LIMIT_LOGIN":      &config.LoginMax,
		"RATE_LIMIT_GENERATION": &config.GenerationMax,
		"RATE_LIMIT_UPLOAD":     &config.UploadMax,
	}
	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*target = n
			}
		}
	}

	if environment == "development" {
		config.GlobalAPIMax = 1000
		config.GenerationMax = 200
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}

	return config
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return tooManyRequests(c, "Too many requests. Please slow down.", config.GlobalAPIExpiration)
		},
	})
}

// LoginRateLimiter limits login attempts per IP
func LoginRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.LoginMax,
		Expiration: config.LoginExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "login:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Login limit reached for IP: %s", c.IP())
			return tooManyRequests(c, "Too many login attempts. Please wait.", config.LoginExpiration)
		},
	})
}

// GenerationRateLimiter limits model-backed operations per user
func GenerationRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          config.GenerationMax,
		Expiration:   config.GenerationExpiration,
		KeyGenerator: userKey("generation"),
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Generation limit reached for user: %v on %s", c.Locals(LocalUserID), c.Path())
			return tooManyRequests(c, "Generation rate limit reached. Please wait before trying again.", config.GenerationExpiration)
		},
	})
}

// UploadRateLimiter limits transcription and extraction uploads per user
func UploadRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          config.UploadMax,
		Expiration:   config.UploadExpiration,
		KeyGenerator: userKey("upload"),
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Upload limit reached for user: %v", c.Locals(LocalUserID))
			return tooManyRequests(c, "Upload rate limit reached. Please wait.", config.UploadExpiration)
		},
	})
}

// userKey keys by authenticated user, falling back to IP
func userKey(prefix string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if userID, ok := c.Locals(LocalUserID).(string); ok && userID != "" {
			return prefix + ":" + userID
		}
		return prefix + "-ip:" + c.IP()
	}
}

func tooManyRequests(c *fiber.Ctx, msg string, window time.Duration) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":       msg,
		"retry_after": int(window.Seconds()),
	})
}
