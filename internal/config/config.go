package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string
	MongoURI    string
	RedisURL    string

	// Gemini configuration
	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string
	EmbeddingDimensions  int
	LLMRatePerSecond     float64
	LLMBurst             int

	// Vector search (retrieval-augmented rewrite)
	VectorSearchURL     string
	VectorSearchToken   string
	VectorSearchTimeout time.Duration
	RAGReferenceLimit   int
	RAGQueryPrefixRunes int

	// Auth and sessions
	JWTSecret      string
	UsersFile      string
	SessionTTL     time.Duration
	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: strings.ToLower(getEnv("ENVIRONMENT", "development")),
		MongoURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017/agentegen"),
		RedisURL:    getEnv("REDIS_URL", ""),

		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "gemini-embedding-001"),
		EmbeddingDimensions:  getIntEnv("EMBEDDING_DIMENSIONS", 768),
		LLMRatePerSecond:     getFloatEnv("LLM_RATE_PER_SECOND", 2),
		LLMBurst:             getIntEnv("LLM_BURST", 4),

		VectorSearchURL:     getEnv("VECTOR_SEARCH_URL", ""),
		VectorSearchToken:   getEnv("VECTOR_SEARCH_TOKEN", ""),
		VectorSearchTimeout: getDurationEnv("VECTOR_SEARCH_TIMEOUT", 10*time.Second),
		RAGReferenceLimit:   getIntEnv("RAG_REFERENCE_LIMIT", 5),
		RAGQueryPrefixRunes: getIntEnv("RAG_QUERY_PREFIX_RUNES", 2000),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		UsersFile:      getEnv("USERS_FILE", "users.yaml"),
		SessionTTL:     getDurationEnv("SESSION_TTL", 12*time.Hour),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
	}
}

// IsProduction reports whether the server runs with ENVIRONMENT=production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go duration strings ("30s") or plain seconds ("30")
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
