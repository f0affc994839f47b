// Package llm talks to the hosted Gemini API: text generation, embeddings and
// media-to-text calls. Callers depend on the small interfaces below so that
// services can be exercised without network access.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Generator produces text for a fully assembled prompt.
// The whole context is resent on every call; no session state lives remotely.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a fixed-size vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// MediaGenerator answers a prompt about an inline media payload (audio, video)
type MediaGenerator interface {
	GenerateFromMedia(ctx context.Context, prompt string, data []byte, mimeType string) (string, error)
}

// ErrEmptyResponse is returned when the model answers with no text
var ErrEmptyResponse = errors.New("model returned an empty response")

// Config holds Gemini client settings
type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Dimensions     int
	Temperature    float32
	RatePerSecond  float64
	Burst          int
}

// Client implements Generator, Embedder and MediaGenerator on top of genai
type Client struct {
	client         *genai.Client
	model          string
	embeddingModel string
	dimensions     int
	temperature    float32
	limiter        *rate.Limiter
}

// NewClient creates a Gemini client
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "gemini-embedding-001"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 768
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	log.Printf("✅ [LLM] Gemini client ready (model: %s, embeddings: %s/%d)", cfg.Model, cfg.EmbeddingModel, cfg.Dimensions)

	return &Client{
		client:         client,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		dimensions:     cfg.Dimensions,
		temperature:    cfg.Temperature,
		limiter:        NewLimiter(cfg.RatePerSecond, cfg.Burst),
	}, nil
}

// NewLimiter builds the outbound request limiter. A non-positive rate disables limiting.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Generate sends a single prompt and returns the model text
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	config := &genai.GenerateContentConfig{}
	if c.temperature > 0 {
		config.Temperature = genai.Ptr(c.temperature)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateFromMedia sends inline media bytes together with a text instruction
func (c *Client) GenerateFromMedia(ctx context.Context, prompt string, data []byte, mimeType string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenAI media request failed: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Embed generates an embedding for a single text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	dims := int32(c.dimensions)
	result, err := c.client.Models.EmbedContent(ctx,
		c.embeddingModel,
		genai.Text(text),
		&genai.EmbedContentConfig{
			TaskType:             "RETRIEVAL_QUERY",
			OutputDimensionality: &dims,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	return result.Embeddings[0].Values, nil
}

// Dimensions returns the configured embedding dimensionality
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Model returns the generation model name
func (c *Client) Model() string {
	return c.model
}

// ErrNotConfigured is returned by Disabled for every call
var ErrNotConfigured = errors.New("language model is not configured")

// Disabled stands in for the model when no API key is set, so the server can
// still serve agents and documents.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Dimensions() int { return 0 }
