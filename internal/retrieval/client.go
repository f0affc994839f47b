// Package retrieval finds reference documents for a piece of text: the text is
// embedded and the vector is sent to an external similarity-search endpoint.
// Every failure degrades to a valid result (pseudo-embedding, empty list) and
// is also reported as a typed *Error so callers cannot mistake it for success.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"agentegen/internal/llm"
	"agentegen/internal/notice"
)

// ErrorKind classifies a retrieval failure
type ErrorKind string

const (
	KindUnavailable ErrorKind = "unavailable" // endpoint not configured
	KindNetwork     ErrorKind = "network"
	KindStatus      ErrorKind = "status"
	KindDecode      ErrorKind = "decode"
	KindEmbedding   ErrorKind = "embedding"
)

// Error describes why a retrieval step fell back to its default
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("retrieval %s error (HTTP %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("retrieval %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a retrieval error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.Kind == kind
}

// Document is an opaque record returned by the vector store
type Document map[string]any

// Text serializes the document for inclusion in a prompt.
// Map keys are marshaled in sorted order, so the output is stable.
func (d Document) Text() string {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(d))
	}
	return string(data)
}

// Config holds vector search settings
type Config struct {
	Endpoint   string
	Token      string
	Timeout    time.Duration
	Dimensions int
}

// Client embeds queries and searches the vector store
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	embedder   llm.Embedder
	dimensions int
}

// NewClient creates a retrieval client. embedder may be nil, in which case
// every embedding uses the deterministic fallback.
func NewClient(cfg Config, embedder llm.Embedder) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 768
		if embedder != nil && embedder.Dimensions() > 0 {
			cfg.Dimensions = embedder.Dimensions()
		}
	}

	return &Client{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		token:    cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		embedder:   embedder,
		dimensions: cfg.Dimensions,
	}
}

// Dimensions returns the vector length produced by Embed
func (c *Client) Dimensions() int {
	return c.dimensions
}

type searchRequest struct {
	SortBy []float32 `json:"sort_by"`
	Limit  int       `json:"limit"`
}

type searchResponse struct {
	Documents []Document `json:"documents"`
}

// Search returns up to limit documents similar to vector.
// On any failure it records a warning and returns an empty, non-nil slice
// together with a *Error describing what went wrong.
func (c *Client) Search(ctx context.Context, vector []float32, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 5
	}

	if c.endpoint == "" {
		return c.fail(ctx, &Error{Kind: KindUnavailable, Err: errors.New("vector search endpoint not configured")})
	}

	body, err := json.Marshal(searchRequest{SortBy: vector, Limit: limit})
	if err != nil {
		return c.fail(ctx, &Error{Kind: KindDecode, Err: fmt.Errorf("failed to marshal request: %w", err)})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/search", bytes.NewReader(body))
	if err != nil {
		return c.fail(ctx, &Error{Kind: KindNetwork, Err: fmt.Errorf("failed to create request: %w", err)})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(ctx, &Error{Kind: KindNetwork, Err: err})
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return c.fail(ctx, &Error{Kind: KindNetwork, Err: fmt.Errorf("failed to read response: %w", err)})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := truncateRunes(string(payload), maxErrorSnippetRunes)
		return c.fail(ctx, &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Err: errors.New(snippet)})
	}

	var parsed searchResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return c.fail(ctx, &Error{Kind: KindDecode, Err: fmt.Errorf("failed to parse response: %w", err)})
	}

	docs := make([]Document, 0, len(parsed.Documents))
	for _, d := range parsed.Documents {
		if d == nil {
			continue
		}
		docs = append(docs, d)
		if len(docs) == limit {
			break
		}
	}

	log.Printf("🔎 [RETRIEVAL] Vector search returned %d document(s)", len(docs))
	return docs, nil
}

func (c *Client) fail(ctx context.Context, err *Error) ([]Document, error) {
	notice.Warn(ctx, "Reference search unavailable, continuing without references (%v)", err)
	return []Document{}, err
}

// maxErrorSnippetRunes bounds the response body quoted in status errors
const maxErrorSnippetRunes = 200

// truncateRunes returns at most n runes of s without splitting a character
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
