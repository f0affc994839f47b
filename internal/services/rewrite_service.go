package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"agentegen/internal/llm"
	"agentegen/internal/notice"
	"agentegen/internal/retrieval"
)

// NoReferencePlaceholder stands in for the reference section when retrieval finds nothing
const NoReferencePlaceholder = "No specific reference found."

const (
	defaultReferenceLimit = 5
	defaultQueryPrefix    = 2000
)

// Retriever embeds a query and finds reference documents. Implemented by *retrieval.Client.
type Retriever interface {
	Embed(ctx context.Context, text string) retrieval.Embedding
	Search(ctx context.Context, vector []float32, limit int) ([]retrieval.Document, error)
}

// RewriteResult is the outcome of a rewrite. Text is always usable: on any
// failure it is the original input and Err says why.
type RewriteResult struct {
	Text       string
	Rewritten  bool
	References []string
	// Degradations that did not stop the rewrite (embedding or search fallback)
	Degraded []error
	Err      error
}

// RewriteService corrects and enriches a text against retrieved reference documents
type RewriteService struct {
	retriever      Retriever
	generator      llm.Generator
	referenceLimit int
	prefixRunes    int
}

// NewRewriteService creates a rewrite service. Non-positive limits fall back to defaults.
func NewRewriteService(retriever Retriever, generator llm.Generator, referenceLimit, prefixRunes int) *RewriteService {
	if referenceLimit <= 0 {
		referenceLimit = defaultReferenceLimit
	}
	if prefixRunes <= 0 {
		prefixRunes = defaultQueryPrefix
	}
	return &RewriteService{
		retriever:      retriever,
		generator:      generator,
		referenceLimit: referenceLimit,
		prefixRunes:    prefixRunes,
	}
}

// Rewrite runs embed, search, prompt and a single model call. It never fails
// outward: any error, empty model answer or panic yields the original text.
func (s *RewriteService) Rewrite(ctx context.Context, original string) RewriteResult {
	return s.RewriteForDomain(ctx, original, "")
}

// RewriteForDomain is Rewrite with the reviewer acting as a specialist of
// domain. An empty domain gives the generic reviewer.
func (s *RewriteService) RewriteForDomain(ctx context.Context, original, domain string) (result RewriteResult) {
	result = RewriteResult{Text: original}
	if strings.TrimSpace(original) == "" {
		return result
	}

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = RewriteResult{
				Text:     original,
				Degraded: result.Degraded,
				Err:      fmt.Errorf("rewrite panicked: %v", r),
			}
		}
		if result.Err != nil {
			recordFallback("rewrite")
			notice.Warn(ctx, "Technical review could not rewrite the text, the original was kept (%v)", result.Err)
		}
		observeGeneration("rewrite", started, result.Err)
	}()

	query := truncateRunes(original, s.prefixRunes)

	embedding := s.retriever.Embed(ctx, query)
	if embedding.Fallback {
		recordFallback("embedding")
		result.Degraded = append(result.Degraded, embedding.Err)
	}

	docs, err := s.retriever.Search(ctx, embedding.Vector, s.referenceLimit)
	if err != nil {
		recordFallback("retrieval")
		result.Degraded = append(result.Degraded, err)
	}

	references := make([]string, 0, len(docs))
	for _, d := range docs {
		references = append(references, d.Text())
	}

	prompt := buildRewritePrompt(original, domain, references)

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		result.Err = generationError(err)
		return result
	}
	if strings.TrimSpace(text) == "" {
		result.Err = generationError(llm.ErrEmptyResponse)
		return result
	}

	log.Printf("✍️  [REWRITE] Rewrote %d chars with %d reference(s)", len(original), len(references))
	return RewriteResult{
		Text:       text,
		Rewritten:  true,
		References: references,
		Degraded:   result.Degraded,
	}
}

func buildRewritePrompt(original, domain string, references []string) string {
	refText := NoReferencePlaceholder
	if len(references) > 0 {
		refText = strings.Join(references, "\n\n")
	}

	var sb strings.Builder
	if domain != "" {
		fmt.Fprintf(&sb, "You are a technical reviewer specialized in %s. ", domain)
	} else {
		sb.WriteString("You are a technical reviewer. ")
	}
	sb.WriteString("Correct and enrich the ORIGINAL TEXT using the REFERENCES where they apply.\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Keep the original structure: headings, sections, lists and their order.\n")
	sb.WriteString("- Do not summarize the text as a whole.\n")
	sb.WriteString("- Stay within 5% of the original length.\n")
	sb.WriteString("- Do not introduce topics that the original does not cover.\n")
	sb.WriteString("- End with a subsection titled \"Changes\" listing each correction you made.\n\n")
	sb.WriteString("REFERENCES:\n")
	sb.WriteString(refText)
	sb.WriteString("\n\nORIGINAL TEXT:\n")
	sb.WriteString(original)
	sb.WriteString("\n")
	return sb.String()
}

// truncateRunes returns at most n runes of s without splitting a character
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
