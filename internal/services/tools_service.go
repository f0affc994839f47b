package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"agentegen/internal/llm"
	"agentegen/internal/models"
)

// correctionsMarker separates the corrected text from the list of corrections
const correctionsMarker = "---CORRECTIONS---"

// ToolResult is the output of a single-shot tool
type ToolResult struct {
	Document        *models.Document `json:"document,omitempty"`
	Text            string           `json:"text"`
	Corrections     []string         `json:"corrections,omitempty"`
	References      []string         `json:"references,omitempty"`
	Rewritten       bool             `json:"rewritten"`
	MetaTitle       string           `json:"meta_title,omitempty"`
	MetaDescription string           `json:"meta_description,omitempty"`
}

// ProductCatalog looks up products of the knowledge base. Implemented by ProductService.
type ProductCatalog interface {
	Get(ctx context.Context, id string) (*models.Product, error)
}

// ToolsService hosts the single-shot review and optimization tools
type ToolsService struct {
	agents    ResolvedAgentSource
	documents DocumentStore
	products  ProductCatalog
	rewriter  *RewriteService
	generator llm.Generator
}

// NewToolsService creates a tools service
func NewToolsService(agents ResolvedAgentSource, documents DocumentStore, products ProductCatalog, rewriter *RewriteService, generator llm.Generator) *ToolsService {
	return &ToolsService{
		agents:    agents,
		documents: documents,
		products:  products,
		rewriter:  rewriter,
		generator: generator,
	}
}

// SpellingReview corrects spelling and grammar and lists each correction
func (s *ToolsService) SpellingReview(ctx context.Context, session *models.Session, text string) (*ToolResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, validationError("text is required")
	}

	task := "Correct the spelling, grammar and punctuation of the text below. " +
		"Do not change its meaning, tone or structure. Return the corrected text, then a line containing only " +
		correctionsMarker + ", then one correction per line in the form \"original -> corrected\".\n\nTEXT:\n" + text

	output, err := s.generate(ctx, session, "spelling", task)
	if err != nil {
		return nil, err
	}

	corrected, corrections := splitCorrections(output)
	doc := &models.Document{
		Type:      models.DocumentSpellingReview,
		Body:      corrected,
		Params:    map[string]string{"corrections": strconv.Itoa(len(corrections))},
		AgentID:   agentObjectID(session.AgentID),
		CreatedBy: session.UserID,
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, err
	}

	return &ToolResult{Document: doc, Text: corrected, Corrections: corrections, Rewritten: true}, nil
}

// TechnicalReview runs the retrieval-augmented rewrite, optionally as a
// specialist of domain. When the rewrite falls back, the original text is
// returned and nothing is saved.
func (s *ToolsService) TechnicalReview(ctx context.Context, session *models.Session, text, domain string) (*ToolResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, validationError("text is required")
	}
	domain = strings.TrimSpace(domain)

	rewrite := s.rewriter.RewriteForDomain(ctx, text, domain)
	result := &ToolResult{
		Text:       rewrite.Text,
		References: rewrite.References,
		Rewritten:  rewrite.Rewritten,
	}
	if !rewrite.Rewritten {
		return result, nil
	}

	doc := &models.Document{
		Type: models.DocumentTechnicalReview,
		Body: rewrite.Text,
		Params: map[string]string{
			"references": strconv.Itoa(len(rewrite.References)),
			"degraded":   strconv.FormatBool(len(rewrite.Degraded) > 0),
		},
		AgentID:   agentObjectID(session.AgentID),
		CreatedBy: session.UserID,
	}
	if domain != "" {
		doc.Params["domain"] = domain
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, err
	}
	result.Document = doc
	return result, nil
}

// OptimizeSEO rewrites text around the given keywords and proposes meta tags
func (s *ToolsService) OptimizeSEO(ctx context.Context, session *models.Session, text string, keywords []string) (*ToolResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, validationError("text is required")
	}

	cleaned := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil, validationError("at least one keyword is required")
	}

	task := fmt.Sprintf("Optimize the text below for search engines around these keywords: %s.\n"+
		"Keep the meaning and structure; use the keywords naturally. Start your answer with two lines:\n"+
		"META TITLE: <at most 60 characters>\nMETA DESCRIPTION: <at most 155 characters>\n"+
		"then a blank line and the optimized text.\n\nTEXT:\n%s", strings.Join(cleaned, ", "), text)

	output, err := s.generate(ctx, session, "seo", task)
	if err != nil {
		return nil, err
	}

	title, description, body := splitMeta(output)
	doc := &models.Document{
		Type:  models.DocumentSEO,
		Title: title,
		Body:  body,
		Params: map[string]string{
			"keywords":         strings.Join(cleaned, ", "),
			"meta_description": description,
		},
		AgentID:   agentObjectID(session.AgentID),
		CreatedBy: session.UserID,
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, err
	}

	return &ToolResult{
		Document:        doc,
		Text:            body,
		Rewritten:       true,
		MetaTitle:       title,
		MetaDescription: description,
	}, nil
}

// BlogPostInput is the form of the blog post generator
type BlogPostInput struct {
	Title          string            `json:"title"`
	Subtitle       string            `json:"subtitle"`
	Category       string            `json:"category"`
	Objective      string            `json:"objective"`
	MainKeyword    string            `json:"main_keyword"`
	Keywords       []string          `json:"keywords"`
	ForbiddenWords []string          `json:"forbidden_words"`
	Tone           string            `json:"tone"`
	WordCount      int               `json:"word_count"`
	Sections       []string          `json:"sections"`
	Details        map[string]string `json:"details"`
	Product        string            `json:"product"` // product knowledge base id
	Source         string            `json:"source"`  // extracted or transcribed material
}

const (
	defaultBlogWords = 1500
	minBlogWords     = 300
	maxBlogWords     = 2500
	maxSubtitleRunes = 200
)

var defaultBlogSections = []string{"Introduction", "Problem", "Generic solution", "Specific solution", "Conclusion"}

// BlogPost writes a structured blog article with SEO meta tags
func (s *ToolsService) BlogPost(ctx context.Context, session *models.Session, input *BlogPostInput) (*ToolResult, error) {
	if input == nil || strings.TrimSpace(input.Title) == "" {
		return nil, validationError("title is required")
	}
	words := input.WordCount
	if words == 0 {
		words = defaultBlogWords
	}
	if words < minBlogWords || words > maxBlogWords {
		return nil, validationError("word_count must be between %d and %d", minBlogWords, maxBlogWords)
	}
	if utf8.RuneCountInString(strings.TrimSpace(input.Subtitle)) > maxSubtitleRunes {
		return nil, validationError("subtitle must be at most %d characters", maxSubtitleRunes)
	}
	sections := input.Sections
	if len(sections) == 0 {
		sections = defaultBlogSections
	}

	var product *models.Product
	if input.Product != "" {
		if s.products == nil {
			return nil, ErrProductNotFound
		}
		found, err := s.products.Get(ctx, input.Product)
		if err != nil {
			return nil, err
		}
		product = found
	}

	output, err := s.generate(ctx, session, "blog_post", buildBlogTask(input, product, words, sections))
	if err != nil {
		return nil, err
	}

	title, description, body := splitMeta(output)
	params := map[string]string{
		"word_count":       strconv.Itoa(words),
		"sections":         strings.Join(sections, ", "),
		"meta_description": description,
	}
	if input.MainKeyword != "" {
		params["main_keyword"] = input.MainKeyword
	}
	if len(input.Keywords) > 0 {
		params["keywords"] = strings.Join(input.Keywords, ", ")
	}
	if title != "" {
		params["meta_title"] = title
	}
	if subtitle := strings.TrimSpace(input.Subtitle); subtitle != "" {
		params["subtitle"] = subtitle
	}
	if product != nil {
		params["product"] = product.Name
	}

	doc := &models.Document{
		Type:      models.DocumentBlogPost,
		Category:  input.Category,
		Title:     strings.TrimSpace(input.Title),
		Body:      body,
		Params:    params,
		AgentID:   agentObjectID(session.AgentID),
		CreatedBy: session.UserID,
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, err
	}

	return &ToolResult{
		Document:        doc,
		Text:            body,
		Rewritten:       true,
		MetaTitle:       title,
		MetaDescription: description,
	}, nil
}

func buildBlogTask(input *BlogPostInput, product *models.Product, words int, sections []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a blog post titled %q.\n", strings.TrimSpace(input.Title))
	if subtitle := strings.TrimSpace(input.Subtitle); subtitle != "" {
		fmt.Fprintf(&b, "Subtitle shown under the title: %q\n", subtitle)
	}
	if input.Objective != "" {
		fmt.Fprintf(&b, "Objective: %s\n", input.Objective)
	}
	if input.Tone != "" {
		fmt.Fprintf(&b, "Tone of voice: %s\n", input.Tone)
	}
	if input.MainKeyword != "" {
		fmt.Fprintf(&b, "Main keyword: %s\n", input.MainKeyword)
	}
	if len(input.Keywords) > 0 {
		fmt.Fprintf(&b, "Secondary keywords: %s\n", strings.Join(input.Keywords, ", "))
	}
	if len(input.ForbiddenWords) > 0 {
		fmt.Fprintf(&b, "Never use these words: %s\n", strings.Join(input.ForbiddenWords, ", "))
	}
	fmt.Fprintf(&b, "Length: %d words (±5%%).\n", words)
	fmt.Fprintf(&b, "Sections, in this order: %s.\n", strings.Join(sections, ", "))
	b.WriteString("Use short paragraphs and lists of at most five items. Do not invent facts that are not given below.\n")

	if len(input.Details) > 0 {
		keys := make([]string, 0, len(input.Details))
		for k := range input.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nDETAILS:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, input.Details[k])
		}
	}
	if product != nil {
		b.WriteString("\nPRODUCT (describe it only with these facts):\n")
		fmt.Fprintf(&b, "Name: %s\n", product.Name)
		if product.Characteristics != "" {
			fmt.Fprintf(&b, "Characteristics: %s\n", product.Characteristics)
		}
	}
	if strings.TrimSpace(input.Source) != "" {
		b.WriteString("\nSOURCE MATERIAL:\n")
		b.WriteString(input.Source)
		b.WriteString("\n")
	}

	b.WriteString("\nStart your answer with two lines:\nMETA TITLE: <at most 60 characters>\n" +
		"META DESCRIPTION: <at most 155 characters>\nthen a blank line and the article in markdown.")
	return b.String()
}

func (s *ToolsService) generate(ctx context.Context, session *models.Session, operation, task string) (string, error) {
	var agent *models.Agent
	if session.AgentID != "" {
		resolved, err := s.agents.GetResolved(ctx, session.AgentID)
		if err != nil {
			return "", err
		}
		agent = resolved
	}

	started := time.Now()
	output, err := s.generator.Generate(ctx, buildTaskPrompt(agent, session.Segments, task))
	observeGeneration(operation, started, err)
	if err != nil {
		return "", generationError(err)
	}

	log.Printf("🛠️  [TOOLS] %s produced %d chars", operation, len(output))
	return output, nil
}

// splitCorrections separates the corrected text from the correction list.
// Without the marker the whole output is the corrected text.
func splitCorrections(output string) (string, []string) {
	text, list, found := strings.Cut(output, correctionsMarker)
	if !found {
		return strings.TrimSpace(output), []string{}
	}

	corrections := []string{}
	for _, line := range strings.Split(list, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*"))
		if line != "" {
			corrections = append(corrections, line)
		}
	}
	return strings.TrimSpace(text), corrections
}

// splitMeta pulls the leading META TITLE and META DESCRIPTION lines off output
func splitMeta(output string) (title, description, body string) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	i := 0
	for ; i < len(lines) && i < 2; i++ {
		line := strings.TrimSpace(lines[i])
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "META TITLE:"):
			title = strings.TrimSpace(line[len("META TITLE:"):])
		case strings.HasPrefix(upper, "META DESCRIPTION:"):
			description = strings.TrimSpace(line[len("META DESCRIPTION:"):])
		default:
			return title, description, strings.TrimSpace(strings.Join(lines[i:], "\n"))
		}
	}
	return title, description, strings.TrimSpace(strings.Join(lines[i:], "\n"))
}
