package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"agentegen/internal/audio"
	"agentegen/internal/extract"
	"agentegen/internal/models"
	"agentegen/internal/services"
)

// maxUploadBytes bounds files accepted by the extract endpoint
const maxUploadBytes = 25 << 20

// ReviewTools are the single-shot text tools
type ReviewTools interface {
	SpellingReview(ctx context.Context, session *models.Session, text string) (*services.ToolResult, error)
	TechnicalReview(ctx context.Context, session *models.Session, text, domain string) (*services.ToolResult, error)
	OptimizeSEO(ctx context.Context, session *models.Session, text string, keywords []string) (*services.ToolResult, error)
	BlogPost(ctx context.Context, session *models.Session, input *services.BlogPostInput) (*services.ToolResult, error)
}

// Transcriber turns a recording into text
type Transcriber interface {
	Transcribe(ctx context.Context, req *audio.TranscribeRequest) (*audio.TranscribeResponse, error)
}

// ToolsHandler handles the review tools and file uploads
type ToolsHandler struct {
	tools       ReviewTools
	transcriber Transcriber
	warnings    WarningSink
}

// NewToolsHandler creates a new tools handler. transcriber may be nil when no
// multimodal model is configured.
func NewToolsHandler(tools ReviewTools, transcriber Transcriber, warnings WarningSink) *ToolsHandler {
	return &ToolsHandler{tools: tools, transcriber: transcriber, warnings: warnings}
}

// TextRequest is the body of the text tools
type TextRequest struct {
	Text     string   `json:"text"`
	Keywords []string `json:"keywords,omitempty"`
	Domain   string   `json:"domain,omitempty"` // technical area of the reviewer
}

// ToolResponse wraps a tool result with any warnings raised while producing it
type ToolResponse struct {
	*services.ToolResult
	Warnings []string `json:"warnings,omitempty"`
}

// Spelling corrects spelling and grammar
// POST /api/tools/spelling
func (h *ToolsHandler) Spelling(c *fiber.Ctx) error {
	return h.runText(c, func(ctx context.Context, session *models.Session, req *TextRequest) (*services.ToolResult, error) {
		return h.tools.SpellingReview(ctx, session, req.Text)
	})
}

// TechnicalReview rewrites text against retrieved reference documents
// POST /api/tools/technical-review
func (h *ToolsHandler) TechnicalReview(c *fiber.Ctx) error {
	return h.runText(c, func(ctx context.Context, session *models.Session, req *TextRequest) (*services.ToolResult, error) {
		return h.tools.TechnicalReview(ctx, session, req.Text, req.Domain)
	})
}

// SEO optimizes text around keywords
// POST /api/tools/seo
func (h *ToolsHandler) SEO(c *fiber.Ctx) error {
	return h.runText(c, func(ctx context.Context, session *models.Session, req *TextRequest) (*services.ToolResult, error) {
		return h.tools.OptimizeSEO(ctx, session, req.Text, req.Keywords)
	})
}

// BlogPost writes a blog article from the generator form
// POST /api/tools/blog-post
func (h *ToolsHandler) BlogPost(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}

	var input services.BlogPostInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.tools.BlogPost(c.UserContext(), session, &input)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ToolResponse{
		ToolResult: result,
		Warnings:   flushWarnings(c, h.warnings, session),
	})
}

func (h *ToolsHandler) runText(c *fiber.Ctx, run func(context.Context, *models.Session, *TextRequest) (*services.ToolResult, error)) error {
	session, err := currentSession(c)
	if err != nil {
		return respondError(c, err)
	}

	var req TextRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := run(c.UserContext(), session, &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(ToolResponse{
		ToolResult: result,
		Warnings:   flushWarnings(c, h.warnings, session),
	})
}

// Transcribe converts an uploaded recording to text
// POST /api/tools/transcribe (multipart: file, language, prompt)
func (h *ToolsHandler) Transcribe(c *fiber.Ctx) error {
	if h.transcriber == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Transcription is not available. Please configure GEMINI_API_KEY.",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		log.Printf("❌ [AUDIO-API] No file uploaded: %v", err)
		return badRequest(c, "No audio file uploaded")
	}
	if file.Size > audio.MaxInlineBytes {
		return respondError(c, audio.ErrTooLarge)
	}

	data, err := readUpload(file)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("🎵 [AUDIO-API] Transcribing audio file: %s (%d bytes)", file.Filename, file.Size)
	resp, err := h.transcriber.Transcribe(c.UserContext(), &audio.TranscribeRequest{
		Data:     data,
		MimeType: file.Header.Get("Content-Type"),
		Filename: file.Filename,
		Language: c.FormValue("language"),
		Prompt:   c.FormValue("prompt"),
	})
	if err != nil {
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":             err.Error(),
				"supported_formats": audio.GetSupportedFormats(),
			})
		}
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Extract pulls plain text out of an uploaded PDF, Word, PowerPoint or text file
// POST /api/tools/extract (multipart: file)
func (h *ToolsHandler) Extract(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}
	if file.Size > maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "File too large. Maximum size is 25MB",
		})
	}

	data, err := readUpload(file)
	if err != nil {
		return respondError(c, err)
	}

	result, err := extract.Extract(file.Filename, file.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	log.Printf("📄 [EXTRACT] %s: %s, %d words", file.Filename, result.Format, result.WordCount)
	return c.JSON(result)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
