package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"agentegen/internal/models"
)

// DocumentLibrary stores generated documents
type DocumentLibrary interface {
	List(ctx context.Context, filter models.DocumentFilter) ([]*models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Delete(ctx context.Context, id string) error
	RenderHTML(doc *models.Document) (string, error)
}

// DocumentHandler handles the generated document library
type DocumentHandler struct {
	documents DocumentLibrary
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents DocumentLibrary) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// List returns documents, newest first
// GET /api/documents?type=briefing&category=Social&limit=50
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	filter := models.DocumentFilter{
		Type:     models.DocumentType(c.Query("type")),
		Category: c.Query("category"),
		Limit:    int64(c.QueryInt("limit", 0)),
	}

	docs, err := h.documents.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	if docs == nil {
		docs = []*models.Document{}
	}

	return c.JSON(fiber.Map{
		"documents": docs,
		"total":     len(docs),
	})
}

// Get returns one document
// GET /api/documents/:id
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	doc, err := h.documents.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(doc)
}

// HTML renders a document's markdown body as a standalone page
// GET /api/documents/:id/html
func (h *DocumentHandler) HTML(c *fiber.Ctx) error {
	doc, err := h.documents.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.documents.RenderHTML(doc)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(page)
}

// Delete removes a document
// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.documents.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}

	log.Printf("🗑️  [DOCUMENT] Deleted document %s", id)
	return c.SendStatus(fiber.StatusNoContent)
}
