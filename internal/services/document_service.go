package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agentegen/internal/database"
	"agentegen/internal/models"
)

const (
	defaultDocumentLimit = 50
	maxDocumentLimit     = 200
)

// DocumentService stores generated documents
type DocumentService struct {
	collection *mongo.Collection
	markdown   goldmark.Markdown
}

// NewDocumentService creates a new document service
func NewDocumentService(mongoDB *database.MongoDB) *DocumentService {
	return newDocumentServiceWithCollection(mongoDB.Collection(database.CollectionDocuments))
}

func newDocumentServiceWithCollection(collection *mongo.Collection) *DocumentService {
	return &DocumentService{
		collection: collection,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// Save inserts a document and assigns its id
func (s *DocumentService) Save(ctx context.Context, doc *models.Document) error {
	if !doc.Type.IsValid() {
		return validationError("unknown document type %q", doc.Type)
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	log.Printf("📄 [DOCUMENT] Saved %s document %s", doc.Type, doc.ID.Hex())
	return nil
}

// List returns documents newest first, optionally filtered by type and category
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]*models.Document, error) {
	query := bson.M{}
	if filter.Type != "" {
		if !filter.Type.IsValid() {
			return nil, validationError("unknown document type %q", filter.Type)
		}
		query["type"] = filter.Type
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultDocumentLimit
	}
	if limit > maxDocumentLimit {
		limit = maxDocumentLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []*models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// Get returns a document by its hex id
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrDocumentNotFound
	}

	var doc models.Document
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// Delete permanently removes a document
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrDocumentNotFound
	}

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrDocumentNotFound
	}

	log.Printf("🗑️  [DOCUMENT] Deleted document %s", id)
	return nil
}

// RenderHTML converts a document body from markdown to a standalone HTML page
func (s *DocumentService) RenderHTML(doc *models.Document) (string, error) {
	var body bytes.Buffer
	if err := s.markdown.Convert([]byte(doc.Body), &body); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	title := doc.Title
	if title == "" {
		title = string(doc.Type)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
    <style>
        body { font-family: 'Segoe UI', Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 0 auto; padding: 40px 20px; color: #333; }
        table { border-collapse: collapse; width: 100%%; margin: 20px 0; }
        th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
    </style>
</head>
<body>
%s</body>
</html>`, html.EscapeString(title), body.String()), nil
}
