package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentType tags what produced a document
type DocumentType string

const (
	DocumentBriefing        DocumentType = "briefing"
	DocumentContent         DocumentType = "content"
	DocumentOptimized       DocumentType = "optimized"
	DocumentReview          DocumentType = "review"
	DocumentBlogPost        DocumentType = "blog_post"
	DocumentSpellingReview  DocumentType = "spelling_review"
	DocumentTechnicalReview DocumentType = "technical_review"
	DocumentSEO             DocumentType = "seo"
)

// IsValid reports whether t is a known document type
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentBriefing, DocumentContent, DocumentOptimized, DocumentReview,
		DocumentBlogPost, DocumentSpellingReview, DocumentTechnicalReview, DocumentSEO:
		return true
	}
	return false
}

// Document is a generated artifact: a briefing, a piece of content, a blog post
// or the output of one of the review tools.
type Document struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Type      DocumentType        `bson:"type" json:"type"`
	Category  string              `bson:"category,omitempty" json:"category,omitempty"`
	Title     string              `bson:"title,omitempty" json:"title,omitempty"`
	Body      string              `bson:"body" json:"body"`
	Params    map[string]string   `bson:"params,omitempty" json:"params,omitempty"`
	AgentID   *primitive.ObjectID `bson:"agentId,omitempty" json:"agent_id,omitempty"`
	SourceID  *primitive.ObjectID `bson:"sourceId,omitempty" json:"source_id,omitempty"`
	CreatedBy string              `bson:"createdBy,omitempty" json:"created_by,omitempty"`
	CreatedAt time.Time           `bson:"createdAt" json:"created_at"`
}

// DocumentFilter narrows document listings
type DocumentFilter struct {
	Type     DocumentType
	Category string
	Limit    int64
}
