package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agentegen/internal/database"
	"agentegen/internal/models"
)

const defaultConversationLimit = 10

// ConversationService is the append-only log of chat exchanges per agent
type ConversationService struct {
	collection *mongo.Collection
}

// NewConversationService creates a new conversation service
func NewConversationService(mongoDB *database.MongoDB) *ConversationService {
	return newConversationServiceWithCollection(mongoDB.Collection(database.CollectionConversations))
}

func newConversationServiceWithCollection(collection *mongo.Collection) *ConversationService {
	return &ConversationService{collection: collection}
}

// Append stores a conversation record. Records are never modified afterwards.
func (s *ConversationService) Append(ctx context.Context, conv *models.Conversation) error {
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.Messages == nil {
		conv.Messages = []models.Message{}
	}
	if conv.SegmentsUsed == nil {
		conv.SegmentsUsed = []models.Segment{}
	}

	if _, err := s.collection.InsertOne(ctx, conv); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// ListRecent returns up to limit conversations for an agent, newest first
func (s *ConversationService) ListRecent(ctx context.Context, agentID string, limit int64) ([]*models.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(agentID)
	if err != nil {
		return nil, ErrAgentNotFound
	}
	if limit <= 0 {
		limit = defaultConversationLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.collection.Find(ctx, bson.M{"agentId": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := []*models.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return conversations, nil
}
