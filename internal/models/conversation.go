package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of a conversation
type Message struct {
	Role    string `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
}

// Conversation is an append-only record of one chat exchange with an agent.
// Records are never updated or deleted after insertion.
type Conversation struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AgentID      primitive.ObjectID `bson:"agentId" json:"agent_id"`
	UserID       string             `bson:"userId,omitempty" json:"user_id,omitempty"`
	Messages     []Message          `bson:"messages" json:"messages"`
	SegmentsUsed []Segment          `bson:"segmentsUsed" json:"segments_used"`
	CreatedAt    time.Time          `bson:"createdAt" json:"created_at"`
}

// ChatRequest is the request body for chatting with an agent
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned after one chat exchange
type ChatResponse struct {
	Reply    string    `json:"reply"`
	Messages []Message `json:"messages"`
	Segments []Segment `json:"segments"`
	Warnings []string  `json:"warnings,omitempty"`
}
