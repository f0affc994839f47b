package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agentegen/internal/database"
	"agentegen/internal/models"
)

// maxParentChainDepth bounds the walk used to detect inheritance cycles on write
const maxParentChainDepth = 64

// AgentService manages agents in MongoDB
type AgentService struct {
	collection *mongo.Collection
	resolver   *InheritanceResolver
}

// NewAgentService creates a new agent service
func NewAgentService(mongoDB *database.MongoDB) *AgentService {
	return newAgentServiceWithCollection(mongoDB.Collection(database.CollectionAgents))
}

func newAgentServiceWithCollection(collection *mongo.Collection) *AgentService {
	s := &AgentService{collection: collection}
	s.resolver = NewInheritanceResolver(s)
	return s
}

// Resolver returns the inheritance resolver backed by this store
func (s *AgentService) Resolver() *InheritanceResolver {
	return s.resolver
}

// Create validates and inserts a new agent
func (s *AgentService) Create(ctx context.Context, userID string, input *models.AgentInput) (*models.Agent, error) {
	fields, err := s.validate(ctx, nil, input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	agent := &models.Agent{
		ID:                primitive.NewObjectID(),
		Name:              fields.name,
		Category:          fields.category,
		SystemPrompt:      input.SystemPrompt,
		KnowledgeBase:     input.KnowledgeBase,
		ClientComments:    input.ClientComments,
		Planning:          input.Planning,
		ParentAgentID:     fields.parentID,
		InheritableFields: fields.inheritable,
		Active:            true,
		CreatedBy:         userID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if _, err := s.collection.InsertOne(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	log.Printf("📝 [AGENT] Created agent %s (%s, category %s)", agent.ID.Hex(), agent.Name, agent.Category)
	return agent, nil
}

// List returns active agents, newest first
func (s *AgentService) List(ctx context.Context) ([]*models.Agent, error) {
	return s.find(ctx, bson.M{"active": true})
}

// ListInheritanceCandidates returns the active agents that may be chosen as a
// parent for the agent with excludeID. The agent itself is never offered.
func (s *AgentService) ListInheritanceCandidates(ctx context.Context, excludeID string) ([]*models.Agent, error) {
	filter := bson.M{"active": true}
	if excludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}
	return s.find(ctx, filter)
}

func (s *AgentService) find(ctx context.Context, filter bson.M) ([]*models.Agent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer cursor.Close(ctx)

	agents := []*models.Agent{}
	if err := cursor.All(ctx, &agents); err != nil {
		return nil, fmt.Errorf("failed to decode agents: %w", err)
	}
	return agents, nil
}

// Get returns an agent by its hex id. Inactive agents are still returned so
// that children of a deactivated parent keep resolving.
func (s *AgentService) Get(ctx context.Context, id string) (*models.Agent, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAgentNotFound
	}
	return s.GetByID(ctx, oid)
}

// GetByID returns an agent by ObjectID
func (s *AgentService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Agent, error) {
	var agent models.Agent
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&agent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &agent, nil
}

// GetResolved returns the agent with inheritance applied
func (s *AgentService) GetResolved(ctx context.Context, id string) (*models.Agent, error) {
	agent, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, agent), nil
}

// Update replaces the editable fields of an agent
func (s *AgentService) Update(ctx context.Context, id string, input *models.AgentInput) (*models.Agent, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAgentNotFound
	}

	fields, err := s.validate(ctx, &oid, input)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"name":              fields.name,
		"category":          fields.category,
		"systemPrompt":      input.SystemPrompt,
		"knowledgeBase":     input.KnowledgeBase,
		"clientComments":    input.ClientComments,
		"planning":          input.Planning,
		"inheritableFields": fields.inheritable,
		"updatedAt":         time.Now(),
	}
	update := bson.M{"$set": set}
	if fields.parentID != nil {
		set["parentAgentId"] = *fields.parentID
	} else {
		update["$unset"] = bson.M{"parentAgentId": ""}
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrAgentNotFound
	}

	log.Printf("📝 [AGENT] Updated agent %s", id)
	return s.GetByID(ctx, oid)
}

// Deactivate soft-deletes an agent. The record stays in place and keeps
// serving as a parent for agents that reference it.
func (s *AgentService) Deactivate(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrAgentNotFound
	}

	now := time.Now()
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"active":        false,
			"deactivatedAt": now,
			"updatedAt":     now,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate agent: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAgentNotFound
	}

	log.Printf("🗑️  [AGENT] Deactivated agent %s", id)
	return nil
}

type agentFields struct {
	name        string
	category    models.AgentCategory
	inheritable []models.Segment
	parentID    *primitive.ObjectID
}

// validate normalizes input and rejects it before anything is written
func (s *AgentService) validate(ctx context.Context, selfID *primitive.ObjectID, input *models.AgentInput) (*agentFields, error) {
	if input == nil {
		return nil, validationError("agent data is required")
	}

	fields := &agentFields{
		name:     strings.TrimSpace(input.Name),
		category: input.Category,
	}
	if fields.name == "" {
		return nil, validationError("name is required")
	}

	if fields.category == "" {
		fields.category = models.CategoryGeneral
	}
	if !fields.category.IsValid() {
		return nil, validationError("unknown category %q", input.Category)
	}

	inheritable, err := normalizeSegments(input.InheritableFields)
	if err != nil {
		return nil, err
	}
	fields.inheritable = inheritable

	if input.ParentAgentID != "" {
		parentID, err := primitive.ObjectIDFromHex(input.ParentAgentID)
		if err != nil {
			return nil, validationError("invalid parent agent id %q", input.ParentAgentID)
		}
		if err := s.checkParent(ctx, selfID, parentID); err != nil {
			return nil, err
		}
		fields.parentID = &parentID
	}

	return fields, nil
}

// checkParent verifies the parent exists and that linking to it keeps the
// parent graph acyclic. The chain is walked with a visited set.
func (s *AgentService) checkParent(ctx context.Context, selfID *primitive.ObjectID, parentID primitive.ObjectID) error {
	if selfID != nil && *selfID == parentID {
		return validationError("an agent cannot be its own parent")
	}

	parent, err := s.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return validationError("parent agent %s not found", parentID.Hex())
		}
		return err
	}

	if selfID == nil {
		return nil
	}

	visited := map[primitive.ObjectID]bool{parentID: true}
	current := parent
	for depth := 0; current.HasParent(); depth++ {
		if depth >= maxParentChainDepth {
			return validationError("parent chain is too deep")
		}
		next := *current.ParentAgentID
		if next == *selfID {
			return validationError("parent agent %s would create an inheritance cycle", parentID.Hex())
		}
		if visited[next] {
			// an existing cycle that does not involve this agent
			return nil
		}
		visited[next] = true

		current, err = s.GetByID(ctx, next)
		if err != nil {
			if errors.Is(err, ErrAgentNotFound) {
				return nil
			}
			return err
		}
	}
	return nil
}

// normalizeSegments rejects unknown segment names and collapses duplicates,
// keeping first-seen order
func normalizeSegments(segments []models.Segment) ([]models.Segment, error) {
	seen := make(map[models.Segment]bool, len(segments))
	out := make([]models.Segment, 0, len(segments))
	for _, s := range segments {
		if !s.IsValid() {
			return nil, validationError("unknown field %q", s)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}
