package services

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"agentegen/internal/models"
)

// AgentLookup loads a single agent by id. Implemented by AgentService.
type AgentLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Agent, error)
}

// InheritanceResolver fills an agent's empty inheritable fields from its parent
type InheritanceResolver struct {
	agents AgentLookup
}

// NewInheritanceResolver creates a resolver backed by the given lookup
func NewInheritanceResolver(agents AgentLookup) *InheritanceResolver {
	return &InheritanceResolver{agents: agents}
}

// Resolve returns the effective agent. Resolution is one level deep: the
// parent's stored values are used as-is, even if the parent has a parent of
// its own. A missing parent, or any error loading it, leaves the agent as it is.
// The returned agent is always a copy.
func (r *InheritanceResolver) Resolve(ctx context.Context, agent *models.Agent) *models.Agent {
	if agent == nil {
		return nil
	}
	if !agent.HasParent() || len(agent.InheritableFields) == 0 {
		return agent.Clone()
	}

	parent, err := r.agents.GetByID(ctx, *agent.ParentAgentID)
	if err != nil || parent == nil {
		slog.Debug("parent agent unavailable, skipping inheritance",
			"agent_id", agent.ID.Hex(),
			"parent_id", agent.ParentAgentID.Hex(),
			"error", err)
		return agent.Clone()
	}

	return ApplyInheritance(agent, parent)
}

// ApplyInheritance copies each allow-listed field from parent into a copy of
// agent when the agent's own value is empty. Non-empty own values always win
// and fields outside the allow-list are never touched.
func ApplyInheritance(agent, parent *models.Agent) *models.Agent {
	resolved := agent.Clone()
	if resolved == nil || parent == nil {
		return resolved
	}

	for _, field := range agent.InheritableFields {
		if !field.IsValid() {
			continue
		}
		if resolved.Field(field) == "" {
			resolved.SetField(field, parent.Field(field))
		}
	}

	return resolved
}
