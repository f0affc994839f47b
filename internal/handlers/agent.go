package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"agentegen/internal/middleware"
	"agentegen/internal/models"
)

// AgentStore is the agent catalog used by AgentHandler
type AgentStore interface {
	Create(ctx context.Context, userID string, input *models.AgentInput) (*models.Agent, error)
	List(ctx context.Context) ([]*models.Agent, error)
	ListInheritanceCandidates(ctx context.Context, excludeID string) ([]*models.Agent, error)
	Get(ctx context.Context, id string) (*models.Agent, error)
	GetResolved(ctx context.Context, id string) (*models.Agent, error)
	Update(ctx context.Context, id string, input *models.AgentInput) (*models.Agent, error)
	Deactivate(ctx context.Context, id string) error
}

// AgentHandler handles agent CRUD and inheritance lookups
type AgentHandler struct {
	agents AgentStore
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(agents AgentStore) *AgentHandler {
	return &AgentHandler{agents: agents}
}

// List returns active agents, optionally filtered by category
// GET /api/agents?category=Social
func (h *AgentHandler) List(c *fiber.Ctx) error {
	agents, err := h.agents.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	category := models.AgentCategory(c.Query("category"))
	items := make([]models.AgentListItem, 0, len(agents))
	for _, a := range agents {
		if category != "" && a.Category != category {
			continue
		}
		items = append(items, a.ToListItem())
	}

	return c.JSON(fiber.Map{
		"agents": items,
		"total":  len(items),
	})
}

// Create creates an agent
// POST /api/agents
func (h *AgentHandler) Create(c *fiber.Ctx) error {
	var input models.AgentInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	userID, _ := c.Locals(middleware.LocalUserID).(string)
	agent, err := h.agents.Create(c.UserContext(), userID, &input)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("✅ [AGENT] %s created agent %s (%s)", userID, agent.ID.Hex(), agent.Name)
	return c.Status(fiber.StatusCreated).JSON(agent)
}

// Get returns an agent as stored, without inherited values
// GET /api/agents/:id
func (h *AgentHandler) Get(c *fiber.Ctx) error {
	agent, err := h.agents.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(agent)
}

// GetResolved returns an agent with its parent's inheritable segments applied
// GET /api/agents/:id/resolved
func (h *AgentHandler) GetResolved(c *fiber.Ctx) error {
	agent, err := h.agents.GetResolved(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(agent)
}

// Parents lists the agents that can serve as this agent's parent
// GET /api/agents/:id/parents
func (h *AgentHandler) Parents(c *fiber.Ctx) error {
	candidates, err := h.agents.ListInheritanceCandidates(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	items := make([]models.AgentListItem, 0, len(candidates))
	for _, a := range candidates {
		items = append(items, a.ToListItem())
	}
	return c.JSON(fiber.Map{"agents": items})
}

// Update replaces an agent's editable fields
// PUT /api/agents/:id
func (h *AgentHandler) Update(c *fiber.Ctx) error {
	var input models.AgentInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	agent, err := h.agents.Update(c.UserContext(), c.Params("id"), &input)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("✏️  [AGENT] Updated agent %s", agent.ID.Hex())
	return c.JSON(agent)
}

// Delete deactivates an agent
// DELETE /api/agents/:id
func (h *AgentHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.agents.Deactivate(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}

	log.Printf("🗑️  [AGENT] Deactivated agent %s", id)
	return c.SendStatus(fiber.StatusNoContent)
}
