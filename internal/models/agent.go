package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Segment names one of the four prompt fragments an agent carries.
// The same names are used for the inheritable field allow-list.
type Segment string

const (
	SegmentSystemPrompt   Segment = "system_prompt"
	SegmentKnowledgeBase  Segment = "knowledge_base"
	SegmentClientComments Segment = "client_comments"
	SegmentPlanning       Segment = "planning"
)

// CanonicalSegments is the fixed order in which segments are emitted into a context
var CanonicalSegments = []Segment{
	SegmentSystemPrompt,
	SegmentKnowledgeBase,
	SegmentClientComments,
	SegmentPlanning,
}

// IsValid reports whether s is one of the four known segments
func (s Segment) IsValid() bool {
	switch s {
	case SegmentSystemPrompt, SegmentKnowledgeBase, SegmentClientComments, SegmentPlanning:
		return true
	}
	return false
}

// AgentCategory groups agents in listings. It has no behavioral effect.
type AgentCategory string

const (
	CategoryGeneral AgentCategory = "General"
	CategorySocial  AgentCategory = "Social"
	CategorySEO     AgentCategory = "SEO"
	CategoryContent AgentCategory = "Content"
)

// IsValid reports whether c belongs to the fixed category set
func (c AgentCategory) IsValid() bool {
	switch c {
	case CategoryGeneral, CategorySocial, CategorySEO, CategoryContent:
		return true
	}
	return false
}

// Agent is a named bundle of prompt fragments used to condition model calls
type Agent struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name              string              `bson:"name" json:"name"`
	Category          AgentCategory       `bson:"category" json:"category"`
	SystemPrompt      string              `bson:"systemPrompt" json:"system_prompt"`
	KnowledgeBase     string              `bson:"knowledgeBase" json:"knowledge_base"`
	ClientComments    string              `bson:"clientComments" json:"client_comments"`
	Planning          string              `bson:"planning" json:"planning"`
	ParentAgentID     *primitive.ObjectID `bson:"parentAgentId,omitempty" json:"parent_agent_id,omitempty"`
	InheritableFields []Segment           `bson:"inheritableFields" json:"inheritable_fields"`
	Active            bool                `bson:"active" json:"active"`
	CreatedBy         string              `bson:"createdBy,omitempty" json:"created_by,omitempty"`
	CreatedAt         time.Time           `bson:"createdAt" json:"created_at"`
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updated_at"`
	DeactivatedAt     *time.Time          `bson:"deactivatedAt,omitempty" json:"deactivated_at,omitempty"`
}

// Field returns the agent's own value for a segment
func (a *Agent) Field(s Segment) string {
	switch s {
	case SegmentSystemPrompt:
		return a.SystemPrompt
	case SegmentKnowledgeBase:
		return a.KnowledgeBase
	case SegmentClientComments:
		return a.ClientComments
	case SegmentPlanning:
		return a.Planning
	}
	return ""
}

// SetField overwrites the agent's value for a segment. Unknown segments are ignored.
func (a *Agent) SetField(s Segment, value string) {
	switch s {
	case SegmentSystemPrompt:
		a.SystemPrompt = value
	case SegmentKnowledgeBase:
		a.KnowledgeBase = value
	case SegmentClientComments:
		a.ClientComments = value
	case SegmentPlanning:
		a.Planning = value
	}
}

// Clone returns a deep copy so resolution never mutates stored records
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	c := *a
	if a.ParentAgentID != nil {
		parentID := *a.ParentAgentID
		c.ParentAgentID = &parentID
	}
	if a.InheritableFields != nil {
		c.InheritableFields = append([]Segment(nil), a.InheritableFields...)
	}
	if a.DeactivatedAt != nil {
		t := *a.DeactivatedAt
		c.DeactivatedAt = &t
	}
	return &c
}

// HasParent reports whether the agent references a parent agent
func (a *Agent) HasParent() bool {
	return a.ParentAgentID != nil && !a.ParentAgentID.IsZero()
}

// AgentInput is the editable subset of an Agent used by create and update
type AgentInput struct {
	Name              string        `json:"name"`
	Category          AgentCategory `json:"category"`
	SystemPrompt      string        `json:"system_prompt"`
	KnowledgeBase     string        `json:"knowledge_base"`
	ClientComments    string        `json:"client_comments"`
	Planning          string        `json:"planning"`
	ParentAgentID     string        `json:"parent_agent_id,omitempty"`
	InheritableFields []Segment     `json:"inheritable_fields"`
}

// AgentListItem is the summary returned by agent listings
type AgentListItem struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Category      AgentCategory `json:"category"`
	ParentAgentID string        `json:"parent_agent_id,omitempty"`
	Inherits      int           `json:"inherits"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ToListItem converts an Agent to its listing summary
func (a *Agent) ToListItem() AgentListItem {
	item := AgentListItem{
		ID:        a.ID.Hex(),
		Name:      a.Name,
		Category:  a.Category,
		Inherits:  len(a.InheritableFields),
		CreatedAt: a.CreatedAt,
	}
	if a.HasParent() {
		item.ParentAgentID = a.ParentAgentID.Hex()
	}
	return item
}
