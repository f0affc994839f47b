package services

import (
	"strings"

	"agentegen/internal/models"
)

// Block headers of an assembled context
const (
	HeaderSystemPrompt   = "### SYSTEM INSTRUCTIONS ###"
	HeaderKnowledgeBase  = "### KNOWLEDGE BASE ###"
	HeaderClientComments = "### CLIENT COMMENTS ###"
	HeaderPlanning       = "### PLANNING ###"
	HeaderHistory        = "### CONVERSATION HISTORY ###"

	// ContextSentinel always ends a context so the model continues as the assistant
	ContextSentinel = "### CURRENT RESPONSE ###\nassistant:"
)

var segmentHeaders = map[models.Segment]string{
	models.SegmentSystemPrompt:   HeaderSystemPrompt,
	models.SegmentKnowledgeBase:  HeaderKnowledgeBase,
	models.SegmentClientComments: HeaderClientComments,
	models.SegmentPlanning:       HeaderPlanning,
}

// BuildContext serializes the selected, non-empty segments of a resolved agent
// followed by the conversation history and the response sentinel.
//
// Segments are always emitted in canonical order, whatever the order of
// selected. Each block is its header line, the text and a blank line. The
// result is deterministic and never empty.
func BuildContext(agent *models.Agent, selected []models.Segment, history []models.Message) string {
	var sb strings.Builder

	if agent != nil {
		wanted := make(map[models.Segment]bool, len(selected))
		for _, s := range selected {
			wanted[s] = true
		}

		for _, segment := range models.CanonicalSegments {
			if !wanted[segment] {
				continue
			}
			text := agent.Field(segment)
			if text == "" {
				continue
			}
			sb.WriteString(segmentHeaders[segment])
			sb.WriteString("\n")
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
	}

	if len(history) > 0 {
		sb.WriteString(HeaderHistory)
		sb.WriteString("\n")
		for _, msg := range history {
			sb.WriteString(msg.Role)
			sb.WriteString(": ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(ContextSentinel)
	return sb.String()
}

// buildTaskPrompt frames a one-off instruction as the single user turn of a context
func buildTaskPrompt(agent *models.Agent, selected []models.Segment, task string) string {
	return BuildContext(agent, selected, []models.Message{{Role: models.RoleUser, Content: task}})
}
