package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentegen/internal/models"
	"agentegen/internal/notice"
)

func newChatFixture(t *testing.T, gen *fakeGenerator, convs *fakeConversations) (*ChatService, *SessionService, *models.Session, *models.Agent) {
	t.Helper()

	parent := newAgent("parent")
	parent.KnowledgeBase = "Product facts"
	agent := newAgent("writer")
	agent.SystemPrompt = "Be formal"
	agent.ParentAgentID = &parent.ID
	agent.InheritableFields = []models.Segment{models.SegmentKnowledgeBase}

	agents := newFakeAgents(parent, agent)
	sessions := NewSessionService(NewMemorySessionStore(time.Hour), agents)
	session, err := sessions.Start(context.Background(), "alice", "user")
	require.NoError(t, err)

	return NewChatService(agents, convs, sessions, gen), sessions, session, agent
}

func TestChatRoundTrip(t *testing.T) {
	gen := &fakeGenerator{reply: "Good afternoon."}
	convs := &fakeConversations{}
	chat, sessions, session, agent := newChatFixture(t, gen, convs)

	resp, err := chat.Chat(context.Background(), session, agent.ID.Hex(), "  Hello  ")
	require.NoError(t, err)
	assert.Equal(t, "Good afternoon.", resp.Reply)
	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "Hello"},
		{Role: models.RoleAssistant, Content: "Good afternoon."},
	}, resp.Messages)

	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, "Be formal")
	assert.Contains(t, prompt, "Product facts")
	assert.Contains(t, prompt, "user: Hello")

	require.Len(t, convs.saved, 1)
	assert.Equal(t, agent.ID, convs.saved[0].AgentID)
	assert.Len(t, convs.saved[0].Messages, 2)

	stored, err := sessions.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)
	assert.Equal(t, agent.ID.Hex(), stored.AgentID)

	// the second turn carries the first as history
	_, err = chat.Chat(context.Background(), session, agent.ID.Hex(), "And now?")
	require.NoError(t, err)
	assert.Contains(t, gen.lastPrompt(), "assistant: Good afternoon.\nuser: And now?")
	assert.Len(t, convs.saved[1].Messages, 4)
}

func TestChatGenerationFailureRecordsNothing(t *testing.T) {
	gen := &fakeGenerator{err: errBoom}
	convs := &fakeConversations{}
	chat, _, session, agent := newChatFixture(t, gen, convs)

	_, err := chat.Chat(context.Background(), session, agent.ID.Hex(), "Hello")
	assert.True(t, errors.Is(err, ErrGeneration))
	assert.Empty(t, session.Messages)
	assert.Empty(t, convs.saved)
}

func TestChatFailureAfterSwitchKeepsPreviousAgent(t *testing.T) {
	gen := &fakeGenerator{reply: "first"}
	convs := &fakeConversations{}
	chat, sessions, session, agent := newChatFixture(t, gen, convs)
	other := newAgent("other")
	chat.agents.(*fakeAgents).agents[other.ID] = other

	_, err := chat.Chat(context.Background(), session, agent.ID.Hex(), "Hello")
	require.NoError(t, err)

	gen.err = errBoom
	_, err = chat.Chat(context.Background(), session, other.ID.Hex(), "Switch")
	assert.True(t, errors.Is(err, ErrGeneration))
	assert.NotContains(t, gen.lastPrompt(), "Hello")

	stored, err := sessions.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.ID.Hex(), stored.AgentID)
	assert.Len(t, stored.Messages, 2)
	assert.Equal(t, agent.ID.Hex(), session.AgentID)
	assert.Len(t, convs.saved, 1)

	// a successful switch starts a fresh transcript
	gen.err = nil
	gen.reply = "second"
	resp, err := chat.Chat(context.Background(), session, other.ID.Hex(), "Switch")
	require.NoError(t, err)
	assert.Len(t, resp.Messages, 2)
	assert.Equal(t, other.ID.Hex(), session.AgentID)
}

func TestChatValidation(t *testing.T) {
	chat, _, session, _ := newChatFixture(t, &fakeGenerator{reply: "x"}, &fakeConversations{})

	_, err := chat.Chat(context.Background(), session, "", "   ")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = chat.Chat(context.Background(), session, "000000000000000000000000", "hi")
	assert.True(t, errors.Is(err, ErrAgentNotFound))
}

func TestChatConversationSaveFailureIsAWarning(t *testing.T) {
	convs := &fakeConversations{err: errBoom}
	chat, _, session, agent := newChatFixture(t, &fakeGenerator{reply: "ok"}, convs)

	rec := notice.NewRecorder()
	ctx := notice.WithRecorder(context.Background(), rec)

	resp, err := chat.Chat(ctx, session, agent.ID.Hex(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Reply)
	assert.Len(t, rec.Warnings(), 1)
}
