package services

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"agentegen/internal/models"
	"agentegen/internal/retrieval"
)

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// fakeAgents is an in-memory agent source keyed by ObjectID
type fakeAgents struct {
	agents map[primitive.ObjectID]*models.Agent
	err    error
}

func newFakeAgents(agents ...*models.Agent) *fakeAgents {
	f := &fakeAgents{agents: map[primitive.ObjectID]*models.Agent{}}
	for _, a := range agents {
		f.agents[a.ID] = a
	}
	return f
}

func (f *fakeAgents) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Agent, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return a, nil
}

func (f *fakeAgents) Get(ctx context.Context, id string) (*models.Agent, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAgentNotFound
	}
	return f.GetByID(ctx, oid)
}

func (f *fakeAgents) GetResolved(ctx context.Context, id string) (*models.Agent, error) {
	agent, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewInheritanceResolver(f).Resolve(ctx, agent), nil
}

// fakeDocuments is an in-memory DocumentStore
type fakeDocuments struct {
	docs    map[string]*models.Document
	saveErr error
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{docs: map[string]*models.Document{}}
}

func (f *fakeDocuments) Save(ctx context.Context, doc *models.Document) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	f.docs[doc.ID.Hex()] = doc
	return nil
}

func (f *fakeDocuments) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// fakeConversations records appended conversations
type fakeConversations struct {
	saved []*models.Conversation
	err   error
}

func (f *fakeConversations) Append(ctx context.Context, conv *models.Conversation) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, conv)
	return nil
}

// fakeRetriever returns canned embeddings and documents
type fakeRetriever struct {
	embedded  []string
	embedding retrieval.Embedding
	docs      []retrieval.Document
	searchErr error
	panicMsg  string
}

func (f *fakeRetriever) Embed(ctx context.Context, text string) retrieval.Embedding {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.embedded = append(f.embedded, text)
	if f.embedding.Vector == nil {
		return retrieval.Embedding{Vector: []float32{0.1, 0.2}}
	}
	return f.embedding
}

func (f *fakeRetriever) Search(ctx context.Context, vector []float32, limit int) ([]retrieval.Document, error) {
	if f.searchErr != nil {
		return []retrieval.Document{}, f.searchErr
	}
	if len(f.docs) > limit {
		return f.docs[:limit], nil
	}
	return f.docs, nil
}

var errBoom = errors.New("boom")

func newAgent(name string) *models.Agent {
	return &models.Agent{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Category: models.CategoryGeneral,
		Active:   true,
	}
}

type fakeProducts struct {
	products map[string]*models.Product
}

func (f *fakeProducts) Get(ctx context.Context, id string) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p, nil
}
