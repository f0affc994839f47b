package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"agentegen/internal/audio"
	"agentegen/internal/middleware"
	"agentegen/internal/models"
	"agentegen/internal/notice"
	"agentegen/internal/services"
	"agentegen/pkg/auth"
)

type fakeAgentStore struct {
	agents map[string]*models.Agent
}

func newFakeAgentStore(agents ...*models.Agent) *fakeAgentStore {
	s := &fakeAgentStore{agents: map[string]*models.Agent{}}
	for _, a := range agents {
		s.agents[a.ID.Hex()] = a
	}
	return s
}

func (s *fakeAgentStore) Create(_ context.Context, userID string, input *models.AgentInput) (*models.Agent, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", services.ErrValidation)
	}
	a := &models.Agent{ID: primitive.NewObjectID(), Name: input.Name, Category: input.Category, CreatedBy: userID, Active: true}
	s.agents[a.ID.Hex()] = a
	return a, nil
}

func (s *fakeAgentStore) List(context.Context) ([]*models.Agent, error) {
	out := make([]*models.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeAgentStore) ListInheritanceCandidates(_ context.Context, excludeID string) ([]*models.Agent, error) {
	var out []*models.Agent
	for id, a := range s.agents {
		if id != excludeID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeAgentStore) Get(_ context.Context, id string) (*models.Agent, error) {
	if a, ok := s.agents[id]; ok {
		return a, nil
	}
	return nil, services.ErrAgentNotFound
}

func (s *fakeAgentStore) GetResolved(ctx context.Context, id string) (*models.Agent, error) {
	return s.Get(ctx, id)
}

func (s *fakeAgentStore) Update(ctx context.Context, id string, input *models.AgentInput) (*models.Agent, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Name = input.Name
	return a, nil
}

func (s *fakeAgentStore) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	delete(s.agents, id)
	return nil
}

// newSessionApp returns an app whose requests run as a freshly started session
func newSessionApp(t *testing.T, agents services.AgentGetter) (*fiber.App, *services.SessionService, *models.Session) {
	t.Helper()
	sessions := services.NewSessionService(services.NewMemorySessionStore(time.Hour), agents)
	session, err := sessions.Start(context.Background(), "alice", "user")
	require.NoError(t, err)

	app := fiber.New()
	app.Use(middleware.NoticeMiddleware())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, session.UserID)
		c.Locals(middleware.LocalRole, session.Role)
		c.Locals(middleware.LocalSession, session)
		return c.Next()
	})
	return app, sessions, session
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func TestAgentHandler(t *testing.T) {
	store := newFakeAgentStore()
	app, _, _ := newSessionApp(t, store)

	h := NewAgentHandler(store)
	app.Get("/api/agents", h.List)
	app.Post("/api/agents", h.Create)
	app.Get("/api/agents/:id", h.Get)
	app.Get("/api/agents/:id/parents", h.Parents)
	app.Delete("/api/agents/:id", h.Delete)

	status, body := doJSON(t, app, "POST", "/api/agents", models.AgentInput{Name: "Writer", Category: models.CategorySocial})
	require.Equal(t, fiber.StatusCreated, status)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "alice", body["created_by"])

	status, body = doJSON(t, app, "POST", "/api/agents", models.AgentInput{Name: " "})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "name is required")

	_, _ = doJSON(t, app, "POST", "/api/agents", models.AgentInput{Name: "Editor", Category: models.CategorySEO})

	status, body = doJSON(t, app, "GET", "/api/agents?category=Social", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = doJSON(t, app, "GET", "/api/agents/"+id+"/parents", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["agents"], 1)

	status, _ = doJSON(t, app, "GET", "/api/agents/"+primitive.NewObjectID().Hex(), nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, "DELETE", "/api/agents/"+id, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
}

type fakeChatter struct {
	err error
}

func (f *fakeChatter) Chat(ctx context.Context, session *models.Session, agentID, message string) (*models.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	notice.Warn(ctx, "No reference documents found")
	return &models.ChatResponse{
		Reply:    "echo: " + message,
		Messages: []models.Message{{Role: models.RoleUser, Content: message}, {Role: models.RoleAssistant, Content: "echo: " + message}},
		Segments: session.Segments,
	}, nil
}

type fakeConversationLister struct{}

func (fakeConversationLister) ListRecent(context.Context, string, int64) ([]*models.Conversation, error) {
	return nil, nil
}

func TestConversationHandlerChat(t *testing.T) {
	store := newFakeAgentStore()
	app, sessions, session := newSessionApp(t, store)

	h := NewConversationHandler(&fakeChatter{}, fakeConversationLister{}, sessions)
	app.Post("/api/agents/:id/chat", h.Chat)
	app.Get("/api/agents/:id/conversations", h.List)

	status, body := doJSON(t, app, "POST", "/api/agents/abc/chat", models.ChatRequest{Message: "hi"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "echo: hi", body["reply"])
	assert.Equal(t, []any{"No reference documents found"}, body["warnings"])

	stored, err := sessions.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"No reference documents found"}, stored.Warnings)

	status, body = doJSON(t, app, "GET", "/api/agents/abc/conversations", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{}, body["conversations"])
}

func TestConversationHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "Validation", err: fmt.Errorf("%w: message is required", services.ErrValidation), status: fiber.StatusBadRequest},
		{name: "Unknown agent", err: services.ErrAgentNotFound, status: fiber.StatusNotFound},
		{name: "Model failure", err: fmt.Errorf("%w: timeout", services.ErrGeneration), status: fiber.StatusBadGateway},
		{name: "Unexpected", err: fmt.Errorf("disk on fire"), status: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, sessions, _ := newSessionApp(t, newFakeAgentStore())
			h := NewConversationHandler(&fakeChatter{err: tt.err}, fakeConversationLister{}, sessions)
			app.Post("/api/agents/:id/chat", h.Chat)

			status, _ := doJSON(t, app, "POST", "/api/agents/abc/chat", models.ChatRequest{Message: "hi"})
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestSessionHandler(t *testing.T) {
	agent := &models.Agent{ID: primitive.NewObjectID(), Name: "Writer"}
	app, sessions, session := newSessionApp(t, newFakeAgentStore(agent))

	h := NewSessionHandler(sessions)
	app.Get("/api/session", h.Get)
	app.Put("/api/session/agent", h.SelectAgent)
	app.Put("/api/session/segments", h.SetSegments)

	status, body := doJSON(t, app, "PUT", "/api/session/agent", SelectAgentRequest{AgentID: agent.ID.Hex()})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, agent.ID.Hex(), body["agent_id"])

	status, _ = doJSON(t, app, "PUT", "/api/session/agent", SelectAgentRequest{AgentID: primitive.NewObjectID().Hex()})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, "PUT", "/api/session/segments", SegmentsRequest{Segments: []models.Segment{"mood"}})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = doJSON(t, app, "PUT", "/api/session/segments", SegmentsRequest{Segments: []models.Segment{models.SegmentPlanning}})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{"planning"}, body["segments"])
	assert.Equal(t, []models.Segment{models.SegmentPlanning}, session.Segments)
}

type fakePipeline struct {
	err error
}

func (f *fakePipeline) Status(session *models.Session) services.PipelineStatus {
	return services.PipelineStatus{Step: session.PipelineStep, StepName: session.PipelineStep.String()}
}

func (f *fakePipeline) Advance(_ context.Context, session *models.Session, step models.PipelineStep, input *services.PipelineInput) (*models.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Document{ID: primitive.NewObjectID(), Type: step.DocumentType(), Body: input.Text}, nil
}

func (f *fakePipeline) Reset(context.Context, *models.Session) error { return nil }

func TestPipelineHandler(t *testing.T) {
	t.Run("Runs a step", func(t *testing.T) {
		app, sessions, _ := newSessionApp(t, newFakeAgentStore())
		h := NewPipelineHandler(&fakePipeline{}, sessions)
		app.Post("/api/pipeline/:step", h.Step)

		status, body := doJSON(t, app, "POST", "/api/pipeline/briefing", services.PipelineInput{Text: "bikes"})
		require.Equal(t, fiber.StatusOK, status)
		doc := body["document"].(map[string]any)
		assert.Equal(t, "briefing", doc["type"])
		assert.Equal(t, "bikes", doc["body"])
	})

	t.Run("Unknown step", func(t *testing.T) {
		app, sessions, _ := newSessionApp(t, newFakeAgentStore())
		h := NewPipelineHandler(&fakePipeline{}, sessions)
		app.Post("/api/pipeline/:step", h.Step)

		status, _ := doJSON(t, app, "POST", "/api/pipeline/publish", nil)
		assert.Equal(t, fiber.StatusNotFound, status)
	})

	t.Run("Out of order", func(t *testing.T) {
		app, sessions, _ := newSessionApp(t, newFakeAgentStore())
		h := NewPipelineHandler(&fakePipeline{err: services.ErrStepOutOfOrder}, sessions)
		app.Post("/api/pipeline/:step", h.Step)

		status, _ := doJSON(t, app, "POST", "/api/pipeline/review", nil)
		assert.Equal(t, fiber.StatusConflict, status)
	})
}

type fakeTools struct{}

func (fakeTools) SpellingReview(_ context.Context, _ *models.Session, text string) (*services.ToolResult, error) {
	return &services.ToolResult{Text: strings.ToUpper(text), Rewritten: true}, nil
}

func (fakeTools) TechnicalReview(ctx context.Context, _ *models.Session, text, domain string) (*services.ToolResult, error) {
	notice.Warn(ctx, "Vector search unavailable")
	if domain != "" {
		text += " (" + domain + ")"
	}
	return &services.ToolResult{Text: text}, nil
}

func (fakeTools) OptimizeSEO(_ context.Context, _ *models.Session, _ string, keywords []string) (*services.ToolResult, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: at least one keyword is required", services.ErrValidation)
	}
	return &services.ToolResult{Text: "optimized", MetaTitle: keywords[0], Rewritten: true}, nil
}

func (fakeTools) BlogPost(_ context.Context, _ *models.Session, input *services.BlogPostInput) (*services.ToolResult, error) {
	if input.Product != "" {
		return nil, services.ErrProductNotFound
	}
	return &services.ToolResult{Text: "# " + input.Title, Rewritten: true}, nil
}

func TestToolsHandlerText(t *testing.T) {
	app, sessions, _ := newSessionApp(t, newFakeAgentStore())
	h := NewToolsHandler(fakeTools{}, nil, sessions)
	app.Post("/api/tools/spelling", h.Spelling)
	app.Post("/api/tools/technical-review", h.TechnicalReview)
	app.Post("/api/tools/seo", h.SEO)
	app.Post("/api/tools/blog-post", h.BlogPost)

	status, body := doJSON(t, app, "POST", "/api/tools/spelling", TextRequest{Text: "hello"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "HELLO", body["text"])

	status, body = doJSON(t, app, "POST", "/api/tools/technical-review", TextRequest{Text: "draft"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["rewritten"])
	assert.Equal(t, []any{"Vector search unavailable"}, body["warnings"])

	status, body = doJSON(t, app, "POST", "/api/tools/technical-review", TextRequest{Text: "draft", Domain: "agronomy"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "draft (agronomy)", body["text"])

	status, _ = doJSON(t, app, "POST", "/api/tools/seo", TextRequest{Text: "draft"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = doJSON(t, app, "POST", "/api/tools/seo", TextRequest{Text: "draft", Keywords: []string{"bikes"}})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "bikes", body["meta_title"])

	status, body = doJSON(t, app, "POST", "/api/tools/blog-post", services.BlogPostInput{Title: "Soy"})
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "# Soy", body["text"])

	status, _ = doJSON(t, app, "POST", "/api/tools/blog-post", services.BlogPostInput{Title: "Soy", Product: "unknown"})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

type fakeTranscriber struct{ err error }

func (f fakeTranscriber) Transcribe(_ context.Context, req *audio.TranscribeRequest) (*audio.TranscribeResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &audio.TranscribeResponse{Text: fmt.Sprintf("%d bytes", len(req.Data)), MimeType: audio.NormalizeMimeType(req.MimeType, req.Filename)}, nil
}

func TestToolsHandlerUploads(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		transcriber Transcriber
		filename    string
		data        []byte
		wantStatus  int
		wantText    string
	}{
		{name: "Extract text file", path: "/api/tools/extract", filename: "notes.txt", data: []byte("three little words"), wantStatus: fiber.StatusOK, wantText: "three little words"},
		{name: "Extract unsupported file", path: "/api/tools/extract", filename: "setup.exe", data: []byte{0x4d, 0x5a}, wantStatus: fiber.StatusBadRequest},
		{name: "Transcribe without model", path: "/api/tools/transcribe", filename: "memo.mp3", data: []byte("ID3"), wantStatus: fiber.StatusServiceUnavailable},
		{name: "Transcribe model failure", path: "/api/tools/transcribe", transcriber: fakeTranscriber{err: fmt.Errorf("%w: quota", audio.ErrTranscription)}, filename: "memo.mp3", data: []byte("ID3"), wantStatus: fiber.StatusBadGateway},
		{name: "Transcribe", path: "/api/tools/transcribe", transcriber: fakeTranscriber{}, filename: "memo.mp3", data: []byte("ID3"), wantStatus: fiber.StatusOK, wantText: "3 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, sessions, _ := newSessionApp(t, newFakeAgentStore())
			h := NewToolsHandler(fakeTools{}, tt.transcriber, sessions)
			app.Post("/api/tools/extract", h.Extract)
			app.Post("/api/tools/transcribe", h.Transcribe)

			body, contentType := multipartBody(t, tt.filename, tt.data)
			req := httptest.NewRequest("POST", tt.path, body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantText != "" {
				var out map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
				assert.Equal(t, tt.wantText, out["text"])
			}
		})
	}
}

type fakeDocumentLibrary struct {
	docs map[string]*models.Document
}

func (f *fakeDocumentLibrary) List(context.Context, models.DocumentFilter) ([]*models.Document, error) {
	return nil, nil
}

func (f *fakeDocumentLibrary) Get(_ context.Context, id string) (*models.Document, error) {
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, services.ErrDocumentNotFound
}

func (f *fakeDocumentLibrary) Delete(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return services.ErrDocumentNotFound
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentLibrary) RenderHTML(doc *models.Document) (string, error) {
	return "<html><body>" + doc.Body + "</body></html>", nil
}

func TestDocumentHandler(t *testing.T) {
	doc := &models.Document{ID: primitive.NewObjectID(), Type: models.DocumentContent, Body: "hello"}
	lib := &fakeDocumentLibrary{docs: map[string]*models.Document{doc.ID.Hex(): doc}}

	app := fiber.New()
	h := NewDocumentHandler(lib)
	app.Get("/api/documents", h.List)
	app.Get("/api/documents/:id/html", h.HTML)
	app.Delete("/api/documents/:id", h.Delete)

	status, body := doJSON(t, app, "GET", "/api/documents", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{}, body["documents"])

	resp, err := app.Test(httptest.NewRequest("GET", "/api/documents/"+doc.ID.Hex()+"/html", nil))
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(page), "hello")

	status, _ = doJSON(t, app, "DELETE", "/api/documents/"+doc.ID.Hex(), nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = doJSON(t, app, "DELETE", "/api/documents/"+doc.ID.Hex(), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAuthFlow(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	users, err := auth.ParseUsers([]byte("users:\n  - username: alice\n    password_hash: " + hash + "\n    role: admin\n"))
	require.NoError(t, err)

	jwtAuth, err := auth.NewLocalJWTAuth("test-secret-that-is-long-enough-1234", time.Hour)
	require.NoError(t, err)
	sessions := services.NewSessionService(services.NewMemorySessionStore(time.Hour), newFakeAgentStore())

	h := NewAuthHandler(users, sessions, jwtAuth)
	app := fiber.New()
	app.Post("/api/auth/login", h.Login)
	protected := app.Group("/api", middleware.SessionAuthMiddleware(jwtAuth, sessions))
	protected.Get("/auth/me", h.Me)
	protected.Post("/auth/logout", h.Logout)

	status, _ := doJSON(t, app, "POST", "/api/auth/login", LoginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := doJSON(t, app, "POST", "/api/auth/login", LoginRequest{Username: "alice", Password: "s3cret"})
	require.Equal(t, fiber.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	authed := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, authed("GET", "/api/auth/me"))
	assert.Equal(t, fiber.StatusNoContent, authed("POST", "/api/auth/logout"))
	// the token is still signed but its session is gone
	assert.Equal(t, fiber.StatusUnauthorized, authed("GET", "/api/auth/me"))
}

type fakeProductCatalog struct {
	products []*models.Product
}

func (f *fakeProductCatalog) List(context.Context) ([]*models.Product, error) {
	return f.products, nil
}

func (f *fakeProductCatalog) Get(_ context.Context, id string) (*models.Product, error) {
	for _, p := range f.products {
		if p.ID.Hex() == id {
			return p, nil
		}
	}
	return nil, services.ErrProductNotFound
}

func TestProductHandler(t *testing.T) {
	product := &models.Product{ID: primitive.NewObjectID(), Name: "NemaShield", Characteristics: "Seed treatment"}

	app := fiber.New()
	h := NewProductHandler(&fakeProductCatalog{products: []*models.Product{product}})
	app.Get("/api/products", h.List)
	app.Get("/api/products/:id", h.Get)

	status, body := doJSON(t, app, "GET", "/api/products", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	status, body = doJSON(t, app, "GET", "/api/products/"+product.ID.Hex(), nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Seed treatment", body["characteristics"])

	status, _ = doJSON(t, app, "GET", "/api/products/"+primitive.NewObjectID().Hex(), nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	empty := fiber.New()
	empty.Get("/api/products", NewProductHandler(&fakeProductCatalog{}).List)
	status, body = doJSON(t, empty, "GET", "/api/products", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{}, body["products"])
}

type failingIssuer struct{}

func (failingIssuer) GenerateToken(string, string, string) (string, time.Time, error) {
	return "", time.Time{}, errors.New("signing key unavailable")
}

type recordingLifecycle struct {
	ended  []string
	endErr error
}

func (r *recordingLifecycle) Start(_ context.Context, userID, role string) (*models.Session, error) {
	return &models.Session{ID: "s-" + userID, UserID: userID, Role: role}, nil
}

func (r *recordingLifecycle) End(_ context.Context, id string) error {
	r.ended = append(r.ended, id)
	return r.endErr
}

func TestLoginEndsSessionWhenTokenFails(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	users, err := auth.ParseUsers([]byte("users:\n  - username: alice\n    password_hash: " + hash + "\n"))
	require.NoError(t, err)

	for _, endErr := range []error{nil, errors.New("store down")} {
		lifecycle := &recordingLifecycle{endErr: endErr}
		app := fiber.New()
		app.Post("/api/auth/login", NewAuthHandler(users, lifecycle, failingIssuer{}).Login)

		status, body := doJSON(t, app, "POST", "/api/auth/login", LoginRequest{Username: "alice", Password: "s3cret"})
		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.Equal(t, "Internal server error", body["error"])
		assert.Equal(t, []string{"s-alice"}, lifecycle.ended)
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	app := fiber.New()
	app.Get("/health", NewHealthHandler(map[string]Pinger{"mongodb": fakePinger{}}).Handle)
	app.Get("/health-degraded", NewHealthHandler(map[string]Pinger{
		"mongodb": fakePinger{},
		"redis":   fakePinger{err: fmt.Errorf("connection refused")},
	}).Handle)

	status, body := doJSON(t, app, "GET", "/health", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = doJSON(t, app, "GET", "/health-degraded", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "connection refused", body["checks"].(map[string]any)["redis"])
}
