package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"agentegen/internal/audio"
	"agentegen/internal/config"
	"agentegen/internal/database"
	"agentegen/internal/handlers"
	"agentegen/internal/llm"
	"agentegen/internal/logging"
	"agentegen/internal/middleware"
	"agentegen/internal/preflight"
	"agentegen/internal/retrieval"
	"agentegen/internal/services"
	"agentegen/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting AgenteGen Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Environment: %s)", cfg.Port, cfg.Environment)

	ctx := context.Background()

	// MongoDB holds agents, conversations and documents
	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	if err := mongoDB.Initialize(ctx); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB: %v", err)
	}

	checker := preflight.NewChecker(mongoDB, cfg)
	if preflight.HasFailures(checker.RunAll(ctx)) {
		log.Fatal("❌ Pre-flight checks failed, refusing to start")
	}

	users, err := auth.LoadUsers(cfg.UsersFile)
	if err != nil {
		log.Fatalf("❌ Failed to load users: %v", err)
	}
	log.Printf("👥 Loaded %d users from %s", users.Len(), cfg.UsersFile)

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		// Only reachable outside production; preflight fails otherwise
		jwtSecret = uuid.NewString() + uuid.NewString()
		log.Println("⚠️  JWT_SECRET not set, using an ephemeral secret (sessions end on restart)")
	}
	jwtAuth, err := auth.NewLocalJWTAuth(jwtSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
	}

	// Sessions live in Redis when configured, in process memory otherwise
	healthDeps := map[string]handlers.Pinger{"mongodb": mongoDB}
	var sessionStore services.SessionStore
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		sessionStore = services.NewRedisSessionStore(redisService.Client(), cfg.SessionTTL)
		healthDeps["redis"] = redisService
		log.Println("✅ Sessions stored in Redis")
	} else {
		sessionStore = services.NewMemorySessionStore(cfg.SessionTTL)
		log.Println("⚠️  REDIS_URL not set, sessions are kept in memory")
	}

	// Model client
	var (
		generator   llm.Generator = llm.Disabled{}
		embedder    llm.Embedder
		transcriber handlers.Transcriber
	)
	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewClient(ctx, llm.Config{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			EmbeddingModel: cfg.GeminiEmbeddingModel,
			Dimensions:     cfg.EmbeddingDimensions,
			RatePerSecond:  cfg.LLMRatePerSecond,
			Burst:          cfg.LLMBurst,
		})
		if err != nil {
			log.Fatalf("❌ Failed to initialize Gemini client: %v", err)
		}
		generator = client
		embedder = client
		transcriber = audio.NewService(client)
		log.Printf("🤖 Gemini model: %s (embeddings: %s)", client.Model(), cfg.GeminiEmbeddingModel)
	} else {
		log.Println("⚠️  GEMINI_API_KEY not set, generation endpoints will fail")
	}

	retriever := retrieval.NewClient(retrieval.Config{
		Endpoint:   cfg.VectorSearchURL,
		Token:      cfg.VectorSearchToken,
		Timeout:    cfg.VectorSearchTimeout,
		Dimensions: cfg.EmbeddingDimensions,
	}, embedder)

	services.InitMetrics()

	// Services
	agentService := services.NewAgentService(mongoDB)
	conversationService := services.NewConversationService(mongoDB)
	documentService := services.NewDocumentService(mongoDB)
	productService := services.NewProductService(mongoDB)
	sessionService := services.NewSessionService(sessionStore, agentService)
	rewriteService := services.NewRewriteService(retriever, generator, cfg.RAGReferenceLimit, cfg.RAGQueryPrefixRunes)
	chatService := services.NewChatService(agentService, conversationService, sessionService, generator)
	pipelineService := services.NewPipelineService(agentService, documentService, sessionService, generator)
	toolsService := services.NewToolsService(agentService, documentService, productService, rewriteService, generator)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "AgenteGen v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second, // model calls can take a while
		IdleTimeout:  120 * time.Second,
		BodyLimit:    30 * 1024 * 1024, // recordings and source documents
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("agentegen")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig(cfg.Environment)
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Login=%d/min, Generation=%d/min, Upload=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.LoginMax,
		rateLimitConfig.GenerationMax,
		rateLimitConfig.UploadMax,
	)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: cfg.AllowedOrigins != "*",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	app.Use("/api", middleware.NoticeMiddleware())

	// Handlers
	healthHandler := handlers.NewHealthHandler(healthDeps)
	authHandler := handlers.NewAuthHandler(users, sessionService, jwtAuth)
	agentHandler := handlers.NewAgentHandler(agentService)
	conversationHandler := handlers.NewConversationHandler(chatService, conversationService, sessionService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	pipelineHandler := handlers.NewPipelineHandler(pipelineService, sessionService)
	toolsHandler := handlers.NewToolsHandler(toolsService, transcriber, sessionService)
	documentHandler := handlers.NewDocumentHandler(documentService)
	productHandler := handlers.NewProductHandler(productService)

	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/auth/login", middleware.LoginRateLimiter(rateLimitConfig), authHandler.Login)

	protected := api.Group("", middleware.SessionAuthMiddleware(jwtAuth, sessionService))
	generationLimiter := middleware.GenerationRateLimiter(rateLimitConfig)
	uploadLimiter := middleware.UploadRateLimiter(rateLimitConfig)

	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)

	protected.Get("/agents", agentHandler.List)
	protected.Post("/agents", agentHandler.Create)
	protected.Get("/agents/:id", agentHandler.Get)
	protected.Put("/agents/:id", agentHandler.Update)
	protected.Delete("/agents/:id", agentHandler.Delete)
	protected.Get("/agents/:id/resolved", agentHandler.GetResolved)
	protected.Get("/agents/:id/parents", agentHandler.Parents)
	protected.Post("/agents/:id/chat", generationLimiter, conversationHandler.Chat)
	protected.Get("/agents/:id/conversations", conversationHandler.List)

	protected.Get("/session", sessionHandler.Get)
	protected.Put("/session/agent", sessionHandler.SelectAgent)
	protected.Put("/session/segments", sessionHandler.SetSegments)
	protected.Delete("/session/messages", sessionHandler.ClearMessages)

	protected.Get("/pipeline", pipelineHandler.Status)
	protected.Post("/pipeline/reset", pipelineHandler.Reset)
	protected.Post("/pipeline/:step", generationLimiter, pipelineHandler.Step)

	protected.Post("/tools/spelling", generationLimiter, toolsHandler.Spelling)
	protected.Post("/tools/technical-review", generationLimiter, toolsHandler.TechnicalReview)
	protected.Post("/tools/seo", generationLimiter, toolsHandler.SEO)
	protected.Post("/tools/blog-post", generationLimiter, toolsHandler.BlogPost)
	protected.Post("/tools/transcribe", uploadLimiter, toolsHandler.Transcribe)
	protected.Post("/tools/extract", uploadLimiter, toolsHandler.Extract)

	protected.Get("/documents", documentHandler.List)
	protected.Get("/documents/:id", documentHandler.Get)
	protected.Get("/documents/:id/html", documentHandler.HTML)
	protected.Delete("/documents/:id", documentHandler.Delete)

	protected.Get("/products", productHandler.List)
	protected.Get("/products/:id", productHandler.Get)

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down server...")

		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if redisService != nil {
		if err := redisService.Close(); err != nil {
			log.Printf("⚠️ Error closing Redis: %v", err)
		}
	}
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Printf("⚠️ Error closing MongoDB: %v", err)
	}
	log.Println("👋 Server stopped")
}
