package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/medbot/backend/internal/api/handlers"
	redisCache "github.com/medbot/backend/internal/cache/redis"
	"github.com/medbot/backend/internal/chunker"
	"github.com/medbot/backend/internal/classifier"
	"github.com/medbot/backend/internal/embedding"
	"github.com/medbot/backend/internal/engine"
	"github.com/medbot/backend/internal/evaluation"
	"github.com/medbot/backend/internal/ingest"
	"github.com/medbot/backend/internal/llm"
	"github.com/medbot/backend/internal/metrics"
	"github.com/medbot/backend/internal/middleware/ratelimit"
	"github.com/medbot/backend/internal/middleware/security"
	"github.com/medbot/backend/internal/middleware/validation"
	"github.com/medbot/backend/internal/orchestrator"
	"github.com/medbot/backend/internal/retriever"
	"github.com/medbot/backend/internal/session"
	"github.com/medbot/backend/internal/storage/sqlite"
	"github.com/medbot/backend/internal/vector"
	"github.com/medbot/backend/internal/vector/memory"
	"github.com/medbot/backend/internal/vector/milvus"
	"github.com/medbot/backend/pkg/config"
	appLogger "github.com/medbot/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting MedBot API Server")
	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cache *redisCache.Client
	if cfg.Redis.Host != "" {
		cache, err = redisCache.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, caching disabled", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	store := buildVectorStore(cfg)

	var embedCache embedding.Cache
	if cache != nil {
		embedCache = cache
	}
	embedder, err := embedding.NewOpenAI(
		cfg.LLM.OpenAIKey,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.EmbeddingDim,
		embedCache,
	)
	if err != nil {
		appLogger.Fatal("Failed to create embedder", zap.Error(err))
	}

	backend := buildLLMChain(cfg)

	rules := classifier.DefaultRules()
	cls := classifier.New(rules)
	sessions := session.NewMemoryStore(cfg.RAG.HistoryWindow)
	retr := retriever.New(embedder, store, cfg.RAG.TopK)
	orch := orchestrator.New(backend, nil)
	source := ingest.NewDirSource(cfg.RAG.DocumentsDir)

	var answerCache engine.AnswerCache
	if cache != nil {
		answerCache = cache
	}

	eng := engine.New(engine.Deps{
		Chunker:      chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		Embedder:     embedder,
		Store:        store,
		Retriever:    retr,
		Classifier:   cls,
		Orchestrator: orch,
		Sessions:     sessions,
		Source:       source,
		DB:           sqliteClient,
		Cache:        answerCache,
	}, engine.Config{
		TopK:            cfg.RAG.TopK,
		InsertBatchSize: cfg.RAG.InsertBatchSize,
		AnswerCacheTTL:  time.Duration(cfg.RAG.AnswerCacheTTL) * time.Second,
	})

	eng.Bootstrap(context.Background())

	evaluator := evaluation.New(eng, embedder, sqliteClient, 0)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{Logger: appLogger.GetLogger()})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	chatHandler := handlers.NewChatHandler(eng, sqliteClient)
	knowledgeHandler := handlers.NewKnowledgeHandler(eng)
	feedbackHandler := handlers.NewFeedbackHandler(sqliteClient)
	evaluateHandler := handlers.NewEvaluateHandler(evaluator)
	wsHandler := handlers.NewWebSocketHandler(eng)
	healthHandler := handlers.NewHealthHandler(eng)

	api := app.Group("/api/v1")

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/chat/history", chatHandler.GetHistory)

	api.Post("/knowledge-base/initialize", knowledgeHandler.HandleInitialize)
	api.Post("/knowledge-base/reset", knowledgeHandler.HandleReset)
	api.Get("/knowledge-base/status", knowledgeHandler.HandleStatus)

	api.Post("/feedback", feedbackHandler.HandleFeedback)
	api.Post("/evaluate", evaluateHandler.HandleEvaluate)

	api.Get("/health", healthHandler.HandleHealth)
	api.Get("/ready", healthHandler.HandleReady)

	app.Get("/metrics", metrics.Handler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

// buildVectorStore prefers Milvus when an endpoint is configured and falls
// back to the in-memory index, which is enough for development and tests.
func buildVectorStore(cfg *config.Config) vector.Store {
	if cfg.Milvus.Endpoint == "" {
		appLogger.Info("No Milvus endpoint configured, using in-memory vector store")
		return memory.New(cfg.Milvus.VectorDim)
	}

	store, err := milvus.NewStore(context.Background(), milvus.Config{
		Endpoint:       cfg.Milvus.Endpoint,
		APIKey:         cfg.Milvus.APIKey,
		CollectionName: cfg.Milvus.CollectionName,
		VectorDim:      cfg.Milvus.VectorDim,
	})
	if err != nil {
		appLogger.Warn("Milvus unavailable, using in-memory vector store", zap.Error(err))
		return memory.New(cfg.Milvus.VectorDim)
	}
	return store
}

// buildLLMChain ranks providers: Azure OpenAI first when configured, then
// OpenAI. An empty chain still works; both pipeline stages degrade to their
// template fallbacks.
func buildLLMChain(cfg *config.Config) llm.Backend {
	var backends []llm.Backend

	if cfg.LLM.AzureKey != "" && cfg.LLM.AzureEndpoint != "" {
		azure, err := llm.NewAzure(cfg.LLM.AzureKey, cfg.LLM.AzureEndpoint, llm.Options{
			Model:       cfg.LLM.AzureModel,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			TimeoutSec:  cfg.LLM.TimeoutSec,
		})
		if err != nil {
			appLogger.Warn("Azure OpenAI backend not available", zap.Error(err))
		} else {
			backends = append(backends, azure)
		}
	}

	if cfg.LLM.OpenAIKey != "" {
		oa, err := llm.NewOpenAI(cfg.LLM.OpenAIKey, llm.Options{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			TimeoutSec:  cfg.LLM.TimeoutSec,
		})
		if err != nil {
			appLogger.Warn("OpenAI backend not available", zap.Error(err))
		} else {
			backends = append(backends, oa)
		}
	}

	if len(backends) == 0 {
		appLogger.Warn("No LLM backend configured, answers will use template fallbacks")
	}

	return llm.NewChain(backends...)
}
