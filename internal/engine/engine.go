package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medbot/backend/internal/chunker"
	"github.com/medbot/backend/internal/classifier"
	"github.com/medbot/backend/internal/embedding"
	"github.com/medbot/backend/internal/ingest"
	"github.com/medbot/backend/internal/metrics"
	"github.com/medbot/backend/internal/orchestrator"
	"github.com/medbot/backend/internal/retriever"
	"github.com/medbot/backend/internal/session"
	"github.com/medbot/backend/internal/storage/models"
	"github.com/medbot/backend/internal/storage/sqlite"
	"github.com/medbot/backend/internal/vector"
	"github.com/medbot/backend/pkg/logger"
	"github.com/medbot/backend/pkg/utils"
)

// Result is the engine's answer to one query. Success is false only when
// the system itself failed; domain refusals are successful conversational
// outcomes carrying a polite message.
type Result struct {
	ID                 string                `json:"id"`
	Success            bool                  `json:"success"`
	Answer             string                `json:"answer"`
	QueryType          string                `json:"query_type,omitempty"`
	Refusal            string                `json:"refusal,omitempty"`
	Sources            []orchestrator.Source `json:"sources,omitempty"`
	ChunksUsed         int                   `json:"chunks_used"`
	EnrichmentFallback bool                  `json:"enrichment_fallback,omitempty"`
	GenerationFallback bool                  `json:"generation_fallback,omitempty"`
	DurationMs         int64                 `json:"duration_ms"`
}

// Status reports knowledge-base readiness.
type Status struct {
	Initialized     bool   `json:"initialized"`
	IndexStatus     string `json:"index_status"`
	Documents       int    `json:"documents"`
	Chunks          int    `json:"chunks"`
	TotalEmbeddings int64  `json:"total_embeddings"`
}

// AnswerCache stores complete results keyed by question hash. Implemented
// by the Redis client; nil disables answer caching.
type AnswerCache interface {
	GetAnswer(ctx context.Context, key string, response interface{}) (bool, error)
	SetAnswer(ctx context.Context, key string, response interface{}, ttl time.Duration) error
	InvalidateAnswers(ctx context.Context) error
}

type Config struct {
	TopK            int
	InsertBatchSize int
	AnswerCacheTTL  time.Duration
}

// Engine wires the full pipeline: classification gates, retrieval, and the
// two-stage generation, plus knowledge-base lifecycle.
type Engine struct {
	chunker      *chunker.Chunker
	embedder     embedding.Embedder
	store        vector.Store
	retriever    *retriever.Retriever
	classifier   *classifier.Classifier
	orchestrator *orchestrator.Orchestrator
	sessions     session.Store
	source       ingest.Source
	db           *sqlite.Client
	cache        AnswerCache

	topK            int
	insertBatchSize int
	answerTTL       time.Duration

	mu          sync.RWMutex
	initialized bool
	documents   int
	chunks      int
}

type Deps struct {
	Chunker      *chunker.Chunker
	Embedder     embedding.Embedder
	Store        vector.Store
	Retriever    *retriever.Retriever
	Classifier   *classifier.Classifier
	Orchestrator *orchestrator.Orchestrator
	Sessions     session.Store
	Source       ingest.Source
	DB           *sqlite.Client
	Cache        AnswerCache
}

func New(deps Deps, cfg Config) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = 5000
	}
	if cfg.AnswerCacheTTL <= 0 {
		cfg.AnswerCacheTTL = time.Hour
	}

	return &Engine{
		chunker:         deps.Chunker,
		embedder:        deps.Embedder,
		store:           deps.Store,
		retriever:       deps.Retriever,
		classifier:      deps.Classifier,
		orchestrator:    deps.Orchestrator,
		sessions:        deps.Sessions,
		source:          deps.Source,
		db:              deps.DB,
		cache:           deps.Cache,
		topK:            cfg.TopK,
		insertBatchSize: cfg.InsertBatchSize,
		answerTTL:       cfg.AnswerCacheTTL,
	}
}

// Bootstrap detects a knowledge base left behind by a previous run. A
// populated index means the engine can answer without re-ingesting.
func (e *Engine) Bootstrap(ctx context.Context) {
	info, err := e.store.Info(ctx)
	if err != nil {
		logger.Warn("Could not inspect vector store at startup", zap.Error(err))
		return
	}
	if info.Status == vector.StatusActive && info.TotalEmbeddings > 0 {
		e.mu.Lock()
		e.initialized = true
		e.mu.Unlock()

		metrics.EmbeddingsTotal.Set(float64(info.TotalEmbeddings))
		logger.Info("Existing knowledge base detected",
			zap.Int64("embeddings", info.TotalEmbeddings),
		)
	}
}

// Initialize builds the knowledge base from the configured document source:
// ingest, chunk, embed, index, persist. One bad document or chunk degrades,
// it does not abort. Returns true when at least one chunk was indexed.
func (e *Engine) Initialize(ctx context.Context) bool {
	return e.InitializeFrom(ctx, e.source)
}

// InitializeFrom builds the knowledge base from an explicit source, letting
// operators point ingestion at a different directory than the configured one.
func (e *Engine) InitializeFrom(ctx context.Context, source ingest.Source) bool {
	docs, err := source.Documents(ctx)
	if err != nil {
		logger.Error("Document ingestion failed", zap.Error(err))
		return false
	}
	if len(docs) == 0 {
		logger.Warn("No documents found, knowledge base not initialized")
		return false
	}

	var allChunks []chunker.Chunk
	processed := 0

	for _, doc := range docs {
		chunks := e.chunker.Chunk(doc.Text, doc.Source)
		if len(chunks) == 0 {
			logger.Warn("Document produced no chunks", zap.String("source", doc.Source))
			continue
		}
		allChunks = append(allChunks, chunks...)
		processed++
		metrics.DocumentsProcessed.Inc()

		e.persistDocument(doc, chunks)
	}

	if len(allChunks) == 0 {
		logger.Error("No chunks produced from any document")
		return false
	}

	stats := chunker.Statistics(allChunks)
	logger.Info("Corpus chunked",
		zap.Int("documents", processed),
		zap.Int("chunks", stats.TotalChunks),
		zap.Float64("avg_size", stats.AverageSize),
	)

	texts := make([]string, len(allChunks))
	for i, ch := range allChunks {
		texts[i] = ch.Content
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Error("Embedding failed for entire corpus", zap.Error(err))
		return false
	}

	records := make([]vector.Record, 0, len(allChunks))
	for i, ch := range allChunks {
		if vectors[i] == nil {
			logger.Warn("Chunk skipped, embedding unavailable", zap.String("chunk_id", ch.ID))
			continue
		}
		records = append(records, vector.Record{
			ChunkID: ch.ID,
			Vector:  vectors[i],
			Content: ch.Content,
			Source:  ch.Source,
			Size:    ch.Size,
		})
	}

	if len(records) == 0 {
		logger.Error("No chunks could be embedded")
		return false
	}

	for start := 0; start < len(records); start += e.insertBatchSize {
		end := start + e.insertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := e.store.Upsert(ctx, records[start:end]); err != nil {
			logger.Error("Vector upsert failed", zap.Int("batch_start", start), zap.Error(err))
			return false
		}
	}

	e.mu.Lock()
	e.initialized = true
	e.documents = processed
	e.chunks = len(allChunks)
	e.mu.Unlock()

	metrics.ChunksTotal.Set(float64(len(allChunks)))
	metrics.EmbeddingsTotal.Set(float64(len(records)))

	if e.cache != nil {
		if err := e.cache.InvalidateAnswers(ctx); err != nil {
			logger.Warn("Failed to invalidate answer cache", zap.Error(err))
		}
	}

	logger.Info("Knowledge base initialized",
		zap.Int("documents", processed),
		zap.Int("chunks", len(allChunks)),
		zap.Int("embeddings", len(records)),
	)

	return true
}

func (e *Engine) persistDocument(doc ingest.Document, chunks []chunker.Chunk) {
	if e.db == nil {
		return
	}

	docID, err := e.db.UpsertDocument(&models.Document{
		Source:     doc.Source,
		Hash:       utils.HashString(doc.Text),
		ChunkCount: len(chunks),
		IngestedAt: time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to persist document", zap.String("source", doc.Source), zap.Error(err))
		return
	}

	for _, ch := range chunks {
		err := e.db.InsertChunk(&models.Chunk{
			ChunkID:    ch.ID,
			DocumentID: docID,
			Content:    ch.Content,
			Size:       ch.Size,
		})
		if err != nil {
			logger.Warn("Failed to persist chunk", zap.String("chunk_id", ch.ID), zap.Error(err))
		}
	}
}

// Reset destroys the knowledge base: vector index, persisted documents, and
// cached answers. Conversation history and query history survive.
func (e *Engine) Reset(ctx context.Context) bool {
	ok := true

	if err := e.store.Reset(ctx); err != nil {
		logger.Error("Vector store reset failed", zap.Error(err))
		ok = false
	}
	if e.db != nil {
		if err := e.db.ClearKnowledgeBase(); err != nil {
			logger.Error("Failed to clear persisted knowledge base", zap.Error(err))
			ok = false
		}
	}
	if e.cache != nil {
		if err := e.cache.InvalidateAnswers(ctx); err != nil {
			logger.Warn("Failed to invalidate answer cache", zap.Error(err))
		}
	}

	e.mu.Lock()
	e.initialized = false
	e.documents = 0
	e.chunks = 0
	e.mu.Unlock()

	metrics.ChunksTotal.Set(0)
	metrics.EmbeddingsTotal.Set(0)

	logger.Info("Knowledge base reset", zap.Bool("clean", ok))
	return ok
}

func (e *Engine) Status(ctx context.Context) Status {
	e.mu.RLock()
	status := Status{
		Initialized: e.initialized,
		Documents:   e.documents,
		Chunks:      e.chunks,
	}
	e.mu.RUnlock()

	info, err := e.store.Info(ctx)
	if err != nil {
		status.IndexStatus = vector.StatusNotInitialized
		return status
	}
	status.IndexStatus = info.Status
	status.TotalEmbeddings = info.TotalEmbeddings
	return status
}

// Answer runs the full pipeline for one query using the server-side
// conversation history.
func (e *Engine) Answer(ctx context.Context, userID, conversationID, question string) Result {
	return e.AnswerWithHistory(ctx, userID, conversationID, question, nil)
}

// AnswerWithHistory runs the full pipeline for one query. A non-nil history
// overrides the server-side session (clients that keep their own transcript
// supply it per request). It never propagates a panic or an error: every
// outcome is a Result, and only system-level breakage yields Success == false.
func (e *Engine) AnswerWithHistory(ctx context.Context, userID, conversationID, question string, supplied []session.Turn) (result Result) {
	start := time.Now()
	result = Result{ID: uuid.NewString(), Success: true}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while answering query", zap.Any("panic", r))
			result = Result{
				ID:      result.ID,
				Success: false,
				Answer:  msgInternal,
				Refusal: FailureInternal,
			}
		}
		result.DurationMs = time.Since(start).Milliseconds()
		e.finish(ctx, userID, conversationID, question, &result)
	}()

	history := supplied
	if history == nil {
		history = e.sessions.History(userID, conversationID)
	}

	if err := e.classifier.ValidateFollowUp(question, history); err != nil {
		logger.Info("Follow-up lacks grounding context", zap.String("user_id", userID))
		metrics.ClassifierRejections.WithLabelValues(RefusalInsufficientContext).Inc()
		result.Answer = msgInsufficientContext
		result.Refusal = RefusalInsufficientContext
		return result
	}

	decision := e.classifier.Classify(question, history)
	if !decision.Accepted {
		metrics.ClassifierRejections.WithLabelValues(RefusalOutOfDomain).Inc()
		result.Answer = msgOutOfDomain
		result.Refusal = RefusalOutOfDomain
		return result
	}
	result.QueryType = string(decision.Type)

	e.mu.RLock()
	initialized := e.initialized
	e.mu.RUnlock()
	if !initialized {
		result.Success = false
		result.Answer = msgIndexUnavailable
		result.Refusal = FailureIndexUnavailable
		return result
	}

	if cached, ok := e.cachedAnswer(ctx, question, decision); ok {
		cached.ID = result.ID
		return cached
	}

	searchQuery := question
	if decision.CombinedContext != "" {
		searchQuery = decision.CombinedContext + " " + question
	}

	chunks, err := e.retriever.Search(ctx, searchQuery, e.topK)
	if err != nil {
		logger.Error("Retrieval failed", zap.Error(err))
		result.Success = false
		result.Answer = msgInternal
		result.Refusal = FailureInternal
		return result
	}
	metrics.RetrievalResults.Observe(float64(len(chunks)))

	if len(chunks) == 0 {
		result.Answer = msgNoRelevantContext
		result.Refusal = RefusalNoRelevantContext
		return result
	}

	gen := e.orchestrator.Generate(ctx, orchestrator.Request{
		Question:         question,
		OriginalQuestion: decision.CombinedContext,
		Chunks:           chunks,
		History:          history,
	})

	result.Answer = gen.Answer
	result.Sources = gen.Sources
	result.ChunksUsed = gen.ChunksUsed
	result.EnrichmentFallback = gen.EnrichmentFallback
	result.GenerationFallback = gen.GenerationFallback

	e.cacheAnswer(ctx, question, decision, result)
	return result
}

// finish records the outcome everywhere it belongs: conversation history,
// metrics, and the persistent query log.
func (e *Engine) finish(ctx context.Context, userID, conversationID, question string, result *Result) {
	now := time.Now()
	e.sessions.Append(userID, conversationID, session.Turn{
		Role: session.RoleUser, Content: question, Timestamp: now,
	})
	e.sessions.Append(userID, conversationID, session.Turn{
		Role: session.RoleAssistant, Content: result.Answer, Timestamp: now,
	})

	status := "success"
	if !result.Success {
		status = "failure"
	} else if result.Refusal != "" {
		status = "refusal"
	}
	metrics.QueryTotal.WithLabelValues(status).Inc()

	queryType := result.QueryType
	if queryType == "" {
		queryType = "rejected"
	}
	metrics.QueryDuration.WithLabelValues(queryType).Observe(float64(result.DurationMs) / 1000)

	if e.db == nil {
		return
	}

	err := e.db.InsertQueryRecord(&models.QueryRecord{
		ID:             result.ID,
		UserID:         userID,
		ConversationID: conversationID,
		Question:       question,
		Answer:         result.Answer,
		QueryType:      queryType,
		Success:        result.Success,
		ChunksUsed:     result.ChunksUsed,
		DurationMs:     result.DurationMs,
		CreatedAt:      now,
	})
	if err != nil {
		logger.Warn("Failed to persist query record", zap.Error(err))
		return
	}

	for _, src := range result.Sources {
		err := e.db.InsertQuerySource(&models.QuerySource{
			QueryID:   result.ID,
			Source:    src.Source,
			Relevance: src.Relevance,
		})
		if err != nil {
			logger.Warn("Failed to persist query source", zap.Error(err))
		}
	}
}

// Answer caching applies only to standalone questions; follow-ups depend on
// conversation state and would leak context across users.
func (e *Engine) cachedAnswer(ctx context.Context, question string, decision classifier.Decision) (Result, bool) {
	if e.cache == nil || decision.Type != classifier.TypeNewQuestion {
		return Result{}, false
	}

	var cached Result
	found, err := e.cache.GetAnswer(ctx, utils.HashString(question), &cached)
	if err != nil {
		logger.Warn("Answer cache lookup failed", zap.Error(err))
		return Result{}, false
	}
	if !found || !cached.Success || cached.Refusal != "" {
		return Result{}, false
	}
	return cached, true
}

func (e *Engine) cacheAnswer(ctx context.Context, question string, decision classifier.Decision, result Result) {
	if e.cache == nil || decision.Type != classifier.TypeNewQuestion {
		return
	}
	if !result.Success || result.Refusal != "" {
		return
	}
	if err := e.cache.SetAnswer(ctx, utils.HashString(question), result, e.answerTTL); err != nil {
		logger.Warn("Failed to cache answer", zap.Error(err))
	}
}
