package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/medbot/backend/internal/embedding"
	"github.com/medbot/backend/internal/vector"
	"github.com/medbot/backend/pkg/logger"
)

// Retriever embeds a query and returns its nearest chunks. An uninitialized
// store or a miss returns an empty slice: "no relevant context" is a normal
// outcome, not a failure.
type Retriever struct {
	embedder embedding.Embedder
	store    vector.Store
	topK     int
}

func New(embedder embedding.Embedder, store vector.Store, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		topK:     topK,
	}
}

func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]vector.Result, error) {
	if topK <= 0 {
		topK = r.topK
	}

	info, err := r.store.Info(ctx)
	if err != nil || info.TotalEmbeddings == 0 {
		logger.Debug("Vector store empty or unreachable, returning no context", zap.Error(err))
		return nil, nil
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.Search(ctx, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	logger.Info("Similarity search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
	)

	return results, nil
}
