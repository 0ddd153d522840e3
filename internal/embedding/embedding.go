package embedding

import (
	"context"
	"time"
)

// Embedder converts text to dense vectors. Query and chunk embeddings must
// come from the same embedder so both live in the same vector space.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns vectors aligned with texts. A failed text yields a
	// nil entry rather than aborting the batch; the error is non-nil only
	// when no text could be embedded.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Cache stores embeddings keyed by content hash. Implemented by the Redis
// client; a nil Cache disables caching.
type Cache interface {
	GetEmbedding(ctx context.Context, key string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, key string, embedding []float32, ttl time.Duration) error
}
