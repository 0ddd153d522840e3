package vector

import "context"

// Record is one embedded chunk as persisted in the index.
type Record struct {
	ChunkID string
	Vector  []float32
	Content string
	Source  string
	Size    int
}

// Result is an ephemeral per-query hit. Score is 1 - distance, a ranking
// signal rather than a calibrated probability.
type Result struct {
	ChunkID string
	Content string
	Source  string
	Score   float32
}

type Info struct {
	Status          string
	TotalEmbeddings int64
}

const (
	StatusActive         = "active"
	StatusNotInitialized = "not_initialized"
)

// Store is the embedding index. Upsert is idempotent by chunk id and batches
// internally; Search returns up to topK hits ordered by descending score with
// stable ties; Reset destroys everything and is safe on an empty store.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, topK int) ([]Result, error)
	Reset(ctx context.Context) error
	Info(ctx context.Context) (Info, error)
}
