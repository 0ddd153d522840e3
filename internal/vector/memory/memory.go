package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/medbot/backend/internal/vector"
)

// Store is a brute-force in-memory vector index. It backs tests and
// standalone deployments without a Milvus endpoint.
type Store struct {
	mu      sync.RWMutex
	dim     int
	order   []string
	records map[string]vector.Record
}

func New(dim int) *Store {
	return &Store{
		dim:     dim,
		records: make(map[string]vector.Record),
	}
}

func (s *Store) Upsert(ctx context.Context, records []vector.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if len(r.Vector) != s.dim {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(r.Vector), s.dim)
		}
		if _, exists := s.records[r.ChunkID]; !exists {
			s.order = append(s.order, r.ChunkID)
		}
		s.records[r.ChunkID] = r
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query []float32, topK int) ([]vector.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.order) == 0 {
		return nil, nil
	}

	type scored struct {
		pos      int
		distance float32
	}

	scores := make([]scored, 0, len(s.order))
	for i, id := range s.order {
		scores = append(scores, scored{pos: i, distance: cosineDistance(query, s.records[id].Vector)})
	}

	// Ascending distance; insertion order breaks ties so top-k prefixes
	// stay stable as k grows.
	sort.SliceStable(scores, func(a, b int) bool {
		if scores[a].distance != scores[b].distance {
			return scores[a].distance < scores[b].distance
		}
		return scores[a].pos < scores[b].pos
	})

	if topK > len(scores) {
		topK = len(scores)
	}

	results := make([]vector.Result, 0, topK)
	for _, sc := range scores[:topK] {
		r := s.records[s.order[sc.pos]]
		results = append(results, vector.Result{
			ChunkID: r.ChunkID,
			Content: r.Content,
			Source:  r.Source,
			Score:   1 - sc.distance,
		})
	}
	return results, nil
}

func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.records = make(map[string]vector.Record)
	return nil
}

func (s *Store) Info(ctx context.Context) (vector.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := vector.StatusActive
	if len(s.order) == 0 {
		status = vector.StatusNotInitialized
	}
	return vector.Info{Status: status, TotalEmbeddings: int64(len(s.order))}, nil
}

func cosineDistance(a, b []float32) float32 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
