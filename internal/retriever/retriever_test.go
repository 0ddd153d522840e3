package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/medbot/backend/internal/vector"
	"github.com/medbot/backend/internal/vector/memory"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (e *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vec, e.err
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, e.err
}

func (e *stubEmbedder) Dimension() int { return len(e.vec) }

type failingStore struct{}

func (failingStore) Upsert(ctx context.Context, records []vector.Record) error { return nil }
func (failingStore) Search(ctx context.Context, v []float32, topK int) ([]vector.Result, error) {
	return nil, errors.New("search broke")
}
func (failingStore) Reset(ctx context.Context) error { return nil }
func (failingStore) Info(ctx context.Context) (vector.Info, error) {
	return vector.Info{}, errors.New("unreachable")
}

func TestSearchEmptyStoreReturnsNothing(t *testing.T) {
	r := New(&stubEmbedder{vec: []float32{1, 0}}, memory.New(2), 5)

	results, err := r.Search(context.Background(), "symptoms of flu", 5)
	if err != nil {
		t.Fatalf("empty store must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from an empty store", len(results))
	}
}

func TestSearchUnreachableStoreReturnsNothing(t *testing.T) {
	r := New(&stubEmbedder{vec: []float32{1, 0}}, failingStore{}, 5)

	results, err := r.Search(context.Background(), "symptoms of flu", 5)
	if err != nil {
		t.Fatalf("unreachable store must degrade, not error: %v", err)
	}
	if results != nil {
		t.Error("expected no results")
	}
}

func TestSearchReturnsRankedChunks(t *testing.T) {
	store := memory.New(2)
	store.Upsert(context.Background(), []vector.Record{
		{ChunkID: "a", Vector: []float32{1, 0}, Content: "close", Source: "a.txt"},
		{ChunkID: "b", Vector: []float32{0, 1}, Content: "far", Source: "b.txt"},
	})

	r := New(&stubEmbedder{vec: []float32{1, 0}}, store, 5)
	results, err := r.Search(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 || results[0].ChunkID != "a" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestSearchEmbedderFailurePropagates(t *testing.T) {
	store := memory.New(2)
	store.Upsert(context.Background(), []vector.Record{
		{ChunkID: "a", Vector: []float32{1, 0}, Content: "x", Source: "a.txt"},
	})

	r := New(&stubEmbedder{err: errors.New("embedding api down")}, store, 5)
	_, err := r.Search(context.Background(), "anything", 2)
	if err == nil {
		t.Fatal("expected error when query embedding fails against a populated store")
	}
}

func TestSearchDefaultTopK(t *testing.T) {
	store := memory.New(2)
	var records []vector.Record
	for i := 0; i < 10; i++ {
		records = append(records, vector.Record{
			ChunkID: string(rune('a' + i)),
			Vector:  []float32{1, float32(i) * 0.01},
			Content: "x", Source: "a.txt",
		})
	}
	store.Upsert(context.Background(), records)

	r := New(&stubEmbedder{vec: []float32{1, 0}}, store, 3)
	results, err := r.Search(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want configured default 3", len(results))
	}
}
