package memory

import (
	"context"
	"testing"

	"github.com/medbot/backend/internal/vector"
)

func rec(id string, v []float32) vector.Record {
	return vector.Record{ChunkID: id, Vector: v, Content: "content " + id, Source: id + ".txt", Size: 10}
}

func TestUpsertAndInfo(t *testing.T) {
	s := New(3)
	ctx := context.Background()

	info, err := s.Info(ctx)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if info.Status != vector.StatusNotInitialized || info.TotalEmbeddings != 0 {
		t.Errorf("empty store info = %+v", info)
	}

	err = s.Upsert(ctx, []vector.Record{
		rec("a", []float32{1, 0, 0}),
		rec("b", []float32{0, 1, 0}),
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	info, _ = s.Info(ctx)
	if info.Status != vector.StatusActive || info.TotalEmbeddings != 2 {
		t.Errorf("info after upsert = %+v", info)
	}
}

func TestUpsertIdempotentByChunkID(t *testing.T) {
	s := New(3)
	ctx := context.Background()

	s.Upsert(ctx, []vector.Record{rec("a", []float32{1, 0, 0})})
	s.Upsert(ctx, []vector.Record{rec("a", []float32{0, 1, 0})})

	info, _ := s.Info(ctx)
	if info.TotalEmbeddings != 1 {
		t.Errorf("re-upserting same chunk id grew the index to %d", info.TotalEmbeddings)
	}

	results, _ := s.Search(ctx, []float32{0, 1, 0}, 1)
	if len(results) != 1 || results[0].Score < 0.99 {
		t.Error("upsert did not replace the stored vector")
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	s := New(3)
	err := s.Upsert(context.Background(), []vector.Record{rec("a", []float32{1, 0})})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestSearchOrdering(t *testing.T) {
	s := New(3)
	ctx := context.Background()

	s.Upsert(ctx, []vector.Record{
		rec("far", []float32{0, 0, 1}),
		rec("near", []float32{1, 0, 0}),
		rec("mid", []float32{1, 1, 0}),
	})

	results, err := s.Search(ctx, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ChunkID != "near" || results[1].ChunkID != "mid" || results[2].ChunkID != "far" {
		t.Errorf("ordering wrong: %s, %s, %s", results[0].ChunkID, results[1].ChunkID, results[2].ChunkID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Error("scores are not non-increasing")
		}
	}
}

// Growing k must extend the result list, never reshuffle its prefix.
func TestSearchTopKPrefixStability(t *testing.T) {
	s := New(2)
	ctx := context.Background()

	s.Upsert(ctx, []vector.Record{
		rec("a", []float32{1, 0}),
		rec("b", []float32{0.9, 0.1}),
		rec("c", []float32{0, 1}),
		rec("d", []float32{0.5, 0.5}),
	})

	query := []float32{1, 0}
	prev, _ := s.Search(ctx, query, 1)
	for k := 2; k <= 4; k++ {
		cur, _ := s.Search(ctx, query, k)
		if len(cur) != k {
			t.Fatalf("k=%d: got %d results", k, len(cur))
		}
		for i := range prev {
			if cur[i].ChunkID != prev[i].ChunkID {
				t.Errorf("k=%d reshuffled prefix at %d: %s vs %s", k, i, cur[i].ChunkID, prev[i].ChunkID)
			}
		}
		prev = cur
	}
}

func TestSearchTiesBreakByInsertionOrder(t *testing.T) {
	s := New(2)
	ctx := context.Background()

	// Identical vectors: identical distance, insertion order decides.
	s.Upsert(ctx, []vector.Record{
		rec("first", []float32{1, 1}),
		rec("second", []float32{1, 1}),
	})

	results, _ := s.Search(ctx, []float32{1, 1}, 2)
	if results[0].ChunkID != "first" || results[1].ChunkID != "second" {
		t.Errorf("tie broken out of insertion order: %s, %s", results[0].ChunkID, results[1].ChunkID)
	}
}

func TestSearchTopKLargerThanIndex(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	s.Upsert(ctx, []vector.Record{rec("only", []float32{1, 0})})

	results, _ := s.Search(ctx, []float32{1, 0}, 10)
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestReset(t *testing.T) {
	s := New(2)
	ctx := context.Background()

	s.Upsert(ctx, []vector.Record{rec("a", []float32{1, 0})})
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	info, _ := s.Info(ctx)
	if info.TotalEmbeddings != 0 || info.Status != vector.StatusNotInitialized {
		t.Errorf("info after reset = %+v", info)
	}

	// Reset on an already-empty store is fine.
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("second reset failed: %v", err)
	}
}
