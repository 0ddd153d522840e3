package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func sampleText(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		b.WriteString("Hypertension is a chronic condition that requires ongoing monitoring and treatment. ")
	}
	return b.String()
}

func TestChunkEmptyText(t *testing.T) {
	c := New(1000, 200)

	if got := c.Chunk("", "doc.txt"); got != nil {
		t.Errorf("expected nil for empty text, got %d chunks", len(got))
	}
	if got := c.Chunk("   \n\t  ", "doc.txt"); got != nil {
		t.Errorf("expected nil for whitespace text, got %d chunks", len(got))
	}
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	c := New(1000, 200)

	chunks := c.Chunk("Diabetes affects insulin production. It has two main types.", "doc.txt")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ID != "doc.txt_chunk_0" {
		t.Errorf("unexpected chunk id: %s", chunks[0].ID)
	}
	if chunks[0].Source != "doc.txt" {
		t.Errorf("unexpected source: %s", chunks[0].Source)
	}
	if chunks[0].Size != len(chunks[0].Content) {
		t.Errorf("size %d does not match content length %d", chunks[0].Size, len(chunks[0].Content))
	}
}

func TestChunkDeterministic(t *testing.T) {
	c := New(500, 100)
	text := sampleText(40)

	first := c.Chunk(text, "doc.txt")
	second := c.Chunk(text, "doc.txt")

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Content != second[i].Content {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkIDsSequential(t *testing.T) {
	c := New(300, 100)
	chunks := c.Chunk(sampleText(30), "guide.md")

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		want := fmt.Sprintf("guide.md_chunk_%d", i)
		if ch.ID != want {
			t.Errorf("chunk %d: got id %s, want %s", i, ch.ID, want)
		}
	}
}

// Chunks must start with the tail words of their predecessor so context
// survives the boundary.
func TestChunkOverlapCarriedForward(t *testing.T) {
	overlap := 200
	c := New(400, overlap)
	chunks := c.Chunk(sampleText(40), "doc.txt")

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	carry := overlap / 10
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1].Content)
		if len(prevWords) < carry {
			continue
		}
		expectedHead := strings.Join(prevWords[len(prevWords)-carry:], " ")
		if !strings.HasPrefix(chunks[i].Content, expectedHead) {
			t.Errorf("chunk %d does not start with the tail of chunk %d", i, i-1)
		}
	}
}

func TestChunkZeroOverlap(t *testing.T) {
	c := New(400, 0)
	chunks := c.Chunk(sampleText(30), "doc.txt")

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Without overlap the full text reassembles exactly from the chunks.
	var rebuilt []string
	for _, ch := range chunks {
		rebuilt = append(rebuilt, ch.Content)
	}
	joined := strings.Join(rebuilt, " ")
	original := strings.Join(strings.Fields(sampleText(30)), " ")
	if joined != original {
		t.Error("chunks with zero overlap do not reassemble the original text")
	}
}

func TestChunkOversizedSentenceKeptWhole(t *testing.T) {
	c := New(50, 0)
	long := "This single sentence is deliberately much longer than the fifty character target size and must not be truncated mid sentence."

	chunks := c.Chunk(long, "doc.txt")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for a single long sentence, got %d", len(chunks))
	}
	if chunks[0].Content != long {
		t.Error("oversized sentence was altered")
	}
}

func TestStatistics(t *testing.T) {
	chunks := []Chunk{
		{Content: "aaaa", Source: "a.txt", Size: 4},
		{Content: "bbbbbbbb", Source: "a.txt", Size: 8},
		{Content: "cccccc", Source: "b.txt", Size: 6},
	}

	stats := Statistics(chunks)
	if stats.TotalChunks != 3 {
		t.Errorf("total chunks: got %d, want 3", stats.TotalChunks)
	}
	if stats.TotalCharacters != 18 {
		t.Errorf("total characters: got %d, want 18", stats.TotalCharacters)
	}
	if stats.MinSize != 4 || stats.MaxSize != 8 {
		t.Errorf("min/max: got %d/%d, want 4/8", stats.MinSize, stats.MaxSize)
	}
	if stats.AverageSize != 6 {
		t.Errorf("average: got %f, want 6", stats.AverageSize)
	}
	if len(stats.Sources) != 2 {
		t.Errorf("sources: got %d, want 2", len(stats.Sources))
	}
}

func TestStatisticsEmpty(t *testing.T) {
	stats := Statistics(nil)
	if stats.TotalChunks != 0 || stats.Sources != nil {
		t.Error("expected zero stats for no chunks")
	}
}
