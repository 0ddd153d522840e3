package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/medbot/backend/internal/vector"
)

// scriptedBackend returns queued responses in order; an entry with err set
// fails that call.
type scriptedBackend struct {
	responses []scripted
	calls     []string
}

type scripted struct {
	text string
	err  error
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	b.calls = append(b.calls, userPrompt)
	if len(b.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	next := b.responses[0]
	b.responses = b.responses[1:]
	return next.text, next.err
}

func testChunks() []vector.Result {
	return []vector.Result{
		{ChunkID: "a_chunk_0", Content: "Diabetes is a metabolic disorder.", Source: "endocrinology.txt", Score: 0.92},
		{ChunkID: "a_chunk_1", Content: "Insulin regulates blood glucose.", Source: "endocrinology.txt", Score: 0.85},
		{ChunkID: "b_chunk_0", Content: "Type 2 diabetes often responds to lifestyle changes.", Source: "treatment.txt", Score: 0.78},
	}
}

func TestGenerateBothStagesSucceed(t *testing.T) {
	backend := &scriptedBackend{responses: []scripted{
		{text: "Enriched brief about diabetes."},
		{text: "Diabetes is a chronic condition affecting glucose metabolism."},
	}}
	o := New(backend, nil)

	result := o.Generate(context.Background(), Request{
		Question: "What is diabetes?",
		Chunks:   testChunks(),
	})

	if result.EnrichmentFallback || result.GenerationFallback {
		t.Error("fallback flags set on a clean run")
	}
	if result.ChunksUsed != 3 {
		t.Errorf("chunks used = %d, want 3", result.ChunksUsed)
	}
	if len(backend.calls) != 2 {
		t.Fatalf("backend called %d times, want 2", len(backend.calls))
	}
	// Stage B consumes Stage A's brief, not the raw question.
	if !strings.Contains(backend.calls[1], "Enriched brief about diabetes.") {
		t.Error("generation stage did not receive the enrichment brief")
	}
}

func TestGenerateEnrichmentFailureFallsBack(t *testing.T) {
	backend := &scriptedBackend{responses: []scripted{
		{err: errors.New("provider down")},
		{text: "Answer built from the template brief."},
	}}
	o := New(backend, nil)

	result := o.Generate(context.Background(), Request{
		Question: "What is diabetes?",
		Chunks:   testChunks(),
	})

	if !result.EnrichmentFallback {
		t.Error("enrichment fallback flag not set")
	}
	if result.GenerationFallback {
		t.Error("generation fallback flag set although generation succeeded")
	}
	// The template brief still carries the question and retrieved context.
	if !strings.Contains(backend.calls[1], "What is diabetes?") {
		t.Error("fallback brief lost the question")
	}
	if !strings.Contains(backend.calls[1], "Diabetes is a metabolic disorder.") {
		t.Error("fallback brief lost the retrieved context")
	}
}

func TestGenerateErrorLikeBriefTriggersFallback(t *testing.T) {
	backend := &scriptedBackend{responses: []scripted{
		{text: "Error generating enriched prompt: quota exceeded"},
		{text: "A valid answer."},
	}}
	o := New(backend, nil)

	result := o.Generate(context.Background(), Request{
		Question: "What is diabetes?",
		Chunks:   testChunks(),
	})

	if !result.EnrichmentFallback {
		t.Error("error-like enrichment output was accepted")
	}
}

func TestGenerateBothStagesFail(t *testing.T) {
	backend := &scriptedBackend{responses: []scripted{
		{err: errors.New("down")},
		{err: errors.New("still down")},
	}}
	o := New(backend, nil)

	result := o.Generate(context.Background(), Request{
		Question: "What is diabetes?",
		Chunks:   testChunks(),
	})

	if !result.EnrichmentFallback || !result.GenerationFallback {
		t.Error("fallback flags not both set")
	}
	if strings.TrimSpace(result.Answer) == "" {
		t.Fatal("double failure still must produce an answer")
	}
	if !strings.Contains(result.Answer, "endocrinology.txt") {
		t.Error("template answer does not cite its sources")
	}
	if !strings.Contains(result.Answer, "IMPORTANT DISCLAIMER") {
		t.Error("disclaimer missing from template answer")
	}
}

func TestGenerateAppendsDisclaimer(t *testing.T) {
	backend := &scriptedBackend{responses: []scripted{
		{text: "brief"},
		{text: "An answer without any disclaimer."},
	}}
	o := New(backend, nil)

	result := o.Generate(context.Background(), Request{
		Question: "What is diabetes?",
		Chunks:   testChunks(),
	})

	if !strings.Contains(result.Answer, "IMPORTANT DISCLAIMER") {
		t.Error("disclaimer not appended")
	}
	if strings.Count(result.Answer, "IMPORTANT DISCLAIMER") != 1 {
		t.Error("disclaimer duplicated")
	}
}

func TestGenerateAppendsSourcesWhenMissing(t *testing.T) {
	backend := &scriptedBackend{responses: []scripted{
		{text: "brief"},
		{text: "An answer that cites nothing."},
	}}
	o := New(backend, nil)

	result := o.Generate(context.Background(), Request{
		Question: "What is diabetes?",
		Chunks:   testChunks(),
	})

	if !strings.Contains(result.Answer, "endocrinology.txt") || !strings.Contains(result.Answer, "treatment.txt") {
		t.Error("sources section not appended")
	}
}

func TestGenerateSourcesDeduplicatedBestScore(t *testing.T) {
	backend := &scriptedBackend{responses: []scripted{
		{text: "brief"},
		{text: "answer"},
	}}
	o := New(backend, nil)

	result := o.Generate(context.Background(), Request{
		Question: "What is diabetes?",
		Chunks:   testChunks(),
	})

	if len(result.Sources) != 2 {
		t.Fatalf("got %d sources, want 2 unique", len(result.Sources))
	}
	for _, s := range result.Sources {
		if s.Source == "endocrinology.txt" && s.Relevance != 0.92 {
			t.Errorf("source relevance = %f, want best chunk score 0.92", s.Relevance)
		}
	}
}

func TestGenerateFollowUpCombinesQuestions(t *testing.T) {
	backend := &scriptedBackend{responses: []scripted{
		{text: "brief"},
		{text: "answer"},
	}}
	o := New(backend, nil)

	o.Generate(context.Background(), Request{
		Question:         "Can you explain in detail?",
		OriginalQuestion: "What is diabetes?",
		Chunks:           testChunks(),
	})

	enrichPrompt := backend.calls[0]
	if !strings.Contains(enrichPrompt, "Original Question: What is diabetes?") {
		t.Error("enrichment prompt missing the original question")
	}
	if !strings.Contains(enrichPrompt, "Follow-up Request: Can you explain in detail?") {
		t.Error("enrichment prompt missing the follow-up request")
	}
}

func TestGenerateNoBackend(t *testing.T) {
	backend := &scriptedBackend{}
	o := New(backend, nil)

	result := o.Generate(context.Background(), Request{
		Question: "What is diabetes?",
		Chunks:   testChunks(),
	})

	if !result.EnrichmentFallback || !result.GenerationFallback {
		t.Error("expected both fallbacks without a working backend")
	}
	if result.Answer == "" {
		t.Error("no answer produced")
	}
}
