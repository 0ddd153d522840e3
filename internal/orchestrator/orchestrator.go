package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/medbot/backend/internal/llm"
	"github.com/medbot/backend/internal/metrics"
	"github.com/medbot/backend/internal/session"
	"github.com/medbot/backend/internal/vector"
	"github.com/medbot/backend/pkg/logger"
)

// Source names one document contributing to an answer, with the best
// relevance score among its chunks.
type Source struct {
	Source    string  `json:"source"`
	Relevance float32 `json:"relevance_score"`
}

// Result is the outcome of the two-stage generation pipeline. It always
// carries a usable answer: stage failures degrade to templates, they do not
// propagate as errors.
type Result struct {
	Answer             string   `json:"answer"`
	Sources            []Source `json:"sources"`
	ChunksUsed         int      `json:"chunks_used"`
	EnrichmentFallback bool     `json:"enrichment_fallback"`
	GenerationFallback bool     `json:"generation_fallback"`
}

// Request carries everything the pipeline needs for one answer. When the
// query is a follow-up, OriginalQuestion holds the in-domain question it
// refers back to.
type Request struct {
	Question         string
	OriginalQuestion string
	Chunks           []vector.Result
	History          []session.Turn
}

// Orchestrator runs the enrichment stage then the generation stage against
// an LLM backend, substituting deterministic templates when a stage fails.
type Orchestrator struct {
	backend  llm.Backend
	sections []string
}

func New(backend llm.Backend, sections []string) *Orchestrator {
	if len(sections) == 0 {
		sections = DefaultSections()
	}
	return &Orchestrator{backend: backend, sections: sections}
}

// Generate produces the final answer for a query and its retrieved chunks.
// It never returns an error: both stages fall back to templates so the user
// always gets a grounded response, with the fallback flags recording what
// degraded.
func (o *Orchestrator) Generate(ctx context.Context, req Request) Result {
	question := req.Question
	if req.OriginalQuestion != "" && req.OriginalQuestion != req.Question {
		question = fmt.Sprintf("Original Question: %s\n\nFollow-up Request: %s",
			req.OriginalQuestion, req.Question)
	}

	contextBlock := formatContext(req.Chunks)
	sources := uniqueSources(req.Chunks)

	brief, enrichmentFellBack := o.enrich(ctx, question, contextBlock, req.History, sources)
	answer, generationFellBack := o.generate(ctx, question, brief, req.Chunks, sources)

	answer = ensureDisclaimer(answer)
	answer = ensureSources(answer, sources)

	return Result{
		Answer:             answer,
		Sources:            sources,
		ChunksUsed:         len(req.Chunks),
		EnrichmentFallback: enrichmentFellBack,
		GenerationFallback: generationFellBack,
	}
}

func (o *Orchestrator) enrich(ctx context.Context, question, contextBlock string, history []session.Turn, sources []Source) (string, bool) {
	prompt := o.enrichmentPrompt(question, contextBlock, formatHistory(history))

	brief, err := o.backend.Complete(ctx, enrichmentSystemPrompt, prompt)
	if err == nil && usable(brief) {
		return brief, false
	}

	if err != nil {
		logger.Warn("Enrichment stage failed, using template brief", zap.Error(err))
	} else {
		logger.Warn("Enrichment stage returned unusable output, using template brief")
	}
	metrics.StageFallbacks.WithLabelValues("enrichment").Inc()

	return o.fallbackBrief(question, contextBlock, sources), true
}

func (o *Orchestrator) generate(ctx context.Context, question, brief string, chunks []vector.Result, sources []Source) (string, bool) {
	answer, err := o.backend.Complete(ctx, generationSystemPrompt, brief)
	if err == nil && usable(answer) {
		return answer, false
	}

	if err != nil {
		logger.Warn("Generation stage failed, composing answer from retrieved chunks", zap.Error(err))
	} else {
		logger.Warn("Generation stage returned unusable output, composing answer from retrieved chunks")
	}
	metrics.StageFallbacks.WithLabelValues("generation").Inc()

	return fallbackAnswer(question, chunks, sources), true
}

// usable rejects empty output and output that reads like a provider error
// message rather than medical content.
func usable(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	return !strings.HasPrefix(lower, "error") && !strings.Contains(lower, "error generating")
}

func ensureDisclaimer(answer string) string {
	if strings.Contains(answer, "IMPORTANT DISCLAIMER") {
		return answer
	}
	return answer + "\n\n" + Disclaimer
}

// ensureSources appends a sources section when the backend did not cite any
// of the contributing documents itself.
func ensureSources(answer string, sources []Source) string {
	if len(sources) == 0 {
		return answer
	}
	for _, s := range sources {
		if strings.Contains(answer, s.Source) {
			return answer
		}
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\n**Sources:**\n")
	for _, s := range sources {
		fmt.Fprintf(&b, "- %s (Relevance: %.2f)\n", s.Source, s.Relevance)
	}
	return b.String()
}
