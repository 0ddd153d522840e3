package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"

	"github.com/medbot/backend/internal/embedding"
	"github.com/medbot/backend/internal/engine"
	"github.com/medbot/backend/internal/storage/sqlite"
	"github.com/medbot/backend/pkg/logger"
)

// Evaluator measures answer quality against a labeled dataset by embedding
// both the generated answer and the ground truth and comparing directions.
type Evaluator struct {
	engine   *engine.Engine
	embedder embedding.Embedder
	db       *sqlite.Client
	// threshold is the minimum cosine similarity for a pass.
	threshold float64
}

type DatasetItem struct {
	Question    string `json:"question"`
	GroundTruth string `json:"ground_truth"`
	Category    string `json:"category,omitempty"`
}

type Dataset struct {
	Items []DatasetItem `json:"items"`
}

type ItemResult struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Similarity float64 `json:"cosine_similarity"`
	Passed     bool    `json:"passed"`
	Refusal    string  `json:"refusal,omitempty"`
}

type Report struct {
	TotalQueries  int          `json:"total_queries"`
	Passed        int          `json:"passed"`
	Failed        int          `json:"failed"`
	Refused       int          `json:"refused"`
	Fallbacks     int          `json:"fallbacks"`
	AvgSimilarity float64      `json:"avg_cosine_similarity"`
	PassRate      float64      `json:"pass_rate"`
	FallbackRate  float64      `json:"fallback_rate"`
	Items         []ItemResult `json:"items"`
}

func New(eng *engine.Engine, embedder embedding.Embedder, db *sqlite.Client, threshold float64) *Evaluator {
	if threshold <= 0 {
		threshold = 0.75
	}
	return &Evaluator{
		engine:    eng,
		embedder:  embedder,
		db:        db,
		threshold: threshold,
	}
}

// Run answers every dataset item through the full pipeline and scores the
// results. Items the pipeline refuses count separately from failures.
func (e *Evaluator) Run(ctx context.Context, dataset *Dataset) (*Report, error) {
	if len(dataset.Items) == 0 {
		return nil, fmt.Errorf("evaluation dataset is empty")
	}

	logger.Info("Running dataset evaluation", zap.Int("items", len(dataset.Items)))

	report := &Report{TotalQueries: len(dataset.Items)}
	var totalSim float64
	scored := 0

	for i, item := range dataset.Items {
		conversationID := fmt.Sprintf("eval-%d", i)
		result := e.engine.Answer(ctx, "evaluator", conversationID, item.Question)

		itemResult := ItemResult{
			Question: item.Question,
			Answer:   result.Answer,
			Refusal:  result.Refusal,
		}
		if result.EnrichmentFallback || result.GenerationFallback {
			report.Fallbacks++
		}

		if result.Refusal != "" {
			report.Refused++
			report.Items = append(report.Items, itemResult)
			continue
		}

		sim, err := e.cosineSimilarity(ctx, result.Answer, item.GroundTruth)
		if err != nil {
			logger.Warn("Could not score answer", zap.String("question", item.Question), zap.Error(err))
			report.Failed++
			report.Items = append(report.Items, itemResult)
			continue
		}

		itemResult.Similarity = sim
		itemResult.Passed = sim >= e.threshold
		if itemResult.Passed {
			report.Passed++
		} else {
			report.Failed++
		}

		totalSim += sim
		scored++
		report.Items = append(report.Items, itemResult)

		if e.db != nil {
			if err := e.db.StoreEvaluationResult(item.Question, item.GroundTruth, result.Answer, sim, itemResult.Passed); err != nil {
				logger.Warn("Failed to persist evaluation result", zap.Error(err))
			}
		}
	}

	if scored > 0 {
		report.AvgSimilarity = totalSim / float64(scored)
	}
	report.PassRate = float64(report.Passed) / float64(report.TotalQueries) * 100
	report.FallbackRate = float64(report.Fallbacks) / float64(report.TotalQueries) * 100

	logger.Info("Dataset evaluation completed",
		zap.Int("total", report.TotalQueries),
		zap.Int("passed", report.Passed),
		zap.Int("failed", report.Failed),
		zap.Int("refused", report.Refused),
		zap.Float64("avg_similarity", report.AvgSimilarity),
	)

	return report, nil
}

func (e *Evaluator) cosineSimilarity(ctx context.Context, answer, groundTruth string) (float64, error) {
	embAnswer, err := e.embedder.EmbedQuery(ctx, answer)
	if err != nil {
		return 0, err
	}
	embTruth, err := e.embedder.EmbedQuery(ctx, groundTruth)
	if err != nil {
		return 0, err
	}
	return cosine(embAnswer, embTruth), nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var dataset Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}
	return &dataset, nil
}

// Summary renders a human-readable report for logs and the evaluate endpoint.
func Summary(report *Report) string {
	return fmt.Sprintf(`Evaluation Report
=================

Total Queries: %d
Passed:  %d
Failed:  %d
Refused: %d

Pass Rate: %.1f%%
Fallback Rate: %.1f%%
Average Cosine Similarity: %.3f
`,
		report.TotalQueries,
		report.Passed,
		report.Failed,
		report.Refused,
		report.PassRate,
		report.FallbackRate,
		report.AvgSimilarity,
	)
}
