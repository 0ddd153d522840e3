package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/medbot/backend/pkg/circuitbreaker"
	"github.com/medbot/backend/pkg/logger"
	"github.com/medbot/backend/pkg/retry"
	"github.com/medbot/backend/pkg/utils"
)

const embedBatchSize = 100

// OpenAI embeds text with the OpenAI embeddings API.
type OpenAI struct {
	client      *openai.Client
	model       string
	dim         int
	cache       Cache
	cacheTTL    time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewOpenAI(apiKey, model string, dim int, cache Cache) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key not configured")
	}

	cb := circuitbreaker.New("embedding", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Embedder initialized",
		zap.String("model", model),
		zap.Int("dimension", dim),
	)

	return &OpenAI{
		client:      openai.NewClient(apiKey),
		model:       model,
		dim:         dim,
		cache:       cache,
		cacheTTL:    24 * time.Hour,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (e *OpenAI) Dimension() int {
	return e.dim
}

func (e *OpenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := utils.HashString(text)
	if e.cache != nil {
		if cached, ok, err := e.cache.GetEmbedding(ctx, key); err == nil && ok {
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	vectors, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.SetEmbedding(ctx, key, vectors[0], e.cacheTTL); err != nil {
			logger.Warn("Failed to cache embedding", zap.Error(err))
		}
	}

	return vectors[0], nil
}

func (e *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	embedded := 0
	skipped := 0

	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		batchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		vectors, err := e.request(batchCtx, batch)
		cancel()

		if err == nil {
			copy(results[start:end], vectors)
			embedded += len(batch)
			continue
		}

		// A failed batch degrades to per-text requests so one bad input
		// does not sink its neighbors.
		logger.Warn("Embedding batch failed, retrying texts individually",
			zap.Error(err),
			zap.Int("batch_start", start),
		)
		for i, text := range batch {
			itemCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			vecs, itemErr := e.request(itemCtx, []string{text})
			cancel()
			if itemErr != nil {
				skipped++
				continue
			}
			results[start+i] = vecs[0]
			embedded++
		}
	}

	if skipped > 0 {
		logger.Warn("Some chunks could not be embedded",
			zap.Int("skipped", skipped),
			zap.Int("embedded", embedded),
		)
	}

	if embedded == 0 {
		return nil, fmt.Errorf("embedding failed for all %d texts", len(texts))
	}

	return results, nil
}

func (e *OpenAI) request(ctx context.Context, input []string) ([][]float32, error) {
	var vectors [][]float32

	err := e.cb.Execute(ctx, func() error {
		return retry.Do(ctx, e.retryConfig, func() error {
			resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: input,
				Model: openai.EmbeddingModel(e.model),
			})
			if err != nil {
				return fmt.Errorf("failed to generate embeddings: %w", err)
			}

			vectors = make([][]float32, 0, len(resp.Data))
			for _, data := range resp.Data {
				vec := make([]float32, len(data.Embedding))
				copy(vec, data.Embedding)
				vectors = append(vectors, vec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(input) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(input))
	}

	return vectors, nil
}
