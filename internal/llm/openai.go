package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/medbot/backend/internal/metrics"
	"github.com/medbot/backend/pkg/circuitbreaker"
	"github.com/medbot/backend/pkg/logger"
	"github.com/medbot/backend/pkg/retry"
)

// OpenAIBackend serves completions from the OpenAI API or an Azure OpenAI
// deployment, depending on how it was constructed.
type OpenAIBackend struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

func NewOpenAI(apiKey string, opts Options) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key not configured")
	}
	return newBackend("openai", openai.NewClient(apiKey), opts), nil
}

func NewAzure(apiKey, endpoint string, opts Options) (*OpenAIBackend, error) {
	if apiKey == "" || endpoint == "" {
		return nil, errors.New("azure openai key or endpoint not configured")
	}
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	return newBackend("azure", openai.NewClientWithConfig(cfg), opts), nil
}

func newBackend(name string, client *openai.Client, opts Options) *OpenAIBackend {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 4000
	}
	if opts.TimeoutSec == 0 {
		opts.TimeoutSec = 30
	}

	cb := circuitbreaker.New(name, circuitbreaker.Config{
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

	logger.Info("LLM backend initialized",
		zap.String("backend", name),
		zap.String("model", opts.Model),
	)

	return &OpenAIBackend{
		name:        name,
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		timeout:     time.Duration(opts.TimeoutSec) * time.Second,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (b *OpenAIBackend) Name() string {
	return b.name
}

func (b *OpenAIBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: userPrompt,
		},
	}

	var content string

	err := b.cb.Execute(ctx, func() error {
		return retry.Do(ctx, b.retryConfig, func() error {
			resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       b.model,
				Messages:    messages,
				Temperature: b.temperature,
				MaxTokens:   b.maxTokens,
			})
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return errors.New("completion returned no choices")
			}

			metrics.LLMTokensUsed.WithLabelValues(b.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensUsed.WithLabelValues(b.model, "completion").Add(float64(resp.Usage.CompletionTokens))

			logger.Debug("LLM completion generated",
				zap.String("backend", b.name),
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	return content, nil
}
