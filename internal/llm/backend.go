package llm

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/medbot/backend/pkg/logger"
)

// ErrNoBackend means no configured backend could serve the request.
var ErrNoBackend = errors.New("no llm backend available")

// Backend is one completion-capable provider. Implementations own their
// credential checks, timeouts and resilience; callers only see text or error.
type Backend interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Chain tries backends in ranked order and returns the first success.
// Adding a provider means appending to the list, not touching orchestration.
type Chain struct {
	backends []Backend
}

func NewChain(backends ...Backend) *Chain {
	return &Chain{backends: backends}
}

func (c *Chain) Name() string {
	return "chain"
}

func (c *Chain) Len() int {
	return len(c.backends)
}

func (c *Chain) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if len(c.backends) == 0 {
		return "", ErrNoBackend
	}

	var lastErr error
	for _, backend := range c.backends {
		text, err := backend.Complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		logger.Warn("LLM backend failed, trying next",
			zap.String("backend", backend.Name()),
			zap.Error(err),
		)
	}
	return "", lastErr
}
