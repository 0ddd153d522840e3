package llm

import (
	"context"
	"errors"
	"testing"
)

type stub struct {
	name string
	text string
	err  error
	hits int
}

func (s *stub) Name() string { return s.name }
func (s *stub) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.hits++
	return s.text, s.err
}

func TestChainEmpty(t *testing.T) {
	c := NewChain()
	_, err := c.Complete(context.Background(), "sys", "user")
	if !errors.Is(err, ErrNoBackend) {
		t.Errorf("got %v, want ErrNoBackend", err)
	}
}

func TestChainFirstSuccessShortCircuits(t *testing.T) {
	first := &stub{name: "first", text: "answer"}
	second := &stub{name: "second", text: "unused"}
	c := NewChain(first, second)

	text, err := c.Complete(context.Background(), "sys", "user")
	if err != nil || text != "answer" {
		t.Fatalf("got %q, %v", text, err)
	}
	if second.hits != 0 {
		t.Error("second backend called although first succeeded")
	}
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	first := &stub{name: "first", err: errors.New("down")}
	second := &stub{name: "second", text: "recovered"}
	c := NewChain(first, second)

	text, err := c.Complete(context.Background(), "sys", "user")
	if err != nil || text != "recovered" {
		t.Fatalf("got %q, %v", text, err)
	}
}

func TestChainAllFailReturnsLastError(t *testing.T) {
	lastErr := errors.New("second down")
	c := NewChain(
		&stub{name: "first", err: errors.New("first down")},
		&stub{name: "second", err: lastErr},
	)

	_, err := c.Complete(context.Background(), "sys", "user")
	if !errors.Is(err, lastErr) {
		t.Errorf("got %v, want last backend's error", err)
	}
}
