package session

import (
	"fmt"
	"testing"
	"time"
)

func TestAppendAndHistory(t *testing.T) {
	s := NewMemoryStore(20)

	s.Append("u1", "c1", Turn{Role: RoleUser, Content: "hello", Timestamp: time.Now()})
	s.Append("u1", "c1", Turn{Role: RoleAssistant, Content: "hi there", Timestamp: time.Now()})

	history := s.History("u1", "c1")
	if len(history) != 2 {
		t.Fatalf("got %d turns, want 2", len(history))
	}
	if history[0].Role != RoleUser || history[1].Role != RoleAssistant {
		t.Error("turns out of order")
	}
}

func TestWindowDropsOldest(t *testing.T) {
	s := NewMemoryStore(5)

	for i := 0; i < 8; i++ {
		s.Append("u1", "c1", Turn{Role: RoleUser, Content: fmt.Sprintf("msg %d", i)})
	}

	history := s.History("u1", "c1")
	if len(history) != 5 {
		t.Fatalf("got %d turns, want 5", len(history))
	}
	if history[0].Content != "msg 3" || history[4].Content != "msg 7" {
		t.Errorf("window kept wrong turns: first=%q last=%q", history[0].Content, history[4].Content)
	}
}

func TestConversationsAreIsolated(t *testing.T) {
	s := NewMemoryStore(20)

	s.Append("u1", "c1", Turn{Role: RoleUser, Content: "in c1"})
	s.Append("u1", "c2", Turn{Role: RoleUser, Content: "in c2"})
	s.Append("u2", "c1", Turn{Role: RoleUser, Content: "other user"})

	if got := len(s.History("u1", "c1")); got != 1 {
		t.Errorf("u1/c1 has %d turns, want 1", got)
	}
	if got := len(s.History("u1", "c2")); got != 1 {
		t.Errorf("u1/c2 has %d turns, want 1", got)
	}
	if s.History("u2", "c1")[0].Content != "other user" {
		t.Error("user histories bleed into each other")
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewMemoryStore(20)
	s.Append("u1", "c1", Turn{Role: RoleUser, Content: "original"})

	history := s.History("u1", "c1")
	history[0].Content = "mutated"

	if s.History("u1", "c1")[0].Content != "original" {
		t.Error("mutating the returned slice changed stored history")
	}
}

func TestClear(t *testing.T) {
	s := NewMemoryStore(20)
	s.Append("u1", "c1", Turn{Role: RoleUser, Content: "hello"})
	s.Clear("u1", "c1")

	if got := len(s.History("u1", "c1")); got != 0 {
		t.Errorf("history after clear has %d turns", got)
	}
}

func TestDefaultWindow(t *testing.T) {
	s := NewMemoryStore(0)
	for i := 0; i < 30; i++ {
		s.Append("u1", "c1", Turn{Role: RoleUser, Content: "x"})
	}
	if got := len(s.History("u1", "c1")); got != 20 {
		t.Errorf("default window kept %d turns, want 20", got)
	}
}
