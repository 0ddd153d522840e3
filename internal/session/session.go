package session

import (
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store keeps per-conversation history with a bounded window.
type Store interface {
	Append(userID, conversationID string, turn Turn)
	History(userID, conversationID string) []Turn
	Clear(userID, conversationID string)
}

// MemoryStore holds each conversation in a fixed-size ring buffer; once the
// window is full the oldest turn is dropped.
type MemoryStore struct {
	mu       sync.RWMutex
	window   int
	sessions map[string][]Turn
}

func NewMemoryStore(window int) *MemoryStore {
	if window <= 0 {
		window = 20
	}
	return &MemoryStore{
		window:   window,
		sessions: make(map[string][]Turn),
	}
}

func (s *MemoryStore) Append(userID, conversationID string, turn Turn) {
	key := sessionKey(userID, conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[key], turn)
	if len(turns) > s.window {
		turns = turns[len(turns)-s.window:]
	}
	s.sessions[key] = turns
}

func (s *MemoryStore) History(userID, conversationID string) []Turn {
	key := sessionKey(userID, conversationID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[key]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *MemoryStore) Clear(userID, conversationID string) {
	key := sessionKey(userID, conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
}

func sessionKey(userID, conversationID string) string {
	return userID + "/" + conversationID
}
