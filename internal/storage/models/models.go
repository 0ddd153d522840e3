package models

import "time"

// Document is one ingested source file.
type Document struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Hash       string    `json:"hash"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Chunk is the persisted form of one knowledge-base chunk, kept alongside
// the vector index so the knowledge base can be rebuilt without re-reading
// source files.
type Chunk struct {
	ID         int64  `json:"id"`
	ChunkID    string `json:"chunk_id"`
	DocumentID int64  `json:"document_id"`
	Content    string `json:"content"`
	Size       int    `json:"size"`
}

// QueryRecord is one answered (or refused) chat query.
type QueryRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	QueryType      string    `json:"query_type"`
	Success        bool      `json:"success"`
	ChunksUsed     int       `json:"chunks_used"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuerySource links a query record to a contributing document.
type QuerySource struct {
	QueryID   string  `json:"query_id"`
	Source    string  `json:"source"`
	Relevance float32 `json:"relevance_score"`
}

// Feedback is a user rating of one answer.
type Feedback struct {
	ID        int64     `json:"id"`
	QueryID   string    `json:"query_id"`
	Helpful   bool      `json:"helpful"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
