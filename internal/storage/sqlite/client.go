package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/medbot/backend/internal/storage/models"
	"github.com/medbot/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT UNIQUE NOT NULL,
		hash TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		ingested_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chunk_id TEXT UNIQUE NOT NULL,
		document_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		size INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON document_chunks(document_id);

	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		conversation_id TEXT,
		question TEXT NOT NULL,
		answer TEXT,
		query_type TEXT,
		success INTEGER DEFAULT 1,
		chunks_used INTEGER DEFAULT 0,
		duration_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_user ON query_history(user_id);
	CREATE INDEX IF NOT EXISTS idx_query_conversation ON query_history(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);

	CREATE TABLE IF NOT EXISTS query_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		source TEXT NOT NULL,
		relevance_score REAL,
		FOREIGN KEY (query_id) REFERENCES query_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sources_query ON query_sources(query_id);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		helpful INTEGER NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (query_id) REFERENCES query_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_query ON feedback(query_id);
	CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);

	CREATE TABLE IF NOT EXISTS evaluation_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		expected TEXT,
		answer TEXT,
		cosine_similarity REAL,
		passed INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_eval_created ON evaluation_results(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// UpsertDocument records an ingested source file and returns its row id.
func (c *Client) UpsertDocument(doc *models.Document) (int64, error) {
	query := `
		INSERT INTO documents (source, hash, chunk_count, ingested_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			hash = excluded.hash,
			chunk_count = excluded.chunk_count,
			ingested_at = excluded.ingested_at
	`

	_, err := c.db.Exec(query, doc.Source, doc.Hash, doc.ChunkCount, doc.IngestedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to upsert document: %w", err)
	}

	var id int64
	err = c.db.QueryRow(`SELECT id FROM documents WHERE source = ?`, doc.Source).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read document id: %w", err)
	}

	logger.Debug("Document recorded", zap.String("source", doc.Source), zap.Int("chunks", doc.ChunkCount))
	return id, nil
}

func (c *Client) InsertChunk(chunk *models.Chunk) error {
	query := `
		INSERT INTO document_chunks (chunk_id, document_id, content, size)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			content = excluded.content,
			size = excluded.size
	`

	_, err := c.db.Exec(query, chunk.ChunkID, chunk.DocumentID, chunk.Content, chunk.Size)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}

	return nil
}

func (c *Client) CountDocuments() (int, error) {
	var count int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	query := `
		INSERT INTO query_history (id, user_id, conversation_id, question, answer, query_type,
			success, chunks_used, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	success := 0
	if record.Success {
		success = 1
	}

	_, err := c.db.Exec(
		query,
		record.ID,
		record.UserID,
		record.ConversationID,
		record.Question,
		record.Answer,
		record.QueryType,
		success,
		record.ChunksUsed,
		record.DurationMs,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Debug("Query recorded",
		zap.String("query_id", record.ID),
		zap.String("query_type", record.QueryType),
	)

	return nil
}

func (c *Client) InsertQuerySource(source *models.QuerySource) error {
	query := `INSERT INTO query_sources (query_id, source, relevance_score) VALUES (?, ?, ?)`

	_, err := c.db.Exec(query, source.QueryID, source.Source, source.Relevance)
	if err != nil {
		return fmt.Errorf("failed to insert query source: %w", err)
	}

	return nil
}

func (c *Client) GetQueryHistory(userID string, limit int) ([]models.QueryRecord, error) {
	query := `
		SELECT id, conversation_id, question, answer, query_type, success, chunks_used, created_at
		FROM query_history
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var success int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.ConversationID, &r.Question, &r.Answer, &r.QueryType,
			&success, &r.ChunksUsed, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.UserID = userID
		r.Success = success == 1
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Client) StoreFeedback(feedback *models.Feedback) error {
	query := `INSERT INTO feedback (query_id, helpful, comment, created_at) VALUES (?, ?, ?, ?)`

	helpful := 0
	if feedback.Helpful {
		helpful = 1
	}

	_, err := c.db.Exec(query, feedback.QueryID, helpful, feedback.Comment, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	logger.Info("Feedback stored",
		zap.String("query_id", feedback.QueryID),
		zap.Bool("helpful", feedback.Helpful),
	)

	return nil
}

func (c *Client) StoreEvaluationResult(question, expected, answer string, similarity float64, passed bool) error {
	query := `
		INSERT INTO evaluation_results (question, expected, answer, cosine_similarity, passed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	passedInt := 0
	if passed {
		passedInt = 1
	}

	_, err := c.db.Exec(query, question, expected, answer, similarity, passedInt, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store evaluation result: %w", err)
	}

	return nil
}

// ClearKnowledgeBase removes all persisted documents and chunks. Query
// history, feedback and evaluation results are kept.
func (c *Client) ClearKnowledgeBase() error {
	_, err := c.db.Exec(`DELETE FROM documents`)
	if err != nil {
		return fmt.Errorf("failed to clear knowledge base: %w", err)
	}

	logger.Info("Knowledge base tables cleared")
	return nil
}
