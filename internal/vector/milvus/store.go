package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/medbot/backend/internal/vector"
	"github.com/medbot/backend/pkg/logger"
)

// Store persists chunk embeddings in a Milvus collection.
type Store struct {
	client         client.Client
	collectionName string
	vectorDim      int
	batchSize      int
}

type Config struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
	// Upsert batch size, bounded by backend limits.
	BatchSize int
}

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	var c client.Client
	var err error

	if cfg.APIKey != "" {
		c, err = client.NewClient(ctx, client.Config{Address: cfg.Endpoint, APIKey: cfg.APIKey})
	} else {
		c, err = client.NewGrpcClient(ctx, cfg.Endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5000
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("collection", cfg.CollectionName),
	)

	s := &Store{
		client:         c,
		collectionName: cfg.CollectionName,
		vectorDim:      cfg.VectorDim,
		batchSize:      cfg.BatchSize,
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) ensureCollection(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: s.collectionName,
		Description:    "Medical knowledge base embeddings",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.vectorDim),
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
			{
				Name:     "source",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "size",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "type",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
		},
	}

	err = s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	err = s.client.CreateIndex(ctx, s.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = s.client.LoadCollection(ctx, s.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", s.collectionName))

	return nil
}

// Upsert writes records in bounded batches. A failed batch does not roll
// back batches already written; the caller sees the first error after
// earlier batches have landed (at-least-once semantics).
func (s *Store) Upsert(ctx context.Context, records []vector.Record) error {
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.insertBatch(ctx, records[start:end]); err != nil {
			return fmt.Errorf("batch starting at %d failed: %w", start, err)
		}
		logger.Info("Embedding batch stored",
			zap.Int("batch_size", end-start),
			zap.Int("stored", end),
			zap.Int("total", len(records)),
		)
	}
	return nil
}

func (s *Store) insertBatch(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	contents := make([]string, len(records))
	sources := make([]string, len(records))
	sizes := make([]int64, len(records))
	types := make([]string, len(records))

	for i, r := range records {
		chunkIDs[i] = r.ChunkID
		embeddings[i] = r.Vector
		contents[i] = r.Content
		sources[i] = r.Source
		sizes[i] = int64(r.Size)
		types[i] = "medical_knowledge"
	}

	_, err := s.client.Upsert(
		ctx,
		s.collectionName,
		"",
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnFloatVector("embedding", s.vectorDim, embeddings),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("source", sources),
		entity.NewColumnInt64("size", sizes),
		entity.NewColumnVarChar("type", types),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}

	if err := s.client.Flush(ctx, s.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return nil
}

func (s *Store) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]vector.Result, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := s.client.Search(
		ctx,
		s.collectionName,
		[]string{},
		"",
		[]string{"chunk_id", "content", "source"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]vector.Result, 0)
	for _, sr := range searchResult {
		chunkIDCol := sr.Fields.GetColumn("chunk_id")
		contentCol := sr.Fields.GetColumn("content")
		sourceCol := sr.Fields.GetColumn("source")

		for i := 0; i < sr.ResultCount; i++ {
			chunkID, _ := chunkIDCol.Get(i)
			content, _ := contentCol.Get(i)
			source, _ := sourceCol.Get(i)

			results = append(results, vector.Result{
				ChunkID: chunkID.(string),
				Content: content.(string),
				Source:  source.(string),
				Score:   1 - sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
	)

	return results, nil
}

func (s *Store) Reset(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		if err := s.client.DropCollection(ctx, s.collectionName); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	return s.ensureCollection(ctx)
}

func (s *Store) Info(ctx context.Context) (vector.Info, error) {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return vector.Info{Status: vector.StatusNotInitialized}, err
	}
	if !has {
		return vector.Info{Status: vector.StatusNotInitialized}, nil
	}

	stats, err := s.client.GetCollectionStatistics(ctx, s.collectionName)
	if err != nil {
		return vector.Info{Status: vector.StatusNotInitialized}, fmt.Errorf("failed to read collection statistics: %w", err)
	}

	var total int64
	if raw, ok := stats["row_count"]; ok {
		total, _ = strconv.ParseInt(raw, 10, 64)
	}

	status := vector.StatusActive
	if total == 0 {
		status = vector.StatusNotInitialized
	}

	return vector.Info{Status: status, TotalEmbeddings: total}, nil
}
