package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/chronicle-ai/docpipe/domain/search"
	"github.com/chronicle-ai/docpipe/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pgvectorBatchSize is the number of chunks written per insert. Five columns
// per row keeps a batch well under PostgreSQL's 65535 bind-parameter cap.
const pgvectorBatchSize = 200

// SQL specific to pgvector (extension, ANN index).
const (
	pgvCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgvCreateTableTemplate = `
CREATE TABLE IF NOT EXISTS document_chunks (
    id VARCHAR(255) PRIMARY KEY,
    document_id VARCHAR(255) NOT NULL,
    user_id VARCHAR(255) NOT NULL,
    content TEXT NOT NULL,
    embedding VECTOR(%d) NOT NULL
)`

	pgvCreateANNIndex = `
CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
ON document_chunks
USING ivfflat (embedding vector_cosine_ops)
WITH (lists = 100)`

	pgvCreateUserIndex = `CREATE INDEX IF NOT EXISTS document_chunks_user_id_idx ON document_chunks (user_id)`
	pgvCreateDocIndex  = `CREATE INDEX IF NOT EXISTS document_chunks_document_id_idx ON document_chunks (document_id)`
)

// ErrPgvectorInitializationFailed indicates pgvector setup failed.
var ErrPgvectorInitializationFailed = errors.New("failed to initialize pgvector store")

// PgChunkModel represents an embedding chunk row with a native vector column.
type PgChunkModel struct {
	ID         string            `gorm:"column:id;primaryKey"`
	DocumentID string            `gorm:"column:document_id"`
	UserID     string            `gorm:"column:user_id"`
	Content    string            `gorm:"column:content"`
	Embedding  database.PgVector `gorm:"column:embedding;type:vector"`
}

// TableName returns the table name.
func (PgChunkModel) TableName() string { return "document_chunks" }

// pgChunkMapper maps between search.Chunk and PgChunkModel.
type pgChunkMapper struct{}

func (pgChunkMapper) ToDomain(entity PgChunkModel) search.Chunk {
	return search.NewChunk(entity.ID, entity.DocumentID, entity.UserID, entity.Content, entity.Embedding.Floats())
}

func (pgChunkMapper) ToModel(c search.Chunk) PgChunkModel {
	return PgChunkModel{
		ID:         c.ID(),
		DocumentID: c.DocumentID(),
		UserID:     c.UserID(),
		Content:    c.Content(),
		Embedding:  database.NewPgVector(c.Vector()),
	}
}

// PgvectorChunkStore implements search.VectorStore on the PostgreSQL
// pgvector extension. Similarity runs in the database via the cosine
// distance operator, with an ivfflat ANN index built at Initialize.
type PgvectorChunkStore struct {
	repo        database.Repository[search.Chunk, PgChunkModel]
	db          database.Database
	dimension   int
	logger      *slog.Logger
	initialized atomic.Bool
}

// NewPgvectorChunkStore creates a new PgvectorChunkStore for vectors of the
// given dimension. Call Initialize before use.
func NewPgvectorChunkStore(db database.Database, dimension int, logger *slog.Logger) *PgvectorChunkStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PgvectorChunkStore{
		repo:      database.NewRepository[search.Chunk, PgChunkModel](db, pgChunkMapper{}, "chunk"),
		db:        db,
		dimension: dimension,
		logger:    logger,
	}
}

// Initialize creates the extension, table, and indexes. Idempotent.
func (s *PgvectorChunkStore) Initialize(ctx context.Context) error {
	session := s.db.Session(ctx)

	if err := session.Exec(pgvCreateExtension).Error; err != nil {
		return errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create extension: %w", err))
	}

	// Dynamic vector dimension requires raw SQL; AutoMigrate cannot express it.
	if err := session.Exec(fmt.Sprintf(pgvCreateTableTemplate, s.dimension)).Error; err != nil {
		return errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create table: %w", err))
	}

	// The ANN index may already exist with different parameters.
	if err := session.Exec(pgvCreateANNIndex).Error; err != nil {
		s.logger.Warn("failed to create ANN index (may already exist)", "error", err)
	}
	for _, stmt := range []string{pgvCreateUserIndex, pgvCreateDocIndex} {
		if err := session.Exec(stmt).Error; err != nil {
			return errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create index: %w", err))
		}
	}

	s.initialized.Store(true)
	return nil
}

// CreateEmbeddings writes chunks in batches. Each batch is one multi-row
// INSERT ... ON CONFLICT (id) DO UPDATE inside a transaction, realizing the
// upsert contract atomically.
func (s *PgvectorChunkStore) CreateEmbeddings(ctx context.Context, userID, documentID string, vectors [][]float64, content []string) error {
	if !s.initialized.Load() {
		return search.ErrNotInitialized
	}

	chunks, err := search.BuildChunks(userID, documentID, vectors, content)
	if err != nil {
		return err
	}

	for _, batch := range search.Batches(chunks, pgvectorBatchSize) {
		models := make([]PgChunkModel, len(batch))
		for i, c := range batch {
			models[i] = s.repo.Mapper().ToModel(c)
		}

		err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"document_id", "user_id", "content", "embedding"}),
			}).Create(&models).Error
		})
		if err != nil {
			return fmt.Errorf("upsert %d chunks: %w", len(batch), err)
		}
	}

	s.logger.Debug("chunks stored",
		"backend", "pgvector",
		"document_id", documentID,
		"count", len(chunks),
	)
	return nil
}

// QueryEmbeddings ranks the user's chunks by cosine distance in the
// database. The user_id predicate is part of the SQL, never post-filtered.
func (s *PgvectorChunkStore) QueryEmbeddings(ctx context.Context, vector []float64, userID string, topK int) ([]search.ScoredChunk, error) {
	if !s.initialized.Load() {
		return nil, search.ErrNotInitialized
	}
	if len(vector) == 0 || topK <= 0 {
		return []search.ScoredChunk{}, nil
	}

	queryVector := database.NewPgVector(vector).String()

	var rows []struct {
		PgChunkModel
		Score float64 `gorm:"column:score"`
	}
	err := s.db.Session(ctx).
		Table("document_chunks").
		Select("id, document_id, user_id, content, embedding, embedding <=> ? AS score", queryVector).
		Where("user_id = ?", userID).
		Order("score ASC").
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}

	results := make([]search.ScoredChunk, len(rows))
	for i, row := range rows {
		// pgvector's <=> is cosine distance: similarity = 1 - distance.
		results[i] = search.NewScoredChunk(pgChunkMapper{}.ToDomain(row.PgChunkModel), 1.0-row.Score)
	}
	return results, nil
}

// DeleteByDocumentID bulk-deletes every chunk of a document.
func (s *PgvectorChunkStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if !s.initialized.Load() {
		return search.ErrNotInitialized
	}
	return s.repo.DeleteBy(ctx, search.WithDocumentID(documentID))
}

// DeleteByID deletes a single chunk.
func (s *PgvectorChunkStore) DeleteByID(ctx context.Context, id string) error {
	if !s.initialized.Load() {
		return search.ErrNotInitialized
	}
	return s.repo.DeleteBy(ctx, search.WithChunkID(id))
}
