package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/chronicle-ai/docpipe/domain/search"
	"github.com/chronicle-ai/docpipe/internal/database"
	"gorm.io/gorm/clause"
)

// sqliteBatchSize is the number of chunks written per insert. SQLite has a
// generous variable limit; round-trips are the only cost.
const sqliteBatchSize = 500

// SQLiteChunkModel represents an embedding chunk in SQLite.
type SQLiteChunkModel struct {
	ID         string       `gorm:"column:id;primaryKey"`
	DocumentID string       `gorm:"column:document_id;index"`
	UserID     string       `gorm:"column:user_id;index"`
	Content    string       `gorm:"column:content"`
	Embedding  Float64Slice `gorm:"column:embedding;type:json"`
}

// TableName returns the table name.
func (SQLiteChunkModel) TableName() string { return "document_chunks" }

// sqliteChunkMapper maps between search.Chunk and SQLiteChunkModel.
type sqliteChunkMapper struct{}

func (sqliteChunkMapper) ToDomain(entity SQLiteChunkModel) search.Chunk {
	return search.NewChunk(entity.ID, entity.DocumentID, entity.UserID, entity.Content, entity.Embedding)
}

func (sqliteChunkMapper) ToModel(c search.Chunk) SQLiteChunkModel {
	return SQLiteChunkModel{
		ID:         c.ID(),
		DocumentID: c.DocumentID(),
		UserID:     c.UserID(),
		Content:    c.Content(),
		Embedding:  Float64Slice(c.Vector()),
	}
}

// SQLiteChunkStore implements search.VectorStore on plain SQLite: vectors
// live in a JSON column and ranking happens client-side. It is the
// zero-infrastructure backend used for development and tests.
type SQLiteChunkStore struct {
	repo        database.Repository[search.Chunk, SQLiteChunkModel]
	db          database.Database
	logger      *slog.Logger
	initialized atomic.Bool
}

// NewSQLiteChunkStore creates a new SQLiteChunkStore. Call Initialize
// before use.
func NewSQLiteChunkStore(db database.Database, logger *slog.Logger) *SQLiteChunkStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteChunkStore{
		repo:   database.NewRepository[search.Chunk, SQLiteChunkModel](db, sqliteChunkMapper{}, "chunk"),
		db:     db,
		logger: logger,
	}
}

// Initialize creates the chunk table. Idempotent.
func (s *SQLiteChunkStore) Initialize(ctx context.Context) error {
	if err := s.db.Session(ctx).AutoMigrate(&SQLiteChunkModel{}); err != nil {
		return fmt.Errorf("migrate chunk table: %w", err)
	}
	s.initialized.Store(true)
	return nil
}

// CreateEmbeddings writes chunks in batches, upserting on chunk ID.
func (s *SQLiteChunkStore) CreateEmbeddings(ctx context.Context, userID, documentID string, vectors [][]float64, content []string) error {
	if !s.initialized.Load() {
		return search.ErrNotInitialized
	}

	chunks, err := search.BuildChunks(userID, documentID, vectors, content)
	if err != nil {
		return err
	}

	for _, batch := range search.Batches(chunks, sqliteBatchSize) {
		models := make([]SQLiteChunkModel, len(batch))
		for i, c := range batch {
			models[i] = s.repo.Mapper().ToModel(c)
		}
		err := s.repo.DB(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"document_id", "user_id", "content", "embedding"}),
		}).Create(&models).Error
		if err != nil {
			return fmt.Errorf("upsert %d chunks: %w", len(batch), err)
		}
	}

	s.logger.Debug("chunks stored",
		"backend", "sqlite",
		"document_id", documentID,
		"count", len(chunks),
	)
	return nil
}

// QueryEmbeddings loads the user's chunks and ranks them client-side.
func (s *SQLiteChunkStore) QueryEmbeddings(ctx context.Context, vector []float64, userID string, topK int) ([]search.ScoredChunk, error) {
	if !s.initialized.Load() {
		return nil, search.ErrNotInitialized
	}

	chunks, err := s.repo.Find(ctx, search.WithUserID(userID))
	if err != nil {
		return nil, err
	}
	return rankChunks(vector, chunks, topK), nil
}

// DeleteByDocumentID bulk-deletes every chunk of a document.
func (s *SQLiteChunkStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if !s.initialized.Load() {
		return search.ErrNotInitialized
	}
	return s.repo.DeleteBy(ctx, search.WithDocumentID(documentID))
}

// DeleteByID deletes a single chunk.
func (s *SQLiteChunkStore) DeleteByID(ctx context.Context, id string) error {
	if !s.initialized.Load() {
		return search.ErrNotInitialized
	}
	return s.repo.DeleteBy(ctx, search.WithChunkID(id))
}
