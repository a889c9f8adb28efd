// Package persistence provides database storage implementations.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chronicle-ai/docpipe/domain/document"
	"github.com/chronicle-ai/docpipe/internal/database"
	"gorm.io/gorm"
)

// DocumentModel is the GORM model for document records.
type DocumentModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Location  string    `gorm:"column:location;index:idx_documents_object,priority:1"`
	UserID    string    `gorm:"column:user_id;index:idx_documents_object,priority:2"`
	Key       string    `gorm:"column:key;index:idx_documents_object,priority:3"`
	Size      int64     `gorm:"column:size"`
	Checksum  string    `gorm:"column:checksum;uniqueIndex"`
	Status    string    `gorm:"column:status"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (DocumentModel) TableName() string { return "documents" }

// documentMapper maps between document.Document and DocumentModel.
type documentMapper struct{}

func (documentMapper) ToDomain(entity DocumentModel) document.Document {
	return document.FromStore(
		entity.ID,
		entity.Location,
		entity.UserID,
		entity.Key,
		entity.Size,
		entity.Checksum,
		document.Status(entity.Status),
		entity.CreatedAt,
		entity.UpdatedAt,
	)
}

func (documentMapper) ToModel(d document.Document) DocumentModel {
	return DocumentModel{
		ID:        d.ID(),
		Location:  d.Location(),
		UserID:    d.UserID(),
		Key:       d.Key(),
		Size:      d.Size(),
		Checksum:  d.Checksum(),
		Status:    string(d.Status()),
		CreatedAt: d.CreatedAt(),
		UpdatedAt: d.UpdatedAt(),
	}
}

// DocumentStore implements document.Registry using GORM.
type DocumentStore struct {
	database.Repository[document.Document, DocumentModel]
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db database.Database) DocumentStore {
	return DocumentStore{
		Repository: database.NewRepository[document.Document, DocumentModel](db, documentMapper{}, "document"),
	}
}

// FindByChecksum looks a document up by its content fingerprint.
func (s DocumentStore) FindByChecksum(ctx context.Context, checksum string) (document.Document, error) {
	return s.FindOne(ctx, document.WithChecksum(checksum))
}

// FindByLocation looks a document up by (location, userID, key).
func (s DocumentStore) FindByLocation(ctx context.Context, location, userID, key string) (document.Document, error) {
	return s.FindOne(ctx,
		document.WithLocation(location),
		document.WithUserID(userID),
		document.WithKey(key),
	)
}

// Save persists a new document. A checksum collision — including one lost
// to a racing duplicate creation — comes back as ErrDuplicateChecksum.
func (s DocumentStore) Save(ctx context.Context, doc document.Document) (document.Document, error) {
	model := s.Mapper().ToModel(doc)
	if result := s.DB(ctx).Create(&model); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return document.Document{}, fmt.Errorf("%w: %s", document.ErrDuplicateChecksum, doc.Checksum())
		}
		return document.Document{}, fmt.Errorf("save document: %w", result.Error)
	}
	return s.Mapper().ToDomain(model), nil
}

// UpdateStatus transitions the document with the given ID.
func (s DocumentStore) UpdateStatus(ctx context.Context, id string, status document.Status) error {
	result := s.DB(ctx).Model(&DocumentModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("update document status: %w", result.Error)
	}
	return nil
}
