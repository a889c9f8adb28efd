package search

import "github.com/chronicle-ai/docpipe/domain/storage"

// WithChunkID filters by the "id" column.
func WithChunkID(id string) storage.Option {
	return storage.WithCondition("id", id)
}

// WithDocumentID filters by the "document_id" column.
func WithDocumentID(documentID string) storage.Option {
	return storage.WithCondition("document_id", documentID)
}

// WithUserID filters by the "user_id" column.
func WithUserID(userID string) storage.Option {
	return storage.WithCondition("user_id", userID)
}
