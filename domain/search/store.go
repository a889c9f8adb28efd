package search

import (
	"context"
	"errors"
)

// ErrNotInitialized indicates a vector store was used before Initialize.
// This is a deployment defect and fails fast rather than being swallowed.
var ErrNotInitialized = errors.New("vector store not initialized")

// VectorStore is the physical storage and similarity query for embedding
// chunks. Every implementation satisfies this contract identically; which
// one runs is a deployment concern.
type VectorStore interface {
	// Initialize performs idempotent setup (collection / table + indexes).
	// Must be called before any other operation.
	Initialize(ctx context.Context) error

	// CreateEmbeddings builds one chunk per (vector, content) pair and
	// writes them in fixed-size batches. Writes are upserts keyed by chunk
	// ID: reprocessing a document overwrites its prior chunks.
	CreateEmbeddings(ctx context.Context, userID, documentID string, vectors [][]float64, content []string) error

	// QueryEmbeddings returns up to topK chunks belonging to userID,
	// ordered by cosine similarity descending. The userID filter is applied
	// at the storage layer and is never optional.
	QueryEmbeddings(ctx context.Context, vector []float64, userID string, topK int) ([]ScoredChunk, error)

	// DeleteByDocumentID bulk-deletes every chunk of a document.
	DeleteByDocumentID(ctx context.Context, documentID string) error

	// DeleteByID deletes a single chunk.
	DeleteByID(ctx context.Context, id string) error
}
