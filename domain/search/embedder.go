package search

import "context"

// EmbeddingProvider converts text into embedding vectors via an external
// model. Vector length is fixed per provider configuration.
type EmbeddingProvider interface {
	// EmbedDocuments produces one vector per input text, order-preserved.
	// Any failure aborts the whole call; no partial results are returned.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error)

	// EmbedQuery produces a single vector for a query string.
	EmbedQuery(ctx context.Context, text string) ([]float64, error)

	// ModelName identifies the underlying model.
	ModelName() string

	// Dimensions returns the fixed vector length.
	Dimensions() int
}
