package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chronicle-ai/docpipe/domain/search"
)

// defaultTopK bounds retrieval when the caller passes no limit.
const defaultTopK = 10

// Search is the retrieval entry point: embed the query text, then run a
// user-scoped similarity search.
type Search struct {
	provider search.EmbeddingProvider
	store    search.VectorStore
	logger   *slog.Logger
}

// NewSearch creates the search service.
func NewSearch(provider search.EmbeddingProvider, store search.VectorStore, logger *slog.Logger) *Search {
	if logger == nil {
		logger = slog.Default()
	}
	return &Search{
		provider: provider,
		store:    store,
		logger:   logger,
	}
}

// Query returns up to topK of the user's chunks ranked by similarity to the
// query text.
func (s *Search) Query(ctx context.Context, queryText, userID string, topK int) ([]search.ScoredChunk, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	vector, err := s.provider.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.store.QueryEmbeddings(ctx, vector, userID, topK)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}

	s.logger.Debug("query served",
		"user_id", userID,
		"top_k", topK,
		"results", len(results),
	)
	return results, nil
}
