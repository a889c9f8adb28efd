package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chronicle-ai/docpipe/domain/search"
	"github.com/chronicle-ai/docpipe/infrastructure/chunking"
)

// EmbeddedDocument is the result of chunking and embedding one text: chunk
// i maps to vector i.
type EmbeddedDocument struct {
	chunks     []string
	vectors    [][]float64
	model      string
	dimensions int
}

// Chunks returns the text chunks in order.
func (d EmbeddedDocument) Chunks() []string { return d.chunks }

// Vectors returns one vector per chunk, order-preserved.
func (d EmbeddedDocument) Vectors() [][]float64 { return d.vectors }

// Model identifies the embedding model used.
func (d EmbeddedDocument) Model() string { return d.model }

// Dimensions returns the vector length.
func (d EmbeddedDocument) Dimensions() int { return d.dimensions }

// Embedding turns raw text into stored embedding chunks. Chunk splitting
// parameters are fixed at construction and shared by every call.
type Embedding struct {
	provider search.EmbeddingProvider
	store    search.VectorStore
	params   chunking.Params
	logger   *slog.Logger
}

// NewEmbedding creates the embedding service.
func NewEmbedding(provider search.EmbeddingProvider, store search.VectorStore, params chunking.Params, logger *slog.Logger) *Embedding {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedding{
		provider: provider,
		store:    store,
		params:   params,
		logger:   logger,
	}
}

// EmbedDocument splits text into overlapping chunks and embeds each one.
// A model failure aborts the whole call: no partial embedding ever reaches
// a caller.
func (s *Embedding) EmbedDocument(ctx context.Context, text string) (EmbeddedDocument, error) {
	chunks, err := chunking.Split(text, s.params)
	if err != nil {
		return EmbeddedDocument{}, fmt.Errorf("split text: %w", err)
	}
	if len(chunks) == 0 {
		return EmbeddedDocument{
			model:      s.provider.ModelName(),
			dimensions: s.provider.Dimensions(),
		}, nil
	}

	vectors, err := s.provider.EmbedDocuments(ctx, chunks)
	if err != nil {
		return EmbeddedDocument{}, err
	}
	if len(vectors) != len(chunks) {
		return EmbeddedDocument{}, fmt.Errorf("%w: %d vectors, %d chunks", search.ErrChunkVectorMismatch, len(vectors), len(chunks))
	}

	return EmbeddedDocument{
		chunks:     chunks,
		vectors:    vectors,
		model:      s.provider.ModelName(),
		dimensions: s.provider.Dimensions(),
	}, nil
}

// EmbedQuery embeds a query string without chunking.
func (s *Embedding) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return s.provider.EmbedQuery(ctx, text)
}

// EmbedAndStore chunks, embeds, and persists a document's text. Also usable
// directly for re-embedding: the store's upsert semantics overwrite the
// document's prior chunks.
func (s *Embedding) EmbedAndStore(ctx context.Context, userID, documentID, text string) error {
	embedded, err := s.EmbedDocument(ctx, text)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", documentID, err)
	}
	if len(embedded.Chunks()) == 0 {
		s.logger.Info("no text to embed", "document_id", documentID)
		return nil
	}

	if err := s.store.CreateEmbeddings(ctx, userID, documentID, embedded.Vectors(), embedded.Chunks()); err != nil {
		return fmt.Errorf("store embeddings for document %s: %w", documentID, err)
	}

	s.logger.Info("document embedded",
		"document_id", documentID,
		"user_id", userID,
		"chunks", len(embedded.Chunks()),
		"model", embedded.Model(),
	)
	return nil
}
