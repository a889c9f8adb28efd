// Package qdrant implements the vector-store contract against a Qdrant
// instance over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/chronicle-ai/docpipe/domain/search"
	"github.com/google/uuid"
)

// batchSize is the number of points per upsert request, bounded by request
// payload size rather than parameter limits.
const batchSize = 100

// pointNamespace seeds deterministic point IDs. Qdrant only accepts UUID or
// integer point IDs, so each chunk ID maps to a stable UUIDv5; the real
// chunk ID travels in the payload.
var pointNamespace = uuid.MustParse("8c1f38e6-52d4-4a6e-9c21-d3a0e97c5f04")

// ChunkStore implements search.VectorStore against a dedicated Qdrant
// collection. Similarity search is delegated to the engine with a payload
// equality filter on user_id.
type ChunkStore struct {
	baseURL     string
	apiKey      string
	collection  string
	dimension   int
	client      *http.Client
	logger      *slog.Logger
	initialized atomic.Bool
}

// Config holds construction parameters for ChunkStore.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// NewChunkStore creates a new ChunkStore. Call Initialize before use.
func NewChunkStore(cfg Config, logger *slog.Logger) *ChunkStore {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ChunkStore{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Initialize ensures the collection and the user_id payload index exist.
// Qdrant answers 200 for an existing collection with the same schema, so
// this is safe to repeat.
func (s *ChunkStore) Initialize(ctx context.Context) error {
	if s.dimension <= 0 {
		return fmt.Errorf("qdrant store: dimension must be positive, got %d", s.dimension)
	}

	err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	err = s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/index", s.collection), map[string]any{
		"field_name":   "user_id",
		"field_schema": "keyword",
	}, nil)
	if err != nil {
		// An existing index answers 4xx on some versions; scoped filters
		// still work without it, only slower.
		s.logger.Warn("failed to create user_id payload index", "error", err)
	}

	s.initialized.Store(true)
	return nil
}

// CreateEmbeddings upserts one point per chunk in batches. Point IDs are
// derived deterministically from chunk IDs, so reprocessing overwrites.
func (s *ChunkStore) CreateEmbeddings(ctx context.Context, userID, documentID string, vectors [][]float64, content []string) error {
	if !s.initialized.Load() {
		return search.ErrNotInitialized
	}

	chunks, err := search.BuildChunks(userID, documentID, vectors, content)
	if err != nil {
		return err
	}

	for _, batch := range search.Batches(chunks, batchSize) {
		points := make([]map[string]any, len(batch))
		for i, c := range batch {
			points[i] = map[string]any{
				"id":     pointID(c.ID()),
				"vector": c.Vector(),
				"payload": map[string]any{
					"chunk_id": c.ID(),
					"source":   c.DocumentID(),
					"user_id":  c.UserID(),
					"content":  c.Content(),
				},
			}
		}
		path := fmt.Sprintf("/collections/%s/points?wait=true", s.collection)
		if err := s.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil); err != nil {
			return fmt.Errorf("upsert %d points: %w", len(batch), err)
		}
	}

	s.logger.Debug("chunks stored",
		"backend", "qdrant",
		"document_id", documentID,
		"count", len(chunks),
	)
	return nil
}

// QueryEmbeddings delegates similarity search to the engine with a
// mandatory payload filter on user_id.
func (s *ChunkStore) QueryEmbeddings(ctx context.Context, vector []float64, userID string, topK int) ([]search.ScoredChunk, error) {
	if !s.initialized.Load() {
		return nil, search.ErrNotInitialized
	}
	if len(vector) == 0 || topK <= 0 {
		return []search.ScoredChunk{}, nil
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  true,
		"filter":       userFilter(userID),
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Vector  []float64      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", s.collection)
	if err := s.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	results := make([]search.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := search.NewChunk(
			payloadString(r.Payload, "chunk_id"),
			payloadString(r.Payload, "source"),
			payloadString(r.Payload, "user_id"),
			payloadString(r.Payload, "content"),
			r.Vector,
		)
		results = append(results, search.NewScoredChunk(chunk, r.Score))
	}
	return results, nil
}

// DeleteByDocumentID deletes every point whose payload source matches.
func (s *ChunkStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if !s.initialized.Load() {
		return search.ErrNotInitialized
	}

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection)
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "source", "match": map[string]any{"value": documentID}},
			},
		},
	}
	if err := s.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("delete points for document %s: %w", documentID, err)
	}
	return nil
}

// DeleteByID deletes the point derived from a single chunk ID.
func (s *ChunkStore) DeleteByID(ctx context.Context, id string) error {
	if !s.initialized.Load() {
		return search.ErrNotInitialized
	}

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection)
	body := map[string]any{"points": []string{pointID(id)}}
	if err := s.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("delete point %s: %w", id, err)
	}
	return nil
}

// do sends a JSON request and decodes the response into out when non-nil.
func (s *ChunkStore) do(ctx context.Context, method, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s: %s: %s", method, path, resp.Status, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func pointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func userFilter(userID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "user_id", "match": map[string]any{"value": userID}},
		},
	}
}

func payloadString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}
