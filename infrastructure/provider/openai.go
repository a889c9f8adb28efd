// Package provider implements the embedding model contract against
// OpenAI-compatible endpoints.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// errEmbeddingCountMismatch indicates the API returned a different number of
// vectors than texts requested. Retryable: transient upstream issues can
// produce partial responses behind a 200 status.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// ErrMissingAPIKey indicates the provider was constructed without credentials.
var ErrMissingAPIKey = errors.New("embedding provider requires an API key")

// OpenAIEmbedder produces embedding vectors through the OpenAI API (or any
// endpoint speaking its protocol). It implements search.EmbeddingProvider.
type OpenAIEmbedder struct {
	client       *openai.Client
	model        string
	dimensions   int
	maxRetries   int
	initialDelay time.Duration
}

// OpenAIConfig holds construction parameters for OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Dimensions   int
	Timeout      time.Duration
	MaxRetries   int
	InitialDelay time.Duration
}

// NewOpenAIEmbedder creates an embedder from configuration. Missing
// credentials fail here, at startup, not at first use.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	initialDelay := cfg.InitialDelay
	if initialDelay == 0 {
		initialDelay = 2 * time.Second
	}

	return &OpenAIEmbedder{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        model,
		dimensions:   cfg.Dimensions,
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
	}, nil
}

// EmbedDocuments produces one vector per text, order-preserved. A failure
// aborts the whole call; callers never see partial results.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	}

	var resp openai.EmbeddingResponse
	err := e.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = e.client.CreateEmbeddings(ctx, req)
		if callErr != nil {
			return callErr
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), len(texts))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts with %s: %w", len(texts), e.model, err)
	}

	vectors := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = widen(data.Embedding)
	}
	return vectors, nil
}

// EmbedQuery produces a single vector for a query string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// ModelName identifies the configured model.
func (e *OpenAIEmbedder) ModelName() string { return e.model }

// Dimensions returns the configured vector length.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// withRetry runs fn with exponential backoff, honoring context cancellation
// between attempts.
func (e *OpenAIEmbedder) withRetry(ctx context.Context, fn func() error) error {
	delay := e.initialDelay
	var lastErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("after %d retries: %w", e.maxRetries, lastErr)
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
