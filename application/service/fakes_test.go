package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/chronicle-ai/docpipe/domain/document"
	"github.com/chronicle-ai/docpipe/domain/search"
	"github.com/chronicle-ai/docpipe/internal/database"
)

// fakeRegistry is an in-memory document.Registry with the same checksum
// uniqueness guarantee as the real store.
type fakeRegistry struct {
	mu   sync.Mutex
	docs map[string]document.Document // keyed by ID

	saveErr   error
	updateErr error
	findErr   error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{docs: make(map[string]document.Document)}
}

func (r *fakeRegistry) FindByChecksum(_ context.Context, checksum string) (document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return document.Document{}, r.findErr
	}
	for _, d := range r.docs {
		if d.Checksum() == checksum {
			return d, nil
		}
	}
	return document.Document{}, fmt.Errorf("document by checksum %s: %w", checksum, database.ErrNotFound)
}

func (r *fakeRegistry) FindByLocation(_ context.Context, location, userID, key string) (document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return document.Document{}, r.findErr
	}
	for _, d := range r.docs {
		if d.Location() == location && d.UserID() == userID && d.Key() == key {
			return d, nil
		}
	}
	return document.Document{}, fmt.Errorf("document at %s/%s/%s: %w", location, userID, key, database.ErrNotFound)
}

func (r *fakeRegistry) Save(_ context.Context, doc document.Document) (document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return document.Document{}, r.saveErr
	}
	for _, d := range r.docs {
		if d.Checksum() == doc.Checksum() {
			return document.Document{}, fmt.Errorf("save document: %w", document.ErrDuplicateChecksum)
		}
	}
	r.docs[doc.ID()] = doc
	return doc, nil
}

func (r *fakeRegistry) UpdateStatus(_ context.Context, id string, status document.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, database.ErrNotFound)
	}
	r.docs[id] = doc.WithStatus(status)
	return nil
}

func (r *fakeRegistry) get(id string) (document.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	return doc, ok
}

func (r *fakeRegistry) byChecksum(checksum string) (document.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.Checksum() == checksum {
			return d, true
		}
	}
	return document.Document{}, false
}

// fakeExtractor scripts the OCR service's two calls.
type fakeExtractor struct {
	jobID    string
	startErr error

	text     string
	fetchErr error

	startCalls int
	fetchCalls int
}

func (e *fakeExtractor) StartDetection(_ context.Context, _, _ string) (string, error) {
	e.startCalls++
	return e.jobID, e.startErr
}

func (e *fakeExtractor) FetchText(_ context.Context, _ string) (string, error) {
	e.fetchCalls++
	return e.text, e.fetchErr
}

// fakeProvider returns a fixed-dimension vector per input text.
type fakeProvider struct {
	dimensions int
	embedErr   error

	// vectorCount overrides the returned vector count when non-negative,
	// to exercise the count-mismatch guard.
	vectorCount int

	embedCalls int
	queryCalls int
	lastTexts  []string
}

func newFakeProvider(dimensions int) *fakeProvider {
	return &fakeProvider{dimensions: dimensions, vectorCount: -1}
}

func (p *fakeProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float64, error) {
	p.embedCalls++
	p.lastTexts = texts
	if p.embedErr != nil {
		return nil, p.embedErr
	}
	n := len(texts)
	if p.vectorCount >= 0 {
		n = p.vectorCount
	}
	vectors := make([][]float64, n)
	for i := range vectors {
		v := make([]float64, p.dimensions)
		v[0] = float64(i + 1)
		vectors[i] = v
	}
	return vectors, nil
}

func (p *fakeProvider) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	p.queryCalls++
	if p.embedErr != nil {
		return nil, p.embedErr
	}
	v := make([]float64, p.dimensions)
	v[0] = 1
	return v, nil
}

func (p *fakeProvider) ModelName() string { return "fake-embedding-model" }

func (p *fakeProvider) Dimensions() int { return p.dimensions }

// fakeVectorStore records writes and serves scripted query results.
type fakeVectorStore struct {
	mu sync.Mutex

	createErr error
	queryErr  error

	results []search.ScoredChunk

	writes []storeWrite
}

type storeWrite struct {
	userID     string
	documentID string
	vectors    [][]float64
	content    []string
}

func (s *fakeVectorStore) Initialize(context.Context) error { return nil }

func (s *fakeVectorStore) CreateEmbeddings(_ context.Context, userID, documentID string, vectors [][]float64, content []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.writes = append(s.writes, storeWrite{
		userID:     userID,
		documentID: documentID,
		vectors:    vectors,
		content:    content,
	})
	return nil
}

func (s *fakeVectorStore) QueryEmbeddings(_ context.Context, _ []float64, _ string, _ int) ([]search.ScoredChunk, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.results, nil
}

func (s *fakeVectorStore) DeleteByDocumentID(context.Context, string) error { return nil }

func (s *fakeVectorStore) DeleteByID(context.Context, string) error { return nil }
