// Package search defines the vector-store contract and the chunk unit it
// stores and ranks.
package search

import (
	"errors"
	"fmt"
)

// ErrChunkVectorMismatch indicates vectors and content slices differ in length.
var ErrChunkVectorMismatch = errors.New("vectors and content length mismatch")

// Chunk is one contiguous slice of a document's extracted text together
// with its embedding. Its ID is deterministic for a given document and
// index, which is what makes reprocessing an upsert rather than an append.
type Chunk struct {
	id         string
	documentID string
	userID     string
	content    string
	vector     []float64
}

// ChunkID builds the deterministic chunk identifier "{documentID}-{index}".
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-%d", documentID, index)
}

// NewChunk creates a Chunk. The vector is defensively copied.
func NewChunk(id, documentID, userID, content string, vector []float64) Chunk {
	cp := make([]float64, len(vector))
	copy(cp, vector)
	return Chunk{
		id:         id,
		documentID: documentID,
		userID:     userID,
		content:    content,
		vector:     cp,
	}
}

// BuildChunks pairs vectors with their source content in order, assigning
// deterministic IDs. Chunk i carries vector i.
func BuildChunks(userID, documentID string, vectors [][]float64, content []string) ([]Chunk, error) {
	if len(vectors) != len(content) {
		return nil, fmt.Errorf("%w: %d vectors, %d texts", ErrChunkVectorMismatch, len(vectors), len(content))
	}

	chunks := make([]Chunk, len(vectors))
	for i := range vectors {
		chunks[i] = NewChunk(ChunkID(documentID, i), documentID, userID, content[i], vectors[i])
	}
	return chunks, nil
}

// ID returns the chunk identifier.
func (c Chunk) ID() string { return c.id }

// DocumentID returns the owning document.
func (c Chunk) DocumentID() string { return c.documentID }

// UserID returns the owning user. It always equals the owning document's
// user and never changes after creation.
func (c Chunk) UserID() string { return c.userID }

// Content returns the chunk's source text.
func (c Chunk) Content() string { return c.content }

// Vector returns a defensive copy of the embedding vector.
func (c Chunk) Vector() []float64 {
	cp := make([]float64, len(c.vector))
	copy(cp, c.vector)
	return cp
}

// ScoredChunk is a Chunk ranked against a query vector.
type ScoredChunk struct {
	chunk      Chunk
	similarity float64
}

// NewScoredChunk creates a ScoredChunk.
func NewScoredChunk(chunk Chunk, similarity float64) ScoredChunk {
	return ScoredChunk{chunk: chunk, similarity: similarity}
}

// Chunk returns the underlying chunk.
func (s ScoredChunk) Chunk() Chunk { return s.chunk }

// Similarity returns the cosine similarity to the query vector.
func (s ScoredChunk) Similarity() float64 { return s.similarity }

// Batches splits chunks into fixed-size groups for batched writes. The
// final batch holds the remainder, so writing n chunks takes exactly
// ceil(n/size) calls.
func Batches(chunks []Chunk, size int) [][]Chunk {
	if size <= 0 || len(chunks) == 0 {
		return nil
	}

	batches := make([][]Chunk, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		batches = append(batches, chunks[start:end])
	}
	return batches
}
