package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/chronicle-ai/docpipe/domain/search"
)

// Float64Slice stores a []float64 as JSON, used by the SQLite chunk table
// where no native vector type exists.
type Float64Slice []float64

// Scan implements sql.Scanner for reading JSON from SQLite.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}
	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer for writing JSON to SQLite.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical), or 0 when either
// vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// rankChunks scores chunks against the query vector and returns the topK by
// similarity descending. Used by the SQLite backend, which ranks client-side.
func rankChunks(query []float64, chunks []search.Chunk, topK int) []search.ScoredChunk {
	if len(chunks) == 0 || topK <= 0 {
		return []search.ScoredChunk{}
	}

	scored := make([]search.ScoredChunk, len(chunks))
	for i, c := range chunks {
		scored[i] = search.NewScoredChunk(c, CosineSimilarity(query, c.Vector()))
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity() > scored[j].Similarity()
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK]
}
