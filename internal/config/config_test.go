package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite:///docpipe.db", cfg.DBURL)
	assert.Equal(t, VectorBackendSQLite, cfg.VectorBackend)
	assert.Equal(t, 1000, cfg.Chunk.Size)
	assert.Equal(t, 200, cfg.Chunk.Overlap)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, "document_chunks", cfg.Qdrant.Collection)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("VECTOR_BACKEND", "qdrant")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, VectorBackendQdrant, cfg.VectorBackend)
	assert.Equal(t, 500, cfg.Chunk.Size)
	assert.Equal(t, 50, cfg.Chunk.Overlap)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load("does-not-exist.env")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		VectorBackend: VectorBackendSQLite,
		Chunk:         ChunkEnv{Size: 1000, Overlap: 200},
		Embedding:     EmbeddingEnv{Dimensions: 1536},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "pgvector backend", mutate: func(c *Config) { c.VectorBackend = VectorBackendPgvector }},
		{name: "qdrant backend", mutate: func(c *Config) { c.VectorBackend = VectorBackendQdrant }},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.VectorBackend = "pinecone" },
			wantErr: true,
		},
		{
			name:    "overlap equals size",
			mutate:  func(c *Config) { c.Chunk.Overlap = c.Chunk.Size },
			wantErr: true,
		},
		{
			name:    "zero dimensions",
			mutate:  func(c *Config) { c.Embedding.Dimensions = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUnknownBackendSentinel(t *testing.T) {
	cfg := Config{
		VectorBackend: "weaviate",
		Chunk:         ChunkEnv{Size: 1000, Overlap: 200},
		Embedding:     EmbeddingEnv{Dimensions: 1536},
	}
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownVectorBackend)
}

func TestAddr(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 3000}
	assert.Equal(t, "127.0.0.1:3000", cfg.Addr())
}

func TestTimeoutConversions(t *testing.T) {
	cfg := Config{
		Embedding: EmbeddingEnv{Timeout: 1.5},
		Qdrant:    QdrantEnv{Timeout: 15},
		Extractor: ExtractorEnv{Timeout: 0.25},
	}
	assert.Equal(t, 1500*time.Millisecond, cfg.EmbeddingTimeout())
	assert.Equal(t, 15*time.Second, cfg.QdrantTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.ExtractorTimeout())
}
