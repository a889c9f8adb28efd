// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// VectorBackend selects the physical vector store implementation.
type VectorBackend string

// VectorBackend values. The choice is a deployment concern; every backend
// satisfies the same store contract.
const (
	VectorBackendSQLite   VectorBackend = "sqlite"
	VectorBackendPgvector VectorBackend = "pgvector"
	VectorBackendQdrant   VectorBackend = "qdrant"
)

// ErrUnknownVectorBackend indicates VECTOR_BACKEND names no known implementation.
var ErrUnknownVectorBackend = errors.New("unknown vector backend")

// Config holds all environment-based configuration.
type Config struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DBURL is the database connection URL.
	// Env: DB_URL (default: sqlite:///docpipe.db)
	DBURL string `envconfig:"DB_URL" default:"sqlite:///docpipe.db"`

	// LogLevel is the log verbosity level (DEBUG, INFO, WARN, ERROR).
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (text or json).
	// Env: LOG_FORMAT (default: text)
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// VectorBackend selects the vector store (sqlite, pgvector, qdrant).
	// Env: VECTOR_BACKEND (default: sqlite)
	VectorBackend VectorBackend `envconfig:"VECTOR_BACKEND" default:"sqlite"`

	// Chunk configures text splitting.
	Chunk ChunkEnv `envconfig:"CHUNK"`

	// Embedding configures the embedding model endpoint.
	Embedding EmbeddingEnv `envconfig:"EMBEDDING"`

	// Qdrant configures the dedicated vector engine.
	Qdrant QdrantEnv `envconfig:"QDRANT"`

	// Extractor configures the managed text-extraction service.
	Extractor ExtractorEnv `envconfig:"EXTRACTOR"`

	// DBMaxOpenConns caps the connection pool.
	// Env: DB_MAX_OPEN_CONNS (default: 10)
	DBMaxOpenConns int `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`

	// DBMaxIdleConns caps idle pooled connections.
	// Env: DB_MAX_IDLE_CONNS (default: 5)
	DBMaxIdleConns int `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
}

// ChunkEnv configures the splitter. Read once at startup and shared by all
// embedding operations.
type ChunkEnv struct {
	// Size is the target chunk size in runes.
	// Env: CHUNK_SIZE (default: 1000)
	Size int `envconfig:"SIZE" default:"1000"`

	// Overlap is the rune overlap carried between adjacent chunks.
	// Env: CHUNK_OVERLAP (default: 200)
	Overlap int `envconfig:"OVERLAP" default:"200"`
}

// EmbeddingEnv holds configuration for the embedding endpoint.
type EmbeddingEnv struct {
	// BaseURL is the OpenAI-compatible base URL.
	// Env: EMBEDDING_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the embedding model identifier.
	// Env: EMBEDDING_MODEL (default: text-embedding-3-small)
	Model string `envconfig:"MODEL" default:"text-embedding-3-small"`

	// APIKey authenticates against the endpoint.
	// Env: EMBEDDING_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Dimensions is the fixed vector length the model produces.
	// Env: EMBEDDING_DIMENSIONS (default: 1536)
	Dimensions int `envconfig:"DIMENSIONS" default:"1536"`

	// Timeout bounds each model call in seconds.
	// Env: EMBEDDING_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries per call.
	// Env: EMBEDDING_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: EMBEDDING_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`
}

// QdrantEnv holds configuration for the Qdrant backend.
type QdrantEnv struct {
	// URL is the Qdrant HTTP endpoint.
	// Env: QDRANT_URL (default: http://localhost:6333)
	URL string `envconfig:"URL" default:"http://localhost:6333"`

	// APIKey authenticates against Qdrant.
	// Env: QDRANT_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Collection is the collection name.
	// Env: QDRANT_COLLECTION (default: document_chunks)
	Collection string `envconfig:"COLLECTION" default:"document_chunks"`

	// Timeout bounds each request in seconds.
	// Env: QDRANT_TIMEOUT (default: 15)
	Timeout float64 `envconfig:"TIMEOUT" default:"15"`
}

// ExtractorEnv holds configuration for the OCR service client.
type ExtractorEnv struct {
	// BaseURL is the text-extraction service endpoint.
	// Env: EXTRACTOR_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// APIKey authenticates against the service.
	// Env: EXTRACTOR_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout bounds each request in seconds.
	// Env: EXTRACTOR_TIMEOUT (default: 30)
	Timeout float64 `envconfig:"TIMEOUT" default:"30"`
}

// Load reads configuration from an optional .env file and the environment.
// Environment variables override .env values.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		// Best effort: a .env in the working directory is optional.
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration names a usable deployment.
// Misconfiguration fails fast at startup rather than at first use.
func (c Config) Validate() error {
	switch c.VectorBackend {
	case VectorBackendSQLite, VectorBackendPgvector, VectorBackendQdrant:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVectorBackend, c.VectorBackend)
	}
	if c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)", c.Chunk.Overlap, c.Chunk.Size)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	return nil
}

// Addr returns the host:port pair the server binds to.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EmbeddingTimeout returns the embedding call timeout as a duration.
func (c Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.Timeout * float64(time.Second))
}

// QdrantTimeout returns the Qdrant request timeout as a duration.
func (c Config) QdrantTimeout() time.Duration {
	return time.Duration(c.Qdrant.Timeout * float64(time.Second))
}

// ExtractorTimeout returns the extractor request timeout as a duration.
func (c Config) ExtractorTimeout() time.Duration {
	return time.Duration(c.Extractor.Timeout * float64(time.Second))
}
