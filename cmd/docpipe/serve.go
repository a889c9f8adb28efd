package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chronicle-ai/docpipe/application/handler/ingest"
	"github.com/chronicle-ai/docpipe/application/service"
	"github.com/chronicle-ai/docpipe/domain/search"
	"github.com/chronicle-ai/docpipe/infrastructure/api"
	"github.com/chronicle-ai/docpipe/infrastructure/chunking"
	"github.com/chronicle-ai/docpipe/infrastructure/extractor"
	"github.com/chronicle-ai/docpipe/infrastructure/persistence"
	"github.com/chronicle-ai/docpipe/infrastructure/provider"
	"github.com/chronicle-ai/docpipe/infrastructure/qdrant"
	"github.com/chronicle-ai/docpipe/internal/config"
	"github.com/chronicle-ai/docpipe/internal/database"
	"github.com/chronicle-ai/docpipe/internal/log"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docpipe server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "path to a .env file to load")

	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := log.New(cfg.LogLevel, log.Format(cfg.LogFormat))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.ConfigurePool(cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, time.Hour); err != nil {
		return fmt.Errorf("configure connection pool: %w", err)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	vectorStore, err := newVectorStore(cfg, db, logger)
	if err != nil {
		return err
	}
	if err := vectorStore.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize vector store: %w", err)
	}

	embedder, err := provider.NewOpenAIEmbedder(provider.OpenAIConfig{
		APIKey:       cfg.Embedding.APIKey,
		BaseURL:      cfg.Embedding.BaseURL,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		Timeout:      cfg.EmbeddingTimeout(),
		MaxRetries:   cfg.Embedding.MaxRetries,
		InitialDelay: time.Duration(cfg.Embedding.InitialDelay * float64(time.Second)),
	})
	if err != nil {
		return fmt.Errorf("create embedding provider: %w", err)
	}

	textExtractor := extractor.NewClient(extractor.Config{
		BaseURL: cfg.Extractor.BaseURL,
		APIKey:  cfg.Extractor.APIKey,
		Timeout: cfg.ExtractorTimeout(),
	})

	registry := persistence.NewDocumentStore(db)
	extractionSvc := service.NewExtraction(registry, textExtractor, logger)
	embeddingSvc := service.NewEmbedding(embedder, vectorStore, chunking.Params{
		Size:    cfg.Chunk.Size,
		Overlap: cfg.Chunk.Overlap,
	}, logger)
	searchSvc := service.NewSearch(embedder, vectorStore, logger)
	router := ingest.NewRouter(extractionSvc, embeddingSvc, registry, logger)

	server := api.NewServer(cfg.Addr(), logger)
	server.MountRoutes(router, searchSvc)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", cfg.Addr(),
			"vector_backend", string(cfg.VectorBackend),
			"embedding_model", cfg.Embedding.Model,
		)
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newVectorStore(cfg config.Config, db database.Database, logger *slog.Logger) (search.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendSQLite:
		return persistence.NewSQLiteChunkStore(db, logger), nil
	case config.VectorBackendPgvector:
		return persistence.NewPgvectorChunkStore(db, cfg.Embedding.Dimensions, logger), nil
	case config.VectorBackendQdrant:
		return qdrant.NewChunkStore(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Dimension:  cfg.Embedding.Dimensions,
			Timeout:    cfg.QdrantTimeout(),
		}, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownVectorBackend, cfg.VectorBackend)
	}
}
