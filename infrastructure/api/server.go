// Package api hosts the pipeline behind HTTP: the notification push entry
// point and the retrieval endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chronicle-ai/docpipe/application/handler/ingest"
	"github.com/chronicle-ai/docpipe/application/service"
	apimiddleware "github.com/chronicle-ai/docpipe/infrastructure/api/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// maxEventBody caps inbound notification bodies.
const maxEventBody = 1 << 20

// Server represents the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	addr       string
}

// NewServer creates a Server with standard middleware applied.
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(apimiddleware.Logging(logger))
	router.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))

	return &Server{
		router: router,
		addr:   addr,
		logger: logger,
	}
}

// MountRoutes registers the pipeline endpoints.
func (s *Server) MountRoutes(router *ingest.Router, searcher *service.Search) {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/events", handleEvent(router))
		r.Get("/search", handleSearch(searcher))
	})
}

// Router returns the chi router, for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleEvent feeds a raw notification body to the event router. The router
// swallows all internal failures, so the only non-202 answer is an
// unreadable body.
func handleEvent(router *ingest.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}

		router.Handle(r.Context(), body)
		w.WriteHeader(http.StatusAccepted)
	}
}

// searchResult is the wire shape of one ranked chunk.
type searchResult struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

func handleSearch(searcher *service.Search) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		userID := r.URL.Query().Get("user_id")
		if query == "" || userID == "" {
			writeError(w, http.StatusBadRequest, "q and user_id are required")
			return
		}

		topK := 0
		if limit := r.URL.Query().Get("limit"); limit != "" {
			if _, err := fmt.Sscanf(limit, "%d", &topK); err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
		}

		scored, err := searcher.Query(r.Context(), query, userID, topK)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}

		results := make([]searchResult, len(scored))
		for i, sc := range scored {
			results[i] = searchResult{
				ID:         sc.Chunk().ID(),
				DocumentID: sc.Chunk().DocumentID(),
				Content:    sc.Chunk().Content(),
				Similarity: sc.Similarity(),
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
