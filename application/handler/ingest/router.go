// Package ingest routes inbound notification events into the extraction
// and embedding pipeline.
package ingest

import (
	"context"
	"log/slog"

	"github.com/chronicle-ai/docpipe/application/service"
	"github.com/chronicle-ai/docpipe/domain/document"
	"github.com/chronicle-ai/docpipe/domain/extraction"
)

// Router classifies raw events and dispatches them. It is the error
// backstop of the pipeline: Handle never returns or raises anything, so one
// malformed event cannot take down the consumer loop. Every layer below
// reports typed failures; this is the only layer allowed to discard them.
type Router struct {
	coordinator *service.Extraction
	embedder    *service.Embedding
	registry    document.Registry
	logger      *slog.Logger
}

// NewRouter creates the event router.
func NewRouter(coordinator *service.Extraction, embedder *service.Embedding, registry document.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		coordinator: coordinator,
		embedder:    embedder,
		registry:    registry,
		logger:      logger,
	}
}

// Handle is the single entry point invoked by the hosting consumer loop.
func (r *Router) Handle(ctx context.Context, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while handling event", "panic", rec)
		}
	}()

	event := extraction.Classify(raw)
	switch event.Kind() {
	case extraction.EventCreation:
		r.handleCreation(ctx, event.Records())
	case extraction.EventCompletion:
		r.handleCompletion(ctx, event.Completion())
	default:
		r.logger.Info("unrecognized event ignored", "size", len(raw))
	}
}

func (r *Router) handleCreation(ctx context.Context, records []extraction.Record) {
	for _, rec := range records {
		if !rec.IsCreation() {
			r.logger.Info("storage event ignored",
				"event_name", rec.EventName,
				"bucket", rec.Bucket.Name,
				"key", rec.Object.Key,
			)
			continue
		}
		if err := r.coordinator.HandleCreation(ctx, rec); err != nil {
			r.logger.Error("creation event failed",
				"bucket", rec.Bucket.Name,
				"key", rec.Object.Key,
				"etag", rec.Object.ETag,
				"error", err,
			)
		}
	}
}

func (r *Router) handleCompletion(ctx context.Context, jc extraction.JobCompletion) {
	completion, ok, err := r.coordinator.HandleCompletion(ctx, jc)
	if err != nil {
		r.logger.Error("completion event failed",
			"job_id", jc.JobID,
			"bucket", jc.DocumentLocation.S3Bucket,
			"key", jc.DocumentLocation.S3ObjectName,
			"error", err,
		)
		return
	}
	if !ok {
		return
	}

	// Embedding failures never roll the document back from
	// extraction_complete; the record stays retriable via EmbedAndStore.
	err = r.embedder.EmbedAndStore(ctx, completion.UserID(), completion.DocumentID(), completion.Text())
	if err != nil {
		r.logger.Error("embedding failed",
			"document_id", completion.DocumentID(),
			"user_id", completion.UserID(),
			"error", err,
		)
		return
	}

	if err := r.registry.UpdateStatus(ctx, completion.DocumentID(), document.StatusEmbedded); err != nil {
		r.logger.Error("failed to mark document embedded",
			"document_id", completion.DocumentID(),
			"error", err,
		)
	}
}
