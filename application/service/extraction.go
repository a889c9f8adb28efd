// Package service implements the pipeline's application services.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chronicle-ai/docpipe/domain/document"
	"github.com/chronicle-ai/docpipe/domain/extraction"
	"github.com/chronicle-ai/docpipe/internal/database"
)

// ErrExtractionRefused indicates the text-extraction service accepted the
// request but returned no job ID.
var ErrExtractionRefused = errors.New("extraction service refused the job")

// Extraction coordinates the asynchronous text-extraction state machine:
// creation events move documents from pending into a running OCR job, and
// completion notifications collect the result. All transition decisions
// live here; the registry only persists them.
type Extraction struct {
	registry  document.Registry
	extractor extraction.TextExtractor
	logger    *slog.Logger
}

// NewExtraction creates the coordinator.
func NewExtraction(registry document.Registry, extractor extraction.TextExtractor, logger *slog.Logger) *Extraction {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extraction{
		registry:  registry,
		extractor: extractor,
		logger:    logger,
	}
}

// HandleCreation processes one storage-creation record: register the
// document (or recognize a duplicate) and start the OCR job. Duplicate
// notifications for already-processed content are the normal consequence of
// at-least-once delivery and return nil without side effects.
func (s *Extraction) HandleCreation(ctx context.Context, rec extraction.Record) error {
	userID, key, err := extraction.SplitObjectKey(rec.Object.Key)
	if err != nil {
		return err
	}

	doc, err := s.findOrCreate(ctx, rec, userID, key)
	if err != nil {
		return err
	}

	if doc.Status() != document.StatusPending {
		s.logger.Info("duplicate creation event for processed content",
			"document_id", doc.ID(),
			"checksum", doc.Checksum(),
			"status", doc.Status(),
		)
		return nil
	}

	jobID, err := s.extractor.StartDetection(ctx, rec.Bucket.Name, rec.Object.Key)
	if err != nil {
		if updateErr := s.registry.UpdateStatus(ctx, doc.ID(), document.StatusExtractionFailed); updateErr != nil {
			return fmt.Errorf("start detection: %w (status update also failed: %v)", err, updateErr)
		}
		return fmt.Errorf("start detection: %w", err)
	}
	if jobID == "" {
		if err := s.registry.UpdateStatus(ctx, doc.ID(), document.StatusExtractionFailed); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s/%s", ErrExtractionRefused, rec.Bucket.Name, rec.Object.Key)
	}

	if err := s.registry.UpdateStatus(ctx, doc.ID(), document.StatusExtractionStarted); err != nil {
		return err
	}

	s.logger.Info("extraction started",
		"document_id", doc.ID(),
		"job_id", jobID,
		"bucket", rec.Bucket.Name,
		"key", key,
	)
	return nil
}

// findOrCreate looks the document up by checksum and registers it when
// unseen. Losing a creation race surfaces as a duplicate-checksum conflict,
// which is resolved by re-reading the winner's record.
func (s *Extraction) findOrCreate(ctx context.Context, rec extraction.Record, userID, key string) (document.Document, error) {
	doc, err := s.registry.FindByChecksum(ctx, rec.Object.ETag)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return document.Document{}, err
	}

	doc, err = s.registry.Save(ctx, document.New(rec.Bucket.Name, userID, key, rec.Object.Size, rec.Object.ETag))
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, document.ErrDuplicateChecksum) {
		return s.registry.FindByChecksum(ctx, rec.Object.ETag)
	}
	return document.Document{}, err
}

// HandleCompletion processes a job-completion notification. The returned
// bool reports whether a Completion is available for embedding; a false
// with nil error means the notification was dropped deliberately (failed
// job, unknown document).
func (s *Extraction) HandleCompletion(ctx context.Context, jc extraction.JobCompletion) (extraction.Completion, bool, error) {
	if !jc.Succeeded() {
		s.logger.Info("extraction job did not succeed",
			"job_id", jc.JobID,
			"status", jc.Status,
		)
		return extraction.Completion{}, false, nil
	}

	userID, key, err := extraction.SplitObjectKey(jc.DocumentLocation.S3ObjectName)
	if err != nil {
		return extraction.Completion{}, false, err
	}

	doc, err := s.registry.FindByLocation(ctx, jc.DocumentLocation.S3Bucket, userID, key)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.logger.Warn("completion notification for unknown document",
				"bucket", jc.DocumentLocation.S3Bucket,
				"user_id", userID,
				"key", key,
				"job_id", jc.JobID,
			)
			return extraction.Completion{}, false, nil
		}
		return extraction.Completion{}, false, err
	}

	text, err := s.extractor.FetchText(ctx, jc.JobID)
	if err != nil {
		if updateErr := s.registry.UpdateStatus(ctx, doc.ID(), document.StatusExtractionFailed); updateErr != nil {
			return extraction.Completion{}, false, fmt.Errorf("fetch text: %w (status update also failed: %v)", err, updateErr)
		}
		return extraction.Completion{}, false, fmt.Errorf("fetch text: %w", err)
	}

	if err := s.registry.UpdateStatus(ctx, doc.ID(), document.StatusExtractionComplete); err != nil {
		return extraction.Completion{}, false, err
	}

	s.logger.Info("extraction complete",
		"document_id", doc.ID(),
		"job_id", jc.JobID,
		"text_len", len(text),
	)
	return extraction.NewCompletion(userID, doc.ID(), text), true, nil
}
