package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-ai/docpipe/domain/document"
	"github.com/chronicle-ai/docpipe/domain/extraction"
)

func creationRecord(key, etag string) extraction.Record {
	var rec extraction.Record
	rec.EventName = "ObjectCreated:Put"
	rec.Bucket.Name = "uploads"
	rec.Object.Key = key
	rec.Object.Size = 2048
	rec.Object.ETag = etag
	return rec
}

func completionFor(status, objectName, jobID string) extraction.JobCompletion {
	var jc extraction.JobCompletion
	jc.Status = status
	jc.JobID = jobID
	jc.DocumentLocation.S3Bucket = "uploads"
	jc.DocumentLocation.S3ObjectName = objectName
	return jc
}

func TestHandleCreationRegistersAndStartsJob(t *testing.T) {
	ctx := context.Background()
	registry := newFakeRegistry()
	extractor := &fakeExtractor{jobID: "job-1"}
	svc := NewExtraction(registry, extractor, nil)

	err := svc.HandleCreation(ctx, creationRecord("user-1/report.pdf", "etag-1"))
	require.NoError(t, err)

	doc, ok := registry.byChecksum("etag-1")
	require.True(t, ok)
	assert.Equal(t, document.StatusExtractionStarted, doc.Status())
	assert.Equal(t, "uploads", doc.Location())
	assert.Equal(t, "user-1", doc.UserID())
	assert.Equal(t, "report.pdf", doc.Key())
	assert.Equal(t, int64(2048), doc.Size())
	assert.Equal(t, 1, extractor.startCalls)
}

func TestHandleCreationMalformedKey(t *testing.T) {
	ctx := context.Background()
	registry := newFakeRegistry()
	extractor := &fakeExtractor{jobID: "job-1"}
	svc := NewExtraction(registry, extractor, nil)

	err := svc.HandleCreation(ctx, creationRecord("no-user-prefix.pdf", "etag-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, extraction.ErrMalformedObjectKey)
	assert.Zero(t, extractor.startCalls)
}

func TestHandleCreationDuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	registry := newFakeRegistry()
	extractor := &fakeExtractor{jobID: "job-1"}
	svc := NewExtraction(registry, extractor, nil)

	rec := creationRecord("user-1/report.pdf", "etag-1")
	require.NoError(t, svc.HandleCreation(ctx, rec))
	require.Equal(t, 1, extractor.startCalls)

	// Redelivery of the same notification: the document has moved past
	// pending, so no second job starts.
	require.NoError(t, svc.HandleCreation(ctx, rec))
	assert.Equal(t, 1, extractor.startCalls)

	doc, ok := registry.byChecksum("etag-1")
	require.True(t, ok)
	assert.Equal(t, document.StatusExtractionStarted, doc.Status())
}

func TestHandleCreationSaveRaceFallsBackToWinner(t *testing.T) {
	ctx := context.Background()
	registry := newFakeRegistry()
	extractor := &fakeExtractor{jobID: "job-1"}
	svc := NewExtraction(registry, extractor, nil)

	// Another worker already registered the checksum and started its job.
	winner, err := registry.Save(ctx, document.New("uploads", "user-1", "report.pdf", 2048, "etag-1"))
	require.NoError(t, err)
	require.NoError(t, registry.UpdateStatus(ctx, winner.ID(), document.StatusExtractionStarted))

	err = svc.HandleCreation(ctx, creationRecord("user-1/report.pdf", "etag-1"))
	require.NoError(t, err)
	assert.Zero(t, extractor.startCalls)
	assert.Len(t, registry.docs, 1)
}

func TestHandleCreationStartFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	registry := newFakeRegistry()
	extractor := &fakeExtractor{startErr: errors.New("service unavailable")}
	svc := NewExtraction(registry, extractor, nil)

	err := svc.HandleCreation(ctx, creationRecord("user-1/report.pdf", "etag-1"))
	require.Error(t, err)

	doc, ok := registry.byChecksum("etag-1")
	require.True(t, ok)
	assert.Equal(t, document.StatusExtractionFailed, doc.Status())
}

func TestHandleCreationRefusedJobMarksFailed(t *testing.T) {
	ctx := context.Background()
	registry := newFakeRegistry()
	extractor := &fakeExtractor{jobID: ""}
	svc := NewExtraction(registry, extractor, nil)

	err := svc.HandleCreation(ctx, creationRecord("user-1/report.pdf", "etag-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionRefused)

	doc, ok := registry.byChecksum("etag-1")
	require.True(t, ok)
	assert.Equal(t, document.StatusExtractionFailed, doc.Status())
}

func TestHandleCompletionSuccess(t *testing.T) {
	ctx := context.Background()
	registry := newFakeRegistry()
	extractor := &fakeExtractor{jobID: "job-1", text: "extracted text"}
	svc := NewExtraction(registry, extractor, nil)

	require.NoError(t, svc.HandleCreation(ctx, creationRecord("user-1/report.pdf", "etag-1")))

	completion, ok, err := svc.HandleCompletion(ctx, completionFor("SUCCEEDED", "user-1/report.pdf", "job-1"))
	require.NoError(t, err)
	require.True(t, ok)

	doc, found := registry.byChecksum("etag-1")
	require.True(t, found)
	assert.Equal(t, document.StatusExtractionComplete, doc.Status())
	assert.Equal(t, doc.ID(), completion.DocumentID())
	assert.Equal(t, "user-1", completion.UserID())
	assert.Equal(t, "extracted text", completion.Text())
}

func TestHandleCompletionFailedJobDropped(t *testing.T) {
	ctx := context.Background()
	registry := newFakeRegistry()
	extractor := &fakeExtractor{}
	svc := NewExtraction(registry, extractor, nil)

	_, ok, err := svc.HandleCompletion(ctx, completionFor("FAILED", "user-1/report.pdf", "job-1"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, extractor.fetchCalls)
}

func TestHandleCompletionUnknownDocumentDropped(t *testing.T) {
	ctx := context.Background()
	registry := newFakeRegistry()
	extractor := &fakeExtractor{text: "text"}
	svc := NewExtraction(registry, extractor, nil)

	_, ok, err := svc.HandleCompletion(ctx, completionFor("SUCCEEDED", "user-1/never-seen.pdf", "job-1"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, extractor.fetchCalls)
}

func TestHandleCompletionFetchFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	registry := newFakeRegistry()
	extractor := &fakeExtractor{jobID: "job-1"}
	svc := NewExtraction(registry, extractor, nil)

	require.NoError(t, svc.HandleCreation(ctx, creationRecord("user-1/report.pdf", "etag-1")))

	extractor.fetchErr = errors.New("job expired")
	_, ok, err := svc.HandleCompletion(ctx, completionFor("SUCCEEDED", "user-1/report.pdf", "job-1"))
	require.Error(t, err)
	assert.False(t, ok)

	doc, found := registry.byChecksum("etag-1")
	require.True(t, found)
	assert.Equal(t, document.StatusExtractionFailed, doc.Status())
}
