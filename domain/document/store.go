package document

import (
	"context"
	"errors"

	"github.com/chronicle-ai/docpipe/domain/storage"
)

// ErrDuplicateChecksum indicates a document with the same checksum already
// exists. The unique constraint on checksum is the authoritative dedup
// signal; a racing duplicate creation surfaces here rather than as a second
// record.
var ErrDuplicateChecksum = errors.New("document checksum already registered")

// Registry persists Documents. No transition decisions live here; callers
// own the state machine. Connectivity failures propagate unretried.
type Registry interface {
	// FindByChecksum looks a document up by its content fingerprint.
	// Absence is reported via an error wrapping the store's not-found sentinel.
	FindByChecksum(ctx context.Context, checksum string) (Document, error)

	// FindByLocation looks a document up by (location, userID, key), the
	// secondary key used when a completion notification carries no checksum.
	FindByLocation(ctx context.Context, location, userID, key string) (Document, error)

	// Save persists a new document. Returns ErrDuplicateChecksum (wrapped)
	// when the checksum is already registered.
	Save(ctx context.Context, doc Document) (Document, error)

	// UpdateStatus transitions the document with the given ID.
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// WithChecksum filters by the "checksum" column.
func WithChecksum(checksum string) storage.Option {
	return storage.WithCondition("checksum", checksum)
}

// WithLocation filters by the "location" column.
func WithLocation(location string) storage.Option {
	return storage.WithCondition("location", location)
}

// WithUserID filters by the "user_id" column.
func WithUserID(userID string) storage.Option {
	return storage.WithCondition("user_id", userID)
}

// WithKey filters by the "key" column.
func WithKey(key string) storage.Option {
	return storage.WithCondition("key", key)
}
