// Package document holds the persistent record of an uploaded document and
// its processing state.
package document

import (
	"time"

	"github.com/google/uuid"
)

// Document is the single source of truth for one uploaded object: where it
// lives, who owns it, and how far processing has advanced. At most one
// Document exists per distinct checksum.
type Document struct {
	id        string
	location  string
	userID    string
	key       string
	size      int64
	checksum  string
	status    Status
	createdAt time.Time
	updatedAt time.Time
}

// New creates a Document at StatusPending with a generated ID.
// The key excludes the leading user-prefix path segment.
func New(location, userID, key string, size int64, checksum string) Document {
	now := time.Now().UTC()
	return Document{
		id:        uuid.NewString(),
		location:  location,
		userID:    userID,
		key:       key,
		size:      size,
		checksum:  checksum,
		status:    StatusPending,
		createdAt: now,
		updatedAt: now,
	}
}

// FromStore rehydrates a Document from persisted fields.
func FromStore(id, location, userID, key string, size int64, checksum string, status Status, createdAt, updatedAt time.Time) Document {
	return Document{
		id:        id,
		location:  location,
		userID:    userID,
		key:       key,
		size:      size,
		checksum:  checksum,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the opaque document identifier.
func (d Document) ID() string { return d.id }

// Location returns the logical bucket or container name.
func (d Document) Location() string { return d.location }

// UserID returns the owning user.
func (d Document) UserID() string { return d.userID }

// Key returns the storage object path without the user-prefix segment.
func (d Document) Key() string { return d.key }

// Size returns the object size in bytes.
func (d Document) Size() int64 { return d.size }

// Checksum returns the storage provider's content fingerprint.
func (d Document) Checksum() string { return d.checksum }

// Status returns the current processing status.
func (d Document) Status() Status { return d.status }

// CreatedAt returns the creation timestamp.
func (d Document) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last modification timestamp.
func (d Document) UpdatedAt() time.Time { return d.updatedAt }

// WithStatus returns a copy of the document at the given status.
func (d Document) WithStatus(status Status) Document {
	d.status = status
	d.updatedAt = time.Now().UTC()
	return d
}
