package extraction

import "context"

// TextExtractor is the managed OCR service, reduced to the two calls this
// pipeline makes. Job completion arrives out-of-band as a JobCompletion
// notification, not through this interface.
type TextExtractor interface {
	// StartDetection submits an asynchronous text-detection job for a
	// storage object. An empty job ID with a nil error means the service
	// refused the job.
	StartDetection(ctx context.Context, bucket, key string) (string, error)

	// FetchText retrieves the extracted text of a finished job.
	FetchText(ctx context.Context, jobID string) (string, error)
}

// Completion is the successful outcome of the completion path: everything
// the embedding step needs.
type Completion struct {
	userID     string
	documentID string
	text       string
}

// NewCompletion creates a Completion.
func NewCompletion(userID, documentID, text string) Completion {
	return Completion{userID: userID, documentID: documentID, text: text}
}

// UserID returns the owning user.
func (c Completion) UserID() string { return c.userID }

// DocumentID returns the extracted document's ID.
func (c Completion) DocumentID() string { return c.documentID }

// Text returns the extracted text.
func (c Completion) Text() string { return c.text }
