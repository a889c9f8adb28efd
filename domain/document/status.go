package document

// Status represents a document's position in the processing lifecycle.
type Status string

// Status values. A document moves pending → extraction_started →
// extraction_complete → embedded; extraction_failed is reachable from the
// two non-terminal states.
const (
	StatusPending            Status = "PENDING"
	StatusExtractionStarted  Status = "EXTRACTION_STARTED"
	StatusExtractionComplete Status = "EXTRACTION_COMPLETE"
	StatusExtractionFailed   Status = "EXTRACTION_FAILED"
	StatusEmbedded           Status = "EMBEDDED"
)

// Terminal returns true once the extraction coordinator has nothing further
// to do for the document. An embedding failure after extraction_complete
// does not roll the status back.
func (s Status) Terminal() bool {
	return s != StatusPending && s != StatusExtractionStarted
}
