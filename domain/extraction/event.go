// Package extraction defines the inbound event shapes of the ingestion
// pipeline and the contract of the managed text-extraction service.
package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedObjectKey indicates an object key that does not carry the
// leading user-prefix segment.
var ErrMalformedObjectKey = errors.New("object key has no user prefix")

// creationPrefix marks storage event names that announce a new object.
const creationPrefix = "ObjectCreated"

// EventKind classifies an inbound raw event.
type EventKind int

// EventKind values.
const (
	EventUnknown EventKind = iota
	EventCreation
	EventCompletion
)

// String returns a readable kind name.
func (k EventKind) String() string {
	switch k {
	case EventCreation:
		return "creation"
	case EventCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// Record is one storage notification record: a named event on one object.
type Record struct {
	EventName string `json:"eventName"`
	Bucket    struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key  string `json:"key"`
		Size int64  `json:"size"`
		ETag string `json:"eTag"`
	} `json:"object"`
}

// IsCreation reports whether the record announces object creation.
func (r Record) IsCreation() bool {
	return strings.HasPrefix(r.EventName, creationPrefix)
}

// storageEvent is the outer shape of a storage notification.
type storageEvent struct {
	Records []Record `json:"Records"`
}

// envelope is the notification wrapper around an out-of-band job result.
type envelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// JobCompletion is the text-extraction job result delivered out-of-band.
type JobCompletion struct {
	Status           string `json:"Status"`
	DocumentLocation struct {
		S3Bucket     string `json:"S3Bucket"`
		S3ObjectName string `json:"S3ObjectName"`
	} `json:"DocumentLocation"`
	JobID string `json:"JobId"`
}

// Succeeded reports whether the job finished successfully.
func (c JobCompletion) Succeeded() bool {
	return c.Status == "SUCCEEDED"
}

// Event is a classified inbound event.
type Event struct {
	kind       EventKind
	records    []Record
	completion JobCompletion
}

// Kind returns the event classification.
func (e Event) Kind() EventKind { return e.kind }

// Records returns the storage records of a creation event.
func (e Event) Records() []Record { return e.records }

// Completion returns the job result of a completion event.
func (e Event) Completion() JobCompletion { return e.completion }

// Classify parses a raw event body. An identified notification envelope is
// a job completion; a non-empty record list is a storage event; anything
// else is unknown. Classify never fails — undecodable bodies come back as
// EventUnknown for the caller to log and drop.
func Classify(raw []byte) Event {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Type != "" && env.Message != "" {
		var completion JobCompletion
		if err := json.Unmarshal([]byte(env.Message), &completion); err == nil {
			return Event{kind: EventCompletion, completion: completion}
		}
		return Event{kind: EventUnknown}
	}

	var se storageEvent
	if err := json.Unmarshal(raw, &se); err == nil && len(se.Records) > 0 {
		return Event{kind: EventCreation, records: se.Records}
	}

	return Event{kind: EventUnknown}
}

// SplitObjectKey decodes a notification object key and splits it into the
// owning user (first path segment) and the remaining key. Keys arrive
// URL-encoded with '+' standing for spaces; undecodable keys are used as-is.
func SplitObjectKey(raw string) (userID, key string, err error) {
	decoded, decErr := url.QueryUnescape(raw)
	if decErr != nil {
		decoded = raw
	}

	userID, key, found := strings.Cut(decoded, "/")
	if !found || userID == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedObjectKey, raw)
	}
	return userID, key, nil
}
