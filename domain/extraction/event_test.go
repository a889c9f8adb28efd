package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStorageEvent(t *testing.T) {
	raw := []byte(`{
		"Records": [
			{
				"eventName": "ObjectCreated:Put",
				"bucket": {"name": "uploads"},
				"object": {"key": "user-1/report.pdf", "size": 1024, "eTag": "abc123"}
			},
			{
				"eventName": "ObjectRemoved:Delete",
				"bucket": {"name": "uploads"},
				"object": {"key": "user-1/old.pdf", "size": 0, "eTag": "def456"}
			}
		]
	}`)

	event := Classify(raw)
	require.Equal(t, EventCreation, event.Kind())
	require.Len(t, event.Records(), 2)

	first := event.Records()[0]
	assert.True(t, first.IsCreation())
	assert.Equal(t, "uploads", first.Bucket.Name)
	assert.Equal(t, "user-1/report.pdf", first.Object.Key)
	assert.Equal(t, int64(1024), first.Object.Size)
	assert.Equal(t, "abc123", first.Object.ETag)

	assert.False(t, event.Records()[1].IsCreation())
}

func TestClassifyJobCompletion(t *testing.T) {
	raw := []byte(`{
		"Type": "Notification",
		"Message": "{\"Status\":\"SUCCEEDED\",\"JobId\":\"job-42\",\"DocumentLocation\":{\"S3Bucket\":\"uploads\",\"S3ObjectName\":\"user-1/report.pdf\"}}"
	}`)

	event := Classify(raw)
	require.Equal(t, EventCompletion, event.Kind())

	completion := event.Completion()
	assert.True(t, completion.Succeeded())
	assert.Equal(t, "job-42", completion.JobID)
	assert.Equal(t, "uploads", completion.DocumentLocation.S3Bucket)
	assert.Equal(t, "user-1/report.pdf", completion.DocumentLocation.S3ObjectName)
}

func TestClassifyFailedJobCompletion(t *testing.T) {
	raw := []byte(`{
		"Type": "Notification",
		"Message": "{\"Status\":\"FAILED\",\"JobId\":\"job-43\",\"DocumentLocation\":{\"S3Bucket\":\"uploads\",\"S3ObjectName\":\"user-1/broken.pdf\"}}"
	}`)

	event := Classify(raw)
	require.Equal(t, EventCompletion, event.Kind())
	assert.False(t, event.Completion().Succeeded())
}

func TestClassifyUnknown(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "not json", raw: []byte("definitely not json")},
		{name: "empty object", raw: []byte(`{}`)},
		{name: "empty records", raw: []byte(`{"Records": []}`)},
		{name: "envelope with non-json message", raw: []byte(`{"Type":"Notification","Message":"plain text"}`)},
		{name: "empty body", raw: nil},
		{name: "json array", raw: []byte(`[1, 2, 3]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := Classify(tt.raw)
			assert.Equal(t, EventUnknown, event.Kind())
		})
	}
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "creation", EventCreation.String())
	assert.Equal(t, "completion", EventCompletion.String())
	assert.Equal(t, "unknown", EventUnknown.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}

func TestSplitObjectKey(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantUser string
		wantKey  string
		wantErr  bool
	}{
		{
			name:     "plain key",
			raw:      "user-1/report.pdf",
			wantUser: "user-1",
			wantKey:  "report.pdf",
		},
		{
			name:     "nested key keeps inner slashes",
			raw:      "user-1/2024/q3/report.pdf",
			wantUser: "user-1",
			wantKey:  "2024/q3/report.pdf",
		},
		{
			name:     "plus decodes to space",
			raw:      "user-1/annual+report.pdf",
			wantUser: "user-1",
			wantKey:  "annual report.pdf",
		},
		{
			name:     "percent encoding decodes",
			raw:      "user-1/caf%C3%A9.pdf",
			wantUser: "user-1",
			wantKey:  "café.pdf",
		},
		{
			name:     "undecodable key used as-is",
			raw:      "user-1/bad%zzname.pdf",
			wantUser: "user-1",
			wantKey:  "bad%zzname.pdf",
		},
		{name: "no slash", raw: "report.pdf", wantErr: true},
		{name: "empty user segment", raw: "/report.pdf", wantErr: true},
		{name: "empty key segment", raw: "user-1/", wantErr: true},
		{name: "empty input", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, key, err := SplitObjectKey(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedObjectKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, userID)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}
