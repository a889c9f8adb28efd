package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "WARN", FormatText)

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be dropped")
	assert.Contains(t, out, "should appear")
}

func TestNewWithWriterJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "INFO", FormatJSON)

	logger.Info("hello", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "DEBUG", want: "DEBUG"},
		{input: "debug", want: "DEBUG"},
		{input: "INFO", want: "INFO"},
		{input: "WARN", want: "WARN"},
		{input: "WARNING", want: "WARN"},
		{input: "ERROR", want: "ERROR"},
		{input: "garbage", want: "INFO"},
		{input: "", want: "INFO"},
	}

	for _, tt := range tests {
		t.Run("level "+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, strings.ToUpper(parseLevel(tt.input).String()))
		})
	}
}
