package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextAddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	prev := defaultLogger
	SetDefault(New(&buf, "debug", "json"))
	t.Cleanup(func() { SetDefault(prev) })

	ctx := WithContext(context.Background(), RequestIDKey, "req-1")
	ctx = WithContext(ctx, DocumentIDKey, "doc-9")
	ctx = WithContext(ctx, UserIDKey, "")

	Info(ctx, "version appended", "version", "v1.01")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "doc-9", record["document_id"])
	assert.Equal(t, "v1.01", record["version"])
	assert.NotContains(t, record, "user_id")
}

func TestErrorAppendsErrorField(t *testing.T) {
	var buf bytes.Buffer
	prev := defaultLogger
	SetDefault(New(&buf, "info", "json"))
	t.Cleanup(func() { SetDefault(prev) })

	Error(context.Background(), "chunk failed", assert.AnError)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, assert.AnError.Error(), record["error"])
	assert.Equal(t, "ERROR", record["level"])
}
