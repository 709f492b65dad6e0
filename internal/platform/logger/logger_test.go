package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoWritesGCPEntry(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	ctx := WithTraceID(context.Background(), "abc123")
	Info(ctx, "聯絡表單已送出",
		WithAction("contact_submit"),
		WithRequestID("req-1"),
		WithLocale("zh"),
		WithDetails(map[string]interface{}{"subject": "VPN服務咨詢"}),
	)

	var entry LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))

	assert.Equal(t, SeverityInfo, entry.Severity)
	assert.Equal(t, "聯絡表單已送出", entry.Message)
	assert.Equal(t, "contact_submit", entry.Action)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "zh", entry.Locale)
	assert.True(t, strings.HasSuffix(entry.TraceID, "/traces/abc123"))
	assert.NotEmpty(t, entry.InsertID)
	require.NotNil(t, entry.SourceLocation)
	assert.Equal(t, "logger_test.go", entry.SourceLocation.File)
}

func TestWithLabelsMergesServiceLabel(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Warning(context.Background(), "限流後端異常", WithLabels(map[string]string{"backend": "redis"}))

	var entry LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, SeverityWarning, entry.Severity)
	assert.Equal(t, "redis", entry.Labels["backend"])
	assert.NotEmpty(t, entry.Labels["service"])
}

func TestGetTraceIDWithoutValue(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetTraceID(nil)) //nolint:staticcheck
}
