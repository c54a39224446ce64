package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tina/internal/telemetry/tracing"
)

func newTestLogger(buf *bytes.Buffer) Logger {
	return New(slog.New(slog.NewJSONHandler(buf, nil)))
}

func TestLoggerWithoutSpanOmitsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.InfoCtx(context.Background(), "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	_, hasTrace := line["trace_id"]
	assert.False(t, hasTrace)
}

func TestLoggerWithSpanIncludesCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	tr := tracing.NewTracer(true)
	ctx, span := tr.StartSpan(context.Background(), "reader")
	defer span.End()

	l.WarnCtx(ctx, "lost connection")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "lost connection", line["msg"])
	assert.NotEmpty(t, line["trace_id"])
	assert.NotEmpty(t, line["span_id"])
}

func TestNewWithNilBaseFallsBackToDefault(t *testing.T) {
	l := New(nil)
	assert.NotPanics(t, func() { l.DebugCtx(context.Background(), "noop") })
}

func TestAllLevelsWrite(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.DebugCtx(context.Background(), "d")
	l.InfoCtx(context.Background(), "i")
	l.WarnCtx(context.Background(), "w")
	l.ErrorCtx(context.Background(), "e")

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	assert.Equal(t, 4, lines)
}
