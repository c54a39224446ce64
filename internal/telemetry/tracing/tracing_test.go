package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopTracerNeverTracks(t *testing.T) {
	tr := NewTracer(false)
	assert.True(t, tr.Noop())
	_, span := tr.StartSpan(context.Background(), "op")
	assert.True(t, span.IsEnded())
	traceID, spanID := ExtractIDs(context.Background())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)
}

func TestSimpleTracerAssignsIDsAndPropagatesTraceID(t *testing.T) {
	tr := NewTracer(true)
	assert.False(t, tr.Noop())

	ctx, span := tr.StartSpan(context.Background(), "reader")
	require.False(t, span.IsEnded())
	traceID, spanID := ExtractIDs(ctx)
	assert.NotEmpty(t, traceID)
	assert.NotEmpty(t, spanID)

	childCtx, childSpan := tr.StartSpan(ctx, "drain")
	childTraceID, childSpanID := ExtractIDs(childCtx)
	assert.Equal(t, traceID, childTraceID, "child span must share the root trace id")
	assert.NotEqual(t, spanID, childSpanID)

	span.End()
	assert.True(t, span.IsEnded())
	_ = childSpan
}

func TestSetAttributeDoesNotPanicAfterEnd(t *testing.T) {
	tr := NewTracer(true)
	_, span := tr.StartSpan(context.Background(), "op")
	span.SetAttribute("reader", 1)
	span.End()
	span.SetAttribute("late", true)
}

func TestOTelTracerAssignsIDsAndPropagatesTraceID(t *testing.T) {
	tr := NewOTelTracer(OTelTracerOptions{ServiceName: "tina-test"})
	assert.False(t, tr.Noop())

	ctx, span := tr.StartSpan(context.Background(), "reader")
	require.False(t, span.IsEnded())
	traceID, spanID := ExtractIDs(ctx)
	assert.NotEmpty(t, traceID)
	assert.NotEmpty(t, spanID)

	childCtx, childSpan := tr.StartSpan(ctx, "drain")
	childTraceID, childSpanID := ExtractIDs(childCtx)
	assert.Equal(t, traceID, childTraceID, "child span must share the root trace id")
	assert.NotEqual(t, spanID, childSpanID)
	assert.Equal(t, spanID, childSpan.Context().ParentSpanID)

	span.SetAttribute("id", "abc")
	span.End()
	assert.True(t, span.IsEnded())
	span.SetAttribute("late", true)
	childSpan.End()
}

func TestExtractIDsOnBareContextIsEmpty(t *testing.T) {
	traceID, spanID := ExtractIDs(context.Background())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)
}
