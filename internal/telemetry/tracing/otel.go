package tracing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// OTelTracerOptions configures NewOTelTracer. ServiceName names the
// tracer; deployments wanting a real exporter attach one to a custom
// sdktrace.TracerProvider and pass it via TracerProvider instead of
// leaving it nil.
type OTelTracerOptions struct {
	ServiceName    string
	TracerProvider *sdktrace.TracerProvider
}

// NewOTelTracer returns a Tracer backed by an OpenTelemetry tracer. It
// exists alongside the simple in-process tracer for deployments that
// already run an OTEL collector pipeline, the same way the metrics
// package offers an otel provider next to the Prometheus one.
func NewOTelTracer(opts OTelTracerOptions) Tracer {
	tp := opts.TracerProvider
	if tp == nil {
		tp = sdktrace.NewTracerProvider()
	}
	name := opts.ServiceName
	if name == "" {
		name = "tina"
	}
	return &otelTracer{tr: tp.Tracer(name)}
}

type otelTracer struct{ tr trace.Tracer }

func (t *otelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	parent := trace.SpanContextFromContext(ctx)
	cctx, sp := t.tr.Start(ctx, name)
	sc := sp.SpanContext()
	wrapped := &otelSpan{
		sp: sp,
		ctx: SpanContext{
			TraceID: sc.TraceID().String(),
			SpanID:  sc.SpanID().String(),
			Start:   time.Now(),
		},
	}
	if parent.IsValid() {
		wrapped.ctx.ParentSpanID = parent.SpanID().String()
	}
	return cctx, wrapped
}

func (t *otelTracer) Noop() bool { return false }

type otelSpan struct {
	sp    trace.Span
	mu    sync.Mutex
	ended bool
	ctx   SpanContext
}

func (s *otelSpan) End() {
	s.mu.Lock()
	if !s.ended {
		s.ctx.End = time.Now()
		s.ended = true
		s.sp.End()
	}
	s.mu.Unlock()
}

func (s *otelSpan) SetAttribute(key string, value any) {
	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()
	if ended {
		return
	}
	switch v := value.(type) {
	case string:
		s.sp.SetAttributes(attribute.String(key, v))
	case bool:
		s.sp.SetAttributes(attribute.Bool(key, v))
	case int:
		s.sp.SetAttributes(attribute.Int(key, v))
	case int64:
		s.sp.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.sp.SetAttributes(attribute.Float64(key, v))
	default:
		s.sp.SetAttributes(attribute.String(key, fmt.Sprint(v)))
	}
}

func (s *otelSpan) Context() SpanContext { return s.ctx }

func (s *otelSpan) IsEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}
