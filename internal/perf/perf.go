// Package perf records OpenTelemetry spans for --perf. Tracing is a no-op
// until Init enables it; recorded spans stay in memory until exported.
package perf

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/meza/mod-reconciler/internal/constants"
)

type Config struct {
	Enabled bool
}

var ErrNotEnabled = errors.New("performance tracing is not enabled")

type recorder struct {
	exporter *tracetest.InMemoryExporter
	provider *sdktrace.TracerProvider
}

var (
	mu     sync.RWMutex
	active *recorder
	tracer trace.Tracer = noop.NewTracerProvider().Tracer(constants.AppName)
)

// Init replaces the current recorder. Spans recorded before the call are lost.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if active != nil {
		if err := active.provider.Shutdown(context.Background()); err != nil {
			return err
		}
		active = nil
	}

	if !cfg.Enabled {
		tracer = noop.NewTracerProvider().Tracer(constants.AppName)
		return nil
	}

	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(provider)
	active = &recorder{exporter: exporter, provider: provider}
	tracer = provider.Tracer(constants.AppName)
	return nil
}

// Reset turns tracing off again. Tests call it in cleanup.
func Reset() {
	_ = Init(Config{Enabled: false})
}

func Shutdown(ctx context.Context) error {
	mu.RLock()
	current := active
	mu.RUnlock()
	if current == nil {
		return nil
	}
	return current.provider.ForceFlush(ctx)
}

// Span is nil-safe so callers never need to check whether tracing is on.
type Span struct {
	span trace.Span
}

func (span *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if span == nil || span.span == nil {
		return
	}
	span.span.SetAttributes(attrs...)
}

func (span *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	if span == nil || span.span == nil {
		return
	}
	span.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (span *Span) End() {
	if span == nil || span.span == nil {
		return
	}
	span.span.End()
}

type SpanOption func(*[]attribute.KeyValue)

func WithAttributes(attrs ...attribute.KeyValue) SpanOption {
	return func(collected *[]attribute.KeyValue) {
		*collected = append(*collected, attrs...)
	}
}

func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	var attrs []attribute.KeyValue
	for _, opt := range opts {
		opt(&attrs)
	}

	mu.RLock()
	current := tracer
	mu.RUnlock()

	ctx, span := current.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Span{span: span}
}

func recorded() (tracetest.SpanStubs, error) {
	mu.RLock()
	current := active
	mu.RUnlock()
	if current == nil {
		return nil, ErrNotEnabled
	}
	return current.exporter.GetSpans(), nil
}
