package perf

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// SpanSnapshot is an ended span flattened for assertions and export.
type SpanSnapshot struct {
	Name         string
	TraceID      string
	SpanID       string
	ParentSpanID string
	StartTime    time.Time
	EndTime      time.Time
	Attributes   map[string]interface{}
	Events       []EventSnapshot
}

type EventSnapshot struct {
	Name       string
	Timestamp  time.Time
	Attributes map[string]interface{}
}

// GetSpans lists the spans ended since Init in the order they ended.
func GetSpans() ([]SpanSnapshot, error) {
	stubs, err := recorded()
	if err != nil {
		return nil, err
	}

	spans := make([]SpanSnapshot, len(stubs))
	for i, stub := range stubs {
		spans[i] = fromStub(stub)
	}
	return spans, nil
}

// MustGetSpans is GetSpans for tests; it is nil while tracing is off.
func MustGetSpans() []SpanSnapshot {
	spans, _ := GetSpans()
	return spans
}

func FindSpanByName(spans []SpanSnapshot, name string) (SpanSnapshot, bool) {
	for _, span := range spans {
		if span.Name == name {
			return span, true
		}
	}
	return SpanSnapshot{}, false
}

func fromStub(stub tracetest.SpanStub) SpanSnapshot {
	span := SpanSnapshot{
		Name:       stub.Name,
		TraceID:    stub.SpanContext.TraceID().String(),
		SpanID:     stub.SpanContext.SpanID().String(),
		StartTime:  stub.StartTime,
		EndTime:    stub.EndTime,
		Attributes: toMap(stub.Attributes),
	}
	if stub.Parent.IsValid() {
		span.ParentSpanID = stub.Parent.SpanID().String()
	}
	for _, event := range stub.Events {
		span.Events = append(span.Events, EventSnapshot{
			Name:       event.Name,
			Timestamp:  event.Time,
			Attributes: toMap(event.Attributes),
		})
	}
	return span
}

func toMap(attrs []attribute.KeyValue) map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(attrs))
	for _, kv := range attrs {
		values[string(kv.Key)] = kv.Value.AsInterface()
	}
	return values
}
