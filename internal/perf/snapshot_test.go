package perf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestGetSpansWhileDisabled(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	spans, err := GetSpans()
	assert.ErrorIs(t, err, ErrNotEnabled)
	assert.Nil(t, spans)
	assert.Nil(t, MustGetSpans())
}

func TestGetSpansLinksChildrenToParents(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	require.NoError(t, Init(Config{Enabled: true}))

	ctx, run := StartSpan(context.Background(), "reconcile.run", WithAttributes(attribute.String("config_path", "/pack/modlist.json")))
	_, mod := StartSpan(ctx, "reconcile.mod")
	mod.AddEvent("retry", attribute.Int("attempt", 2))
	mod.SetAttributes(attribute.Bool("success", false))
	mod.End()
	run.End()

	spans, err := GetSpans()
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "reconcile.mod", spans[0].Name)

	parent, ok := FindSpanByName(spans, "reconcile.run")
	require.True(t, ok)
	assert.Equal(t, "/pack/modlist.json", parent.Attributes["config_path"])
	assert.Empty(t, parent.ParentSpanID)

	child, ok := FindSpanByName(spans, "reconcile.mod")
	require.True(t, ok)
	assert.Equal(t, parent.SpanID, child.ParentSpanID)
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, false, child.Attributes["success"])
	require.Len(t, child.Events, 1)
	assert.Equal(t, "retry", child.Events[0].Name)
	assert.Equal(t, int64(2), child.Events[0].Attributes["attempt"])
	assert.False(t, child.EndTime.Before(child.StartTime))
}

func TestFindSpanByNameMiss(t *testing.T) {
	span, ok := FindSpanByName(nil, "scan.run")
	assert.False(t, ok)
	assert.Equal(t, SpanSnapshot{}, span)
}

func TestSpanWithoutAttributesHasNilMap(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	require.NoError(t, Init(Config{Enabled: true}))

	_, span := StartSpan(context.Background(), "bare")
	span.End()

	bare, ok := FindSpanByName(MustGetSpans(), "bare")
	require.True(t, ok)
	assert.Nil(t, bare.Attributes)
	assert.Nil(t, bare.Events)
}
