package perf

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/meza/mod-reconciler/internal/constants"
)

var defaultExportFilename = constants.PerfExportFile

type exportSpan struct {
	Name         string                 `json:"name"`
	TraceID      string                 `json:"trace_id"`
	SpanID       string                 `json:"span_id"`
	ParentSpanID string                 `json:"parent_span_id,omitempty"`
	Start        time.Time              `json:"start"`
	DurationNS   int64                  `json:"duration_ns"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
	Events       []exportEvent          `json:"events,omitempty"`
}

type exportEvent struct {
	Name       string                 `json:"name"`
	Timestamp  time.Time              `json:"timestamp"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// ExportToFile writes the spans as JSON to <outDir>/mmm-perf.json.
// Absolute paths under path-like attribute keys are rewritten relative to
// baseDir so the output stays portable.
//
// Callers should treat a returned error as non-fatal.
func ExportToFile(fs afero.Fs, outDir string, baseDir string, spans []SpanSnapshot) (string, error) {
	if outDir == "" {
		outDir = "."
	}

	exported := make([]exportSpan, 0, len(spans))
	for _, span := range spans {
		exported = append(exported, toExportSpan(span, baseDir))
	}

	if err := fs.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(outDir, defaultExportFilename)
	data, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return "", err
	}

	return path, afero.WriteFile(fs, path, data, 0644)
}

func toExportSpan(span SpanSnapshot, baseDir string) exportSpan {
	out := exportSpan{
		Name:         span.Name,
		TraceID:      span.TraceID,
		SpanID:       span.SpanID,
		ParentSpanID: span.ParentSpanID,
		Start:        span.StartTime,
		DurationNS:   span.EndTime.Sub(span.StartTime).Nanoseconds(),
		Attributes:   normalizeAttributes(span.Attributes, baseDir),
	}
	for _, event := range span.Events {
		out.Events = append(out.Events, exportEvent{
			Name:       event.Name,
			Timestamp:  event.Timestamp,
			Attributes: normalizeAttributes(event.Attributes, baseDir),
		})
	}
	return out
}

func normalizeAttributes(attrs map[string]interface{}, baseDir string) map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}

	normalized := make(map[string]interface{}, len(attrs))
	for key, value := range attrs {
		normalized[key] = normalizeValue(key, value, baseDir)
	}
	return normalized
}

func normalizeValue(key string, value interface{}, baseDir string) interface{} {
	stringValue, ok := value.(string)
	if !ok || !looksLikePathKey(key) {
		return value
	}

	if baseDir != "" && filepath.IsAbs(stringValue) {
		if rel, err := filepath.Rel(baseDir, stringValue); err == nil {
			return exportPath(rel)
		}
	}

	return exportPath(stringValue)
}

func looksLikePathKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	return key == "path" || strings.HasSuffix(key, "_path") || strings.HasSuffix(key, ".path")
}

func exportPath(value string) string {
	cleaned := filepath.Clean(value)
	if cleaned == "." {
		return cleaned
	}
	return filepath.ToSlash(strings.TrimPrefix(cleaned, "./"))
}
