package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/perf"
)

var marshalIndent = json.MarshalIndent

// EnsureConfiguration loads the manifest. A missing manifest is a
// ConfigFileNotFoundError; this package never creates one.
func EnsureConfiguration(ctx context.Context, fs afero.Fs, meta Metadata) (models.ModsJSON, error) {
	_, span := perf.StartSpan(ctx, "io.config.read", perf.WithAttributes(attribute.String("path", meta.ConfigPath)))
	defer span.End()

	data, err := afero.ReadFile(fs, meta.ConfigPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.ModsJSON{}, &ConfigFileNotFoundError{Path: meta.ConfigPath, Err: err}
		}
		return models.ModsJSON{}, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg models.ModsJSON
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.ModsJSON{}, &ConfigFileInvalidError{Path: meta.ConfigPath, Err: err}
	}
	if cfg.Mods == nil {
		cfg.Mods = []models.Mod{}
	}
	span.SetAttributes(attribute.Int("mods", len(cfg.Mods)))
	return cfg, nil
}

func WriteConfig(ctx context.Context, fs afero.Fs, meta Metadata, cfg models.ModsJSON) error {
	_, span := perf.StartSpan(ctx, "io.config.write", perf.WithAttributes(attribute.String("path", meta.ConfigPath)))
	defer span.End()

	if cfg.Mods == nil {
		cfg.Mods = []models.Mod{}
	}
	return writeJSON(fs, meta.ConfigPath, cfg)
}

func writeJSON(fs afero.Fs, path string, value any) error {
	data, err := marshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return writeFileAtomic(fs, path, append(data, '\n'), defaultFileMode)
}
