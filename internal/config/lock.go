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

// EnsureLock reads the lock file, creating an empty one when there is none.
func EnsureLock(ctx context.Context, fs afero.Fs, meta Metadata) ([]models.ModInstall, error) {
	ctx, span := perf.StartSpan(ctx, "io.config.lock.ensure", perf.WithAttributes(attribute.String("path", meta.LockPath())))
	defer span.End()

	exists, err := afero.Exists(fs, meta.LockPath())
	if err != nil {
		return nil, fmt.Errorf("failed to check lock file: %w", err)
	}
	if !exists {
		empty := make([]models.ModInstall, 0)
		if err := WriteLock(ctx, fs, meta, empty); err != nil {
			return nil, err
		}
		return empty, nil
	}

	return ReadLock(ctx, fs, meta)
}

// ReadLock returns the recorded installs. A missing lock file reads as empty.
func ReadLock(ctx context.Context, fs afero.Fs, meta Metadata) ([]models.ModInstall, error) {
	_, span := perf.StartSpan(ctx, "io.config.lock.read", perf.WithAttributes(attribute.String("path", meta.LockPath())))
	defer span.End()

	data, err := afero.ReadFile(fs, meta.LockPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.ModInstall{}, nil
		}
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	var lock []models.ModInstall
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, &ConfigFileInvalidError{Path: meta.LockPath(), Err: err}
	}
	if lock == nil {
		lock = []models.ModInstall{}
	}
	span.SetAttributes(attribute.Int("entries", len(lock)))
	return lock, nil
}

func WriteLock(ctx context.Context, fs afero.Fs, meta Metadata, lock []models.ModInstall) error {
	_, span := perf.StartSpan(ctx, "io.config.lock.write", perf.WithAttributes(attribute.String("path", meta.LockPath())))
	defer span.End()

	if lock == nil {
		lock = []models.ModInstall{}
	}
	return writeJSON(fs, meta.LockPath(), lock)
}
