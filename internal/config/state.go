package config

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/meza/mod-reconciler/internal/models"
)

// WriteState persists the lock file and then the manifest, each atomically.
// The pair is not atomic: if the process dies between the two renames the
// lock is newer than the manifest. The next run treats any lock entry without
// a resolved name as still valid, so nothing is lost.
func WriteState(ctx context.Context, fs afero.Fs, meta Metadata, cfg models.ModsJSON, lock []models.ModInstall) error {
	if err := WriteLock(ctx, fs, meta, lock); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := WriteConfig(ctx, fs, meta, cfg); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}
