package platform

import (
	"fmt"

	"github.com/meza/mod-reconciler/internal/models"
)

// UnknownPlatformError is returned for a declared platform no adapter serves.
type UnknownPlatformError struct {
	Platform string
}

func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("no repository adapter for platform %q", e.Platform)
}

// ModNotFoundError means the repository does not know the project at all.
type ModNotFoundError struct {
	Platform  models.Platform
	ProjectID string
}

func (e *ModNotFoundError) Error() string {
	return fmt.Sprintf("%s has no project %s", e.Platform, e.ProjectID)
}

// NoCompatibleFileError means the project exists but none of its files pass
// the loader, game version, release type and pin filters.
type NoCompatibleFileError struct {
	Platform  models.Platform
	ProjectID string
}

func (e *NoCompatibleFileError) Error() string {
	return fmt.Sprintf("%s project %s has no file for this configuration", e.Platform, e.ProjectID)
}
