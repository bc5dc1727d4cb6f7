// Package globalerrors defines error types shared by the repository clients.
package globalerrors

import (
	"fmt"

	"github.com/meza/mod-reconciler/internal/models"
)

// ProjectNotFoundError means the repository answered 404 for the project.
type ProjectNotFoundError struct {
	ProjectID string
	Platform  models.Platform
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("%s: no project %s", e.Platform, e.ProjectID)
}

// Is matches another ProjectNotFoundError for the same project.
func (e *ProjectNotFoundError) Is(target error) bool {
	other, ok := target.(*ProjectNotFoundError)
	return ok && other.ProjectID == e.ProjectID && other.Platform == e.Platform
}

// ProjectAPIError covers every other failed exchange with a repository,
// including a 5xx left over after the transport exhausted its retries.
// StatusCode stays zero when no response arrived.
type ProjectAPIError struct {
	ProjectID  string
	Platform   models.Platform
	StatusCode int
	Err        error
}

func (e *ProjectAPIError) Error() string {
	msg := fmt.Sprintf("%s: fetching project %s failed", e.Platform, e.ProjectID)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	return msg
}

// Is ignores the status and cause; callers match on the project.
func (e *ProjectAPIError) Is(target error) bool {
	other, ok := target.(*ProjectAPIError)
	return ok && other.ProjectID == e.ProjectID && other.Platform == e.Platform
}

func (e *ProjectAPIError) Unwrap() error {
	return e.Err
}

func ProjectAPIErrorWrap(err error, projectID string, platform models.Platform) error {
	return &ProjectAPIError{ProjectID: projectID, Platform: platform, Err: err}
}

func ProjectAPIStatusError(statusCode int, projectID string, platform models.Platform) error {
	return &ProjectAPIError{
		ProjectID:  projectID,
		Platform:   platform,
		StatusCode: statusCode,
		Err:        fmt.Errorf("unexpected status code: %d", statusCode),
	}
}
