package reconcile

import (
	"errors"
	"fmt"

	"github.com/meza/mod-reconciler/internal/models"
)

var ErrReconcileFailures = errors.New("one or more mods failed to reconcile")

type IntegrityReason string

const (
	ReasonDuplicateLockEntry IntegrityReason = "duplicate lock entries"
	ReasonDuplicateMod       IntegrityReason = "declared more than once"
	ReasonMissingID          IntegrityReason = "missing project id"
	ReasonMissingFileName    IntegrityReason = "lock entry has no file name"
	ReasonMissingHash        IntegrityReason = "lock entry has no hash"
	ReasonMissingDownloadURL IntegrityReason = "lock entry has no download url"
)

// IntegrityError reports manifest or lock state that cannot be reconciled
// without guessing. It only ever fails the one mod it names.
type IntegrityError struct {
	Platform models.Platform
	ID       string
	Reason   IntegrityReason
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error for %s:%s: %s", e.Platform, e.ID, e.Reason)
}

func (e *IntegrityError) Is(target error) bool {
	other, ok := target.(*IntegrityError)
	if !ok {
		return false
	}
	return other.Reason == "" || other.Reason == e.Reason
}

// UnexpectedError wraps failures that fit no other category.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error: %v", e.Err)
}

func (e *UnexpectedError) Unwrap() error {
	return e.Err
}

// ItemError ties a failure to the mod it happened to.
type ItemError struct {
	Platform models.Platform
	ID       string
	Name     string
	Err      error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s (%s:%s): %v", e.Name, e.Platform, e.ID, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}
