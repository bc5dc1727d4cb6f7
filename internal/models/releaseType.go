package models

import (
	"slices"
	"strings"
)

type ReleaseType string

const (
	Alpha   ReleaseType = "alpha"
	Beta    ReleaseType = "beta"
	Release ReleaseType = "release"
)

// ContainsReleaseType matches labels case-insensitively; manifests written
// by hand often say "Release".
func ContainsReleaseType(allowed []ReleaseType, candidate ReleaseType) bool {
	return slices.ContainsFunc(allowed, func(releaseType ReleaseType) bool {
		return strings.EqualFold(string(releaseType), string(candidate))
	})
}
