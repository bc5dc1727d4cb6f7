package modrinth

import (
	"errors"
	"fmt"
)

type HashLookup struct {
	Hash      string
	Algorithm VersionAlgorithm
}

func (lookup HashLookup) String() string {
	return string(lookup.Algorithm) + ":" + lookup.Hash
}

// HashLookupError means a version_file lookup produced no version. NotFound
// is set when Modrinth knows no file with that hash; anything else is an API
// failure carried in Err.
type HashLookupError struct {
	Lookup   HashLookup
	NotFound bool
	Err      error
}

func (e *HashLookupError) Error() string {
	switch {
	case e.NotFound:
		return fmt.Sprintf("no modrinth version has a file with %s", e.Lookup)
	case e.Err != nil:
		return fmt.Sprintf("looking up %s on modrinth: %s", e.Lookup, e.Err)
	}
	return fmt.Sprintf("looking up %s on modrinth failed", e.Lookup)
}

func (e *HashLookupError) Unwrap() error {
	return e.Err
}

// IsHashNotFound reports whether err is a lookup miss rather than a failure.
func IsHashNotFound(err error) bool {
	var lookupErr *HashLookupError
	return errors.As(err, &lookupErr) && lookupErr.NotFound
}
