// Package modfilename validates file names reported by the repositories or
// read from the lock file before they are joined onto the mods folder.
package modfilename

import (
	"path/filepath"
	"strings"
)

type ErrorReason string

const (
	ReasonEmpty       ErrorReason = "empty"
	ReasonDriveLetter ErrorReason = "drive_letter"
	ReasonUNCPath     ErrorReason = "unc_path"
	ReasonSeparator   ErrorReason = "path_separator"
	ReasonExtension   ErrorReason = "extension"
)

type Error struct {
	Value  string
	Reason ErrorReason
}

func (err Error) Error() string {
	if err.Value == "" {
		return "invalid mod filename: " + string(err.Reason)
	}
	return "invalid mod filename " + err.Value + ": " + string(err.Reason)
}

// Normalize returns the trimmed name, or an Error when the name could leave
// the mods folder or is not a jar. Both slash kinds count as separators on
// every OS since lock files travel between machines.
func Normalize(value string) (string, error) {
	name := strings.TrimSpace(value)
	if reason := problem(name); reason != "" {
		return "", Error{Value: name, Reason: reason}
	}
	return name, nil
}

func problem(name string) ErrorReason {
	switch {
	case name == "":
		return ReasonEmpty
	case strings.HasPrefix(name, `\\`), strings.HasPrefix(name, "//"):
		return ReasonUNCPath
	case len(name) >= 2 && name[1] == ':' && isLetter(name[0]):
		return ReasonDriveLetter
	case strings.ContainsAny(name, `/\`), name == ".", name == "..":
		return ReasonSeparator
	case !strings.EqualFold(filepath.Ext(name), ".jar"):
		return ReasonExtension
	}
	return ""
}

// Display is the name as shown in messages.
func Display(value string) string {
	if name := strings.TrimSpace(value); name != "" {
		return name
	}
	return "(empty)"
}

func isLetter(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
