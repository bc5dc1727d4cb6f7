// Package filehash computes the content digests used to decide whether an
// installed file is still the one the lock file recorded.
package filehash

import (
	"crypto/sha1" // #nosec G505 -- sha1 is what both repositories publish.
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// FileUnreadableError means the path could not be opened or read.
type FileUnreadableError struct {
	Path string
	Err  error
}

func (e *FileUnreadableError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *FileUnreadableError) Unwrap() error {
	return e.Err
}

// SHA1ForFile returns the lowercase hex sha1 of the file content. Only the
// bytes count; names and timestamps do not.
func SHA1ForFile(fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", &FileUnreadableError{Path: path, Err: err}
	}
	defer func() { _ = file.Close() }()

	hasher := sha1.New() // #nosec G401 -- integrity check against repository metadata, not a signature.
	if _, err := io.Copy(hasher, file); err != nil {
		return "", &FileUnreadableError{Path: path, Err: err}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
