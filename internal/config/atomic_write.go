package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

const defaultFileMode os.FileMode = 0o644

// atomicWrite replaces target with new content without ever leaving a
// truncated file behind. Content goes to a sibling temp file first; an
// existing target is moved to a backup only when an overwrite-rename is not
// supported, and the backup is restored if the swap fails.
type atomicWrite struct {
	fs     afero.Fs
	target string
	temp   string
	backup string
}

func writeFileAtomic(fs afero.Fs, targetPath string, data []byte, perm os.FileMode) error {
	write := atomicWrite{fs: fs, target: targetPath}

	var err error
	if write.temp, err = nextSiblingPath(fs, targetPath, ".tmp"); err != nil {
		return err
	}
	if write.backup, err = nextSiblingPath(fs, targetPath, ".bak"); err != nil {
		return err
	}

	if err := afero.WriteFile(fs, write.temp, data, perm); err != nil {
		return write.discardTemp(err)
	}

	exists, err := afero.Exists(fs, targetPath)
	if err != nil {
		return write.discardTemp(err)
	}
	if !exists {
		if err := fs.Rename(write.temp, write.target); err != nil {
			return write.discardTemp(err)
		}
		return nil
	}
	return write.swap()
}

func (write atomicWrite) swap() error {
	if err := write.fs.Rename(write.temp, write.target); err == nil {
		return nil
	}

	if err := write.fs.Rename(write.target, write.backup); err != nil {
		return write.discardTemp(err)
	}

	if err := write.fs.Rename(write.temp, write.target); err != nil {
		return write.restore(err)
	}

	if err := removeIfExists(write.fs, write.backup); err != nil {
		return fmt.Errorf("failed to remove backup file %s: %w", write.backup, err)
	}
	return nil
}

func (write atomicWrite) discardTemp(cause error) error {
	if err := removeIfExists(write.fs, write.temp); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to remove temp file %s: %w", write.temp, err))
	}
	return cause
}

func (write atomicWrite) restore(cause error) error {
	cause = write.discardTemp(cause)
	if err := write.fs.Rename(write.backup, write.target); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to restore backup %s: %w", write.backup, err))
	}
	return cause
}

// nextSiblingPath finds a free name next to target. Leftovers from an
// interrupted run are skipped rather than overwritten.
func nextSiblingPath(fs afero.Fs, targetPath string, suffix string) (string, error) {
	base := targetPath + ".mmm" + suffix

	candidate := base
	for i := 1; i <= 100; i++ {
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s.%d", base, i)
	}
	return "", fmt.Errorf("cannot allocate a free path next to %s", targetPath)
}

func removeIfExists(fs afero.Fs, path string) error {
	err := fs.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
