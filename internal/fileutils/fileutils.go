// Package fileutils holds small afero helpers shared by the commands.
package fileutils

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// InitFilesystem returns the first filesystem given, or the OS filesystem.
// Commands take a variadic afero.Fs so tests can inject a MemMapFs.
func InitFilesystem(filesystem ...afero.Fs) afero.Fs {
	if len(filesystem) > 0 && filesystem[0] != nil {
		return filesystem[0]
	}
	return afero.NewOsFs()
}

// FileExists reports whether a regular file exists at path. A directory with
// the same name does not count. Stat failures other than not-exist are
// returned so callers can tell "gone" from "unreadable".
func FileExists(fs afero.Fs, path string) (bool, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil || !exists {
		return false, err
	}
	isDir, err := afero.IsDir(fs, path)
	if err != nil {
		return false, err
	}
	return !isDir, nil
}

// ListFiles returns the names of the regular files directly inside dir whose
// extension matches ext case-insensitively, sorted. A missing dir is empty.
func ListFiles(fs afero.Fs, dir string, ext string) ([]string, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil || !exists {
		return []string{}, err
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
