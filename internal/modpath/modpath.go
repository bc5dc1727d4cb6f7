// Package modpath keeps writes inside the mods folder when parts of it are
// symlinks.
package modpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// OutsideRootError is returned when a destination, once its symlinks are
// followed, lands outside the mods folder.
type OutsideRootError struct {
	Path         string
	ResolvedPath string
	Root         string
}

func (err *OutsideRootError) Error() string {
	return fmt.Sprintf("%s resolves to %s, outside the mods folder %s", err.Path, err.ResolvedPath, err.Root)
}

// linkFs is the part of afero that can see symlinks. Only OsFs and the
// wrappers around it provide it.
type linkFs interface {
	afero.Lstater
	afero.LinkReader
}

type resolver struct {
	fs           linkFs
	evalSymlinks func(string) (string, error)
	abs          func(string) (string, error)
}

// ResolveWritablePath returns the real location destination will be written
// to, or an *OutsideRootError when that is not under root. The directory of
// destination and root must already exist. On file systems without symlinks
// destination comes back unchanged.
func ResolveWritablePath(fs afero.Fs, root string, destination string) (string, error) {
	links, ok := fs.(linkFs)
	if !ok {
		return destination, nil
	}
	return resolver{fs: links, evalSymlinks: filepath.EvalSymlinks, abs: filepath.Abs}.resolve(root, destination)
}

func (r resolver) resolve(root string, destination string) (string, error) {
	realRoot, err := r.real(root)
	if err != nil {
		return "", err
	}

	info, _, err := r.fs.LstatIfPossible(destination)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	target := destination
	if err == nil && info.Mode()&os.ModeSymlink != 0 {
		link, err := r.fs.ReadlinkIfPossible(destination)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(link) {
			link = filepath.Join(filepath.Dir(destination), link)
		}
		target = link
	}

	realDir, err := r.real(filepath.Dir(target))
	if err != nil {
		return "", err
	}
	resolved := filepath.Join(realDir, filepath.Base(target))

	if !within(realRoot, resolved) {
		return "", &OutsideRootError{Path: destination, ResolvedPath: resolved, Root: realRoot}
	}
	return resolved, nil
}

func (r resolver) real(path string) (string, error) {
	evaluated, err := r.evalSymlinks(path)
	if err != nil {
		return "", err
	}
	return r.abs(evaluated)
}

func within(root string, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
