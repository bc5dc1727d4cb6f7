package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

type statErrorFs struct {
	afero.Fs
	failPath string
	err      error
}

func (filesystem statErrorFs) Stat(name string) (os.FileInfo, error) {
	if filepath.Clean(name) == filepath.Clean(filesystem.failPath) {
		if filesystem.err != nil {
			return nil, filesystem.err
		}
		return nil, errors.New("stat failed")
	}
	return filesystem.Fs.Stat(name)
}

type openErrorFs struct {
	afero.Fs
	failPath string
	err      error
}

func (filesystem openErrorFs) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == filepath.Clean(filesystem.failPath) {
		return nil, filesystem.err
	}
	return filesystem.Fs.Open(name)
}

type renameFailFs struct {
	afero.Fs
	failures []renameFailure
}

type renameFailure struct {
	old                string
	new                string
	onlyWhenDestExists bool
	err                error
}

func (filesystem renameFailFs) Rename(oldname, newname string) error {
	for _, failure := range filesystem.failures {
		if failure.old != "" && oldname != failure.old {
			continue
		}
		if failure.new != "" && newname != failure.new {
			continue
		}
		if failure.onlyWhenDestExists {
			exists, err := afero.Exists(filesystem.Fs, newname)
			if err != nil || !exists {
				continue
			}
		}
		if failure.err != nil {
			return failure.err
		}
		return errors.New("rename failed")
	}
	return filesystem.Fs.Rename(oldname, newname)
}

type removeErrorFs struct {
	afero.Fs
	failPaths map[string]error
}

func (filesystem removeErrorFs) Remove(name string) error {
	if err, ok := filesystem.failPaths[filepath.Clean(name)]; ok {
		return err
	}
	return filesystem.Fs.Remove(name)
}
