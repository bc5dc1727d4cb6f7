// Package modinstall downloads artifacts into the mods folder. Bytes land in
// a temp file next to the destination, are verified, and only then replace
// whatever was there.
package modinstall

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/filehash"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/modpath"
	"github.com/meza/mod-reconciler/internal/perf"
)

type Downloader func(context.Context, string, string, httpclient.Doer, httpclient.Sender, ...afero.Fs) error

type HashMismatchError struct {
	FileName string
	Expected string
	Actual   string
}

func (err HashMismatchError) Error() string {
	return fmt.Sprintf("downloaded file hash mismatch for %s: expected %s, got %s", err.FileName, err.Expected, err.Actual)
}

// Progress hands out the receiver of one file's download progress. It is
// called once per Install with the destination's file name.
type Progress func(fileName string) httpclient.Sender

type Installer struct {
	fs         afero.Fs
	downloader Downloader
	client     httpclient.Doer
	progress   Progress
}

// NewInstaller falls back to httpclient.DownloadFile and to dropping progress
// when downloader or progress is nil.
func NewInstaller(fs afero.Fs, downloader Downloader, client httpclient.Doer, progress Progress) *Installer {
	if downloader == nil {
		downloader = httpclient.DownloadFile
	}
	if progress == nil {
		progress = func(string) httpclient.Sender { return httpclient.NoopSender() }
	}
	return &Installer{
		fs:         fs,
		downloader: downloader,
		client:     client,
		progress:   progress,
	}
}

// Install fetches url into destination and returns the sha1 of what was
// written. A non-empty expectedHash must match (case-insensitively) or the
// destination is left untouched and a HashMismatchError is returned. An empty
// expectedHash adopts whatever was downloaded. A destination that symlinks
// out of root is refused with a *modpath.OutsideRootError before anything is
// fetched.
func (installer *Installer) Install(ctx context.Context, url string, root string, destination string, expectedHash string) (hash string, returnErr error) {
	ctx, span := perf.StartSpan(ctx, "modinstall.install",
		perf.WithAttributes(
			attribute.String("url", url),
			attribute.String("path", destination),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Bool("success", returnErr == nil))
		span.End()
	}()

	if err := installer.fs.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(destination), err)
	}

	target, err := modpath.ResolveWritablePath(installer.fs, root, destination)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(target)

	tempFile, err := afero.TempFile(installer.fs, dir, filepath.Base(target)+".mmm.*.tmp")
	if err != nil {
		return "", err
	}
	tempPath := tempFile.Name()
	if err := tempFile.Close(); err != nil {
		return "", installer.discard(tempPath, err)
	}

	if err := installer.downloader(ctx, url, tempPath, installer.client, installer.progress(filepath.Base(destination)), installer.fs); err != nil {
		return "", installer.discard(tempPath, err)
	}

	actual, err := filehash.SHA1ForFile(installer.fs, tempPath)
	if err != nil {
		return "", installer.discard(tempPath, err)
	}

	expected := strings.TrimSpace(expectedHash)
	if expected != "" && !strings.EqualFold(expected, actual) {
		return "", installer.discard(tempPath, HashMismatchError{
			FileName: filepath.Base(destination),
			Expected: strings.ToLower(expected),
			Actual:   actual,
		})
	}

	if err := replaceExistingFile(installer.fs, tempPath, target); err != nil {
		return "", installer.discard(tempPath, err)
	}
	return actual, nil
}

func (installer *Installer) discard(tempPath string, cause error) error {
	if err := installer.fs.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Join(cause, fmt.Errorf("failed to remove temp file %s: %w", tempPath, err))
	}
	return cause
}

// replaceExistingFile moves the current destination aside before renaming the
// new file in, and puts it back if that rename fails.
func replaceExistingFile(fs afero.Fs, sourcePath string, destinationPath string) error {
	exists, err := afero.Exists(fs, destinationPath)
	if err != nil {
		return err
	}
	if !exists {
		return fs.Rename(sourcePath, destinationPath)
	}

	backupPath, err := nextBackupPath(fs, destinationPath)
	if err != nil {
		return err
	}

	if err := fs.Rename(destinationPath, backupPath); err != nil {
		return err
	}

	if err := fs.Rename(sourcePath, destinationPath); err != nil {
		if restoreErr := fs.Rename(backupPath, destinationPath); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("failed to restore %s: %w", destinationPath, restoreErr))
		}
		return err
	}

	_ = fs.Remove(backupPath)
	return nil
}

func nextBackupPath(fs afero.Fs, destinationPath string) (string, error) {
	base := destinationPath + ".mmm.bak"

	backup := base
	for i := 1; i <= 100; i++ {
		exists, err := afero.Exists(fs, backup)
		if err != nil {
			return "", err
		}
		if !exists {
			return backup, nil
		}
		backup = fmt.Sprintf("%s.%d", base, i)
	}
	return "", errors.New("cannot allocate backup path")
}
