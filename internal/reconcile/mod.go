package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/config"
	"github.com/meza/mod-reconciler/internal/filehash"
	"github.com/meza/mod-reconciler/internal/fileutils"
	"github.com/meza/mod-reconciler/internal/i18n"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/modfilename"
	"github.com/meza/mod-reconciler/internal/perf"
	"github.com/meza/mod-reconciler/internal/platform"
	"github.com/meza/mod-reconciler/internal/tui"
)

type action string

const (
	actionUnchanged action = "unchanged"
	actionInstalled action = "installed"
	actionUpdated   action = "updated"
	actionRepaired  action = "repaired"
)

// outcome is everything one goroutine learned about one mod. It is applied to
// the manifest and the lock only after every goroutine has returned.
type outcome struct {
	action    action
	lockIndex int
	name      string
	install   models.ModInstall
	events    events
	err       error
}

func (engine *Engine) reconcileMod(ctx context.Context, meta config.Metadata, cfg models.ModsJSON, lock []models.ModInstall, it item) (out outcome) {
	mod := it.mod
	ctx, span := perf.StartSpan(ctx, "reconcile.mod",
		perf.WithAttributes(
			attribute.String("platform", string(mod.Type)),
			attribute.String("project_id", mod.ID),
		),
	)
	defer func() {
		span.SetAttributes(
			attribute.String("action", string(out.action)),
			attribute.Bool("success", out.err == nil),
		)
		span.End()
	}()

	out = outcome{action: actionUnchanged, lockIndex: it.lockIndex}
	out.events.debug(i18n.T("reconcile.debug.checking", i18n.Tvars{
		Data: &i18n.TData{"name": mod.DisplayName(), "platform": string(mod.Type)},
	}))

	if it.conflict != "" {
		return engine.fail(out, mod, &IntegrityError{Platform: mod.Type, ID: mod.ID, Reason: it.conflict})
	}
	if it.lockIndex < 0 {
		return engine.installAbsent(ctx, meta, cfg, mod, out)
	}

	installed := lock[it.lockIndex]
	if reason := lockEntryProblem(installed); reason != "" {
		return engine.fail(out, mod, &IntegrityError{Platform: mod.Type, ID: mod.ID, Reason: reason})
	}
	if strings.TrimSpace(mod.Name) == "" {
		out.name = installed.Name
	}

	fileName, err := modfilename.Normalize(installed.FileName)
	if err != nil {
		return engine.fail(out, mod, err)
	}
	path := meta.ModPath(cfg, fileName)

	exists, err := fileutils.FileExists(engine.fs, path)
	if err != nil {
		return engine.fail(out, mod, err)
	}
	if !exists {
		return engine.repair(ctx, meta.ModsFolderPath(cfg), mod, installed, path, out)
	}

	hash, err := filehash.SHA1ForFile(engine.fs, path)
	if err != nil {
		return engine.fail(out, mod, err)
	}
	if !strings.EqualFold(hash, strings.TrimSpace(installed.Hash)) {
		out.events.debug(i18n.T("reconcile.debug.drift", i18n.Tvars{
			Data: &i18n.TData{"name": mod.DisplayName(), "file": fileName},
		}))
		return engine.update(ctx, meta, cfg, mod, installed, path, true, out)
	}

	if engine.options.CheckForUpdates && mod.PinnedVersion() == "" {
		return engine.update(ctx, meta, cfg, mod, installed, path, false, out)
	}

	out.events.debug(i18n.T("reconcile.debug.current", i18n.Tvars{
		Data: &i18n.TData{"name": mod.DisplayName()},
	}))
	return out
}

func (engine *Engine) installAbsent(ctx context.Context, meta config.Metadata, cfg models.ModsJSON, mod models.Mod, out outcome) outcome {
	remote, err := engine.resolve(ctx, cfg, mod)
	if err != nil {
		return engine.fail(out, mod, err)
	}

	fileName, err := modfilename.Normalize(remote.FileName)
	if err != nil {
		return engine.fail(out, mod, err)
	}

	hash, err := engine.installer.Install(ctx, remote.DownloadURL, meta.ModsFolderPath(cfg), meta.ModPath(cfg, fileName), remote.Hash)
	if err != nil {
		return engine.fail(out, mod, err)
	}

	out.action = actionInstalled
	out.name = remote.Name
	out.install = newInstall(mod, remote, fileName, hash)
	out.events.log(withIcon(tui.SuccessIcon(engine.options.Colorize), i18n.T("reconcile.installed", i18n.Tvars{
		Data: &i18n.TData{"name": displayName(remote.Name, mod), "file": fileName},
	})), false)
	return out
}

// repair restores a missing file from the lock entry alone. The repository is
// not consulted and the lock entry stays as it is.
func (engine *Engine) repair(ctx context.Context, root string, mod models.Mod, installed models.ModInstall, path string, out outcome) outcome {
	if _, err := engine.installer.Install(ctx, installed.DownloadURL, root, path, installed.Hash); err != nil {
		return engine.fail(out, mod, err)
	}

	out.action = actionRepaired
	out.events.log(withIcon(tui.SuccessIcon(engine.options.Colorize), i18n.T("reconcile.repaired", i18n.Tvars{
		Data: &i18n.TData{"name": displayName(installed.Name, mod), "file": filepath.Base(path)},
	})), false)
	return out
}

// update resolves a fresh artifact. A drifted file is always replaced; an
// intact one only when the repository offers a different file released
// strictly later than the installed one.
func (engine *Engine) update(ctx context.Context, meta config.Metadata, cfg models.ModsJSON, mod models.Mod, installed models.ModInstall, oldPath string, drifted bool, out outcome) outcome {
	remote, err := engine.resolve(ctx, cfg, mod)
	if err != nil {
		return engine.fail(out, mod, err)
	}
	if strings.TrimSpace(remote.Name) != "" {
		out.name = remote.Name
	}

	if !drifted && !offersUpdate(remote, installed) {
		out.events.debug(i18n.T("reconcile.debug.current", i18n.Tvars{
			Data: &i18n.TData{"name": displayName(remote.Name, mod)},
		}))
		return out
	}

	fileName, err := modfilename.Normalize(remote.FileName)
	if err != nil {
		return engine.fail(out, mod, err)
	}
	newPath := meta.ModPath(cfg, fileName)

	hash, err := engine.installer.Install(ctx, remote.DownloadURL, meta.ModsFolderPath(cfg), newPath, remote.Hash)
	if err != nil {
		return engine.fail(out, mod, err)
	}

	if filepath.Clean(oldPath) != filepath.Clean(newPath) {
		if err := engine.fs.Remove(oldPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			if cleanupErr := engine.fs.Remove(newPath); cleanupErr != nil && !errors.Is(cleanupErr, os.ErrNotExist) {
				err = errors.Join(err, fmt.Errorf("failed to remove new file %s: %w", newPath, cleanupErr))
			}
			return engine.fail(out, mod, err)
		}
	}

	out.action = actionUpdated
	out.install = newInstall(mod, remote, fileName, hash)
	out.events.log(withIcon(tui.SuccessIcon(engine.options.Colorize), i18n.T("reconcile.updated", i18n.Tvars{
		Data: &i18n.TData{
			"name": displayName(remote.Name, mod),
			"from": installed.FileName,
			"to":   fileName,
		},
	})), true)
	return out
}

func (engine *Engine) resolve(ctx context.Context, cfg models.ModsJSON, mod models.Mod) (platform.RemoteMod, error) {
	return engine.resolver.Resolve(ctx, mod.Type, mod.ID, platform.FetchOptions{
		AllowedReleaseTypes: cfg.AllowedReleaseTypesFor(mod),
		GameVersion:         cfg.GameVersion,
		Loader:              cfg.Loader,
		AllowFallback:       cfg.AllowFallbackFor(mod),
		FixedVersion:        mod.PinnedVersion(),
	})
}

func (engine *Engine) fail(out outcome, mod models.Mod, err error) outcome {
	out.err = classify(err)
	out.events.error(withIcon(tui.ErrorIcon(engine.options.Colorize), failureMessage(mod, out.err)))
	out.events.debug(out.err.Error())
	return out
}

func lockEntryProblem(installed models.ModInstall) IntegrityReason {
	switch {
	case strings.TrimSpace(installed.FileName) == "":
		return ReasonMissingFileName
	case strings.TrimSpace(installed.Hash) == "":
		return ReasonMissingHash
	case strings.TrimSpace(installed.DownloadURL) == "":
		return ReasonMissingDownloadURL
	}
	return ""
}

// offersUpdate compares against the stored release date. A date that does not
// parse counts as the zero time, so any dated remote file wins.
func offersUpdate(remote platform.RemoteMod, installed models.ModInstall) bool {
	if strings.EqualFold(strings.TrimSpace(remote.Hash), strings.TrimSpace(installed.Hash)) {
		return false
	}
	installedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(installed.ReleasedOn))
	if err != nil {
		installedAt = time.Time{}
	}
	return remote.ReleasedAt().After(installedAt)
}

func newInstall(mod models.Mod, remote platform.RemoteMod, fileName string, hash string) models.ModInstall {
	return models.ModInstall{
		Type:        mod.Type,
		ID:          mod.ID,
		Name:        displayName(remote.Name, mod),
		FileName:    fileName,
		ReleasedOn:  remote.ReleaseDate,
		Hash:        hash,
		DownloadURL: remote.DownloadURL,
	}
}

func displayName(name string, mod models.Mod) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return mod.DisplayName()
}
