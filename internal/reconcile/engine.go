// Package reconcile brings the mods folder in line with the manifest and its
// lock file: missing mods are installed, missing files re-downloaded, drifted
// files replaced and, when asked to, outdated mods updated.
package reconcile

import (
	"context"
	"strings"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/meza/mod-reconciler/internal/config"
	"github.com/meza/mod-reconciler/internal/i18n"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/perf"
	"github.com/meza/mod-reconciler/internal/platform"
	"github.com/meza/mod-reconciler/internal/tui"
)

// Resolver is satisfied by platform.Registry.
type Resolver interface {
	Resolve(ctx context.Context, platform models.Platform, projectID string, opts platform.FetchOptions) (platform.RemoteMod, error)
}

// Installer is satisfied by *modinstall.Installer.
type Installer interface {
	Install(ctx context.Context, url string, root string, destination string, expectedHash string) (string, error)
}

type Options struct {
	// CheckForUpdates also resolves mods whose file is intact and replaces
	// them when the repository has a newer, different file. Pinned mods are
	// never checked.
	CheckForUpdates bool
	// Concurrency caps how many mods are processed at once. Zero or less
	// means one goroutine per mod.
	Concurrency int
	Colorize    bool
}

type Result struct {
	Installed int
	Updated   int
	Repaired  int
	Unchanged int
	Failures  []ItemError
}

func (r Result) Changed() int {
	return r.Installed + r.Updated + r.Repaired
}

type Engine struct {
	fs        afero.Fs
	resolver  Resolver
	installer Installer
	options   Options
}

func New(fs afero.Fs, resolver Resolver, installer Installer, options Options) *Engine {
	return &Engine{
		fs:        fs,
		resolver:  resolver,
		installer: installer,
		options:   options,
	}
}

// Run reconciles every mod of the manifest at configPath. A failing mod never
// stops the others; whatever succeeded is written back to the lock file and
// the manifest, and ErrReconcileFailures is returned alongside the Result.
func (engine *Engine) Run(ctx context.Context, configPath string, sink Sink) (result Result, returnErr error) {
	ctx, span := perf.StartSpan(ctx, "reconcile.run",
		perf.WithAttributes(
			attribute.String("config_path", configPath),
			attribute.Bool("check_for_updates", engine.options.CheckForUpdates),
		),
	)
	defer func() {
		span.SetAttributes(
			attribute.Bool("success", returnErr == nil),
			attribute.Int("installed", result.Installed),
			attribute.Int("updated", result.Updated),
			attribute.Int("repaired", result.Repaired),
			attribute.Int("unchanged", result.Unchanged),
			attribute.Int("failed", len(result.Failures)),
		)
		span.End()
	}()

	meta := config.NewMetadata(configPath)

	cfg, err := config.EnsureConfiguration(ctx, engine.fs, meta)
	if err != nil {
		return Result{}, err
	}
	lock, err := config.ReadLock(ctx, engine.fs, meta)
	if err != nil {
		return Result{}, err
	}

	items := planItems(cfg, lock)
	outcomes := make([]outcome, len(items))

	var group errgroup.Group
	if engine.options.Concurrency > 0 {
		group.SetLimit(engine.options.Concurrency)
	}
	for i := range items {
		i := i
		group.Go(func() error {
			outcomes[i] = engine.reconcileMod(ctx, meta, cfg, lock, items[i])
			return nil
		})
	}
	_ = group.Wait()

	for i, out := range outcomes {
		out.events.replay(sink)

		mod := cfg.Mods[i]
		if out.err != nil {
			result.Failures = append(result.Failures, ItemError{
				Platform: mod.Type,
				ID:       mod.ID,
				Name:     mod.DisplayName(),
				Err:      out.err,
			})
			continue
		}

		if strings.TrimSpace(out.name) != "" {
			cfg.Mods[i].Name = out.name
		}

		switch out.action {
		case actionInstalled:
			lock = append(lock, out.install)
			result.Installed++
		case actionUpdated:
			lock[out.lockIndex] = out.install
			result.Updated++
		case actionRepaired:
			result.Repaired++
		default:
			result.Unchanged++
		}
	}

	if err := config.WriteState(ctx, engine.fs, meta, cfg, lock); err != nil {
		return result, err
	}

	if len(result.Failures) > 0 {
		sink.Error(i18n.T("reconcile.summary.failures", i18n.Tvars{Count: len(result.Failures)}))
		return result, ErrReconcileFailures
	}

	if result.Changed() == 0 {
		sink.Log(withIcon(tui.SuccessIcon(engine.options.Colorize), i18n.T("reconcile.summary.nothing_to_do")), true)
	}
	return result, nil
}

type item struct {
	mod       models.Mod
	lockIndex int
	conflict  IntegrityReason
}

// planItems pairs every declared mod with its lock entry. Conflicts are
// recorded per mod so only the affected mods fail.
func planItems(cfg models.ModsJSON, lock []models.ModInstall) []item {
	byKey := make(map[models.ModKey][]int, len(lock))
	for i, installed := range lock {
		byKey[installed.Key()] = append(byKey[installed.Key()], i)
	}

	declared := make(map[models.ModKey]bool, len(cfg.Mods))
	items := make([]item, len(cfg.Mods))
	for i, mod := range cfg.Mods {
		key := mod.Key()
		current := item{mod: mod, lockIndex: -1}

		switch entries := byKey[key]; {
		case key.ID == "":
			current.conflict = ReasonMissingID
		case declared[key]:
			current.conflict = ReasonDuplicateMod
		case len(entries) > 1:
			current.conflict = ReasonDuplicateLockEntry
		case len(entries) == 1:
			current.lockIndex = entries[0]
		}

		declared[key] = true
		items[i] = current
	}
	return items
}
