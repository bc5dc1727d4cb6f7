package scan

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/meza/mod-reconciler/internal/config"
	"github.com/meza/mod-reconciler/internal/i18n"
	"github.com/meza/mod-reconciler/internal/tui"
)

// Sink receives user-facing output. *logger.Logger satisfies it.
type Sink interface {
	Log(message string, forceShow bool)
	Debug(message string)
	Error(message string)
}

type Options struct {
	// Adopt writes exact matches into the manifest and the lock file.
	Adopt    bool
	Colorize bool
}

type Outcome struct {
	Report  Report
	Adopted []Match
}

// Run scans the mods folder of the manifest at configPath and prints what it
// found.
func (s *Scanner) Run(ctx context.Context, configPath string, sink Sink, opts Options) (Outcome, error) {
	meta := config.NewMetadata(configPath)

	cfg, err := config.EnsureConfiguration(ctx, s.fs, meta)
	if err != nil {
		return Outcome{}, err
	}
	lock, err := config.ReadLock(ctx, s.fs, meta)
	if err != nil {
		return Outcome{}, err
	}

	report, err := s.Scan(ctx, meta, cfg, lock)
	if err != nil {
		return Outcome{}, err
	}
	printReport(sink, report, opts.Colorize)

	outcome := Outcome{Report: report}
	if !opts.Adopt || len(report.Exact) == 0 {
		return outcome, nil
	}

	cfg, lock, outcome.Adopted = Adopt(cfg, lock, report.Exact)
	if len(outcome.Adopted) == 0 {
		return outcome, nil
	}
	if err := config.WriteState(ctx, s.fs, meta, cfg, lock); err != nil {
		sink.Error(i18n.T("scan.adopt.failed", i18n.Tvars{Data: &i18n.TData{"err": err.Error()}}))
		return outcome, err
	}
	sink.Log(withIcon(tui.SuccessIcon(opts.Colorize), i18n.T("scan.adopt.done", i18n.Tvars{Count: len(outcome.Adopted)})), true)
	return outcome, nil
}

func printReport(sink Sink, report Report, colorize bool) {
	if report.Empty() {
		sink.Log(withIcon(tui.SuccessIcon(colorize), i18n.T("scan.all_managed")), true)
		return
	}

	printMatches(sink, "scan.exact.header", report.Exact, tui.SuccessIcon(colorize), colorize)
	printMatches(sink, "scan.partial.header", report.Partial, tui.ErrorIcon(colorize), colorize)

	if len(report.Unmatched) > 0 {
		sink.Log(i18n.T("scan.unmatched.header"), true)
		for _, path := range report.Unmatched {
			sink.Log(withIcon(tui.ErrorIcon(colorize), i18n.T("scan.unmatched.entry", i18n.Tvars{
				Data: &i18n.TData{"file": filepath.Base(path)},
			})), true)
		}
	}

	if len(report.Unsure) > 0 {
		sink.Log(i18n.T("scan.unsure.header"), true)
		for _, item := range report.Unsure {
			sink.Log(withIcon(tui.ErrorIcon(colorize), i18n.T("scan.unsure.entry", i18n.Tvars{
				Data: &i18n.TData{"file": filepath.Base(item.Path), "reason": item.Err.Error()},
			})), true)
		}
	}
}

func printMatches(sink Sink, header string, matches []Match, icon string, colorize bool) {
	if len(matches) == 0 {
		return
	}
	sink.Log(i18n.T(header), true)
	for _, match := range matches {
		name := match.Name
		if colorize {
			name = tui.TitleStyle.Bold(true).Render(name)
		}
		sink.Log(withIcon(icon, i18n.T("scan.match.entry", i18n.Tvars{
			Data: &i18n.TData{
				"name":     name,
				"platform": string(match.Platform),
				"id":       match.ProjectID,
				"file":     match.FileName,
			},
		})), true)
	}
}

func withIcon(icon string, message string) string {
	return fmt.Sprintf("%s %s", icon, message)
}
