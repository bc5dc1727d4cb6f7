package scan

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/meza/mod-reconciler/cmd/mmm/cmdutil"
	"github.com/meza/mod-reconciler/internal/i18n"
	"github.com/meza/mod-reconciler/internal/platform"
	"github.com/meza/mod-reconciler/internal/scan"
)

const flagAdopt = "adopt"

type deps struct {
	cmdutil.Deps
	fingerprint scan.Fingerprinter
}

func Command() *cobra.Command {
	return commandWithDeps(deps{Deps: cmdutil.DefaultDeps()})
}

func commandWithDeps(deps deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: i18n.T("cmd.scan.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			adopt, err := cmd.Flags().GetBool(flagAdopt)
			if err != nil {
				return err
			}
			return cmdutil.Run(cmd, deps.Deps, "scan", func(ctx context.Context, globals cmdutil.Globals) (scan.Outcome, error) {
				client := deps.HTTPClient()
				scanner := scan.New(deps.FS, platform.NewCurseforge(client), platform.NewModrinth(client), deps.fingerprint)
				return scanner.Run(ctx, globals.ConfigPath, cmdutil.NewLogger(cmd, globals), scan.Options{
					Adopt:    adopt,
					Colorize: cmdutil.Colorize(cmd),
				})
			}, outcomeExtras)
		},
	}
	cmd.Flags().Bool(flagAdopt, false, i18n.T("cmd.scan.flag.adopt"))
	return cmd
}

func outcomeExtras(outcome scan.Outcome) map[string]interface{} {
	return map[string]interface{}{
		"exact":     len(outcome.Report.Exact),
		"partial":   len(outcome.Report.Partial),
		"unmatched": len(outcome.Report.Unmatched),
		"unsure":    len(outcome.Report.Unsure),
		"adopted":   len(outcome.Adopted),
	}
}
