package update

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/meza/mod-reconciler/cmd/mmm/cmdutil"
	"github.com/meza/mod-reconciler/internal/i18n"
	"github.com/meza/mod-reconciler/internal/reconcile"
)

func Command() *cobra.Command {
	return commandWithDeps(cmdutil.DefaultDeps())
}

// update is install plus an update check for every mod that is not pinned.
func commandWithDeps(deps cmdutil.Deps) *cobra.Command {
	return &cobra.Command{
		Use:     "update",
		Aliases: []string{"u"},
		Short:   i18n.T("cmd.update.short"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdutil.Run(cmd, deps, "update", func(ctx context.Context, globals cmdutil.Globals) (reconcile.Result, error) {
				return cmdutil.Reconcile(ctx, cmd, deps, globals, true)
			}, cmdutil.ResultExtras)
		},
	}
}
