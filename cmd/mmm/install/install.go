package install

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

func commandWithDeps(deps cmdutil.Deps) *cobra.Command {
	return &cobra.Command{
		Use:     "install",
		Aliases: []string{"i"},
		Short:   i18n.T("cmd.install.short"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdutil.Run(cmd, deps, "install", func(ctx context.Context, globals cmdutil.Globals) (reconcile.Result, error) {
				return cmdutil.Reconcile(ctx, cmd, deps, globals, false)
			}, cmdutil.ResultExtras)
		},
	}
}
