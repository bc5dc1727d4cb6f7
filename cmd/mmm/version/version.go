package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meza/mod-reconciler/internal/constants"
	"github.com/meza/mod-reconciler/internal/environment"
	"github.com/meza/mod-reconciler/internal/i18n"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use: "version",
		Short: i18n.T("cmd.version.short", i18n.Tvars{
			Data: &i18n.TData{"appName": constants.AppName},
		}),
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), environment.AppVersion())
		},
	}
}
