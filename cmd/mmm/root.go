package mmm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/meza/mod-reconciler/cmd/mmm/cmdutil"
	"github.com/meza/mod-reconciler/cmd/mmm/install"
	"github.com/meza/mod-reconciler/cmd/mmm/scan"
	"github.com/meza/mod-reconciler/cmd/mmm/update"
	"github.com/meza/mod-reconciler/cmd/mmm/version"
	"github.com/meza/mod-reconciler/internal/config"
	"github.com/meza/mod-reconciler/internal/constants"
	"github.com/meza/mod-reconciler/internal/environment"
	"github.com/meza/mod-reconciler/internal/i18n"
	"github.com/meza/mod-reconciler/internal/perf"
	"github.com/meza/mod-reconciler/internal/reconcile"
)

var terminalWidth = func() int {
	width, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil {
		return 0
	}
	return width
}

func Command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               constants.CommandName,
		Short:             i18n.T("app.description"),
		Version:           environment.AppVersion(),
		SilenceErrors:     true,
		PersistentPreRunE: startPerf,
	}
	cobra.MousetrapHelpText = "" // allow the app to run in windows by clicking the exe

	cmdutil.AddGlobalFlags(rootCmd)

	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetHelpTemplate(rootCmd.HelpTemplate() + i18n.T("cmd.help.more", i18n.Tvars{
		Data: &i18n.TData{"url": environment.HelpURL()},
	}) + "\n")
	rootCmd.AddCommand(install.Command())
	rootCmd.AddCommand(update.Command())
	rootCmd.AddCommand(scan.Command())
	rootCmd.AddCommand(version.Command())

	translateDefaultHelpFacilities(rootCmd)
	fixFlagUsageAlignment(rootCmd, terminalWidth())

	return rootCmd
}

func startPerf(cmd *cobra.Command, _ []string) error {
	enabled, err := cmd.Flags().GetBool(cmdutil.FlagPerf)
	if err != nil || !enabled {
		return err
	}
	return perf.Init(perf.Config{Enabled: true})
}

func translateDefaultHelpFacilities(rootCmd *cobra.Command) {
	subcommands := rootCmd.Commands()
	allCommands := make([]*cobra.Command, 0, len(subcommands)+1)
	allCommands = append(allCommands, rootCmd)
	allCommands = append(allCommands, subcommands...)

	for _, cmd := range allCommands {
		cmd.InitDefaultHelpFlag()
		cmd.Flags().Lookup("help").Usage = i18n.T("cmd.help.template", i18n.Tvars{
			Data: &i18n.TData{"command": cmd.Name()},
		})
	}

	rootCmd.InitDefaultHelpCmd()
	helpCmd, _, err := rootCmd.Find([]string{"help"})
	if err != nil {
		return
	}

	helpCmd.Short = i18n.T("cmd.help.usage.short")
	helpCmd.Long = i18n.T("cmd.help.usage.long", i18n.Tvars{
		Data: &i18n.TData{"appName": rootCmd.Name()},
	})
	helpCmd.Run = func(c *cobra.Command, args []string) {
		cmd, _, err := c.Root().Find(args)
		if cmd == nil || err != nil {
			c.PrintErrln(i18n.T("cmd.help.error", i18n.Tvars{
				Data: &i18n.TData{"topic": fmt.Sprintf("%#q", args)},
			}) + "\n")
			cobra.CheckErr(c.Root().Usage())
			return
		}
		cmd.InitDefaultHelpFlag()
		cmd.InitDefaultVersionFlag()
		cobra.CheckErr(cmd.Help())
	}
}

// fixFlagUsageAlignment wraps flag help at the terminal width. A zero width
// leaves the lines unwrapped.
func fixFlagUsageAlignment(rootCmd *cobra.Command, width int) {
	usageTemplate := rootCmd.UsageTemplate()
	usageTemplate = strings.ReplaceAll(usageTemplate, ".FlagUsages", fmt.Sprintf(".FlagUsagesWrapped %d", width))
	rootCmd.SetUsageTemplate(usageTemplate)
}

// Execute runs the command line in args under ctx and prints a failure to
// stderr. --perf spans are written next to the manifest once the command
// returns, whatever its outcome.
func Execute(ctx context.Context, args []string) error {
	rootCmd := Command()
	rootCmd.SetArgs(args)

	executed, err := rootCmd.ExecuteContextC(ctx)
	if err != nil && !errors.Is(err, reconcile.ErrReconcileFailures) {
		// failed mods were already reported one by one
		rootCmd.PrintErrln(err.Error())
	}

	exportPerf(rootCmd, executed)
	return err
}

func exportPerf(rootCmd *cobra.Command, executed *cobra.Command) {
	if executed == nil {
		executed = rootCmd
	}
	enabled, err := executed.Flags().GetBool(cmdutil.FlagPerf)
	if err != nil || !enabled {
		return
	}
	configPath, _ := executed.Flags().GetString(cmdutil.FlagConfig)
	dir := config.NewMetadata(configPath).Dir()
	if absolute, err := filepath.Abs(dir); err == nil {
		dir = absolute
	}

	spans, err := perf.GetSpans()
	if err != nil {
		return
	}
	path, err := perf.ExportToFile(afero.NewOsFs(), dir, dir, spans)
	if err != nil {
		rootCmd.PrintErrln(i18n.T("cmd.root.perf_export_failed", i18n.Tvars{Data: &i18n.TData{"err": err.Error()}}))
		return
	}
	rootCmd.PrintErrln(i18n.T("cmd.root.perf_exported", i18n.Tvars{Data: &i18n.TData{"path": path}}))
}
