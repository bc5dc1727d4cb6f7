package cmdutil

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/modinstall"
	"github.com/meza/mod-reconciler/internal/platform"
	"github.com/meza/mod-reconciler/internal/reconcile"
)

// Reconcile runs the engine against the manifest named by the global flags.
// install and update differ only in checkForUpdates.
func Reconcile(ctx context.Context, cmd *cobra.Command, deps Deps, globals Globals, checkForUpdates bool) (reconcile.Result, error) {
	client := deps.HTTPClient()
	log := NewLogger(cmd, globals)
	engine := reconcile.New(
		deps.FS,
		platform.NewRegistry(client),
		modinstall.NewInstaller(deps.FS, httpclient.DownloadFile, client, DownloadProgress(log)),
		reconcile.Options{
			CheckForUpdates: checkForUpdates,
			Colorize:        Colorize(cmd),
		},
	)
	return engine.Run(ctx, globals.ConfigPath, log)
}

// ResultExtras is the telemetry summary of a reconcile run.
func ResultExtras(result reconcile.Result) map[string]interface{} {
	return map[string]interface{}{
		"installed": result.Installed,
		"updated":   result.Updated,
		"repaired":  result.Repaired,
		"unchanged": result.Unchanged,
		"failed":    len(result.Failures),
	}
}
