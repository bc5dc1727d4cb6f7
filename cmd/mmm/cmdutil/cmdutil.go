// Package cmdutil is the wiring shared by the mmm subcommands: global flags,
// the HTTP client built from the environment, output and telemetry.
package cmdutil

import (
	"context"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/meza/mod-reconciler/internal/environment"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/i18n"
	"github.com/meza/mod-reconciler/internal/logger"
	"github.com/meza/mod-reconciler/internal/perf"
	"github.com/meza/mod-reconciler/internal/telemetry"
	"github.com/meza/mod-reconciler/internal/tui"
)

const (
	FlagConfig = "config"
	FlagQuiet  = "quiet"
	FlagDebug  = "debug"
	FlagPerf   = "perf"

	DefaultConfigPath = "./modlist.json"
)

type Globals struct {
	ConfigPath string
	Quiet      bool
	Debug      bool
}

// AddGlobalFlags registers the persistent flags every subcommand reads.
func AddGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringP(FlagConfig, "c", DefaultConfigPath, i18n.T("cmd.root.flag.config"))
	flags.BoolP(FlagQuiet, "q", false, i18n.T("cmd.root.flag.quiet"))
	flags.BoolP(FlagDebug, "d", false, i18n.T("cmd.root.flag.debug"))
	flags.Bool(FlagPerf, false, i18n.T("cmd.root.flag.perf"))
}

// ReadGlobals reads the persistent root flags as seen by cmd.
func ReadGlobals(cmd *cobra.Command) (Globals, error) {
	configPath, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return Globals{}, err
	}
	quiet, err := cmd.Flags().GetBool(FlagQuiet)
	if err != nil {
		return Globals{}, err
	}
	debug, err := cmd.Flags().GetBool(FlagDebug)
	if err != nil {
		return Globals{}, err
	}
	return Globals{ConfigPath: configPath, Quiet: quiet, Debug: debug}, nil
}

// Deps are the process-level collaborators of a command. Tests swap them.
type Deps struct {
	FS        afero.Fs
	Client    httpclient.Doer
	Telemetry func(telemetry.CommandTelemetry)
}

func DefaultDeps() Deps {
	return Deps{
		FS:        afero.NewOsFs(),
		Telemetry: telemetry.RecordCommand,
	}
}

// HTTPClient returns the injected client or one limiter and retry policy
// shared by every request of the run.
func (deps Deps) HTTPClient() httpclient.Doer {
	if deps.Client != nil {
		return deps.Client
	}
	return NewHTTPClient()
}

func NewHTTPClient() *httpclient.RLHTTPClient {
	client := httpclient.NewRLClient(rate.NewLimiter(environment.RateLimit(), environment.RateBurst()))
	client.RetryConfig = &httpclient.RetryConfig{
		MaxRetries: environment.MaxRetries(),
		Interval:   environment.RetryInterval(),
	}
	return client
}

func NewLogger(cmd *cobra.Command, globals Globals) *logger.Logger {
	return logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), globals.Quiet, globals.Debug)
}

func Colorize(cmd *cobra.Command) bool {
	return tui.ColorEnabled(cmd.OutOrStdout())
}

// Run wraps a command body in its app.command span and reports the outcome
// to telemetry. report turns the body's result into telemetry extras.
func Run[T any](cmd *cobra.Command, deps Deps, name string, body func(context.Context, Globals) (T, error), report func(T) map[string]interface{}) error {
	started := time.Now()
	ctx, span := perf.StartSpan(cmd.Context(), "app.command."+name)

	result, err := runBody(ctx, cmd, body)

	span.SetAttributes(attribute.Bool("success", err == nil))
	span.End()

	if err != nil {
		cmd.SilenceUsage = true
	}

	if deps.Telemetry != nil {
		payload := telemetry.CommandTelemetry{
			Command:  name,
			Success:  err == nil,
			Error:    err,
			Duration: time.Since(started),
		}
		if report != nil {
			payload.Extra = report(result)
		}
		deps.Telemetry(payload)
	}
	return err
}

func runBody[T any](ctx context.Context, cmd *cobra.Command, body func(context.Context, Globals) (T, error)) (T, error) {
	globals, err := ReadGlobals(cmd)
	if err != nil {
		var zero T
		return zero, err
	}
	return body(ctx, globals)
}
