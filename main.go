package main

import (
	"context"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/meza/mod-reconciler/cmd/mmm"
	"github.com/meza/mod-reconciler/internal/lifecycle"
	"github.com/meza/mod-reconciler/internal/logger"
	"github.com/meza/mod-reconciler/internal/telemetry"
)

const telemetryFlushBudget = 3 * time.Second

type runDeps struct {
	execute           func(context.Context, []string) error
	shutdownContext   func(context.Context) (context.Context, func())
	telemetryInit     func()
	telemetryShutdown func(context.Context)
	args              []string
}

func main() {
	os.Exit(runWithDeps(runDeps{
		execute:         mmm.Execute,
		shutdownContext: lifecycle.WithShutdown,
		telemetryInit: func() {
			telemetry.Init(logger.New(os.Stderr, os.Stderr, false, debugRequested(os.Args[1:])))
		},
		telemetryShutdown: telemetry.Shutdown,
		args:              os.Args[1:],
	}))
}

func runWithDeps(deps runDeps) int {
	ctx, stop := deps.shutdownContext(context.Background())
	defer stop()

	deps.telemetryInit()
	err := deps.execute(ctx, deps.args)

	flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushBudget)
	deps.telemetryShutdown(flushCtx)
	cancel()

	return exitCode(ctx, err)
}

func exitCode(ctx context.Context, err error) int {
	if sig, interrupted := lifecycle.Interrupted(ctx); interrupted {
		return lifecycle.ExitCode(sig)
	}
	if err != nil {
		return 1
	}
	return 0
}

// debugRequested looks for --debug before cobra parses the arguments so
// telemetry can log its own decisions.
func debugRequested(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "--debug" || arg == "-d" || arg == "--debug=true" {
			return true
		}
	}
	return false
}
