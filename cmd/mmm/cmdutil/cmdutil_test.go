package cmdutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/meza/mod-reconciler/internal/reconcile"
	"github.com/meza/mod-reconciler/internal/telemetry"
	"github.com/meza/mod-reconciler/testutil"
)

func newRoot(child *cobra.Command) *cobra.Command {
	root := &cobra.Command{Use: "mmm"}
	AddGlobalFlags(root)
	root.AddCommand(child)
	return root
}

func TestReadGlobals(t *testing.T) {
	t.Setenv("MMM_TEST", "true")

	var seen Globals
	child := &cobra.Command{
		Use: "child",
		RunE: func(cmd *cobra.Command, _ []string) error {
			globals, err := ReadGlobals(cmd)
			seen = globals
			return err
		},
	}

	_, err := testutil.ExecuteCommand(context.Background(), newRoot(child), "child", "-c", "/pack/mods.json", "-q", "--debug")
	require.NoError(t, err)
	assert.Equal(t, Globals{ConfigPath: "/pack/mods.json", Quiet: true, Debug: true}, seen)
}

func TestReadGlobalsDefaults(t *testing.T) {
	t.Setenv("MMM_TEST", "true")

	var seen Globals
	child := &cobra.Command{
		Use: "child",
		RunE: func(cmd *cobra.Command, _ []string) error {
			globals, err := ReadGlobals(cmd)
			seen = globals
			return err
		},
	}

	_, err := testutil.ExecuteCommand(context.Background(), newRoot(child), "child")
	require.NoError(t, err)
	assert.Equal(t, Globals{ConfigPath: DefaultConfigPath}, seen)
}

func TestReadGlobalsWithoutFlags(t *testing.T) {
	_, err := ReadGlobals(&cobra.Command{Use: "bare"})
	assert.Error(t, err)
}

func TestRunReportsTelemetry(t *testing.T) {
	t.Setenv("MMM_TEST", "true")

	var recorded []telemetry.CommandTelemetry
	deps := Deps{Telemetry: func(payload telemetry.CommandTelemetry) {
		recorded = append(recorded, payload)
	}}
	child := &cobra.Command{
		Use: "child",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd, deps, "child", func(_ context.Context, globals Globals) (int, error) {
				assert.True(t, globals.Quiet)
				return 3, nil
			}, func(count int) map[string]interface{} {
				return map[string]interface{}{"count": count}
			})
		},
	}

	_, err := testutil.ExecuteCommand(context.Background(), newRoot(child), "child", "--quiet")
	require.NoError(t, err)

	require.Len(t, recorded, 1)
	assert.Equal(t, "child", recorded[0].Command)
	assert.True(t, recorded[0].Success)
	assert.NoError(t, recorded[0].Error)
	assert.Equal(t, map[string]interface{}{"count": 3}, recorded[0].Extra)
	assert.GreaterOrEqual(t, recorded[0].Duration, time.Duration(0))
}

func TestRunSilencesUsageOnFailure(t *testing.T) {
	t.Setenv("MMM_TEST", "true")

	var recorded []telemetry.CommandTelemetry
	deps := Deps{Telemetry: func(payload telemetry.CommandTelemetry) {
		recorded = append(recorded, payload)
	}}
	child := &cobra.Command{
		Use: "child",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd, deps, "child", func(context.Context, Globals) (reconcile.Result, error) {
				return reconcile.Result{Unchanged: 1}, reconcile.ErrReconcileFailures
			}, ResultExtras)
		},
	}

	output, err := testutil.ExecuteCommand(context.Background(), newRoot(child), "child")
	require.ErrorIs(t, err, reconcile.ErrReconcileFailures)
	assert.True(t, child.SilenceUsage)
	assert.NotContains(t, output.Stderr, "Usage:")
	assert.NotContains(t, output.Stdout, "Usage:")

	require.Len(t, recorded, 1)
	assert.False(t, recorded[0].Success)
	assert.True(t, errors.Is(recorded[0].Error, reconcile.ErrReconcileFailures))
	assert.Equal(t, 1, recorded[0].Extra["unchanged"])
}

func TestRunWithoutTelemetry(t *testing.T) {
	t.Setenv("MMM_TEST", "true")

	child := &cobra.Command{
		Use: "child",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd, Deps{}, "child", func(context.Context, Globals) (int, error) {
				return 0, nil
			}, nil)
		},
	}

	_, err := testutil.ExecuteCommand(context.Background(), newRoot(child), "child")
	assert.NoError(t, err)
}

func TestResultExtras(t *testing.T) {
	extras := ResultExtras(reconcile.Result{
		Installed: 1,
		Updated:   2,
		Repaired:  3,
		Unchanged: 4,
		Failures:  []reconcile.ItemError{{ID: "a"}, {ID: "b"}},
	})

	assert.Equal(t, map[string]interface{}{
		"installed": 1,
		"updated":   2,
		"repaired":  3,
		"unchanged": 4,
		"failed":    2,
	}, extras)
}

func TestNewHTTPClientReadsEnvironment(t *testing.T) {
	t.Setenv("MMM_RATE_LIMIT", "7")
	t.Setenv("MMM_RATE_BURST", "3")
	t.Setenv("MMM_HTTP_MAX_RETRIES", "5")
	t.Setenv("MMM_HTTP_RETRY_INTERVAL", "250ms")

	client := NewHTTPClient()

	assert.Equal(t, rate.Limit(7), client.Ratelimiter.Limit())
	assert.Equal(t, 3, client.Ratelimiter.Burst())
	require.NotNil(t, client.RetryConfig)
	assert.Equal(t, 5, client.RetryConfig.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, client.RetryConfig.Interval)
}

func TestDepsHTTPClientPrefersInjectedClient(t *testing.T) {
	injected := NewHTTPClient()
	assert.Same(t, injected, Deps{Client: injected}.HTTPClient())
	assert.NotNil(t, Deps{}.HTTPClient())
}

func TestDefaultDeps(t *testing.T) {
	deps := DefaultDeps()
	assert.NotNil(t, deps.FS)
	assert.NotNil(t, deps.Telemetry)
	assert.Nil(t, deps.Client)
}
