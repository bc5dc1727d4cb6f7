package install

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/meza/mod-reconciler/cmd/mmm/cmdutil"
	"github.com/meza/mod-reconciler/internal/config"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/telemetry"
	"github.com/meza/mod-reconciler/testutil"
)

const configPath = "/pack/modlist.json"

type harness struct {
	fs       afero.Fs
	meta     config.Metadata
	repos    *testutil.FakeRepositories
	recorded []telemetry.CommandTelemetry
}

func newHarness(t *testing.T, mods ...models.Mod) *harness {
	t.Helper()
	t.Setenv("MMM_TEST", "true")

	h := &harness{
		fs:    afero.NewMemMapFs(),
		meta:  config.NewMetadata(configPath),
		repos: testutil.NewFakeRepositories(t),
	}
	if mods == nil {
		mods = []models.Mod{}
	}
	manifest, err := json.Marshal(models.ModsJSON{
		Loader:                     models.FABRIC,
		GameVersion:                "1.21.1",
		DefaultAllowedReleaseTypes: []models.ReleaseType{models.Release},
		ModsFolder:                 "mods",
		Mods:                       mods,
	})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(h.fs, configPath, manifest, 0644))
	return h
}

func (h *harness) run(t *testing.T, args ...string) (testutil.CommandOutput, error) {
	t.Helper()
	root := &cobra.Command{Use: "mmm"}
	cmdutil.AddGlobalFlags(root)
	root.AddCommand(commandWithDeps(cmdutil.Deps{
		FS:     h.fs,
		Client: h.repos.Doer(),
		Telemetry: func(payload telemetry.CommandTelemetry) {
			h.recorded = append(h.recorded, payload)
		},
	}))
	return testutil.ExecuteCommand(context.Background(), root, append(args, "--config", configPath)...)
}

func (h *harness) lock(t *testing.T) []models.ModInstall {
	t.Helper()
	lock, err := config.ReadLock(context.Background(), h.fs, h.meta)
	require.NoError(t, err)
	return lock
}
