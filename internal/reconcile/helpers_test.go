package reconcile

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/meza/mod-reconciler/internal/config"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/modinstall"
	"github.com/meza/mod-reconciler/internal/platform"
)

var configPath = filepath.FromSlash("/pack/modlist.json")

func sha1Hex(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

type resolveCall struct {
	Platform models.Platform
	ID       string
	Options  platform.FetchOptions
}

type resolveResult struct {
	remote platform.RemoteMod
	err    error
}

type fakeResolver struct {
	mu      sync.Mutex
	results map[string]resolveResult
	calls   []resolveCall
	before  func(id string)
}

func (r *fakeResolver) Resolve(_ context.Context, p models.Platform, id string, opts platform.FetchOptions) (platform.RemoteMod, error) {
	r.mu.Lock()
	r.calls = append(r.calls, resolveCall{Platform: p, ID: id, Options: opts})
	result, ok := r.results[id]
	before := r.before
	r.mu.Unlock()

	if before != nil {
		before(id)
	}
	if !ok {
		return platform.RemoteMod{}, &platform.ModNotFoundError{Platform: p, ProjectID: id}
	}
	return result.remote, result.err
}

func (r *fakeResolver) fail(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[id] = resolveResult{err: err}
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *fakeResolver) calledIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.calls))
	for _, call := range r.calls {
		ids = append(ids, call.ID)
	}
	return ids
}

type fakeDownloads struct {
	mu      sync.Mutex
	content map[string]string
	urls    []string
}

func (d *fakeDownloads) download(_ context.Context, url string, destination string, _ httpclient.Doer, _ httpclient.Sender, filesystem ...afero.Fs) error {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	content, ok := d.content[url]
	d.mu.Unlock()

	if !ok {
		return &httpclient.DownloadError{URL: url, StatusCode: 404}
	}
	return afero.WriteFile(filesystem[0], destination, []byte(content), 0644)
}

func (d *fakeDownloads) requested() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

type sinkLine struct {
	kind    string
	message string
}

type recordingSink struct {
	lines []sinkLine
}

func (s *recordingSink) Log(message string, _ bool) {
	s.lines = append(s.lines, sinkLine{kind: "log", message: message})
}

func (s *recordingSink) Debug(message string) {
	s.lines = append(s.lines, sinkLine{kind: "debug", message: message})
}

func (s *recordingSink) Error(message string) {
	s.lines = append(s.lines, sinkLine{kind: "error", message: message})
}

func (s *recordingSink) messages(kind string) []string {
	var out []string
	for _, line := range s.lines {
		if line.kind == kind {
			out = append(out, line.message)
		}
	}
	return out
}

func (s *recordingSink) contains(kind string, fragment string) bool {
	for _, message := range s.messages(kind) {
		if strings.Contains(message, fragment) {
			return true
		}
	}
	return false
}

type fixture struct {
	fs        afero.Fs
	meta      config.Metadata
	resolver  *fakeResolver
	downloads *fakeDownloads
	sink      *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("MMM_TEST", "true")
	return &fixture{
		fs:        afero.NewMemMapFs(),
		meta:      config.NewMetadata(configPath),
		resolver:  &fakeResolver{results: map[string]resolveResult{}},
		downloads: &fakeDownloads{content: map[string]string{}},
		sink:      &recordingSink{},
	}
}

func (f *fixture) engine(options Options) *Engine {
	return New(f.fs, f.resolver, modinstall.NewInstaller(f.fs, f.downloads.download, nil, nil), options)
}

func (f *fixture) run(t *testing.T, options Options) (Result, error) {
	t.Helper()
	return f.engine(options).Run(context.Background(), configPath, f.sink)
}

func manifestWith(mods ...models.Mod) models.ModsJSON {
	return models.ModsJSON{
		Loader:                     models.FABRIC,
		GameVersion:                "1.21.1",
		DefaultAllowedReleaseTypes: []models.ReleaseType{models.Release},
		ModsFolder:                 "mods",
		Mods:                       mods,
	}
}

func (f *fixture) writeManifest(t *testing.T, cfg models.ModsJSON) {
	t.Helper()
	require.NoError(t, config.WriteConfig(context.Background(), f.fs, f.meta, cfg))
}

func (f *fixture) writeLock(t *testing.T, entries ...models.ModInstall) {
	t.Helper()
	require.NoError(t, config.WriteLock(context.Background(), f.fs, f.meta, entries))
}

func (f *fixture) lock(t *testing.T) []models.ModInstall {
	t.Helper()
	lock, err := config.ReadLock(context.Background(), f.fs, f.meta)
	require.NoError(t, err)
	return lock
}

func (f *fixture) manifest(t *testing.T) models.ModsJSON {
	t.Helper()
	cfg, err := config.EnsureConfiguration(context.Background(), f.fs, f.meta)
	require.NoError(t, err)
	return cfg
}

func (f *fixture) modPath(fileName string) string {
	return filepath.Join(filepath.Dir(configPath), "mods", fileName)
}

func (f *fixture) writeModFile(t *testing.T, fileName string, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(f.fs, f.modPath(fileName), []byte(content), 0644))
}

func (f *fixture) modFile(t *testing.T, fileName string) string {
	t.Helper()
	data, err := afero.ReadFile(f.fs, f.modPath(fileName))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) hasModFile(t *testing.T, fileName string) bool {
	t.Helper()
	exists, err := afero.Exists(f.fs, f.modPath(fileName))
	require.NoError(t, err)
	return exists
}

// offer makes the resolver return a file for id and makes that file
// downloadable.
func (f *fixture) offer(id string, name string, fileName string, releaseDate string, content string) platform.RemoteMod {
	url := "https://cdn.example.com/" + id + "/" + fileName
	remote := platform.RemoteMod{
		Name:        name,
		FileName:    fileName,
		ReleaseDate: releaseDate,
		Hash:        sha1Hex(content),
		DownloadURL: url,
	}

	f.downloads.mu.Lock()
	f.downloads.content[url] = content
	f.downloads.mu.Unlock()

	f.resolver.mu.Lock()
	f.resolver.results[id] = resolveResult{remote: remote}
	f.resolver.mu.Unlock()
	return remote
}

// installed records content as the locked file for mod and makes its
// download URL serve the same bytes.
func (f *fixture) installed(mod models.Mod, name string, fileName string, releasedOn string, content string) models.ModInstall {
	url := "https://cdn.example.com/locked/" + mod.ID + "/" + fileName

	f.downloads.mu.Lock()
	f.downloads.content[url] = content
	f.downloads.mu.Unlock()

	return models.ModInstall{
		Type:        mod.Type,
		ID:          mod.ID,
		Name:        name,
		FileName:    fileName,
		ReleasedOn:  releasedOn,
		Hash:        sha1Hex(content),
		DownloadURL: url,
	}
}

func modrinthMod(id string) models.Mod {
	return models.Mod{Type: models.MODRINTH, ID: id}
}

func curseforgeMod(id string) models.Mod {
	return models.Mod{Type: models.CURSEFORGE, ID: id}
}

func boolPtr(value bool) *bool {
	return &value
}

func stringPtr(value string) *string {
	return &value
}
