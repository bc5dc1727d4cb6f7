package testutil

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/meza/mod-reconciler/internal/environment"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/models"
)

// FakeRepositories answers the Modrinth and CurseForge endpoints the
// commands use, plus file downloads, from in-memory fixtures.
type FakeRepositories struct {
	Server *httptest.Server

	mu           sync.Mutex
	projects     map[string]string
	versions     map[string][]map[string]any
	hashes       map[string]map[string]any
	files        map[string][]byte
	fingerprints map[int]map[string]any
}

// ModrinthRelease describes one Modrinth version with a single primary file.
type ModrinthRelease struct {
	ProjectID    string
	Title        string
	VersionID    string
	FileName     string
	Content      string
	Published    time.Time
	GameVersions []string
	Loaders      []models.Loader
}

func NewFakeRepositories(t *testing.T) *FakeRepositories {
	t.Helper()
	fake := &FakeRepositories{
		projects:     map[string]string{},
		versions:     map[string][]map[string]any{},
		hashes:       map[string]map[string]any{},
		files:        map[string][]byte{},
		fingerprints: map[int]map[string]any{},
	}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.Server.Close)
	return fake
}

// Doer sends every request, whatever its host, to the fake through an
// unlimited client without retries.
func (fake *FakeRepositories) Doer() *HostRewriteDoer {
	client := httpclient.NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = httpclient.NoRetries()
	return MustNewHostRewriteDoer(fake.Server.URL, client)
}

func SHA1Hex(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// AddModrinthRelease registers the release and returns its download URL.
func (fake *FakeRepositories) AddModrinthRelease(release ModrinthRelease) string {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	if release.GameVersions == nil {
		release.GameVersions = []string{"1.21.1"}
	}
	if release.Loaders == nil {
		release.Loaders = []models.Loader{models.FABRIC}
	}
	path := "/data/" + release.ProjectID + "/versions/" + release.VersionID + "/" + release.FileName
	url := "https://cdn.modrinth.com" + path
	version := map[string]any{
		"id":             release.VersionID,
		"project_id":     release.ProjectID,
		"name":           release.FileName,
		"version_number": release.VersionID,
		"version_type":   "release",
		"status":         "listed",
		"date_published": release.Published.UTC().Format(time.RFC3339),
		"game_versions":  release.GameVersions,
		"loaders":        release.Loaders,
		"files": []map[string]any{{
			"filename": release.FileName,
			"primary":  true,
			"url":      url,
			"size":     len(release.Content),
			"hashes":   map[string]string{"sha1": SHA1Hex(release.Content)},
		}},
	}

	fake.projects[release.ProjectID] = release.Title
	fake.versions[release.ProjectID] = append([]map[string]any{version}, fake.versions[release.ProjectID]...)
	fake.hashes[SHA1Hex(release.Content)] = version
	fake.files[path] = []byte(release.Content)
	return url
}

// AddCurseforgeFingerprint makes fingerprint an exact match for the project.
func (fake *FakeRepositories) AddCurseforgeFingerprint(fingerprint int, projectID int, displayName string, fileName string, content string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	path := "/files/" + fileName
	fake.files[path] = []byte(content)
	fake.fingerprints[fingerprint] = map[string]any{
		"id": projectID,
		"file": map[string]any{
			"id":              fingerprint,
			"modId":           projectID,
			"displayName":     displayName,
			"fileName":        fileName,
			"releaseType":     1,
			"fileDate":        "2024-05-01T10:00:00Z",
			"downloadUrl":     "https://edge.forgecdn.net" + path,
			"fileFingerprint": fingerprint,
			"fingerprint":     fingerprint,
			"fileStatus":      4,
			"isAvailable":     true,
			"hashes":          []map[string]any{{"value": SHA1Hex(content), "algo": 1}},
			"gameVersions":    []string{"1.21.1", "Fabric"},
		},
	}
}

func (fake *FakeRepositories) serve(w http.ResponseWriter, r *http.Request) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/v2/project/") && strings.HasSuffix(path, "/version"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/v2/project/"), "/version")
		versions, ok := fake.versions[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, versions)
	case strings.HasPrefix(path, "/v2/project/"):
		id := strings.TrimPrefix(path, "/v2/project/")
		title, ok := fake.projects[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"id": id, "title": title})
	case strings.HasPrefix(path, "/v2/version_file/"):
		version, ok := fake.hashes[strings.TrimPrefix(path, "/v2/version_file/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, version)
	case strings.HasPrefix(path, basePath(environment.CurseforgeBaseURL())+"/fingerprints/"):
		fake.serveFingerprints(w, r)
	default:
		content, ok := fake.files[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(content)
	}
}

// basePath is the path part of a repository base URL, such as /v1 for
// CurseForge, which the clients put in front of every endpoint.
func basePath(base string) string {
	parsed, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(parsed.Path, "/")
}

func (fake *FakeRepositories) serveFingerprints(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Fingerprints []int `json:"fingerprints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	exact := []map[string]any{}
	unmatched := []int{}
	for _, fingerprint := range request.Fingerprints {
		if match, ok := fake.fingerprints[fingerprint]; ok {
			exact = append(exact, match)
			continue
		}
		unmatched = append(unmatched, fingerprint)
	}
	writeJSON(w, map[string]any{"data": map[string]any{
		"exactMatches":          exact,
		"partialMatches":        []map[string]any{},
		"unmatchedFingerprints": unmatched,
		"installedFingerprints": []int{},
	}})
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
