package modrinth

import (
	"context"
	stdErrors "errors"
	"io"
	"net/http"
	"testing"
	"time"

	pkgErrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/meza/mod-reconciler/internal/globalerrors"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/testutil"
)

const singleVersionResponse = `[{
	"name": "Version 1.0.0",
	"version_number": "1.0.0",
	"game_versions": ["1.16.5", "1.17.1"],
	"version_type": "release",
	"loaders": ["fabric", "forge"],
	"status": "listed",
	"id": "IIJJKKLL",
	"project_id": "AABBCCDD",
	"date_published": "2024-08-07T20:21:13.726918Z",
	"files": [{
		"hashes": {
			"sha512": "93ecf5fe",
			"sha1": "c84dd4b3580c02b79958a0590afd5783d80ef504"
		},
		"url": "https://cdn.modrinth.com/data/AABBCCDD/versions/1.0.0/my_file.jar",
		"filename": "my_file.jar",
		"primary": false,
		"size": 1097270
	}]
}]`

func TestGetVersionsForProject(t *testing.T) {
	t.Setenv("MODRINTH_API_KEY", "test-api-key")
	newModrinthServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/project/AABBCCDD/version", r.URL.Path)
		assert.Equal(t, `["1.16.5","1.17.1"]`, r.URL.Query().Get("game_versions"))
		assert.Equal(t, `["fabric","forge"]`, r.URL.Query().Get("loaders"))
		assert.Equal(t, "test-api-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		testutil.WriteString(t, w, singleVersionResponse)
	})

	lookup := &VersionLookup{
		ProjectID:    "AABBCCDD",
		Loaders:      []models.Loader{models.FABRIC, models.FORGE},
		GameVersions: []string{"1.16.5", "1.17.1"},
	}

	versions, err := GetVersionsForProject(context.Background(), lookup, NewClient(http.DefaultClient))

	assert.NoError(t, err)
	if assert.Len(t, versions, 1) {
		version := versions[0]
		assert.Equal(t, "Version 1.0.0", version.Name)
		assert.Equal(t, "1.0.0", version.VersionNumber)
		assert.Equal(t, []string{"1.16.5", "1.17.1"}, version.GameVersions)
		assert.Equal(t, models.Release, version.Type)
		assert.Equal(t, Listed, version.Status)
		assert.Equal(t, []models.Loader{models.FABRIC, models.FORGE}, version.Loaders)
		assert.Equal(t, "IIJJKKLL", version.VersionID)
		assert.Equal(t, "AABBCCDD", version.ProjectID)
		assert.Equal(t, time.Date(2024, 8, 7, 20, 21, 13, 726918000, time.UTC), version.DatePublished)

		file, ok := version.PrimaryFile()
		assert.True(t, ok)
		assert.Equal(t, "c84dd4b3580c02b79958a0590afd5783d80ef504", file.Hashes.SHA1)
		assert.Equal(t, "https://cdn.modrinth.com/data/AABBCCDD/versions/1.0.0/my_file.jar", file.URL)
		assert.Equal(t, "my_file.jar", file.FileName)
		assert.Equal(t, int64(1097270), file.Size)
	}
}

func TestGetVersionsForProjectOmitsEmptyFilters(t *testing.T) {
	newModrinthServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		testutil.WriteString(t, w, `[]`)
	})

	versions, err := GetVersionsForProject(context.Background(), &VersionLookup{ProjectID: "AABBCCDD"}, NewClient(http.DefaultClient))
	assert.NoError(t, err)
	assert.Empty(t, versions)
}

func TestGetVersionsForProjectWhenProjectNotFound(t *testing.T) {
	newModrinthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	versions, err := GetVersionsForProject(context.Background(), &VersionLookup{ProjectID: "AABBCCDD"}, NewClient(http.DefaultClient))

	assert.ErrorIs(t, err, &globalerrors.ProjectNotFoundError{ProjectID: "AABBCCDD", Platform: models.MODRINTH})
	assert.Nil(t, versions)
}

func TestGetVersionsForProjectWhenProjectAPIUnknownStatus(t *testing.T) {
	newModrinthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	_, err := GetVersionsForProject(context.Background(), &VersionLookup{ProjectID: "AABBCCDD"}, NewClient(http.DefaultClient))

	var apiErr *globalerrors.ProjectAPIError
	if assert.ErrorAs(t, err, &apiErr) {
		assert.Equal(t, http.StatusTeapot, apiErr.StatusCode)
	}
	assert.Equal(t, "unexpected status code: 418", pkgErrors.Unwrap(err).Error())
}

func TestGetVersionsForProjectWhenAPICallTimesOut(t *testing.T) {
	timeout := &httpclient.TransportError{URL: "x", Err: &httpclient.TimeoutError{Err: context.DeadlineExceeded}}

	_, err := GetVersionsForProject(context.Background(), &VersionLookup{ProjectID: "AABBCCDD"}, NewClient(testutil.StaticDoer{Err: timeout}))

	assert.ErrorIs(t, err, &globalerrors.ProjectAPIError{ProjectID: "AABBCCDD", Platform: models.MODRINTH})
	var timeoutErr *httpclient.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestGetVersionsForProjectMarshalFailure(t *testing.T) {
	original := marshalJSON
	marshalJSON = func(any) ([]byte, error) { return nil, stdErrors.New("marshal failed") }
	t.Cleanup(func() { marshalJSON = original })

	_, err := GetVersionsForProject(context.Background(), &VersionLookup{ProjectID: "x", Loaders: []models.Loader{models.FABRIC}}, NewClient(testutil.StaticDoer{}))
	assert.ErrorContains(t, pkgErrors.Unwrap(err), "marshal failed")

	_, err = GetVersionsForProject(context.Background(), &VersionLookup{ProjectID: "x", GameVersions: []string{"1.21"}}, NewClient(testutil.StaticDoer{}))
	assert.ErrorContains(t, pkgErrors.Unwrap(err), "marshal failed")
}

func TestGetVersionsForProjectRequestBuildFailure(t *testing.T) {
	original := newRequestWithContext
	newRequestWithContext = func(context.Context, string, string, io.Reader) (*http.Request, error) {
		return nil, stdErrors.New("request failed")
	}
	t.Cleanup(func() { newRequestWithContext = original })

	_, err := GetVersionsForProject(context.Background(), &VersionLookup{ProjectID: "x"}, NewClient(testutil.StaticDoer{}))
	assert.ErrorContains(t, pkgErrors.Unwrap(err), "request failed")
}

func TestGetVersionsForProjectDecodeAndCloseFailures(t *testing.T) {
	_, err := GetVersionsForProject(context.Background(), &VersionLookup{ProjectID: "x"}, NewClient(testutil.StaticDoer{Response: &http.Response{
		StatusCode: http.StatusOK,
		Body:       testutil.Body(`[{`, nil),
	}}))
	assert.ErrorContains(t, pkgErrors.Unwrap(err), "failed to decode response body")

	closeErr := stdErrors.New("close failed")
	versions, err := GetVersionsForProject(context.Background(), &VersionLookup{ProjectID: "x"}, NewClient(testutil.StaticDoer{Response: &http.Response{
		StatusCode: http.StatusOK,
		Body:       testutil.Body(`[]`, closeErr),
	}}))
	assert.ErrorIs(t, err, closeErr)
	assert.NotNil(t, versions)
}

func TestVersionPrimaryFile(t *testing.T) {
	_, ok := Version{}.PrimaryFile()
	assert.False(t, ok)

	version := Version{Files: []VersionFile{{FileName: "sources.jar"}, {FileName: "main.jar", Primary: true}}}
	file, ok := version.PrimaryFile()
	assert.True(t, ok)
	assert.Equal(t, "main.jar", file.FileName)

	version.Files[1].Primary = false
	file, _ = version.PrimaryFile()
	assert.Equal(t, "sources.jar", file.FileName)
}
