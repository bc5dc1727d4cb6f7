package platform

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"github.com/meza/mod-reconciler/internal/httpclient"
)

// newRepositoryServer points both repository base URLs at one test server.
func newRepositoryServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("CURSEFORGE_API_URL", server.URL)
	t.Setenv("MODRINTH_API_URL", server.URL)
	return server
}

func noRetryClient() *httpclient.RLHTTPClient {
	client := httpclient.NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = httpclient.NoRetries()
	return client
}

func curseforgeFile(id int, fileName string, gameVersions []string, releaseType int, fileDate string) map[string]any {
	return map[string]any{
		"id":           id,
		"modId":        12345,
		"isAvailable":  true,
		"displayName":  fileName,
		"fileName":     fileName,
		"releaseType":  releaseType,
		"fileStatus":   4,
		"hashes":       []map[string]any{{"algo": 1, "value": "ABC" + fileName}},
		"fileDate":     fileDate,
		"downloadUrl":  "https://edge.forgecdn.net/files/" + fileName,
		"gameVersions": gameVersions,
	}
}

func curseforgeFilesPage(files ...map[string]any) map[string]any {
	return map[string]any{
		"data": files,
		"pagination": map[string]any{
			"index":       0,
			"pageSize":    50,
			"resultCount": len(files),
			"totalCount":  len(files),
		},
	}
}

func modrinthVersion(number string, gameVersions []string, versionType string, published string) map[string]any {
	return map[string]any{
		"id":             "v-" + number,
		"project_id":     "AANobbMI",
		"version_number": number,
		"version_type":   versionType,
		"status":         "listed",
		"date_published": published,
		"game_versions":  gameVersions,
		"loaders":        []string{"fabric"},
		"files": []map[string]any{{
			"filename": "sodium-" + number + ".jar",
			"url":      "https://cdn.modrinth.com/sodium-" + number + ".jar",
			"primary":  true,
			"hashes":   map[string]string{"sha1": "sha-" + number},
		}},
	}
}
