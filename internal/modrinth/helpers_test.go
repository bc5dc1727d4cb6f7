package modrinth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// newModrinthServer points the package at a test server for the duration of t.
func newModrinthServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("MODRINTH_API_URL", server.URL)
	return server
}
