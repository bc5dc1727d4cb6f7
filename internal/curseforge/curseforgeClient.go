// Package curseforge talks to the CurseForge v1 API.
package curseforge

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/environment"
	"github.com/meza/mod-reconciler/internal/globalerrors"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/perf"
)

var (
	newRequestWithContext = http.NewRequestWithContext
	marshalJSON           = json.Marshal
)

// Client decorates a Doer with the CurseForge headers. It is usually
// wrapped around the shared rate-limited client.
type Client struct {
	client httpclient.Doer
}

func NewClient(doer httpclient.Doer) *Client {
	return &Client{client: doer}
}

func (curseforgeClient *Client) Do(request *http.Request) (*http.Response, error) {
	ctx, span := perf.StartSpan(request.Context(), "api.curseforge.http.request", perf.WithAttributes(attribute.String("url", request.URL.String())))
	defer span.End()

	request.Header.Set("Accept", "application/json")
	request.Header.Set("x-api-key", environment.CurseforgeAPIKey())

	return curseforgeClient.client.Do(request.WithContext(ctx))
}

// GetBaseURL honours CURSEFORGE_API_URL so tests and mirrors can redirect traffic.
func GetBaseURL() string {
	return environment.CurseforgeBaseURL()
}

// closeError marks a failure to close a body that was already decoded, so
// callers can still hand back what they read.
type closeError struct {
	err error
}

func (e closeError) Error() string { return e.err.Error() }

func (e closeError) Unwrap() error { return e.err }

// getProjectJSON performs a GET for one project's resource and decodes the
// body into out. 404 is a ProjectNotFoundError; anything else that is not
// 200 is a ProjectAPIError carrying the status.
func getProjectJSON(ctx context.Context, client httpclient.Doer, projectID string, url string, out any) (returnErr error) {
	ctx, span := perf.StartSpan(ctx, "api.curseforge.get", perf.WithAttributes(attribute.String("url", url)))
	defer span.End()

	fail := func(err error) error {
		return globalerrors.ProjectAPIErrorWrap(err, projectID, models.CURSEFORGE)
	}

	timeoutCtx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()
	request, err := newRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return fail(err)
	}

	response, err := client.Do(request)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil && returnErr == nil {
			returnErr = closeError{err: err}
		}
	}()

	span.SetAttributes(attribute.Int("status", response.StatusCode))
	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return &globalerrors.ProjectNotFoundError{ProjectID: projectID, Platform: models.CURSEFORGE}
	default:
		return globalerrors.ProjectAPIStatusError(response.StatusCode, projectID, models.CURSEFORGE)
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fail(errors.Wrap(err, "failed to decode response body"))
	}
	return nil
}

func isCloseError(err error) bool {
	var closing closeError
	return stderrors.As(err, &closing)
}
