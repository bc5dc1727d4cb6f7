// Package modrinth talks to the Modrinth v2 API.
package modrinth

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/constants"
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

type Client struct {
	client httpclient.Doer
}

func NewClient(doer httpclient.Doer) *Client {
	return &Client{client: doer}
}

func UserAgent() string {
	return fmt.Sprintf("github_com/meza/%s/%s", constants.AppName, environment.AppVersion())
}

func (modrinthClient *Client) Do(request *http.Request) (*http.Response, error) {
	ctx, span := perf.StartSpan(request.Context(), "api.modrinth.http.request", perf.WithAttributes(attribute.String("url", request.URL.String())))
	defer span.End()

	request.Header.Set("User-Agent", UserAgent())
	request.Header.Set("Accept", "application/json")
	if key := environment.ModrinthAPIKey(); key != "" && !environment.IsPlaceholder(key) {
		request.Header.Set("Authorization", key)
	}

	return modrinthClient.client.Do(request.WithContext(ctx))
}

// GetBaseURL honours MODRINTH_API_URL so tests and mirrors can redirect traffic.
func GetBaseURL() string {
	return environment.ModrinthBaseURL()
}

type closeError struct {
	err error
}

func (e closeError) Error() string { return e.err.Error() }

func (e closeError) Unwrap() error { return e.err }

// fetchProjectJSON GETs a project-scoped resource into out. A body that
// decoded but failed to close yields a closeError so callers can keep the
// result.
func fetchProjectJSON(ctx context.Context, client httpclient.Doer, projectID string, requestURL string, out any) (returnErr error) {
	wrap := func(err error) error {
		return globalerrors.ProjectAPIErrorWrap(err, projectID, models.MODRINTH)
	}

	timeoutCtx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()
	request, err := newRequestWithContext(timeoutCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return wrap(err)
	}

	response, err := client.Do(request)
	if err != nil {
		return wrap(err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil && returnErr == nil {
			returnErr = closeError{err: err}
		}
	}()

	if response.StatusCode == http.StatusNotFound {
		return &globalerrors.ProjectNotFoundError{ProjectID: projectID, Platform: models.MODRINTH}
	}
	if response.StatusCode != http.StatusOK {
		return globalerrors.ProjectAPIStatusError(response.StatusCode, projectID, models.MODRINTH)
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return wrap(errors.Wrap(err, "failed to decode response body"))
	}
	return nil
}

func onlyCloseFailed(err error) bool {
	var closing closeError
	return stderrors.As(err, &closing)
}
