package httpclient

import (
	"fmt"

	"github.com/meza/mod-reconciler/internal/i18n"
)

// RateLimitExceededError is returned when the shared limiter refuses to
// admit a request, either because the wait could not fit the context or
// because the context was cancelled. It is never retried.
type RateLimitExceededError struct {
	URL string
	Err error
}

func (e *RateLimitExceededError) Error() string {
	return i18n.T("error.rate_limit_exceeded", i18n.Tvars{
		Data: &i18n.TData{"url": e.URL},
	})
}

func (e *RateLimitExceededError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure of the underlying HTTP client: DNS, TLS,
// connection resets, timeouts. It is never retried.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("request to %s failed", e.URL)
	}
	return fmt.Sprintf("request to %s failed: %s", e.URL, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to download file: %s", e.Err.Error())
	}
	return fmt.Sprintf("download request failed with status %d", e.StatusCode)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
