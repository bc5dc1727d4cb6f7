package httpclient

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/meza/mod-reconciler/internal/i18n"
)

// Metadata calls are small JSON requests; downloads may be large jars.
const (
	MetadataTimeout = 15 * time.Second
	DownloadTimeout = 5 * time.Minute
)

// TimeoutError replaces a deadline or net timeout so callers can report it
// without knowing where it came from.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return i18n.T("error.network_timeout")
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

func wrapTimeout(err error) error {
	var already *TimeoutError
	var netErr net.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &already):
		return already
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return &TimeoutError{Err: err}
	}
	return err
}

func WithMetadataTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, MetadataTimeout)
}

func WithDownloadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DownloadTimeout)
}
