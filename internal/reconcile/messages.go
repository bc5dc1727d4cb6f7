package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/meza/mod-reconciler/internal/filehash"
	"github.com/meza/mod-reconciler/internal/globalerrors"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/i18n"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/modfilename"
	"github.com/meza/mod-reconciler/internal/modinstall"
	"github.com/meza/mod-reconciler/internal/modpath"
	"github.com/meza/mod-reconciler/internal/platform"
)

// classify keeps errors the engine knows how to report and wraps the rest in
// UnexpectedError.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		rateLimited *httpclient.RateLimitExceededError
		transport   *httpclient.TransportError
		download    *httpclient.DownloadError
		notFound    *platform.ModNotFoundError
		noFile      *platform.NoCompatibleFileError
		unknown     *platform.UnknownPlatformError
		apiErr      *globalerrors.ProjectAPIError
		unreadable  *filehash.FileUnreadableError
		integrity   *IntegrityError
		mismatch    modinstall.HashMismatchError
		badFileName modfilename.Error
		outsideRoot *modpath.OutsideRootError
		unexpected  *UnexpectedError
	)
	switch {
	case errors.As(err, &rateLimited),
		errors.As(err, &transport),
		errors.As(err, &download),
		errors.As(err, &notFound),
		errors.As(err, &noFile),
		errors.As(err, &unknown),
		errors.As(err, &apiErr),
		errors.As(err, &unreadable),
		errors.As(err, &integrity),
		errors.As(err, &mismatch),
		errors.As(err, &badFileName),
		errors.As(err, &outsideRoot),
		errors.As(err, &unexpected),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &UnexpectedError{Err: err}
}

func failureMessage(mod models.Mod, err error) string {
	data := i18n.TData{
		"name":     mod.DisplayName(),
		"id":       mod.ID,
		"platform": string(mod.Type),
	}
	key := "reconcile.error.unexpected"

	var (
		rateLimited *httpclient.RateLimitExceededError
		timeout     *httpclient.TimeoutError
		transport   *httpclient.TransportError
		download    *httpclient.DownloadError
		notFound    *platform.ModNotFoundError
		noFile      *platform.NoCompatibleFileError
		unknown     *platform.UnknownPlatformError
		apiErr      *globalerrors.ProjectAPIError
		unreadable  *filehash.FileUnreadableError
		integrity   *IntegrityError
		mismatch    modinstall.HashMismatchError
		badFileName modfilename.Error
		outsideRoot *modpath.OutsideRootError
	)
	switch {
	case errors.As(err, &notFound):
		key = "reconcile.error.mod_not_found"
	case errors.As(err, &noFile):
		key = "reconcile.error.no_file"
	case errors.As(err, &unknown):
		key = "reconcile.error.unknown_platform"
	case errors.As(err, &integrity):
		key = "reconcile.error.integrity"
		data["reason"] = string(integrity.Reason)
	case errors.As(err, &mismatch):
		key = "reconcile.error.hash_mismatch"
		data["file"] = mismatch.FileName
	case errors.As(err, &badFileName):
		key = "reconcile.error.invalid_filename"
		data["file"] = modfilename.Display(badFileName.Value)
	case errors.As(err, &outsideRoot):
		key = "reconcile.error.outside_root"
		data["path"] = outsideRoot.Path
	case errors.As(err, &unreadable):
		key = "reconcile.error.unreadable"
		data["path"] = unreadable.Path
	case errors.As(err, &rateLimited), errors.Is(err, context.Canceled):
		key = "reconcile.error.rate_limited"
	case errors.As(err, &timeout):
		key = "reconcile.error.timeout"
	case errors.As(err, &download):
		key = "reconcile.error.download"
		data["url"] = download.URL
		data["status"] = download.StatusCode
	case errors.As(err, &apiErr) && apiErr.StatusCode != 0:
		key = "reconcile.error.api"
		data["status"] = apiErr.StatusCode
	case errors.As(err, &transport):
		key = "reconcile.error.network"
		data["err"] = transport.Error()
	default:
		data["err"] = err.Error()
	}

	return i18n.T(key, i18n.Tvars{Data: &data})
}

func withIcon(icon string, message string) string {
	return fmt.Sprintf("%s %s", icon, message)
}
