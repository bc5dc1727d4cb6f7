package modrinth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/globalerrors"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/perf"
)

type VersionStatus string
type VersionAlgorithm string

const (
	Listed    VersionStatus = "listed"
	Archived  VersionStatus = "archived"
	Draft     VersionStatus = "draft"
	Unlisted  VersionStatus = "unlisted"
	Scheduled VersionStatus = "scheduled"
	Unknown   VersionStatus = "unknown"
)

const (
	SHA1   VersionAlgorithm = "sha1"
	SHA512 VersionAlgorithm = "sha512"
)

type VersionFileHash struct {
	SHA1   string `json:"sha1"`
	Sha512 string `json:"sha512"`
}

type VersionFile struct {
	FileName string          `json:"filename"`
	Hashes   VersionFileHash `json:"hashes"`
	Primary  bool            `json:"primary"`
	Size     int64           `json:"size"`
	URL      string          `json:"url"`
}

type Version struct {
	DatePublished time.Time          `json:"date_published"`
	Files         []VersionFile      `json:"files"`
	GameVersions  []string           `json:"game_versions"`
	Loaders       []models.Loader    `json:"loaders"`
	Name          string             `json:"name"`
	ProjectID     string             `json:"project_id"`
	Status        VersionStatus      `json:"status"`
	Type          models.ReleaseType `json:"version_type"`
	VersionID     string             `json:"id"`
	VersionNumber string             `json:"version_number"`
}

// PrimaryFile is the file flagged primary, or the first one when none is.
func (version Version) PrimaryFile() (VersionFile, bool) {
	if len(version.Files) == 0 {
		return VersionFile{}, false
	}
	for _, file := range version.Files {
		if file.Primary {
			return file, true
		}
	}
	return version.Files[0], true
}

type Versions []Version

// VersionLookup narrows the listing server side. Empty filters are not sent.
type VersionLookup struct {
	ProjectID    string
	Loaders      []models.Loader
	GameVersions []string
}

func versionsURL(lookup *VersionLookup) (string, error) {
	parsed, err := url.Parse(fmt.Sprintf("%s/v2/project/%s/version", GetBaseURL(), url.PathEscape(lookup.ProjectID)))
	if err != nil {
		return "", err
	}

	query := url.Values{}
	if len(lookup.GameVersions) > 0 {
		encoded, err := marshalJSON(lookup.GameVersions)
		if err != nil {
			return "", err
		}
		query.Set("game_versions", string(encoded))
	}
	if len(lookup.Loaders) > 0 {
		encoded, err := marshalJSON(lookup.Loaders)
		if err != nil {
			return "", err
		}
		query.Set("loaders", string(encoded))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func GetVersionsForProject(ctx context.Context, lookup *VersionLookup, client httpclient.Doer) (Versions, error) {
	ctx, span := perf.StartSpan(ctx, "api.modrinth.version.list", perf.WithAttributes(attribute.String("project_id", lookup.ProjectID)))
	defer span.End()

	requestURL, err := versionsURL(lookup)
	if err != nil {
		return nil, globalerrors.ProjectAPIErrorWrap(err, lookup.ProjectID, models.MODRINTH)
	}

	var versions Versions
	err = fetchProjectJSON(ctx, client, lookup.ProjectID, requestURL, &versions)
	if err != nil && !onlyCloseFailed(err) {
		return nil, err
	}
	span.SetAttributes(attribute.Int("versions", len(versions)))
	return versions, err
}

func GetVersionForHash(ctx context.Context, lookup HashLookup, client httpclient.Doer) (version *Version, returnErr error) {
	ctx, span := perf.StartSpan(ctx, "api.modrinth.version_file.get", perf.WithAttributes(attribute.String("hash", lookup.Hash)))
	defer span.End()

	fail := func(err error) error {
		return &HashLookupError{Lookup: lookup, Err: err}
	}

	query := url.Values{"algorithm": {string(lookup.Algorithm)}}
	requestURL := fmt.Sprintf("%s/v2/version_file/%s?%s", GetBaseURL(), url.PathEscape(lookup.Hash), query.Encode())

	timeoutCtx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()
	request, err := newRequestWithContext(timeoutCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fail(err)
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, fail(err)
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil && returnErr == nil {
			returnErr = closeErr
		}
	}()

	span.SetAttributes(attribute.Int("status", response.StatusCode))
	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &HashLookupError{Lookup: lookup, NotFound: true}
	default:
		return nil, fail(errors.Errorf("unexpected status code: %d", response.StatusCode))
	}

	version = &Version{}
	if err := json.NewDecoder(response.Body).Decode(version); err != nil {
		return nil, fail(errors.Wrap(err, "failed to decode response body"))
	}
	return version, nil
}
