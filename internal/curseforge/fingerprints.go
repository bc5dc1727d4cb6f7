package curseforge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/perf"
)

type getFingerprintsRequest struct {
	Fingerprints []int `json:"fingerprints"`
}

type fingerprintMatch struct {
	ProjectID   int    `json:"id"`
	File        File   `json:"file"`
	LatestFiles []File `json:"latestFiles"`
}

type fingerprintsMatchResult struct {
	ExactMatches          []fingerprintMatch `json:"exactMatches"`
	PartialMatches        []fingerprintMatch `json:"partialMatches"`
	UnmatchedFingerprints json.RawMessage    `json:"unmatchedFingerprints"`
	InstalledFingerprints json.RawMessage    `json:"installedFingerprints"`
}

type getFingerprintsMatchesResponse struct {
	Data fingerprintsMatchResult `json:"data"`
}

func GetFingerprintsMatches(ctx context.Context, fingerprints []int, client httpclient.Doer) (result *FingerprintResult, returnErr error) {
	ctx, span := perf.StartSpan(ctx, "api.curseforge.fingerprints.match", perf.WithAttributes(attribute.Int("fingerprints_count", len(fingerprints))))
	defer span.End()

	url := fmt.Sprintf("%s/fingerprints/%d", GetBaseURL(), Minecraft)

	body, err := marshalJSON(getFingerprintsRequest{Fingerprints: fingerprints})
	if err != nil {
		return nil, &FingerprintAPIError{Lookup: fingerprints, Err: err}
	}
	timeoutCtx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()
	request, err := newRequestWithContext(timeoutCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &FingerprintAPIError{Lookup: fingerprints, Err: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return nil, &FingerprintAPIError{Lookup: fingerprints, Err: err}
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil && returnErr == nil {
			returnErr = closeErr
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, &FingerprintAPIError{
			Lookup: fingerprints,
			Err:    errors.Errorf("unexpected status code: %d", response.StatusCode),
		}
	}

	var decoded getFingerprintsMatchesResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return nil, &FingerprintAPIError{
			Lookup: fingerprints,
			Err:    errors.Wrap(err, "failed to decode response body"),
		}
	}

	unmatched, err := decodeFingerprintSet(decoded.Data.UnmatchedFingerprints)
	if err != nil {
		return nil, &FingerprintAPIError{Lookup: fingerprints, Err: errors.Wrap(err, "failed to decode unmatchedFingerprints")}
	}
	installed, err := decodeFingerprintSet(decoded.Data.InstalledFingerprints)
	if err != nil {
		return nil, &FingerprintAPIError{Lookup: fingerprints, Err: errors.Wrap(err, "failed to decode installedFingerprints")}
	}

	result = &FingerprintResult{
		Exact:     toMatches(decoded.Data.ExactMatches),
		Partial:   toMatches(decoded.Data.PartialMatches),
		Unmatched: unmatched,
		Installed: installed,
	}
	span.SetAttributes(
		attribute.Int("exact", len(result.Exact)),
		attribute.Int("partial", len(result.Partial)),
		attribute.Int("unmatched", len(result.Unmatched)),
	)
	return result, nil
}

func toMatches(raw []fingerprintMatch) []FingerprintMatch {
	out := make([]FingerprintMatch, 0, len(raw))
	for _, item := range raw {
		file := item.File
		if file.Fingerprint == 0 && file.FileFingerprint != 0 {
			file.Fingerprint = file.FileFingerprint
		}
		projectID := item.ProjectID
		if projectID == 0 {
			projectID = file.ProjectID
		}
		out = append(out, FingerprintMatch{
			ProjectID:   projectID,
			File:        file,
			LatestFiles: item.LatestFiles,
		})
	}
	return out
}

// decodeFingerprintSet accepts either a JSON list of numbers or an object
// keyed by fingerprint; both shapes appear in the wild.
func decodeFingerprintSet(raw json.RawMessage) ([]int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []int{}, nil
	}

	var list []int
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, errors.Errorf("unsupported type: %s", string(raw))
	}

	out := make([]int, 0, len(asMap))
	for key := range asMap {
		value, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out = append(out, value)
	}
	sort.Ints(out)
	return out, nil
}
