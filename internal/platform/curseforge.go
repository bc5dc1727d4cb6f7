package platform

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/curseforge"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/perf"
)

type Curseforge struct {
	client *curseforge.Client
}

func NewCurseforge(doer httpclient.Doer) *Curseforge {
	return &Curseforge{client: curseforge.NewClient(doer)}
}

func (adapter *Curseforge) Resolve(ctx context.Context, projectID string, opts FetchOptions) (RemoteMod, error) {
	files, err := curseforge.GetFilesForProject(ctx, projectID, adapter.client)
	if err != nil {
		return RemoteMod{}, mapProjectNotFound(models.CURSEFORGE, projectID, err)
	}

	candidates := make([]candidate, 0, len(files))
	for _, file := range files {
		candidates = append(candidates, curseforgeCandidate(file))
	}

	selected, ok := selectCandidate(candidates, opts)
	if !ok {
		return RemoteMod{}, &NoCompatibleFileError{Platform: models.CURSEFORGE, ProjectID: projectID}
	}

	project, err := curseforge.GetProject(ctx, projectID, adapter.client)
	if err != nil {
		return RemoteMod{}, mapProjectNotFound(models.CURSEFORGE, projectID, err)
	}

	return selected.toRemote(project.Name), nil
}

// CurseForge has no loader field on files; loader names sit among the game
// versions, so both lists are the same slice.
func curseforgeCandidate(file curseforge.File) candidate {
	releaseType, _ := curseforgeReleaseType(file.ReleaseType)
	return candidate{
		fileName:     file.FileName,
		loaders:      file.GameVersions,
		gameVersions: file.GameVersions,
		releaseType:  releaseType,
		releasedAt:   file.FileDate,
		hash:         strings.ToLower(file.SHA1()),
		downloadURL:  file.DownloadURL,
		available:    file.IsDownloadable(),
	}
}

func curseforgeReleaseType(fileType curseforge.FileReleaseType) (models.ReleaseType, bool) {
	switch fileType {
	case curseforge.Release:
		return models.Release, true
	case curseforge.Beta:
		return models.Beta, true
	case curseforge.Alpha:
		return models.Alpha, true
	default:
		return "", false
	}
}

func (adapter *Curseforge) FindFingerprintMatches(ctx context.Context, fingerprints []int) (FingerprintMatches, error) {
	ctx, span := perf.StartSpan(ctx, "platform.curseforge.fingerprints", perf.WithAttributes(attribute.Int("fingerprints", len(fingerprints))))
	defer span.End()

	if len(fingerprints) == 0 {
		return FingerprintMatches{}, nil
	}

	result, err := curseforge.GetFingerprintsMatches(ctx, fingerprints, adapter.client)
	if err != nil {
		return FingerprintMatches{}, err
	}

	return FingerprintMatches{
		Exact:     toFingerprintMatches(result.Exact),
		Partial:   toFingerprintMatches(result.Partial),
		Unmatched: result.Unmatched,
		Installed: result.Installed,
	}, nil
}

func toFingerprintMatches(matches []curseforge.FingerprintMatch) []FingerprintMatch {
	out := make([]FingerprintMatch, 0, len(matches))
	for _, match := range matches {
		out = append(out, FingerprintMatch{
			Fingerprint: match.File.Fingerprint,
			ProjectID:   strconv.Itoa(match.ProjectID),
			Name:        match.File.DisplayName,
			FileName:    match.File.FileName,
			ReleaseDate: formatTime(match.File.FileDate),
			Hash:        strings.ToLower(match.File.SHA1()),
			DownloadURL: match.File.DownloadURL,
		})
	}
	return out
}
