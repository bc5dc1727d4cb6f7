package platform

import (
	"context"
	"strings"

	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/modrinth"
)

type Modrinth struct {
	client *modrinth.Client
}

func NewModrinth(doer httpclient.Doer) *Modrinth {
	return &Modrinth{client: modrinth.NewClient(doer)}
}

// Resolve lists every version for the loader and leaves game version
// matching to the shared selection, which is what makes the major.minor
// fallback possible without a second listing.
func (adapter *Modrinth) Resolve(ctx context.Context, projectID string, opts FetchOptions) (RemoteMod, error) {
	lookup := &modrinth.VersionLookup{ProjectID: projectID}
	if strings.TrimSpace(string(opts.Loader)) != "" {
		lookup.Loaders = []models.Loader{opts.Loader}
	}

	versions, err := modrinth.GetVersionsForProject(ctx, lookup, adapter.client)
	if err != nil {
		return RemoteMod{}, mapProjectNotFound(models.MODRINTH, projectID, err)
	}

	candidates := make([]candidate, 0, len(versions))
	for _, version := range versions {
		if c, ok := modrinthCandidate(version); ok {
			candidates = append(candidates, c)
		}
	}

	selected, ok := selectCandidate(candidates, opts)
	if !ok {
		return RemoteMod{}, &NoCompatibleFileError{Platform: models.MODRINTH, ProjectID: projectID}
	}

	project, err := modrinth.GetProject(ctx, projectID, adapter.client)
	if err != nil {
		return RemoteMod{}, mapProjectNotFound(models.MODRINTH, projectID, err)
	}

	return selected.toRemote(project.Title), nil
}

func modrinthCandidate(version modrinth.Version) (candidate, bool) {
	file, ok := version.PrimaryFile()
	if !ok {
		return candidate{}, false
	}

	loaders := make([]string, 0, len(version.Loaders))
	for _, loader := range version.Loaders {
		loaders = append(loaders, string(loader))
	}

	return candidate{
		fileName:      file.FileName,
		versionNumber: version.VersionNumber,
		loaders:       loaders,
		gameVersions:  version.GameVersions,
		releaseType:   version.Type,
		releasedAt:    version.DatePublished,
		hash:          strings.ToLower(file.Hashes.SHA1),
		downloadURL:   file.URL,
		available:     version.Status != modrinth.Draft && version.Status != modrinth.Scheduled,
	}, true
}

// FindHashMatch looks a local file up by sha1. A miss is not an error.
func (adapter *Modrinth) FindHashMatch(ctx context.Context, sha1 string) (HashMatch, bool, error) {
	version, err := modrinth.GetVersionForHash(ctx, modrinth.HashLookup{Hash: sha1, Algorithm: modrinth.SHA1}, adapter.client)
	if modrinth.IsHashNotFound(err) {
		return HashMatch{}, false, nil
	}
	if err != nil {
		return HashMatch{}, false, err
	}

	file, ok := fileWithHash(*version, sha1)
	if !ok {
		return HashMatch{}, false, nil
	}

	name := version.Name
	project, err := modrinth.GetProject(ctx, version.ProjectID, adapter.client)
	if err != nil {
		return HashMatch{}, false, mapProjectNotFound(models.MODRINTH, version.ProjectID, err)
	}
	if project.Title != "" {
		name = project.Title
	}

	return HashMatch{
		ProjectID:   version.ProjectID,
		Name:        name,
		FileName:    file.FileName,
		ReleaseDate: formatTime(version.DatePublished),
		Hash:        strings.ToLower(file.Hashes.SHA1),
		DownloadURL: file.URL,
	}, true, nil
}

func fileWithHash(version modrinth.Version, sha1 string) (modrinth.VersionFile, bool) {
	for _, file := range version.Files {
		if strings.EqualFold(file.Hashes.SHA1, sha1) {
			return file, true
		}
	}
	return modrinth.VersionFile{}, false
}
