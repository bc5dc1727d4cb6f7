package platform

import (
	"sort"
	"strings"
	"time"

	"github.com/meza/mod-reconciler/internal/models"
)

// candidate is a repository file reduced to what selection looks at.
type candidate struct {
	fileName      string
	versionNumber string
	loaders       []string
	gameVersions  []string
	releaseType   models.ReleaseType
	releasedAt    time.Time
	hash          string
	downloadURL   string
	available     bool
}

func (c candidate) matchesLoader(loader models.Loader) bool {
	if strings.TrimSpace(string(loader)) == "" {
		return true
	}
	for _, label := range c.loaders {
		if loader.Matches(label) {
			return true
		}
	}
	return false
}

func (c candidate) matchesPin(pin string) bool {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return true
	}
	if strings.EqualFold(c.fileName, pin) {
		return true
	}
	return c.versionNumber != "" && strings.EqualFold(c.versionNumber, pin)
}

func (c candidate) hasGameVersion(matches func(string) bool) bool {
	for _, version := range c.gameVersions {
		if matches(version) {
			return true
		}
	}
	return false
}

func (c candidate) toRemote(name string) RemoteMod {
	return RemoteMod{
		Name:        name,
		FileName:    c.fileName,
		ReleaseDate: formatTime(c.releasedAt),
		Hash:        c.hash,
		DownloadURL: c.downloadURL,
	}
}

func allowedReleaseTypes(opts FetchOptions) []models.ReleaseType {
	if len(opts.AllowedReleaseTypes) == 0 {
		return []models.ReleaseType{models.Release}
	}
	return opts.AllowedReleaseTypes
}

// selectCandidate applies the constraints shared by every repository and
// returns the most recently released survivor. Candidates released at the same
// instant keep the order the repository listed them in.
func selectCandidate(candidates []candidate, opts FetchOptions) (candidate, bool) {
	allowed := allowedReleaseTypes(opts)

	eligible := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.matchesLoader(opts.Loader) {
			continue
		}
		if !models.ContainsReleaseType(allowed, c.releaseType) {
			continue
		}
		if !c.matchesPin(opts.FixedVersion) {
			continue
		}
		if !c.available || c.hash == "" || c.downloadURL == "" {
			continue
		}
		eligible = append(eligible, c)
	}

	matched := eligible
	if strings.TrimSpace(opts.GameVersion) != "" {
		matched = filterGameVersion(eligible, exactGameVersion(opts.GameVersion))
		if len(matched) == 0 && opts.AllowFallback {
			matched = filterGameVersion(eligible, sameMajorMinor(opts.GameVersion))
		}
	}
	if len(matched) == 0 {
		return candidate{}, false
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].releasedAt.After(matched[j].releasedAt)
	})
	return matched[0], true
}

func filterGameVersion(candidates []candidate, matches func(string) bool) []candidate {
	filtered := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.hasGameVersion(matches) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
