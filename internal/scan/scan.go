// Package scan finds jar files in the mods folder that the lock file does not
// manage and identifies them on CurseForge (by fingerprint) and Modrinth (by
// sha1), optionally adopting the exact matches into the manifest.
package scan

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	curseforgeFingerprint "github.com/meza/curseforge-fingerprint-go"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meza/mod-reconciler/internal/config"
	"github.com/meza/mod-reconciler/internal/filehash"
	"github.com/meza/mod-reconciler/internal/fileutils"
	"github.com/meza/mod-reconciler/internal/mmmignore"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/perf"
	"github.com/meza/mod-reconciler/internal/platform"
)

// Fingerprinter computes the CurseForge fingerprint of the file at path.
type Fingerprinter func(path string) uint32

// Match is a local file identified on a repository.
type Match struct {
	Path        string
	Platform    models.Platform
	ProjectID   string
	Name        string
	FileName    string
	ReleaseDate string
	Hash        string
	DownloadURL string
}

type Unsure struct {
	Path string
	Err  error
}

type Report struct {
	Exact     []Match
	Partial   []Match
	Unmatched []string
	Unsure    []Unsure
}

func (r Report) Empty() bool {
	return len(r.Exact) == 0 && len(r.Partial) == 0 && len(r.Unmatched) == 0 && len(r.Unsure) == 0
}

type Scanner struct {
	fs           afero.Fs
	fingerprints platform.FingerprintMatcher
	hashes       platform.HashMatcher
	fingerprint  Fingerprinter
}

// New builds a Scanner. hashes may be nil to skip the Modrinth lookup; a nil
// fingerprint uses curseforge-fingerprint-go, which reads from the OS file
// system.
func New(fs afero.Fs, fingerprints platform.FingerprintMatcher, hashes platform.HashMatcher, fingerprint Fingerprinter) *Scanner {
	if fingerprint == nil {
		fingerprint = curseforgeFingerprint.GetFingerprintFor
	}
	return &Scanner{
		fs:           fs,
		fingerprints: fingerprints,
		hashes:       hashes,
		fingerprint:  fingerprint,
	}
}

type candidate struct {
	path        string
	fileName    string
	sha1        string
	fingerprint int
}

// Unmanaged lists the .jar files in the mods folder that no lock entry claims
// and .mmmignore does not exclude.
func (s *Scanner) Unmanaged(meta config.Metadata, cfg models.ModsJSON, lock []models.ModInstall) ([]string, error) {
	folder := meta.ModsFolderPath(cfg)
	names, err := fileutils.ListFiles(s.fs, folder, ".jar")
	if err != nil {
		return nil, err
	}

	ignore, err := mmmignore.Load(s.fs, meta.Dir())
	if err != nil {
		return nil, err
	}

	managed := make(map[string]struct{}, len(lock))
	for _, installed := range lock {
		managed[installed.FileName] = struct{}{}
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := managed[name]; ok {
			continue
		}
		path := filepath.Join(folder, name)
		if ignore.Ignores(path) {
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Scan identifies every unmanaged file. Fingerprinting runs first; files
// CurseForge does not know exactly are looked up on Modrinth by sha1.
func (s *Scanner) Scan(ctx context.Context, meta config.Metadata, cfg models.ModsJSON, lock []models.ModInstall) (report Report, returnErr error) {
	ctx, span := perf.StartSpan(ctx, "scan.run", perf.WithAttributes(attribute.String("mods_folder", meta.ModsFolderPath(cfg))))
	defer func() {
		span.SetAttributes(
			attribute.Bool("success", returnErr == nil),
			attribute.Int("exact", len(report.Exact)),
			attribute.Int("partial", len(report.Partial)),
			attribute.Int("unmatched", len(report.Unmatched)),
			attribute.Int("unsure", len(report.Unsure)),
		)
		span.End()
	}()

	paths, err := s.Unmanaged(meta, cfg, lock)
	if err != nil {
		return Report{}, err
	}

	candidates := make([]candidate, 0, len(paths))
	for _, path := range paths {
		sum, err := filehash.SHA1ForFile(s.fs, path)
		if err != nil {
			report.Unsure = append(report.Unsure, Unsure{Path: path, Err: err})
			continue
		}
		candidates = append(candidates, candidate{
			path:        path,
			fileName:    filepath.Base(path),
			sha1:        sum,
			fingerprint: int(s.fingerprint(path)),
		})
	}

	remaining, curseforgeErr := s.matchFingerprints(ctx, candidates, &report)
	for _, c := range remaining {
		s.matchHash(ctx, c, curseforgeErr, &report)
	}

	sortReport(&report)
	return report, nil
}

// matchFingerprints fills Exact and Partial and returns the candidates left
// over for the sha1 lookup. A failed request leaves every candidate over.
func (s *Scanner) matchFingerprints(ctx context.Context, candidates []candidate, report *Report) ([]candidate, error) {
	if len(candidates) == 0 || s.fingerprints == nil {
		return candidates, nil
	}

	byFingerprint := make(map[int][]candidate, len(candidates))
	unique := make([]int, 0, len(candidates))
	for _, c := range candidates {
		if _, seen := byFingerprint[c.fingerprint]; !seen {
			unique = append(unique, c.fingerprint)
		}
		byFingerprint[c.fingerprint] = append(byFingerprint[c.fingerprint], c)
	}
	sort.Ints(unique)

	matches, err := s.fingerprints.FindFingerprintMatches(ctx, unique)
	if err != nil {
		return candidates, err
	}

	identified := make(map[string]struct{}, len(candidates))
	for _, found := range matches.Exact {
		for _, c := range byFingerprint[found.Fingerprint] {
			if strings.TrimSpace(found.DownloadURL) == "" {
				report.Unsure = append(report.Unsure, Unsure{Path: c.path, Err: fmt.Errorf("curseforge match for %s has no download url", c.fileName)})
				identified[c.path] = struct{}{}
				continue
			}
			report.Exact = append(report.Exact, fromFingerprint(c, found))
			identified[c.path] = struct{}{}
		}
	}
	for _, found := range matches.Partial {
		for _, c := range byFingerprint[found.Fingerprint] {
			if _, done := identified[c.path]; done {
				continue
			}
			report.Partial = append(report.Partial, fromFingerprint(c, found))
			identified[c.path] = struct{}{}
		}
	}

	remaining := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, done := identified[c.path]; !done {
			remaining = append(remaining, c)
		}
	}
	return remaining, nil
}

func (s *Scanner) matchHash(ctx context.Context, c candidate, curseforgeErr error, report *Report) {
	if s.hashes == nil {
		s.unmatched(c, curseforgeErr, report)
		return
	}

	found, ok, err := s.hashes.FindHashMatch(ctx, c.sha1)
	switch {
	case err != nil:
		report.Unsure = append(report.Unsure, Unsure{Path: c.path, Err: err})
	case !ok || strings.TrimSpace(found.DownloadURL) == "":
		s.unmatched(c, curseforgeErr, report)
	default:
		report.Exact = append(report.Exact, Match{
			Path:        c.path,
			Platform:    models.MODRINTH,
			ProjectID:   found.ProjectID,
			Name:        found.Name,
			FileName:    c.fileName,
			ReleaseDate: found.ReleaseDate,
			Hash:        c.sha1,
			DownloadURL: found.DownloadURL,
		})
	}
}

// unmatched files become unsure when CurseForge could not be asked.
func (s *Scanner) unmatched(c candidate, curseforgeErr error, report *Report) {
	if curseforgeErr != nil {
		report.Unsure = append(report.Unsure, Unsure{Path: c.path, Err: curseforgeErr})
		return
	}
	report.Unmatched = append(report.Unmatched, c.path)
}

func fromFingerprint(c candidate, found platform.FingerprintMatch) Match {
	return Match{
		Path:        c.path,
		Platform:    models.CURSEFORGE,
		ProjectID:   found.ProjectID,
		Name:        found.Name,
		FileName:    c.fileName,
		ReleaseDate: found.ReleaseDate,
		Hash:        c.sha1,
		DownloadURL: found.DownloadURL,
	}
}

func sortReport(report *Report) {
	byName := func(matches []Match) {
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Name != matches[j].Name {
				return matches[i].Name < matches[j].Name
			}
			return matches[i].FileName < matches[j].FileName
		})
	}
	byName(report.Exact)
	byName(report.Partial)
	sort.Strings(report.Unmatched)
	sort.SliceStable(report.Unsure, func(i, j int) bool { return report.Unsure[i].Path < report.Unsure[j].Path })
}
