// Package platform resolves declared mods against the repositories. Each
// repository is an adapter behind the Resolver capability; the Registry picks
// one by platform.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/meza/mod-reconciler/internal/globalerrors"
	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/models"
	"github.com/meza/mod-reconciler/internal/perf"
)

// RemoteMod describes the artifact a repository currently offers for a mod.
type RemoteMod struct {
	Name        string
	FileName    string
	ReleaseDate string
	Hash        string
	DownloadURL string
}

// ReleasedAt parses ReleaseDate. The zero time is returned when it is absent
// or malformed.
func (remote RemoteMod) ReleasedAt() time.Time {
	parsed, err := time.Parse(time.RFC3339, remote.ReleaseDate)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

type FetchOptions struct {
	AllowedReleaseTypes []models.ReleaseType
	GameVersion         string
	Loader              models.Loader
	AllowFallback       bool
	FixedVersion        string
}

type Resolver interface {
	Resolve(ctx context.Context, projectID string, opts FetchOptions) (RemoteMod, error)
}

// FingerprintMatch is an installed file identified by its CurseForge fingerprint.
type FingerprintMatch struct {
	Fingerprint int
	ProjectID   string
	Name        string
	FileName    string
	ReleaseDate string
	Hash        string
	DownloadURL string
}

type FingerprintMatches struct {
	Exact     []FingerprintMatch
	Partial   []FingerprintMatch
	Unmatched []int
	Installed []int
}

type FingerprintMatcher interface {
	FindFingerprintMatches(ctx context.Context, fingerprints []int) (FingerprintMatches, error)
}

// HashMatch is an installed file identified by its sha1 on Modrinth.
type HashMatch struct {
	ProjectID   string
	Name        string
	FileName    string
	ReleaseDate string
	Hash        string
	DownloadURL string
}

type HashMatcher interface {
	FindHashMatch(ctx context.Context, sha1 string) (HashMatch, bool, error)
}

type Registry map[models.Platform]Resolver

// NewRegistry wires both repository adapters onto one client so they share
// its limiter and retry policy.
func NewRegistry(client httpclient.Doer) Registry {
	return Registry{
		models.CURSEFORGE: NewCurseforge(client),
		models.MODRINTH:   NewModrinth(client),
	}
}

func DefaultRegistry(limiter *rate.Limiter) Registry {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return NewRegistry(httpclient.NewRLClient(limiter))
}

func (registry Registry) Resolve(ctx context.Context, platform models.Platform, projectID string, opts FetchOptions) (RemoteMod, error) {
	ctx, span := perf.StartSpan(ctx, "platform.resolve",
		perf.WithAttributes(
			attribute.String("platform", string(platform)),
			attribute.String("project_id", projectID),
			attribute.String("loader", string(opts.Loader)),
			attribute.String("game_version", opts.GameVersion),
			attribute.Bool("allow_fallback", opts.AllowFallback),
			attribute.String("fixed_version", opts.FixedVersion),
		),
	)
	defer span.End()

	var remote RemoteMod
	var err error
	resolver, ok := registry[platform.Normalize()]
	if ok && resolver != nil {
		remote, err = resolver.Resolve(ctx, projectID, opts)
	} else {
		err = &UnknownPlatformError{Platform: string(platform)}
	}

	span.SetAttributes(attribute.Bool("success", err == nil))
	if err != nil {
		span.SetAttributes(attribute.String("error_type", fmt.Sprintf("%T", err)))
		return RemoteMod{}, err
	}
	return remote, nil
}

func mapProjectNotFound(platform models.Platform, projectID string, err error) error {
	var notFound *globalerrors.ProjectNotFoundError
	if errors.As(err, &notFound) {
		return &ModNotFoundError{
			Platform:  platform,
			ProjectID: projectID,
		}
	}
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
