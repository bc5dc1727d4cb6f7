// Package environment reads runtime environment configuration.
package environment

import (
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	modrinthAPIKeyDefault   = "REPL_MODRINTH_API_KEY"   // #nosec G101 -- build-time placeholder replaced in release builds.
	curseforgeAPIKeyDefault = "REPL_CURSEFORGE_API_KEY" // #nosec G101 -- build-time placeholder replaced in release builds.
	posthogAPIKeyDefault    = "REPL_POSTHOG_API_KEY"    // #nosec G101 -- build-time placeholder replaced in release builds.

	appVersion = "REPL_VERSION"
	helpURL    = "REPL_HELP_URL"
)

const (
	curseforgeBaseURLDefault = "https://api.curseforge.com/v1"
	modrinthBaseURLDefault   = "https://api.modrinth.com"

	DefaultRateLimit     = rate.Limit(10)
	DefaultRateBurst     = 1
	DefaultMaxRetries    = 3
	DefaultRetryInterval = time.Second
)

func lookup(name string, fallback string) string {
	if value, present := os.LookupEnv(name); present {
		return value
	}
	return fallback
}

func ModrinthAPIKey() string {
	return lookup("MODRINTH_API_KEY", modrinthAPIKeyDefault)
}

func CurseforgeAPIKey() string {
	return lookup("CURSEFORGE_API_KEY", curseforgeAPIKeyDefault)
}

func PosthogAPIKey() string {
	return lookup("POSTHOG_API_KEY", posthogAPIKeyDefault)
}

// IsPlaceholder reports whether a key still carries its build-time marker.
func IsPlaceholder(key string) bool {
	return strings.HasPrefix(key, "REPL_")
}

func CurseforgeBaseURL() string {
	return strings.TrimRight(lookup("CURSEFORGE_API_URL", curseforgeBaseURLDefault), "/")
}

func ModrinthBaseURL() string {
	return strings.TrimRight(lookup("MODRINTH_API_URL", modrinthBaseURLDefault), "/")
}

// RateLimit is the shared request budget in requests per second. "inf"
// disables limiting. Unparseable or negative values fall back to the default.
func RateLimit() rate.Limit {
	raw, present := os.LookupEnv("MMM_RATE_LIMIT")
	if !present {
		return DefaultRateLimit
	}
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "inf") {
		return rate.Inf
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return DefaultRateLimit
	}
	return rate.Limit(value)
}

func RateBurst() int {
	return positiveInt("MMM_RATE_BURST", DefaultRateBurst, 1)
}

func MaxRetries() int {
	return positiveInt("MMM_HTTP_MAX_RETRIES", DefaultMaxRetries, 0)
}

func RetryInterval() time.Duration {
	raw, present := os.LookupEnv("MMM_HTTP_RETRY_INTERVAL")
	if !present {
		return DefaultRetryInterval
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return DefaultRetryInterval
	}
	return value
}

func TelemetryDisabled() bool {
	raw, present := os.LookupEnv("MMM_DISABLE_TELEMETRY")
	if !present {
		return false
	}
	disabled, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		// any non-boolean value still counts as an opt-out
		return strings.TrimSpace(raw) != ""
	}
	return disabled
}

func positiveInt(name string, fallback int, minimum int) int {
	raw, present := os.LookupEnv(name)
	if !present {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < minimum {
		return fallback
	}
	return value
}

// AppVersion and HelpURL are stamped by tools/build.
func AppVersion() string {
	return appVersion
}

func HelpURL() string {
	return helpURL
}
