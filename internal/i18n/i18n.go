// Package i18n resolves user-facing strings from the embedded catalogues in
// lang/. Set MMM_TEST to get the bare key (plus arguments) back, which keeps
// assertions independent of wording.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goLocale "github.com/jeandeaual/go-locale"
	i18nLib "github.com/kaptinlin/go-i18n"
	"golang.org/x/text/language"
)

type LocaleProvider interface {
	GetLocales() ([]string, error)
}

type DefaultLocaleProvider struct{}

func (provider DefaultLocaleProvider) GetLocales() ([]string, error) {
	return goLocale.GetLocales()
}

//go:embed lang/*.json
var catalogFS embed.FS

const defaultLocale = "en-GB"

type TData map[string]interface{}

type Tvars struct {
	Count int
	Data  *TData
}

// catalog pairs the loaded bundle with a localizer for the user's locales.
// go-i18n caches lookups internally without locking, hence mu.
type catalog struct {
	mu        sync.Mutex
	bundle    *i18nLib.I18n
	localizer *i18nLib.Localizer
}

var (
	langFS         = catalogFS
	langDir        = "lang"
	localeProvider LocaleProvider = DefaultLocaleProvider{}

	active    *catalog
	setupOnce sync.Once
)

func ResetForTesting() {
	active = nil
	setupOnce = sync.Once{}
}

func current() *catalog {
	setupOnce.Do(func() { active = load() })
	return active
}

// load panics on a broken catalogue: the files are embedded, so this can
// only fail in a build that should never ship.
func load() *catalog {
	entries, err := langFS.ReadDir(langDir)
	if err != nil {
		panic(err)
	}

	locales := []string{defaultLocale}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		locale := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if !strings.EqualFold(locale, defaultLocale) {
			locales = append(locales, locale)
		}
	}

	bundle := i18nLib.NewBundle(
		i18nLib.WithDefaultLocale(defaultLocale),
		i18nLib.WithLocales(locales...),
	)
	if err := bundle.LoadFS(langFS, fmt.Sprintf("%s/*.json", langDir)); err != nil {
		panic(err)
	}

	return &catalog{
		bundle:    bundle,
		localizer: bundle.NewLocalizer(buildLocalizerLocales(userLocales())...),
	}
}

func T(key string, args ...Tvars) string {
	if _, testing := os.LookupEnv("MMM_TEST"); testing {
		return formatKeyAndArgs(key, args...)
	}
	if len(args) > 1 {
		panic("Too many arguments")
	}

	c := current()
	if len(args) == 0 {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.localizer.Get(key)
	}

	vars := i18nLib.Vars{"count": args[0].Count}
	if args[0].Data != nil {
		for name, value := range *args[0].Data {
			vars[name] = value
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localizer.Get(key, vars)
}

func userLocales() []string {
	if envLocale, present := os.LookupEnv("LANG"); present {
		return []string{envLocale}
	}

	detected, err := localeProvider.GetLocales()
	if err != nil {
		return []string{language.English.String()}
	}

	locales := make([]string, 0, len(detected))
	for _, name := range detected {
		if name != "" {
			locales = append(locales, name)
		}
	}
	return locales
}

func formatKeyAndArgs(key string, args ...Tvars) string {
	var sb strings.Builder
	sb.WriteString(key)
	for i, arg := range args {
		sb.WriteString(fmt.Sprintf(", Arg %d: {Count: %d, Data: %v}", i+1, arg.Count, arg.Data))
	}
	return sb.String()
}

// buildLocalizerLocales canonicalises each locale ("de_DE" becomes "de-DE")
// and follows it with its base language so "de" catalogues still match.
func buildLocalizerLocales(rawLocales []string) []string {
	locales := make([]string, 0, len(rawLocales)*2)
	seen := make(map[string]struct{}, len(rawLocales)*2)
	add := func(locale string) {
		if _, ok := seen[locale]; ok {
			return
		}
		seen[locale] = struct{}{}
		locales = append(locales, locale)
	}

	for _, raw := range rawLocales {
		if raw == "" {
			continue
		}
		// POSIX locales carry an encoding suffix: en_GB.UTF-8
		if dot := strings.IndexByte(raw, '.'); dot > 0 {
			raw = raw[:dot]
		}
		tag, err := language.Parse(raw)
		if err != nil {
			continue
		}
		add(tag.String())
		if base, _ := tag.Base(); base.String() != "" {
			add(base.String())
		}
	}
	return locales
}
