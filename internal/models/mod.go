package models

import "strings"

// Mod is a declared entry of the manifest.
type Mod struct {
	Type                 Platform      `json:"type"`
	ID                   string        `json:"id"`
	AllowedReleaseTypes  []ReleaseType `json:"allowedReleaseTypes,omitempty"`
	Name                 string        `json:"name"`
	AllowVersionFallback *bool         `json:"allowVersionFallback,omitempty"`
	Version              *string       `json:"version,omitempty"`
}

func (mod Mod) Key() ModKey {
	return NewModKey(mod.Type, mod.ID)
}

// PinnedVersion returns the trimmed version pin, or an empty string for unpinned mods.
func (mod Mod) PinnedVersion() string {
	if mod.Version == nil {
		return ""
	}
	return strings.TrimSpace(*mod.Version)
}

func (mod Mod) DisplayName() string {
	if strings.TrimSpace(mod.Name) != "" {
		return mod.Name
	}
	return mod.ID
}

// ModInstall records the artifact currently installed for a declared mod.
type ModInstall struct {
	Type        Platform `json:"type"`
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	FileName    string   `json:"fileName"`
	ReleasedOn  string   `json:"releasedOn"`
	Hash        string   `json:"hash"`
	DownloadURL string   `json:"downloadUrl"`
}

func (install ModInstall) Key() ModKey {
	return NewModKey(install.Type, install.ID)
}

// ModKey identifies a mod across the manifest and the lock file. Identifiers are
// compared case-insensitively and only within the same platform.
type ModKey struct {
	Platform Platform
	ID       string
}

func NewModKey(platform Platform, id string) ModKey {
	return ModKey{
		Platform: Platform(strings.ToLower(strings.TrimSpace(string(platform)))),
		ID:       strings.ToLower(strings.TrimSpace(id)),
	}
}

func (key ModKey) String() string {
	return string(key.Platform) + ":" + key.ID
}

// ModsJSON is the manifest: declared mods plus the defaults applied to them.
type ModsJSON struct {
	Loader                     Loader        `json:"loader"`
	GameVersion                string        `json:"gameVersion"`
	DefaultAllowedReleaseTypes []ReleaseType `json:"defaultAllowedReleaseTypes"`
	AllowVersionFallback       bool          `json:"allowVersionFallback,omitempty"`
	ModsFolder                 string        `json:"modsFolder"`
	Mods                       []Mod         `json:"mods"`
}

func (cfg ModsJSON) AllowedReleaseTypesFor(mod Mod) []ReleaseType {
	if len(mod.AllowedReleaseTypes) > 0 {
		return mod.AllowedReleaseTypes
	}
	return cfg.DefaultAllowedReleaseTypes
}

func (cfg ModsJSON) AllowFallbackFor(mod Mod) bool {
	if mod.AllowVersionFallback != nil {
		return *mod.AllowVersionFallback
	}
	return cfg.AllowVersionFallback
}
