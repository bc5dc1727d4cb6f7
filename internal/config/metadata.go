// Package config is the local state store: the manifest (modlist.json), its
// lock file and the paths derived from where the manifest lives.
package config

import (
	"path/filepath"
	"strings"

	"github.com/meza/mod-reconciler/internal/models"
)

type Metadata struct {
	ConfigPath string
}

func NewMetadata(configPath string) Metadata {
	return Metadata{ConfigPath: filepath.Clean(filepath.FromSlash(configPath))}
}

func (m Metadata) Dir() string {
	return filepath.Dir(m.ConfigPath)
}

// LockPath sits next to the manifest: modlist.json locks into modlist-lock.json.
func (m Metadata) LockPath() string {
	base := filepath.Base(m.ConfigPath)
	return filepath.Join(m.Dir(), strings.TrimSuffix(base, filepath.Ext(base))+"-lock.json")
}

// ModsFolderPath resolves the manifest's mods folder against the manifest's
// directory unless it is already absolute.
func (m Metadata) ModsFolderPath(cfg models.ModsJSON) string {
	folder := filepath.FromSlash(cfg.ModsFolder)
	if isAbsoluteOrRooted(folder) {
		return folder
	}
	return filepath.Join(m.Dir(), folder)
}

func (m Metadata) ModPath(cfg models.ModsJSON, fileName string) string {
	return filepath.Join(m.ModsFolderPath(cfg), fileName)
}

func isAbsoluteOrRooted(path string) bool {
	return filepath.IsAbs(path) || strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`)
}
