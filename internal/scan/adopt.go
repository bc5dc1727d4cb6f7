package scan

import (
	"github.com/meza/mod-reconciler/internal/models"
)

// Adopt appends the matches to the manifest and the lock. A mod that already
// has a lock entry is left alone, as is every match after the first for the
// same project. A mod declared without a lock entry only gains the entry.
// It returns the updated manifest and lock plus the matches it took.
func Adopt(cfg models.ModsJSON, lock []models.ModInstall, matches []Match) (models.ModsJSON, []models.ModInstall, []Match) {
	locked := make(map[models.ModKey]struct{}, len(lock))
	for _, installed := range lock {
		locked[installed.Key()] = struct{}{}
	}
	declared := make(map[models.ModKey]int, len(cfg.Mods))
	for i, mod := range cfg.Mods {
		declared[mod.Key()] = i
	}

	mods := append([]models.Mod(nil), cfg.Mods...)
	entries := append([]models.ModInstall(nil), lock...)
	adopted := make([]Match, 0, len(matches))

	for _, match := range matches {
		key := models.NewModKey(match.Platform, match.ProjectID)
		if _, ok := locked[key]; ok {
			continue
		}
		locked[key] = struct{}{}

		if index, ok := declared[key]; ok {
			if mods[index].Name == "" {
				mods[index].Name = match.Name
			}
		} else {
			mods = append(mods, models.Mod{
				Type: match.Platform,
				ID:   match.ProjectID,
				Name: match.Name,
			})
			declared[key] = len(mods) - 1
		}

		entries = append(entries, models.ModInstall{
			Type:        match.Platform,
			ID:          match.ProjectID,
			Name:        match.Name,
			FileName:    match.FileName,
			ReleasedOn:  match.ReleaseDate,
			Hash:        match.Hash,
			DownloadURL: match.DownloadURL,
		})
		adopted = append(adopted, match)
	}

	cfg.Mods = mods
	return cfg, entries, adopted
}
