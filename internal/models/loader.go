package models

import "strings"

type Loader string

const (
	BUKKIT     Loader = "bukkit"
	CAULDRON   Loader = "cauldron"
	DATAPACK   Loader = "datapack"
	FABRIC     Loader = "fabric"
	FORGE      Loader = "forge"
	LITELOADER Loader = "liteloader"
	NEOFORGE   Loader = "neoforge"
	PAPER      Loader = "paper"
	QUILT      Loader = "quilt"
	SPIGOT     Loader = "spigot"
)

func AllLoaders() []Loader {
	return []Loader{BUKKIT, CAULDRON, DATAPACK, FABRIC, FORGE, LITELOADER, NEOFORGE, PAPER, QUILT, SPIGOT}
}

// Matches compares a loader against a repository-supplied loader label,
// ignoring case and surrounding whitespace.
func (loader Loader) Matches(label string) bool {
	return strings.EqualFold(strings.TrimSpace(string(loader)), strings.TrimSpace(label))
}
