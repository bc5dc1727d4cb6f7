package models

import "strings"

type Platform string

const (
	CURSEFORGE Platform = "curseforge"
	MODRINTH   Platform = "modrinth"
)

func (p Platform) String() string {
	return string(p)
}

// Normalize lowercases and trims the label so "Modrinth " finds the same
// adapter as "modrinth".
func (p Platform) Normalize() Platform {
	return Platform(strings.ToLower(strings.TrimSpace(string(p))))
}
