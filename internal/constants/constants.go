// Package constants defines shared constant values.
package constants

// AppName is the project identifier used in logs, spans and metadata.
const AppName = "mod-reconciler"

// CommandName is the primary CLI command name.
const CommandName = "mmm"

// ModIgnoreFile lists mods-folder files that scanning leaves alone.
const ModIgnoreFile = ".mmmignore"

// PerfExportFile receives the recorded spans of a --debug run.
const PerfExportFile = "mmm-perf.json"
