package config

import "fmt"

// ConfigFileNotFoundError means there is no manifest at the configured path.
type ConfigFileNotFoundError struct {
	Path string
	Err  error
}

func (e *ConfigFileNotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s", e.Path)
}

func (e *ConfigFileNotFoundError) Unwrap() error {
	return e.Err
}

// ConfigFileInvalidError is returned for a manifest or lock file that does not
// parse, or that parses into something unusable.
type ConfigFileInvalidError struct {
	Path string
	Err  error
}

func (e *ConfigFileInvalidError) Error() string {
	return fmt.Sprintf("configuration file %s is invalid: %v", e.Path, e.Err)
}

func (e *ConfigFileInvalidError) Unwrap() error {
	return e.Err
}
