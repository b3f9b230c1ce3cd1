package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const appDirName = "companion"

// DefaultConfigPath returns the default config file location under the
// XDG config directory.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appDirName, "config.json")
}

// DefaultDatabasePath returns the default sqlite location. State data
// lives under XDG_STATE_HOME.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.StateHome, appDirName, "companion.db")
}

// DefaultFactsPath returns the default facts file location.
func DefaultFactsPath() string {
	return filepath.Join(xdg.StateHome, appDirName, "facts.jsonl")
}
