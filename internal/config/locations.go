package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that override the default locations.
const (
	EnvConfigPath = "TIDY_CONFIG_PATH"
	EnvHome       = "TIDY_HOME"
)

// Locations says where tidy reads its config file and keeps its data.
type Locations struct {
	ConfigPath string
	BaseDir    string
}

// DefaultLocations resolves Locations from the environment. TIDY_CONFIG_PATH
// and TIDY_HOME win when set. Otherwise the XDG config and data homes are
// used, with ~/.config and ~/.local/share standing in when those are unset.
func DefaultLocations() (Locations, error) {
	loc := Locations{
		ConfigPath: os.Getenv(EnvConfigPath),
		BaseDir:    os.Getenv(EnvHome),
	}
	if loc.ConfigPath == "" {
		dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
		if err != nil {
			return Locations{}, err
		}
		loc.ConfigPath = filepath.Join(dir, "tidy.toml")
	}
	if loc.BaseDir == "" {
		dir, err := xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
		if err != nil {
			return Locations{}, err
		}
		loc.BaseDir = filepath.Join(dir, "tidy")
	}
	return loc, nil
}

// xdgDir returns the directory named by env when it is absolute, and
// fallback under the home directory otherwise. Relative XDG values are
// ignored as the base directory spec requires.
func xdgDir(env, fallback string) (string, error) {
	if dir := os.Getenv(env); filepath.IsAbs(dir) {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, fallback), nil
}
