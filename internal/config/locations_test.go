package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultLocations(t *testing.T) {
	home := t.TempDir()

	tests := []struct {
		name       string
		env        map[string]string
		wantConfig string
		wantBase   string
	}{
		{
			name:       "tidy overrides",
			env:        map[string]string{EnvConfigPath: "/custom/config.toml", EnvHome: "/custom/tidy", "XDG_CONFIG_HOME": "/xdg/config"},
			wantConfig: "/custom/config.toml",
			wantBase:   "/custom/tidy",
		},
		{
			name:       "xdg homes",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			wantConfig: "/xdg/config/tidy.toml",
			wantBase:   "/xdg/data/tidy",
		},
		{
			name:       "relative xdg values are ignored",
			env:        map[string]string{"XDG_CONFIG_HOME": "config", "XDG_DATA_HOME": "data"},
			wantConfig: filepath.Join(home, ".config", "tidy.toml"),
			wantBase:   filepath.Join(home, ".local", "share", "tidy"),
		},
		{
			name:       "home fallback",
			env:        map[string]string{},
			wantConfig: filepath.Join(home, ".config", "tidy.toml"),
			wantBase:   filepath.Join(home, ".local", "share", "tidy"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", home)
			for _, k := range []string{EnvConfigPath, EnvHome, "XDG_CONFIG_HOME", "XDG_DATA_HOME"} {
				t.Setenv(k, tt.env[k])
			}

			loc, err := DefaultLocations()
			if err != nil {
				t.Fatalf("DefaultLocations() error = %v", err)
			}
			if loc.ConfigPath != filepath.FromSlash(tt.wantConfig) {
				t.Errorf("ConfigPath = %q, want %q", loc.ConfigPath, tt.wantConfig)
			}
			if loc.BaseDir != filepath.FromSlash(tt.wantBase) {
				t.Errorf("BaseDir = %q, want %q", loc.BaseDir, tt.wantBase)
			}
		})
	}
}
