package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"tidy-go/internal/tidy"
)

// Config represents the main configuration for tidy.
type Config struct {
	BaseDir string `toml:"base_dir"`
	LogDir  string `toml:"log_dir"`

	Workers        int      `toml:"workers"`         // executor and hashing pool size
	Mode           string   `toml:"mode"`            // "move" (default) or "copy"
	DateMode       string   `toml:"date_mode"`       // "off", "category" or "subfolder"
	Recursive      bool     `toml:"recursive"`       // descend into subfolders of the root
	SkipHidden     bool     `toml:"skip_hidden"`     // ignore dot files and dot folders
	SkipDuplicates bool     `toml:"skip_duplicates"` // keep one member of each duplicate group in place
	UseExifDates   bool     `toml:"use_exif_dates"`  // prefer EXIF capture time for date folders
	Hash           string   `toml:"hash"`            // "sha256" (default) or "xxhash"
	MaxSuffix      int      `toml:"max_suffix"`      // rename attempts before giving up on a name
	Precedence     []string `toml:"precedence"`      // order of the tag, extension and date stages
	Tags           []string `toml:"tags"`

	Rules       []tidy.CategoryRule `toml:"rules"`
	Assignments map[string]string   `toml:"assignments"` // absolute path -> category

	Database   DatabaseConfig   `toml:"database"`
	Staging    StagingConfig    `toml:"staging"`
	Archive    ArchiveConfig    `toml:"archive"`
	Encryption EncryptionConfig `toml:"encryption"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// EncryptionConfig holds paths to the age key pair used for log snapshots.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "test" or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore        []string `toml:"ignore"`
	OneFilesystem bool     `toml:"one_filesystem"` // stay on the root's filesystem when recursing
}

// MetricsConfig controls the prometheus textfile written after each run.
type MetricsConfig struct {
	TextfilePath string `toml:"textfile_path,omitempty"` // empty disables the export
}

// DatabaseConfig represents configuration for the undo log database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// StagingConfig represents configuration for previewed plans.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StagingConfig struct {
	Type       string `toml:"type"`                  // "memory" or "filesystem"
	StagingDir string `toml:"staging_dir,omitempty"` // only used for type=filesystem
	MaxPlans   int    `toml:"max_plans"`             // plans kept before the oldest is evicted
}

// ArchiveConfig represents configuration for undo log snapshots.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"`           // "memory" or "filesystem"
	Root string `toml:"root,omitempty"` // only used for type=filesystem
}

// NewConfig creates a Config rooted at baseDir with the default settings
// and the built-in category table.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:     baseDir,
		LogDir:      filepath.Join(baseDir, "log"),
		Workers:     tidy.DefaultWorkers,
		Mode:        string(tidy.TransferMove),
		DateMode:    string(tidy.DateOff),
		SkipHidden:  true,
		Hash:        tidy.HashSHA256,
		MaxSuffix:   1000,
		Rules:       tidy.DefaultRules(),
		Assignments: map[string]string{},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Staging: StagingConfig{
			Type:       "filesystem",
			StagingDir: filepath.Join(baseDir, "staging"),
			MaxPlans:   20,
		},
		Archive: ArchiveConfig{
			Type: "filesystem",
			Root: filepath.Join(baseDir, "archive"),
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "tidy.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "tidy.key"),
		},
		Filesystem: FilesystemConfig{
			Ignore:        []string{".git", "node_modules"},
			OneFilesystem: true,
		},
	}
}

// Assign records a manual category for an absolute path, replacing any
// previous assignment. An empty category removes the assignment.
func (c *Config) Assign(path, category string) error {
	if !filepath.IsAbs(path) {
		return &tidy.ValidationError{Field: "assignments", Reason: fmt.Sprintf("path %q is not absolute", path)}
	}
	path = filepath.Clean(path)
	if category == "" {
		delete(c.Assignments, path)
		return nil
	}
	if err := tidy.ValidateCategoryName(category); err != nil {
		return &tidy.ValidationError{Field: "assignments", Reason: err.Error()}
	}
	if c.Assignments == nil {
		c.Assignments = make(map[string]string)
	}
	c.Assignments[path] = category
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile replaces the file at path with cfg via a temp file and rename.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".tidy-config-*")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		f.Close()
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites an existing config file.
func Save(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file not found at %s: %w", path, err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
