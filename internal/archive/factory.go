package archive

import (
	"fmt"

	"tidy-go/internal/config"
	"tidy-go/internal/tidy"
)

// NewArchiveFromConfig creates an Archive implementation based on the config type.
func NewArchiveFromConfig(cfg config.ArchiveConfig) (tidy.Archive, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryArchive(nil), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem archive requires root to be set")
		}
		return NewFileSystemArchive(cfg.Root)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
