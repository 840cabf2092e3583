package staging

import (
	"fmt"

	"tidy-go/internal/config"
	"tidy-go/internal/tidy"
)

// DefaultMaxPlans is how many staged plans are kept before the oldest are dropped.
const DefaultMaxPlans = 20

// NewPlanStoreFromConfig creates a PlanStore implementation based on the config type.
func NewPlanStoreFromConfig(cfg config.StagingConfig, clock tidy.Clock) (tidy.PlanStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryPlanStore(clock, cfg.MaxPlans), nil
	case "filesystem":
		if cfg.StagingDir == "" {
			return nil, fmt.Errorf("filesystem staging requires staging_dir to be set")
		}
		return NewFileSystemPlanStore(cfg.StagingDir, clock, cfg.MaxPlans)
	default:
		return nil, fmt.Errorf("unknown staging type: %s", cfg.Type)
	}
}
