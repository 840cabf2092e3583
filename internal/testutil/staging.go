package testutil

import (
	"tidy-go/internal/staging"
	"tidy-go/internal/tidy"
)

// NewTestPlanStore creates an in-memory plan store for testing.
func NewTestPlanStore() tidy.PlanStore {
	return staging.NewMemoryPlanStore(FixedClock(), staging.DefaultMaxPlans)
}
