package staging

import (
	"fmt"
	"slices"
	"sync"

	"tidy-go/internal/tidy"
)

// planStaging implements tidy.PlanStore on top of a pluggable planStore.
// The shared logic lives here: encoding, integrity checks, ordering and
// eviction of the oldest plans once maxPlans is reached.
type planStaging struct {
	store    planStore
	clock    tidy.Clock
	maxPlans int
	mu       sync.Mutex
}

var _ tidy.PlanStore = (*planStaging)(nil)

func newPlanStaging(store planStore, clock tidy.Clock, maxPlans int) *planStaging {
	if clock == nil {
		clock = tidy.RealClock{}
	}
	if maxPlans <= 0 {
		maxPlans = DefaultMaxPlans
	}
	return &planStaging{store: store, clock: clock, maxPlans: maxPlans}
}

// Save stages p. Saving an id again replaces the plan and makes it the latest.
func (s *planStaging) Save(p *tidy.Plan) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("cannot stage a plan without an id")
	}
	data, err := encodePlan(p, s.clock.Now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Put(p.ID, data); err != nil {
		return fmt.Errorf("storing plan %s: %w", p.ID, err)
	}

	ids, err := s.store.Index()
	if err != nil {
		return fmt.Errorf("reading plan index: %w", err)
	}
	ids = slices.DeleteFunc(ids, func(id string) bool { return id == p.ID })
	ids = append(ids, p.ID)

	var evicted []string
	if len(ids) > s.maxPlans {
		evicted = ids[:len(ids)-s.maxPlans]
		ids = ids[len(ids)-s.maxPlans:]
	}
	if err := s.store.SetIndex(ids); err != nil {
		return fmt.Errorf("writing plan index: %w", err)
	}
	for _, id := range evicted {
		// Best effort: an orphaned plan file is unreachable once out of the index.
		s.store.Delete(id)
	}
	return nil
}

// Load returns the staged plan with the given id, or nil, nil.
func (s *planStaging) Load(id string) (*tidy.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

// Latest returns the most recently staged plan, or nil, nil.
func (s *planStaging) Latest() (*tidy.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.store.Index()
	if err != nil {
		return nil, fmt.Errorf("reading plan index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.load(ids[len(ids)-1])
}

// Remove unstages a plan. Removing an unknown id is not an error.
func (s *planStaging) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.store.Index()
	if err != nil {
		return fmt.Errorf("reading plan index: %w", err)
	}
	ids = slices.DeleteFunc(ids, func(x string) bool { return x == id })
	if err := s.store.SetIndex(ids); err != nil {
		return fmt.Errorf("writing plan index: %w", err)
	}
	if err := s.store.Delete(id); err != nil {
		return fmt.Errorf("removing plan %s: %w", id, err)
	}
	return nil
}

// IDs returns staged plan ids, oldest first.
func (s *planStaging) IDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Index()
}

func (s *planStaging) load(id string) (*tidy.Plan, error) {
	data, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	return decodePlan(id, data)
}
