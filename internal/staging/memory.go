package staging

import "tidy-go/internal/tidy"

// memoryStore keeps plans for the life of the process.
type memoryStore struct {
	plans map[string][]byte
	ids   []string
}

func (m *memoryStore) Put(id string, data []byte) error {
	m.plans[id] = append([]byte(nil), data...)
	return nil
}

func (m *memoryStore) Get(id string) ([]byte, error) {
	data, ok := m.plans[id]
	if !ok {
		return nil, nil
	}
	return data, nil
}

func (m *memoryStore) Delete(id string) error {
	delete(m.plans, id)
	return nil
}

func (m *memoryStore) Index() ([]string, error) {
	return append([]string(nil), m.ids...), nil
}

func (m *memoryStore) SetIndex(ids []string) error {
	m.ids = append([]string(nil), ids...)
	return nil
}

// NewMemoryPlanStore creates an in-memory plan store, useful for tests and
// for one-shot runs that preview and apply in the same process.
func NewMemoryPlanStore(clock tidy.Clock, maxPlans int) tidy.PlanStore {
	return newPlanStaging(&memoryStore{plans: make(map[string][]byte)}, clock, maxPlans)
}
