package staging

// planStore abstracts where staged plans live. Concurrency is managed by
// the caller (planStaging.mu), so stores do not need to be safe for
// concurrent use.
type planStore interface {
	// Put stores the encoded plan under id, replacing any previous one.
	Put(id string, data []byte) error

	// Get returns the encoded plan, or nil, nil when id is unknown.
	Get(id string) ([]byte, error)

	// Delete removes a plan. Unknown ids are not an error.
	Delete(id string) error

	// Index returns staged ids, oldest first.
	Index() ([]string, error)

	// SetIndex replaces the id order.
	SetIndex(ids []string) error
}
