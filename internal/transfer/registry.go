package transfer

import (
	"sync"

	"github.com/soundvault/soundvault/internal/catalog"
)

// Registry owns the set of live transfers and enforces at most one per
// reference. Entries are removed exactly when their transfer reaches a
// terminal state; lookups after that point start a fresh attempt.
type Registry struct {
	mu     sync.Mutex
	active map[catalog.Reference]*Transfer
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[catalog.Reference]*Transfer)}
}

// Get returns the live transfer for ref, or nil.
func (r *Registry) Get(ref catalog.Reference) *Transfer {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active[ref]
}

// GetOrInsert returns the live transfer for ref, creating one via factory if
// none exists. The second return is true when the caller joined an existing
// transfer. The factory runs under the registry lock so concurrent requests
// for the same reference can never both create.
func (r *Registry) GetOrInsert(ref catalog.Reference, factory func() *Transfer) (*Transfer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.active[ref]; ok {
		return t, true
	}

	t := factory()
	r.active[ref] = t

	return t, false
}

// Remove drops the entry for ref. Called on terminal transition only.
func (r *Registry) Remove(ref catalog.Reference) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.active, ref)
}

// Len reports the number of live transfers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.active)
}

// Active returns snapshots of all live transfers.
func (r *Registry) Active() []Snapshot {
	r.mu.Lock()
	transfers := make([]*Transfer, 0, len(r.active))

	for _, t := range r.active {
		transfers = append(transfers, t)
	}
	r.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(transfers))
	for _, t := range transfers {
		snapshots = append(snapshots, t.Snapshot())
	}

	return snapshots
}
