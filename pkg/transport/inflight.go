package transport

import (
	"sync"

	"github.com/rhuss/jsonhandler/pkg/handle"
)

// InFlightRegistry maps handles to suspended exchanges. A handle resolves
// at most once: Claim removes the entry, and removed slots change
// generation so a replayed handle never reaches a later exchange.
//
// All methods are safe for concurrent access.
type InFlightRegistry struct {
	mu    sync.Mutex
	table *handle.Table[*Pending]
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{table: handle.NewTable[*Pending]()}
}

// Register adds p and returns its handle.
func (r *InFlightRegistry) Register(p *Pending) handle.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.table.Insert(p)
	p.mu.Lock()
	p.handle = h
	p.mu.Unlock()
	return h
}

// Claim removes and returns the exchange registered under h.
func (r *InFlightRegistry) Claim(h handle.Handle) (*Pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.Remove(h)
}

// Remove drops h if it is still registered. Called by the forwarding side
// when it stops waiting.
func (r *InFlightRegistry) Remove(h handle.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table.Remove(h)
}

// Len returns the number of registered exchanges.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.Len()
}
