// Package journal records what happened to every forwarded exchange.
//
// Entries are keyed by request ID. The forwarding side records an entry
// after dispatch and completes it once the exchange is finalized. Journal
// implementations live in the memory and postgres subpackages.
package journal

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for journal operations.
var (
	// ErrNotFound is returned when no entry exists for an ID.
	ErrNotFound = errors.New("exchange not found")

	// ErrConflict is returned when an entry with the given ID already exists.
	ErrConflict = errors.New("exchange already recorded")
)

// State is the final disposition of a forwarded exchange.
type State string

const (
	// StateDispatched: accepted by the handler, response not yet relayed.
	StateDispatched State = "dispatched"
	// StateRejected: the handler returned non-zero or could not be reached.
	StateRejected State = "rejected"
	// StateRelayed: the relayed response was written to the client.
	StateRelayed State = "relayed"
	// StateRelayFailed: a response arrived but could not be written.
	StateRelayFailed State = "relay_failed"
	// StateAbandoned: the client went away before a response arrived.
	StateAbandoned State = "abandoned"
	// StateTimeout: no response arrived in time.
	StateTimeout State = "timeout"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s != StateDispatched && s != ""
}

// Entry is one journaled exchange.
type Entry struct {
	ID           string     `json:"id"`
	RequestID    string     `json:"request_id,omitempty"`
	Handle       int64      `json:"handle"`
	Method       string     `json:"method"`
	URI          string     `json:"uri"`
	Backend      string     `json:"backend"`
	DispatchCode int        `json:"dispatch_code"`
	State        State      `json:"state"`
	Status       int        `json:"status,omitempty"`
	RequestSize  int64      `json:"request_size"`
	ResponseSize int64      `json:"response_size"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Completion finalizes an entry.
type Completion struct {
	State        State
	Status       int
	ResponseSize int64
}

// Apply copies c onto e and stamps the completion time.
func (c Completion) Apply(e *Entry, at time.Time) {
	e.State = c.State
	e.Status = c.Status
	e.ResponseSize = c.ResponseSize
	e.CompletedAt = &at
}

// Journal persists exchange entries.
type Journal interface {
	// Record stores a new entry. Returns ErrConflict for a duplicate ID.
	Record(ctx context.Context, e *Entry) error

	// Complete finalizes the entry with the given ID.
	// Returns ErrNotFound if it does not exist.
	Complete(ctx context.Context, id string, c Completion) error

	// Get returns the entry with the given ID.
	Get(ctx context.Context, id string) (*Entry, error)

	// HealthCheck verifies the journal backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources.
	Close() error
}
