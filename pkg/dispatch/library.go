package dispatch

import (
	"context"
	"sync"

	"github.com/rhuss/jsonhandler/pkg/binding"
	"github.com/rhuss/jsonhandler/pkg/debug"
)

// Library calls the bound submit_json_request entry point. The call blocks
// until the handler returns and cannot be interrupted.
//
// Calls are made one at a time unless Reentrant is set, in which case the
// entry point must tolerate concurrent calls from many goroutines.
type Library struct {
	Reentrant bool

	table *binding.Table
	mu    sync.Mutex
}

// NewLibrary wraps a bound symbol table.
func NewLibrary(t *binding.Table) *Library {
	return &Library{table: t}
}

// Submit passes the envelope text to the handler library.
func (l *Library) Submit(_ context.Context, envelope []byte) (int, error) {
	if !l.Reentrant {
		l.mu.Lock()
		defer l.mu.Unlock()
	}
	code := l.table.Submit(string(envelope))
	debug.Log("dispatch", "library submit", "library", l.table.Filename(), "code", code, "reentrant", l.Reentrant)
	return code, nil
}
