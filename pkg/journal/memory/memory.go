// Package memory provides an in-memory journal.Journal for tests and
// single-instance deployments. Entries are lost on restart; an optional
// LRU bound limits memory usage.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rhuss/jsonhandler/pkg/journal"
)

type entry struct {
	e       journal.Entry
	lruElem *list.Element
}

// Store is an in-memory Journal with optional LRU eviction.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lruList *list.List // front = most recently used
	maxSize int        // 0 = unlimited
	now     func() time.Time
}

var _ journal.Journal = (*Store)(nil)

// New creates an in-memory journal. A maxSize of 0 grows without limit;
// otherwise the least recently used entry is evicted at the limit.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Record stores a copy of e.
func (s *Store) Record(_ context.Context, e *journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.ID]; exists {
		return journal.ErrConflict
	}
	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	stored := *e
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.entries[e.ID] = &entry{e: stored, lruElem: s.lruList.PushFront(e.ID)}
	return nil
}

// Complete finalizes an entry.
func (s *Store) Complete(_ context.Context, id string, c journal.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	en, ok := s.entries[id]
	if !ok {
		return journal.ErrNotFound
	}
	c.Apply(&en.e, s.now())
	s.lruList.MoveToFront(en.lruElem)
	return nil
}

// Get returns a copy of the entry.
func (s *Store) Get(_ context.Context, id string) (*journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	en, ok := s.entries[id]
	if !ok {
		return nil, journal.ErrNotFound
	}
	s.lruList.MoveToFront(en.lruElem)
	out := en.e
	return &out, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the least recently used entry.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, id)
}
