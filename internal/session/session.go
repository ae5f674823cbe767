// Package session holds issued challenge answers until they are consumed once
// or expire.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tileCaptcha/internal/grid"
)

var (
	// ErrNotFound covers unknown, already consumed and expired sessions alike.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned with the stale entry so its artifacts can be
	// released; it matches ErrNotFound under errors.Is.
	ErrExpired = fmt.Errorf("%w: expired", ErrNotFound)
	// ErrExists is returned by Put when the id is already taken.
	ErrExists = errors.New("session already exists")
)

// Entry is the server-side state of one issued challenge.
type Entry struct {
	ID        string
	Correct   grid.CorrectSet
	Source    string
	Artifacts []string // files rendered for this session, removed with it
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer valid at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is a keyed, single-use answer store.
type Store interface {
	// Put inserts a new entry.
	Put(ctx context.Context, e Entry) error
	// Consume atomically removes and returns the entry. Expired entries are
	// removed as well and reported as ErrExpired.
	Consume(ctx context.Context, id string, now time.Time) (Entry, error)
	// Sweep removes and returns every entry expired at now.
	Sweep(ctx context.Context, now time.Time) ([]Entry, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Put stores e, or returns ErrExists if its id is taken.
func (s *MemoryStore) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return ErrExists
	}
	s.entries[e.ID] = e
	return nil
}

// Consume removes the entry under the lock, so of several concurrent calls
// for one id exactly one gets it.
func (s *MemoryStore) Consume(_ context.Context, id string, now time.Time) (Entry, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if !ok {
		return Entry{}, ErrNotFound
	}
	if e.Expired(now) {
		return e, ErrExpired
	}
	return e, nil
}

// Sweep removes and returns the entries expired at now.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for id, e := range s.entries {
		if e.Expired(now) {
			out = append(out, e)
			delete(s.entries, id)
		}
	}
	return out, nil
}

// Len returns the number of live and not yet swept entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
