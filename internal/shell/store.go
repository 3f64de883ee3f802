package shell

import (
	"context"
	"sync"
	"time"

	"finitefield.org/geostudio-web/internal/pages"
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store keeps one Shell per session in memory and forgets shells that have
// been idle longer than the TTL.
type Store struct {
	mu       sync.Mutex
	registry *pages.Registry
	ttl      time.Duration
	now      func() time.Time
	entries  map[string]*storeEntry
}

type storeEntry struct {
	shell    *Shell
	lastSeen time.Time
}

// NewStore constructs an empty store. A non-positive ttl disables eviction.
func NewStore(registry *pages.Registry, ttl time.Duration, opts ...StoreOption) *Store {
	s := &Store{
		registry: registry,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]*storeEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the shell for sessionID, creating it on first use.
func (s *Store) Get(sessionID string) *Shell {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[sessionID]; ok {
		e.lastSeen = now
		return e.shell
	}
	e := &storeEntry{shell: New(s.registry), lastSeen: now}
	s.entries[sessionID] = e
	return e.shell
}

// Len reports the number of live shells.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes idle shells and returns how many were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done. onSweep, when non-nil, is
// called with the number of shells removed by each sweep.
func (s *Store) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.Sweep()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}
