package cache

import (
	"sync"
	"time"
)

// Entry holds a cached value together with its expiration instant.
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

// Store is a concurrency-safe in-memory key-value store with a single
// uniform TTL for all entries. Expiry is lazy: an entry is evicted on the
// first read that finds it past its deadline; there is no background sweep
// and no capacity bound.
type Store struct {
	mu  sync.Mutex
	ttl time.Duration

	entries map[string]Entry

	// now is swappable in tests to simulate clock advance.
	now func() time.Time
}

// New creates a Store whose entries live for ttl after each Set.
func New(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Set stores value under key, unconditionally overwriting any existing
// entry and resetting its deadline to now+ttl.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = Entry{
		Value:     value,
		ExpiresAt: s.now().Add(s.ttl),
	}
}

// Get returns the value stored under key. An entry past its deadline is
// removed and reported as absent; callers cannot distinguish expired from
// never-stored.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().After(entry.ExpiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return entry.Value, true
}

// Len reports the number of entries currently held, including entries that
// have expired but not yet been read.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
