// Package cache provides an in-memory response cache with per-entry TTL.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value  any
	expiry time.Time
}

// Store is a key/value cache with lazy expiry. Entries are removed on the
// first read that observes them expired, or by an explicit Clear.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// Stats partitions entries by expiry relative to now.
type Stats struct {
	Total   int `json:"total_entries"`
	Valid   int `json:"valid_entries"`
	Expired int `json:"expired_entries"`
}

// New creates an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Get returns the stored value for key. A stored nil is a valid hit, the
// second return value distinguishes presence. Expired entries are deleted
// and reported as absent.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !time.Now().Before(e.expiry) {
		delete(s.entries, key)
		return nil, false
	}

	return e.value, true
}

// Set stores value under key, overwriting any previous entry. A zero ttl
// makes the entry expired on the next read.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, expiry: time.Now().Add(ttl)}
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)

	return true
}

// Clear removes all entries and returns how many were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = make(map[string]entry)

	return n
}

// Stats counts entries without removing expired ones.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	stats := Stats{Total: len(s.entries)}
	for _, e := range s.entries {
		if e.expiry.After(now) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}

	return stats
}
