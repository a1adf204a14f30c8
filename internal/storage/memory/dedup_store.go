// Package memory contains in-process stores used for development and tests.
package memory

import (
	"context"
	"sync"
)

// DedupStore keeps delivered apply links in a map. Contents do not survive
// the process.
type DedupStore struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewDedupStore returns an empty store, optionally pre-seeded.
func NewDedupStore(keys ...string) *DedupStore {
	s := &DedupStore{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

// Contains reports whether key was added.
func (s *DedupStore) Contains(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok, nil
}

// Add records key.
func (s *DedupStore) Add(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
	return nil
}

// Len returns the number of keys.
func (s *DedupStore) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys), nil
}

// Keys returns a copy of the stored keys in no particular order.
func (s *DedupStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	return out
}

// Close is a no-op.
func (s *DedupStore) Close() error {
	return nil
}
