package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the store file.
var ErrLocked = errors.New("dedup store is locked by another process")

// DedupStore persists delivered apply links as a sorted JSON array. The file
// is rewritten atomically after every Add, and an advisory lock keeps a
// second process from sharing it.
type DedupStore struct {
	path string
	lock *flock.Flock

	mu   sync.Mutex
	keys map[string]struct{}
}

// OpenDedupStore loads path, creating an empty store when the file is
// missing. A file that is not a JSON string array is an error.
func OpenDedupStore(path string) (*DedupStore, error) {
	if path == "" {
		return nil, fmt.Errorf("dedup store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock dedup store: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	keys, err := load(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &DedupStore{path: path, lock: lock, keys: keys}, nil
}

func load(path string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	// #nosec G304 -- path comes from operator configuration.
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return keys, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dedup store: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return keys, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode dedup store %s: %w", path, err)
	}
	for _, k := range list {
		keys[k] = struct{}{}
	}
	return keys, nil
}

// Contains reports whether key was delivered.
func (s *DedupStore) Contains(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

// Add records key and rewrites the file. On a write failure the key stays
// recorded in memory and the error is returned.
func (s *DedupStore) Add(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return nil
	}
	s.keys[key] = struct{}{}
	return s.persistLocked()
}

// Len returns the number of recorded keys.
func (s *DedupStore) Len(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys), nil
}

// Close releases the file lock.
func (s *DedupStore) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("unlock dedup store: %w", err)
	}
	return nil
}

func (s *DedupStore) persistLocked() error {
	list := make([]string, 0, len(s.keys))
	for k := range s.keys {
		list = append(list, k)
	}
	sort.Strings(list)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("encode dedup store: %w", err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("persist dedup store: %w", err)
	}
	return nil
}
