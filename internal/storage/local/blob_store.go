// Package local implements filesystem-backed stores: a directory of audit
// objects and a JSON-file dedup store.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore writes audit objects below a root directory.
type BlobStore struct {
	root string
}

// NewBlobStore returns a BlobStore rooted at dir, creating it when missing.
func NewBlobStore(dir string) (*BlobStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("audit directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve audit directory: %w", err)
	}
	return &BlobStore{root: abs}, nil
}

// PutObject stores data at name and returns a file:// URI. name must be a
// relative slash-separated path that stays inside the root. Existing objects
// are replaced.
func (s *BlobStore) PutObject(_ context.Context, name string, _ string, data []byte) (string, error) {
	rel := filepath.FromSlash(strings.TrimSpace(name))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	target := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	if err := writeFileAtomic(target, data); err != nil {
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	return "file://" + filepath.ToSlash(target), nil
}
