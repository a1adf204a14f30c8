package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// BlobLog writes one JSON object per delivery to a blob store, keyed by
// delivery day and the hash of the apply link.
type BlobLog struct {
	store  crawler.BlobStore
	hasher crawler.Hasher
	prefix string
}

// NewBlobLog builds a BlobLog. prefix may be empty.
func NewBlobLog(store crawler.BlobStore, hasher crawler.Hasher, prefix string) (*BlobLog, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	return &BlobLog{store: store, hasher: hasher, prefix: strings.Trim(prefix, "/")}, nil
}

// ObjectPath returns the object name used for entry.
func (l *BlobLog) ObjectPath(entry crawler.AuditEntry) (string, error) {
	sum, err := l.hasher.Hash([]byte(entry.Posting.ApplyLink))
	if err != nil {
		return "", fmt.Errorf("hash apply link: %w", err)
	}
	day := entry.DeliveredAt.UTC().Format("2006-01-02")
	return path.Join(l.prefix, day, sum+".json"), nil
}

// Append uploads entry as JSON.
func (l *BlobLog) Append(ctx context.Context, entry crawler.AuditEntry) error {
	name, err := l.ObjectPath(entry)
	if err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if _, err := l.store.PutObject(ctx, name, "application/json", data); err != nil {
		return fmt.Errorf("put audit object: %w", err)
	}
	return nil
}
