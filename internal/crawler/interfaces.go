package crawler

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// PageFetcher retrieves a page through the static path with rendered fallback.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (FetchResult, error)
}

// RenderDetector decides whether a static response looks unrendered.
type RenderDetector interface {
	LooksUnrendered(resp FetchResponse) bool
}

// Limiter admits fetches under the global and per-host concurrency caps.
type Limiter interface {
	Acquire(ctx context.Context, rawURL string) (release func(), err error)
}

// DedupStore persists the set of apply links already delivered.
type DedupStore interface {
	Contains(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, key string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// Notifier delivers one formatted message per posting.
type Notifier interface {
	Notify(ctx context.Context, posting JobPosting, message string) error
}

// AuditLog records delivered postings. Failures never block delivery.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// SeedSource yields the seed companies for one pass.
type SeedSource interface {
	Load(ctx context.Context) ([]SeedCompany, error)
}

// Hasher computes digests for object naming.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces pass IDs.
type IDGenerator interface {
	NewID() (string, error)
}
