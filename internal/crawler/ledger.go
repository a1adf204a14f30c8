package crawler

import (
	"context"
	"sync"
)

// Ledger serializes dedup checks across workers and gives apply links
// at-most-once delivery: a link is claimed before sending, committed only
// after the notifier confirms, and released when the send fails.
type Ledger struct {
	mu        sync.Mutex
	store     DedupStore
	inflight  map[string]struct{}
	delivered map[string]struct{}
}

// NewLedger wraps store.
func NewLedger(store DedupStore) *Ledger {
	return &Ledger{
		store:     store,
		inflight:  make(map[string]struct{}),
		delivered: make(map[string]struct{}),
	}
}

// Claim reserves key for delivery. It returns false when key was already
// delivered or another worker holds it. A store read failure is returned
// with false so the caller skips the link.
func (l *Ledger) Claim(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.delivered[key]; ok {
		return false, nil
	}
	if _, ok := l.inflight[key]; ok {
		return false, nil
	}
	seen, err := l.store.Contains(ctx, key)
	if err != nil {
		return false, NewError(KindPersistenceFailure, "ledger.claim", key, err)
	}
	if seen {
		l.delivered[key] = struct{}{}
		return false, nil
	}
	l.inflight[key] = struct{}{}
	return true, nil
}

// Commit records key as delivered. The link stays delivered for the rest of
// the process even when the durable write fails; that failure is returned.
func (l *Ledger) Commit(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.inflight, key)
	l.delivered[key] = struct{}{}
	if err := l.store.Add(ctx, key); err != nil {
		return NewError(KindPersistenceFailure, "ledger.commit", key, err)
	}
	return nil
}

// Release drops a claim without recording delivery.
func (l *Ledger) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, key)
}

// Delivered reports whether key is known to have been delivered.
func (l *Ledger) Delivered(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	_, ok := l.delivered[key]
	l.mu.Unlock()
	if ok {
		return true, nil
	}
	return l.store.Contains(ctx, key)
}
