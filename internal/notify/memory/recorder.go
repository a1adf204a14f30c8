// Package memory contains an in-memory notifier for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// Sent captures one Notify call.
type Sent struct {
	Posting crawler.JobPosting
	Message string
}

// Recorder stores delivered messages for inspection.
type Recorder struct {
	mu   sync.RWMutex
	sent []Sent
	// Fail, when set, is consulted before recording; a non-nil error is returned as a NotifyFailure.
	Fail func(crawler.JobPosting) error
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

// Notify records the message unless Fail rejects it.
func (r *Recorder) Notify(_ context.Context, posting crawler.JobPosting, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		if err := r.Fail(posting); err != nil {
			return crawler.NewError(crawler.KindNotifyFailure, "memory.notify", posting.ApplyLink, err)
		}
	}
	r.sent = append(r.sent, Sent{Posting: posting, Message: message})
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Sent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Links returns the apply links delivered so far, in order.
func (r *Recorder) Links() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sent))
	for _, s := range r.sent {
		out = append(out, s.Posting.ApplyLink)
	}
	return out
}
