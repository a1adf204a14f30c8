// Package ratelimit admits fetches under a global concurrency cap, a per-host
// in-flight cap, and an optional per-host request rate.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/metrics"
)

// Config holds limiter configuration.
type Config struct {
	// GlobalInFlight caps concurrent fetches across all hosts.
	GlobalInFlight int
	// PerHostInFlight caps concurrent fetches against one host.
	PerHostInFlight int
	// PerHostRPS throttles requests per host; zero disables throttling.
	PerHostRPS   float64
	PerHostBurst int
}

type hostSlot struct {
	inflight *semaphore.Weighted
	rate     *rate.Limiter

	// guarded by Limiter.mu
	users    int
	lastUsed time.Time
}

// Limiter implements crawler.Limiter. Host slots idle for longer than the
// eviction window are dropped, so a long-running process does not keep one
// per host it has ever seen.
type Limiter struct {
	global *semaphore.Weighted
	cfg    Config
	idle   time.Duration
	now    func() time.Time

	mu        sync.Mutex
	hosts     map[string]*hostSlot
	lastSweep time.Time
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	if cfg.GlobalInFlight <= 0 {
		cfg.GlobalInFlight = 8
	}
	if cfg.PerHostInFlight <= 0 {
		cfg.PerHostInFlight = 1
	}
	if cfg.PerHostBurst <= 0 {
		cfg.PerHostBurst = 1
	}
	return &Limiter{
		global: semaphore.NewWeighted(int64(cfg.GlobalInFlight)),
		cfg:    cfg,
		idle:   idleWindow(cfg),
		now:    time.Now,
		hosts:  make(map[string]*hostSlot),
	}
}

// idleWindow is how long a slot must sit unused before eviction. It is at
// least the time a drained token bucket needs to refill, so a recreated slot
// never admits faster than the configured rate.
func idleWindow(cfg Config) time.Duration {
	window := time.Minute
	if cfg.PerHostRPS > 0 {
		refill := time.Duration(float64(cfg.PerHostBurst) / cfg.PerHostRPS * float64(time.Second))
		window = max(window, refill)
	}
	return window
}

// Acquire blocks until rawURL may be fetched. The returned release must be
// called exactly once when the fetch finishes.
func (l *Limiter) Acquire(ctx context.Context, rawURL string) (func(), error) {
	host := crawler.Hostname(rawURL)
	if host == "" {
		host = "unknown"
	}
	slot := l.checkout(host)

	start := time.Now()
	if err := slot.inflight.Acquire(ctx, 1); err != nil {
		l.checkin(slot)
		return nil, fmt.Errorf("host slot wait: %w", err)
	}
	if slot.rate != nil {
		if err := slot.rate.Wait(ctx); err != nil {
			slot.inflight.Release(1)
			l.checkin(slot)
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if err := l.global.Acquire(ctx, 1); err != nil {
		slot.inflight.Release(1)
		l.checkin(slot)
		return nil, fmt.Errorf("global slot wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(waited)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.global.Release(1)
			slot.inflight.Release(1)
			l.checkin(slot)
		})
	}, nil
}

// Hosts returns the number of host slots currently tracked.
func (l *Limiter) Hosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hosts)
}

func (l *Limiter) checkout(host string) *hostSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now)
	}
	s, ok := l.hosts[host]
	if !ok {
		s = &hostSlot{inflight: semaphore.NewWeighted(int64(l.cfg.PerHostInFlight))}
		if l.cfg.PerHostRPS > 0 {
			s.rate = rate.NewLimiter(rate.Limit(l.cfg.PerHostRPS), l.cfg.PerHostBurst)
		}
		l.hosts[host] = s
	}
	s.users++
	return s
}

func (l *Limiter) checkin(s *hostSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.users--
	s.lastUsed = l.now()
}

func (l *Limiter) sweepLocked(now time.Time) {
	l.lastSweep = now
	for host, s := range l.hosts {
		if s.users == 0 && now.Sub(s.lastUsed) >= l.idle {
			delete(l.hosts, host)
		}
	}
}
