// Package dispatcher runs one crawl pass: it loads the seeds and fans the
// companies out to a bounded pool of workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/metrics"
	"github.com/JakeFAU/careerwatch/internal/queue/memory"
)

// DefaultWorkers is the number of companies processed concurrently.
const DefaultWorkers = 8

// ErrPassRunning is returned when RunPass is called while a pass is active.
var ErrPassRunning = errors.New("crawl pass already running")

// CompanyProcessor runs the pipeline for one company.
type CompanyProcessor interface {
	ProcessCompany(ctx context.Context, passID string, seed crawler.SeedCompany) crawler.PassSummary
}

// Config controls Dispatcher behavior.
type Config struct {
	Workers int
}

// Status is a snapshot of pass activity.
type Status struct {
	Running   bool                 `json:"running"`
	Passes    int                  `json:"passes"`
	LastPass  *crawler.PassSummary `json:"last_pass,omitempty"`
	LastError string               `json:"last_error,omitempty"`
}

// Dispatcher coordinates crawl passes. Passes never overlap.
type Dispatcher struct {
	source    crawler.SeedSource
	processor CompanyProcessor
	store     crawler.DedupStore
	ids       crawler.IDGenerator
	clock     crawler.Clock
	cfg       Config
	logger    *zap.Logger

	mu      sync.RWMutex
	running bool
	passes  int
	last    *crawler.PassSummary
	lastErr string
}

// New creates a Dispatcher. store is only read for the dedup size gauge and may be nil.
func New(
	source crawler.SeedSource,
	processor CompanyProcessor,
	store crawler.DedupStore,
	ids crawler.IDGenerator,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		source:    source,
		processor: processor,
		store:     store,
		ids:       ids,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunPass crawls every seed company once and returns the aggregated counters.
// A seed source failure skips the pass; per-company failures never do.
func (d *Dispatcher) RunPass(ctx context.Context) (crawler.PassSummary, error) {
	if !d.begin() {
		return crawler.PassSummary{}, ErrPassRunning
	}

	start := d.now()
	summary := crawler.PassSummary{PassID: d.newPassID(start), StartedAt: start}
	log := d.logger.With(zap.String("pass_id", summary.PassID))
	log.Info("crawl pass started")

	seeds, err := d.source.Load(ctx)
	if err != nil {
		err = fmt.Errorf("load seeds: %w", err)
		log.Error("crawl pass skipped", zap.Error(err))
		d.finish(summary, "failed", err)
		return summary, err
	}

	queue := memory.NewQueue[crawler.SeedCompany](len(seeds))
	for _, seed := range seeds {
		if err := queue.Enqueue(ctx, seed); err != nil {
			break
		}
	}
	queue.Close()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for range min(d.cfg.Workers, len(seeds)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.IncActiveWorkers()
			defer metrics.DecActiveWorkers()
			for {
				seed, err := queue.Dequeue(ctx)
				if err != nil {
					return
				}
				counters := d.processor.ProcessCompany(ctx, summary.PassID, seed)
				mu.Lock()
				summary.Add(counters)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	summary.Duration = d.now().Sub(start)
	fields := []zap.Field{
		zap.Int("companies", summary.Companies),
		zap.Int("invalid_seeds", summary.InvalidSeeds),
		zap.Int("fetch_failures", summary.FetchFailures),
		zap.Int("candidates", summary.Candidates),
		zap.Int("postings", summary.Postings),
		zap.Int("delivered", summary.Delivered),
		zap.Int("notify_failures", summary.NotifyFailures),
		zap.Int("persist_failures", summary.PersistFailures),
		zap.Duration("duration", summary.Duration),
	}
	if summary.Delivered == 0 {
		log.Info("No new jobs found this run.", fields...)
	} else {
		log.Info(fmt.Sprintf("%d new jobs sent.", summary.Delivered), fields...)
	}
	d.observeDedupSize(ctx)

	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("crawl pass canceled: %w", err)
		d.finish(summary, "canceled", err)
		return summary, err
	}
	d.finish(summary, "succeeded", nil)
	return summary, nil
}

// Status returns a snapshot of pass activity.
func (d *Dispatcher) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st := Status{Running: d.running, Passes: d.passes, LastError: d.lastErr}
	if d.last != nil {
		last := *d.last
		st.LastPass = &last
	}
	return st
}

// Started reports whether any pass has begun.
func (d *Dispatcher) Started() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running || d.passes > 0
}

func (d *Dispatcher) begin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return false
	}
	d.running = true
	return true
}

func (d *Dispatcher) finish(summary crawler.PassSummary, status string, err error) {
	metrics.ObservePass(status, summary.Duration, d.now())
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.passes++
	d.last = &summary
	d.lastErr = ""
	if err != nil {
		d.lastErr = err.Error()
	}
}

func (d *Dispatcher) observeDedupSize(ctx context.Context) {
	if d.store == nil {
		return
	}
	n, err := d.store.Len(context.WithoutCancel(ctx))
	if err != nil {
		d.logger.Warn("dedup size unavailable", zap.Error(err))
		return
	}
	metrics.SetDedupEntries(n)
}

func (d *Dispatcher) newPassID(start time.Time) string {
	if d.ids != nil {
		if id, err := d.ids.NewID(); err == nil {
			return id
		}
	}
	return start.UTC().Format("20060102T150405Z")
}

func (d *Dispatcher) now() time.Time {
	if d.clock == nil {
		return time.Now().UTC()
	}
	return d.clock.Now()
}
