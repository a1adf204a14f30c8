// Package scheduler drives crawl passes on a fixed cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultInterval is the pause between the end of one pass and the start of the next.
const DefaultInterval = 5 * time.Hour

// Task is one unit of scheduled work.
type Task func(ctx context.Context) error

// Scheduler runs a Task either every Interval after the previous run
// completes, or on a cron Schedule. Runs never overlap.
type Scheduler struct {
	interval time.Duration
	schedule string
	task     Task
	logger   *zap.Logger

	mu   sync.RWMutex
	next time.Time
}

// Config selects the cadence. A non-empty Schedule (standard five-field
// cron syntax or a descriptor such as "@every 5h") takes precedence.
type Config struct {
	Interval time.Duration
	Schedule string
}

// New builds a Scheduler. The cron schedule is validated here.
func New(cfg Config, task Task, logger *zap.Logger) (*Scheduler, error) {
	if task == nil {
		return nil, errors.New("task is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return nil, fmt.Errorf("parse schedule %q: %w", cfg.Schedule, err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{interval: cfg.Interval, schedule: cfg.Schedule, task: task, logger: logger}, nil
}

// NextRun returns when the next run is due, zero while a run is in progress.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next
}

// Run blocks until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.schedule != "" {
		return s.runCron(ctx)
	}
	return s.runInterval(ctx)
}

// runInterval runs the task immediately, then sleeps interval after each
// completion.
func (s *Scheduler) runInterval(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		s.setNext(time.Time{})
		s.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		next := time.Now().Add(s.interval)
		s.setNext(next)
		s.logger.Info("sleeping until next pass", zap.Duration("interval", s.interval), zap.Time("next_run", next))
		timer.Reset(s.interval)
	}
}

func (s *Scheduler) runCron(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := c.AddFunc(s.schedule, func() {
		s.setNext(time.Time{})
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	c.Start()
	s.logger.Info("cron schedule started", zap.String("schedule", s.schedule))

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		s.setNext(c.Entry(id).Next)
		select {
		case <-ctx.Done():
			<-c.Stop().Done()
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	started := time.Now()
	s.logger.Info("run started", zap.Time("at", started))
	if err := s.task(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("run failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		return
	}
	s.logger.Info("run finished", zap.Duration("elapsed", time.Since(started)))
}

func (s *Scheduler) setNext(t time.Time) {
	s.mu.Lock()
	s.next = t
	s.mu.Unlock()
}
