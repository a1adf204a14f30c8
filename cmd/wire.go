package cmd

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/careerwatch/internal/audit"
	"github.com/JakeFAU/careerwatch/internal/classify"
	"github.com/JakeFAU/careerwatch/internal/clock/system"
	"github.com/JakeFAU/careerwatch/internal/config"
	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/dispatcher"
	"github.com/JakeFAU/careerwatch/internal/fetcher"
	collyfetcher "github.com/JakeFAU/careerwatch/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/careerwatch/internal/fetcher/headless"
	"github.com/JakeFAU/careerwatch/internal/hash/sha256"
	"github.com/JakeFAU/careerwatch/internal/headless/detector"
	"github.com/JakeFAU/careerwatch/internal/id/uuid"
	"github.com/JakeFAU/careerwatch/internal/notify"
	pubsubnotify "github.com/JakeFAU/careerwatch/internal/notify/pubsub"
	"github.com/JakeFAU/careerwatch/internal/notify/telegram"
	"github.com/JakeFAU/careerwatch/internal/policy/ratelimit"
	"github.com/JakeFAU/careerwatch/internal/seeds"
	"github.com/JakeFAU/careerwatch/internal/storage/gcs"
	"github.com/JakeFAU/careerwatch/internal/storage/local"
	"github.com/JakeFAU/careerwatch/internal/storage/memory"
	"github.com/JakeFAU/careerwatch/internal/storage/postgres"
	"github.com/JakeFAU/careerwatch/internal/storage/sqlite"
	"github.com/JakeFAU/careerwatch/internal/worker"
)

// pipeline is the assembled object graph. close releases every resource in
// reverse order of acquisition.
type pipeline struct {
	store      crawler.DedupStore
	worker     *worker.Worker
	dispatcher *dispatcher.Dispatcher
	closers    []func() error
}

func (p *pipeline) onClose(fn func() error) {
	p.closers = append(p.closers, fn)
}

func (p *pipeline) close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildPipeline wires every component from cfg. With deliver false the dedup
// store is in-memory and the notifier only logs, so nothing leaves the process.
func buildPipeline(ctx context.Context, cfg config.Config, logger *zap.Logger, deliver bool) (*pipeline, error) {
	p := &pipeline{}
	clock := system.New()

	pageFetcher, err := buildFetcher(cfg, clock, logger, p)
	if err != nil {
		return nil, errors.Join(err, p.close())
	}

	store := crawler.DedupStore(memory.NewDedupStore())
	notifier := crawler.Notifier(notify.NewLogNotifier(logger))
	var auditLog crawler.AuditLog
	if deliver {
		if err := cfg.Notify.Validate(); err != nil {
			return nil, errors.Join(err, p.close())
		}
		if store, err = buildStore(ctx, cfg.Store); err != nil {
			return nil, errors.Join(err, p.close())
		}
		p.onClose(store.Close)
		if notifier, err = buildNotifier(ctx, cfg.Notify, logger, p); err != nil {
			return nil, errors.Join(err, p.close())
		}
		if auditLog, err = buildAudit(ctx, cfg.Audit, p); err != nil {
			return nil, errors.Join(err, p.close())
		}
	}
	p.store = store

	p.worker = worker.New(
		pageFetcher,
		classify.New(cfg.Crawler.MinSignals),
		crawler.NewLedger(store),
		notifier,
		auditLog,
		clock,
		worker.Config{
			SendDelay:            cfg.Crawler.SendDelay,
			CandidateParallelism: cfg.Crawler.CandidateParallelism,
		},
		logger.Named("worker"),
	)
	p.dispatcher = dispatcher.New(
		seeds.NewCSVSource(cfg.Seeds.Path),
		p.worker,
		store,
		uuid.NewGenerator(),
		clock,
		dispatcher.Config{Workers: cfg.Crawler.Concurrency},
		logger.Named("dispatcher"),
	)
	return p, nil
}

func buildFetcher(cfg config.Config, clock crawler.Clock, logger *zap.Logger, p *pipeline) (*fetcher.Fetcher, error) {
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
		Timeout:       cfg.Crawler.RequestTimeout,
	})

	var renderer crawler.Fetcher = headlessfetcher.NewNoop()
	if cfg.Headless.Enabled {
		browser, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: cfg.Headless.NavTimeout,
			SettleDelay:       cfg.Headless.SettleDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("init headless renderer: %w", err)
		}
		p.onClose(func() error {
			browser.Close()
			return nil
		})
		renderer = browser
	}

	limiter := ratelimit.New(ratelimit.Config{
		GlobalInFlight:  cfg.Crawler.GlobalInFlight,
		PerHostInFlight: cfg.Crawler.PerHostInFlight,
		PerHostRPS:      cfg.Crawler.PerHostQPS,
	})

	return fetcher.New(
		static,
		renderer,
		detector.NewHeuristic(cfg.Detector.MinTextLength, cfg.Detector.MaxScripts),
		crawler.NewBlocklist(cfg.Crawler.RestrictedDomains),
		limiter,
		clock,
		logger.Named("fetcher"),
	), nil
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (crawler.DedupStore, error) {
	switch cfg.Driver {
	case config.StoreFile:
		store, err := local.OpenDedupStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open dedup file: %w", err)
		}
		return store, nil
	case config.StoreSQLite:
		store, err := sqlite.OpenDedupStore(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite dedup store: %w", err)
		}
		return store, nil
	case config.StorePostgres:
		store, err := postgres.NewDedupStore(ctx, postgres.Config{
			DSN:      cfg.DSN,
			Table:    cfg.Table,
			MaxConns: cfg.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres dedup store: %w", err)
		}
		return store, nil
	case config.StoreMemory:
		return memory.NewDedupStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func buildNotifier(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger, p *pipeline) (crawler.Notifier, error) {
	switch cfg.Driver {
	case config.NotifyTelegram:
		n, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, ChatID: cfg.Telegram.ChatID})
		if err != nil {
			return nil, err
		}
		return n, nil
	case config.NotifyPubSub:
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		publisher := pubsubnotify.New(client.Topic(cfg.PubSub.Topic))
		p.onClose(func() error {
			publisher.Stop()
			return client.Close()
		})
		return publisher, nil
	case config.NotifyLog:
		return notify.NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unsupported notify driver %q", cfg.Driver)
	}
}

func buildAudit(ctx context.Context, cfg config.AuditConfig, p *pipeline) (crawler.AuditLog, error) {
	switch cfg.Driver {
	case config.AuditCSV:
		return audit.NewCSVLog(cfg.Path)
	case config.AuditDir:
		blobs, err := local.NewBlobStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("init audit dir: %w", err)
		}
		return audit.NewBlobLog(blobs, sha256.New(), cfg.Prefix)
	case config.AuditGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		p.onClose(client.Close)
		blobs, err := gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket})
		if err != nil {
			return nil, err
		}
		return audit.NewBlobLog(blobs, sha256.New(), cfg.Prefix)
	case config.AuditNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported audit driver %q", cfg.Driver)
	}
}
