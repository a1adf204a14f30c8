// Package worker runs the per-company discovery pipeline: homepage, career
// pages, job links, classification, extraction and delivery.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/careerwatch/internal/classify"
	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/discovery"
	"github.com/JakeFAU/careerwatch/internal/document"
	"github.com/JakeFAU/careerwatch/internal/extract"
	"github.com/JakeFAU/careerwatch/internal/metrics"
	"github.com/JakeFAU/careerwatch/internal/notify"
)

// DefaultCandidateParallelism bounds concurrent candidate visits per company.
const DefaultCandidateParallelism = 4

// Config controls Worker behavior.
type Config struct {
	// SendDelay spaces consecutive notifications across all companies.
	SendDelay time.Duration
	// CandidateParallelism bounds concurrent candidate visits per company.
	CandidateParallelism int
}

// Worker executes the pipeline for one company at a time. A single Worker is
// safe for concurrent use by the dispatcher's goroutines.
type Worker struct {
	fetcher    crawler.PageFetcher
	classifier *classify.Classifier
	ledger     *crawler.Ledger
	notifier   crawler.Notifier
	audit      crawler.AuditLog
	clock      crawler.Clock
	sendGate   *rate.Limiter
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker. audit may be nil.
func New(
	fetcher crawler.PageFetcher,
	classifier *classify.Classifier,
	ledger *crawler.Ledger,
	notifier crawler.Notifier,
	audit crawler.AuditLog,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = classify.New(0)
	}
	if cfg.CandidateParallelism <= 0 {
		cfg.CandidateParallelism = DefaultCandidateParallelism
	}
	var gate *rate.Limiter
	if cfg.SendDelay > 0 {
		gate = rate.NewLimiter(rate.Every(cfg.SendDelay), 1)
	}
	return &Worker{
		fetcher:    fetcher,
		classifier: classifier,
		ledger:     ledger,
		notifier:   notifier,
		audit:      audit,
		clock:      clock,
		sendGate:   gate,
		cfg:        cfg,
		logger:     logger,
	}
}

// ProcessCompany runs the full pipeline for seed and returns its counters.
// Failures are logged and counted; none abort the pass.
func (w *Worker) ProcessCompany(ctx context.Context, passID string, seed crawler.SeedCompany) crawler.PassSummary {
	var counters crawler.PassSummary
	log := w.logger.With(zap.String("pass_id", passID), zap.String("company", seed.Name))

	homepage, err := validateSeed(seed)
	if err != nil {
		counters.InvalidSeeds++
		metrics.ObserveError(crawler.KindOf(err).String())
		log.Warn("skipping invalid seed", zap.Int("row", seed.Row), zap.Error(err))
		return counters
	}
	counters.Companies++

	homeDoc, landed, ok := w.load(ctx, log, homepage, &counters)
	if !ok {
		return counters
	}
	if landed != homepage {
		log.Debug("homepage redirected", zap.String("from", homepage), zap.String("to", landed))
	}

	candidates := w.collectJobLinks(ctx, log, homepage, landed, homeDoc, &counters)
	counters.Candidates += len(candidates)
	log.Debug("job links collected", zap.Int("candidates", len(candidates)))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(w.cfg.CandidateParallelism)
	for _, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			delta := w.visitCandidate(ctx, log, passID, seed, cand)
			mu.Lock()
			counters.Add(delta)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return counters
}

func validateSeed(seed crawler.SeedCompany) (string, error) {
	if seed.HomepageURL == "" {
		return "", crawler.NewError(crawler.KindInvalidSeed, "worker.seed", "", errors.New("empty website"))
	}
	homepage, err := crawler.Canonicalize(seed.HomepageURL, "")
	if err != nil {
		return "", crawler.NewError(crawler.KindInvalidSeed, "worker.seed", seed.HomepageURL, err)
	}
	if !crawler.IsHTTPURL(homepage) {
		return "", crawler.NewError(crawler.KindInvalidSeed, "worker.seed", seed.HomepageURL,
			errors.New("website must use http or https"))
	}
	return homepage, nil
}

// collectJobLinks fetches each career page (reusing the homepage document
// when discovery falls back to it) and merges the job links, first anchor
// text wins. Links resolve against the URL each page was served from, so a
// redirect to another host name does not break the same-host check. Listing
// pages are never candidates themselves.
func (w *Worker) collectJobLinks(
	ctx context.Context,
	log *zap.Logger,
	homepage string,
	landed string,
	homeDoc *document.Document,
	counters *crawler.PassSummary,
) []crawler.Candidate {
	pages := discovery.CareerPages(landed, homeDoc)
	seen := map[string]struct{}{homepage: {}, landed: {}}
	for _, page := range pages {
		seen[page.URL] = struct{}{}
	}
	var out []crawler.Candidate
	for _, page := range pages {
		if ctx.Err() != nil {
			break
		}
		doc, base := homeDoc, landed
		if page.URL != landed {
			var ok bool
			doc, base, ok = w.load(ctx, log, page.URL, counters)
			if !ok {
				continue
			}
			seen[base] = struct{}{}
		}
		for _, link := range discovery.JobLinks(base, doc) {
			if _, dup := seen[link.URL]; dup {
				continue
			}
			seen[link.URL] = struct{}{}
			out = append(out, link)
		}
	}
	return out
}

// load fetches and parses rawURL, counting and logging failures. It also
// returns the canonical URL the page was served from.
func (w *Worker) load(
	ctx context.Context,
	log *zap.Logger,
	rawURL string,
	counters *crawler.PassSummary,
) (*document.Document, string, bool) {
	page, err := w.fetcher.FetchPage(ctx, rawURL)
	if err != nil {
		kind := crawler.KindOf(err)
		metrics.ObserveError(kind.String())
		if kind == crawler.KindFetchRejected {
			log.Debug("fetch rejected", zap.String("url", rawURL), zap.Error(err))
			return nil, "", false
		}
		counters.FetchFailures++
		log.Warn("fetch failed", zap.String("url", rawURL), zap.Error(err))
		return nil, "", false
	}
	doc, err := document.Parse(page.HTML)
	if err != nil {
		err = crawler.NewError(crawler.KindParseEmpty, "worker.parse", rawURL, err)
		metrics.ObserveError(crawler.KindParseEmpty.String())
		log.Warn("parse failed", zap.String("url", rawURL), zap.Error(err))
		return nil, "", false
	}
	return doc, servedFrom(rawURL, page), true
}

// servedFrom returns the canonical post-redirect URL of page, or requested
// when the fetcher did not report a usable one.
func servedFrom(requested string, page crawler.FetchResult) string {
	if page.URL == "" {
		return requested
	}
	final, err := crawler.Canonicalize(page.URL, requested)
	if err != nil || !crawler.IsHTTPURL(final) {
		return requested
	}
	return final
}

func (w *Worker) visitCandidate(
	ctx context.Context,
	log *zap.Logger,
	passID string,
	seed crawler.SeedCompany,
	cand crawler.Candidate,
) crawler.PassSummary {
	var counters crawler.PassSummary

	delivered, err := w.ledger.Delivered(ctx, cand.URL)
	if err != nil {
		log.Warn("dedup lookup failed", zap.String("url", cand.URL), zap.Error(err))
	}
	if delivered {
		return counters
	}

	doc, _, ok := w.load(ctx, log, cand.URL, &counters)
	if !ok {
		return counters
	}
	verdict := w.classifier.Classify(cand.URL, doc)
	metrics.ObserveClassification(string(verdict.Reason))
	if !verdict.Posting {
		log.Debug("not a job posting", zap.String("url", cand.URL), zap.String("reason", string(verdict.Reason)))
		return counters
	}

	posting := Extract(doc, seed.Name, cand)
	counters.Postings++
	w.deliver(ctx, log.With(zap.String("url", cand.URL)), passID, posting, &counters)
	return counters
}

// Extract builds the posting for a classified page. The anchor text that led
// to the page is the title fallback.
func Extract(doc *document.Document, company string, cand crawler.Candidate) crawler.JobPosting {
	date, _ := extract.PostedDate(doc)
	return crawler.JobPosting{
		Company:    company,
		Title:      extract.Title(doc, cand.Text),
		PostedDate: date,
		Location:   extract.Location(doc),
		ApplyLink:  cand.URL,
	}
}

// deliver claims the apply link, notifies, and commits only after the
// notifier confirms. A failed send releases the claim for the next pass.
func (w *Worker) deliver(
	ctx context.Context,
	log *zap.Logger,
	passID string,
	posting crawler.JobPosting,
	counters *crawler.PassSummary,
) {
	claimed, err := w.ledger.Claim(ctx, posting.ApplyLink)
	if err != nil {
		counters.PersistFailures++
		metrics.ObserveError(crawler.KindPersistenceFailure.String())
		log.Error("dedup claim failed", zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	if w.sendGate != nil {
		if err := w.sendGate.Wait(ctx); err != nil {
			w.ledger.Release(posting.ApplyLink)
			return
		}
	}
	if err := w.notifier.Notify(ctx, posting, notify.Format(posting)); err != nil {
		w.ledger.Release(posting.ApplyLink)
		counters.NotifyFailures++
		metrics.ObserveDelivery("failed")
		metrics.ObserveError(crawler.KindNotifyFailure.String())
		log.Error("notify failed", zap.Error(err))
		return
	}

	counters.Delivered++
	metrics.ObserveDelivery("delivered")
	log.Info("job sent", zap.String("title", posting.Title))

	if err := w.ledger.Commit(ctx, posting.ApplyLink); err != nil {
		counters.PersistFailures++
		metrics.ObserveError(crawler.KindPersistenceFailure.String())
		log.Error("dedup persist failed", zap.Error(err))
	}

	if w.audit == nil {
		return
	}
	entry := crawler.AuditEntry{DeliveredAt: w.now(), PassID: passID, Posting: posting}
	if err := w.audit.Append(ctx, entry); err != nil {
		log.Warn("audit append failed", zap.Error(fmt.Errorf("audit: %w", err)))
	}
}

func (w *Worker) now() time.Time {
	if w.clock == nil {
		return time.Now().UTC()
	}
	return w.clock.Now()
}
