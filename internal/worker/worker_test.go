package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/careerwatch/internal/classify"
	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/notify"
	notifymemory "github.com/JakeFAU/careerwatch/internal/notify/memory"
	"github.com/JakeFAU/careerwatch/internal/storage/memory"
)

const (
	acmeHome    = "https://acme.example"
	acmeCareers = "https://acme.example/careers"
	acmeJob     = "https://acme.example/careers/123-engineer"
)

func acmeSite() map[string]string {
	return map[string]string{
		acmeHome:    `<html><body><a href="/about">About</a><a href="/careers">Careers</a></body></html>`,
		acmeCareers: `<html><body><a href="/careers/123-engineer?utm_source=list#apply">Backend Engineer</a><a href="/blog/hiring">Blog</a></body></html>`,
		acmeJob: `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@type":"JobPosting","title":"Backend Engineer",
 "datePosted":"2024-03-01",
 "jobLocation":{"@type":"Place","address":{"@type":"PostalAddress","addressLocality":"Bengaluru"}}}
</script></head><body><h1>Backend Engineer</h1><p>Build services.</p></body></html>`,
	}
}

func TestProcessCompany_EndToEnd(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(acmeSite())
	store := memory.NewDedupStore()
	rec := notifymemory.New()
	audit := &fakeAudit{}
	w := newTestWorker(fetcher, store, rec, audit)

	seed := crawler.SeedCompany{Name: "Acme", HomepageURL: "https://ACME.example"}
	got := w.ProcessCompany(context.Background(), "pass-1", seed)

	require.Equal(t, crawler.PassSummary{Companies: 1, Candidates: 1, Postings: 1, Delivered: 1}, got)
	want := crawler.JobPosting{
		Company:    "Acme",
		Title:      "Backend Engineer",
		PostedDate: "01/03/2024",
		Location:   "Bengaluru",
		ApplyLink:  acmeJob,
	}
	sent := rec.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, want, sent[0].Posting)
	require.Equal(t, notify.Format(want), sent[0].Message)

	ok, err := store.Contains(context.Background(), acmeJob)
	require.NoError(t, err)
	require.True(t, ok)

	entries := audit.all()
	require.Len(t, entries, 1)
	require.Equal(t, "pass-1", entries[0].PassID)
	require.Equal(t, want, entries[0].Posting)

	second := w.ProcessCompany(context.Background(), "pass-2", seed)
	require.Zero(t, second.Delivered)
	require.Len(t, rec.Sent(), 1)
	require.Equal(t, 1, fetcher.callCount(acmeJob), "delivered links are not fetched again")
}

func TestProcessCompany_InvalidSeed(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(nil)
	w := newTestWorker(fetcher, memory.NewDedupStore(), notifymemory.New(), nil)

	for _, site := range []string{"acme.example", "ftp://acme.example", ""} {
		got := w.ProcessCompany(context.Background(), "pass", crawler.SeedCompany{Name: "Acme", HomepageURL: site})
		require.Equal(t, crawler.PassSummary{InvalidSeeds: 1}, got, site)
	}
	require.Zero(t, fetcher.totalCalls())
}

func TestProcessCompany_HomepageFetchFailure(t *testing.T) {
	t.Parallel()

	w := newTestWorker(newFakeFetcher(nil), memory.NewDedupStore(), notifymemory.New(), nil)
	got := w.ProcessCompany(context.Background(), "pass", crawler.SeedCompany{Name: "Acme", HomepageURL: acmeHome})
	require.Equal(t, crawler.PassSummary{Companies: 1, FetchFailures: 1}, got)
}

func TestProcessCompany_NotifyFailureIsRetriedNextPass(t *testing.T) {
	t.Parallel()

	store := memory.NewDedupStore()
	rec := notifymemory.New()
	rec.Fail = func(crawler.JobPosting) error { return errors.New("telegram down") }
	w := newTestWorker(newFakeFetcher(acmeSite()), store, rec, nil)
	seed := crawler.SeedCompany{Name: "Acme", HomepageURL: acmeHome}

	first := w.ProcessCompany(context.Background(), "pass-1", seed)
	require.Equal(t, 1, first.NotifyFailures)
	require.Zero(t, first.Delivered)
	ok, err := store.Contains(context.Background(), acmeJob)
	require.NoError(t, err)
	require.False(t, ok, "failed sends must not be recorded")

	rec.Fail = nil
	second := w.ProcessCompany(context.Background(), "pass-2", seed)
	require.Equal(t, 1, second.Delivered)
	require.Equal(t, []string{acmeJob}, rec.Links())
}

func TestProcessCompany_PersistFailureStillSuppressesDuplicates(t *testing.T) {
	t.Parallel()

	store := &failingAddStore{DedupStore: memory.NewDedupStore()}
	rec := notifymemory.New()
	w := newTestWorker(newFakeFetcher(acmeSite()), store, rec, nil)
	seed := crawler.SeedCompany{Name: "Acme", HomepageURL: acmeHome}

	first := w.ProcessCompany(context.Background(), "pass-1", seed)
	require.Equal(t, 1, first.Delivered)
	require.Equal(t, 1, first.PersistFailures)

	second := w.ProcessCompany(context.Background(), "pass-2", seed)
	require.Zero(t, second.Delivered)
	require.Len(t, rec.Sent(), 1)
}

func TestProcessCompany_AlreadyDeliveredSkipsFetch(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(acmeSite())
	rec := notifymemory.New()
	w := newTestWorker(fetcher, memory.NewDedupStore(acmeJob), rec, nil)

	got := w.ProcessCompany(context.Background(), "pass", crawler.SeedCompany{Name: "Acme", HomepageURL: acmeHome})
	require.Equal(t, 1, got.Candidates)
	require.Zero(t, got.Delivered)
	require.Zero(t, fetcher.callCount(acmeJob))
	require.Empty(t, rec.Sent())
}

func TestProcessCompany_HomepageFallbackAndNonPostings(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		// No career link: job links are read from the homepage itself.
		"https://beta.example": `<a href="https://boards.greenhouse.io/beta">Our board</a>
<a href="/internship/42">Data Analyst</a><a href="/internship/missing">Gone</a>`,
		"https://boards.greenhouse.io/beta": `<p>Welcome to our board</p>`,
		"https://beta.example/internship/42": `<title>Data Analyst - Beta</title><p>Posted: 12 Feb 2024. Remote friendly.</p>`,
	}
	rec := notifymemory.New()
	w := newTestWorker(newFakeFetcher(pages), memory.NewDedupStore(), rec, nil)

	got := w.ProcessCompany(context.Background(), "pass", crawler.SeedCompany{Name: "Beta", HomepageURL: "https://beta.example"})
	require.Equal(t, crawler.PassSummary{Companies: 1, Candidates: 3, FetchFailures: 1, Postings: 1, Delivered: 1}, got)
	require.Equal(t, []crawler.JobPosting{{
		Company:    "Beta",
		Title:      "Data Analyst",
		PostedDate: "12/02/2024",
		Location:   "Remote",
		ApplyLink:  "https://beta.example/internship/42",
	}}, postings(rec))
}

func TestProcessCompany_FollowsHomepageRedirect(t *testing.T) {
	t.Parallel()

	const (
		wwwHome    = "https://www.acme.example/"
		wwwCareers = "https://www.acme.example/careers"
		wwwJob     = "https://www.acme.example/careers/123-engineer"
	)
	fetcher := newFakeFetcher(map[string]string{
		wwwHome:    `<a href="https://www.acme.example/careers">Careers</a>`,
		wwwCareers: `<a href="/careers/123-engineer">Backend Engineer</a>`,
		wwwJob: `<script type="application/ld+json">{"@type":"JobPosting","title":"Backend Engineer",
"jobLocation":{"address":{"addressLocality":"Pune"}}}</script>`,
	})
	fetcher.redirects = map[string]string{acmeHome: wwwHome}
	rec := notifymemory.New()
	w := newTestWorker(fetcher, memory.NewDedupStore(), rec, nil)

	got := w.ProcessCompany(context.Background(), "pass", crawler.SeedCompany{Name: "Acme", HomepageURL: acmeHome})
	require.Equal(t, crawler.PassSummary{Companies: 1, Candidates: 1, Postings: 1, Delivered: 1}, got)
	require.Equal(t, []string{wwwJob}, rec.Links())
	require.Equal(t, 1, fetcher.callCount(wwwCareers))
}

func TestServedFrom(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://www.acme.example/jobs",
		servedFrom(acmeHome, crawler.FetchResult{URL: "https://WWW.acme.example/jobs#top"}))
	require.Equal(t, acmeHome, servedFrom(acmeHome, crawler.FetchResult{}))
	require.Equal(t, acmeHome, servedFrom(acmeHome, crawler.FetchResult{URL: "mailto:jobs@acme.example"}))
}

func TestProcessCompany_ConcurrentCompaniesDeliverOnce(t *testing.T) {
	t.Parallel()

	rec := notifymemory.New()
	w := newTestWorker(newFakeFetcher(acmeSite()), memory.NewDedupStore(), rec, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.ProcessCompany(context.Background(), "pass", crawler.SeedCompany{Name: "Acme", HomepageURL: acmeHome})
		}()
	}
	wg.Wait()
	require.Equal(t, []string{acmeJob}, rec.Links())
}

func TestInspect(t *testing.T) {
	t.Parallel()

	w := newTestWorker(newFakeFetcher(acmeSite()), memory.NewDedupStore(), notifymemory.New(), nil)

	got, err := w.Inspect(context.Background(), acmeJob+"#top")
	require.NoError(t, err)
	require.Equal(t, acmeJob, got.URL)
	require.True(t, got.Verdict.Posting)
	require.Equal(t, classify.ReasonStructuredMetadata, got.Verdict.Reason)

	redirected := newFakeFetcher(map[string]string{"https://www.acme.example/": acmeSite()[acmeHome]})
	redirected.redirects = map[string]string{acmeHome: "https://www.acme.example/"}
	home, err := newTestWorker(redirected, memory.NewDedupStore(), notifymemory.New(), nil).Inspect(context.Background(), acmeHome)
	require.NoError(t, err)
	require.Equal(t, "https://www.acme.example/careers", home.CareerPages[0].URL)
	require.Equal(t, "Backend Engineer", got.Posting.Title)
	require.Equal(t, "01/03/2024", got.Posting.PostedDate)

	_, err = w.Inspect(context.Background(), "https://acme.example/nope")
	require.ErrorIs(t, err, crawler.ErrFetchTransient)
}

func newTestWorker(
	fetcher crawler.PageFetcher,
	store crawler.DedupStore,
	notifier crawler.Notifier,
	audit crawler.AuditLog,
) *Worker {
	return New(
		fetcher,
		classify.New(0),
		crawler.NewLedger(store),
		notifier,
		audit,
		fakeClock{now: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)},
		Config{},
		zap.NewNop(),
	)
}

func postings(rec *notifymemory.Recorder) []crawler.JobPosting {
	var out []crawler.JobPosting
	for _, s := range rec.Sent() {
		out = append(out, s.Posting)
	}
	return out
}

type fakeFetcher struct {
	mu        sync.Mutex
	pages     map[string]string
	redirects map[string]string
	calls     map[string]int
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, calls: make(map[string]int)}
}

func (f *fakeFetcher) FetchPage(_ context.Context, rawURL string) (crawler.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[rawURL]++
	served := rawURL
	if to, ok := f.redirects[rawURL]; ok {
		served = to
	}
	body, ok := f.pages[served]
	if !ok {
		return crawler.FetchResult{}, crawler.NewError(crawler.KindFetchTransient, "fake.fetch", rawURL,
			errors.New("status 404"))
	}
	return crawler.FetchResult{URL: served, HTML: []byte(body), Method: crawler.FetchMethodStatic}, nil
}

func (f *fakeFetcher) callCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[rawURL]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []crawler.AuditEntry
}

func (a *fakeAudit) Append(_ context.Context, entry crawler.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *fakeAudit) all() []crawler.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]crawler.AuditEntry(nil), a.entries...)
}

type failingAddStore struct {
	*memory.DedupStore
}

func (s *failingAddStore) Add(context.Context, string) error {
	return errors.New("disk full")
}

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time {
	return c.now
}
