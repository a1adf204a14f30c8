package crawler

import (
	"net/http"
	"time"
)

// FetchMethod records how a page body was obtained.
type FetchMethod string

// Fetch methods reported on FetchResult.
const (
	FetchMethodStatic   FetchMethod = "static"
	FetchMethodRendered FetchMethod = "rendered"
)

// SeedCompany is one row of the seed list.
type SeedCompany struct {
	Name        string `json:"name"`
	HomepageURL string `json:"homepage_url"`
	// Row is the 1-based data row the seed came from, zero when unknown.
	Row int `json:"row,omitempty"`
}

// FetchRequest captures everything a low-level fetcher needs.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is returned by a low-level Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// FetchResult is the page handed to the parsing stages.
type FetchResult struct {
	URL       string
	HTML      []byte
	Method    FetchMethod
	FetchedAt time.Time
}

// Candidate is a link worth following, with its anchor text.
type Candidate struct {
	URL  string
	Text string
}

// JobPosting is a classified job page ready for delivery. PostedDate is
// empty when no date could be found.
type JobPosting struct {
	Company    string `json:"company"`
	Title      string `json:"title"`
	PostedDate string `json:"posted_date,omitempty"`
	Location   string `json:"location"`
	ApplyLink  string `json:"apply_link"`
}

// AuditEntry is one delivered posting as written to the audit log.
type AuditEntry struct {
	DeliveredAt time.Time  `json:"delivered_at"`
	PassID      string     `json:"pass_id"`
	Posting     JobPosting `json:"posting"`
}

// PassSummary aggregates the outcome of one crawl pass.
type PassSummary struct {
	PassID          string        `json:"pass_id"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	Companies       int           `json:"companies"`
	InvalidSeeds    int           `json:"invalid_seeds"`
	FetchFailures   int           `json:"fetch_failures"`
	Candidates      int           `json:"candidates"`
	Postings        int           `json:"postings"`
	Delivered       int           `json:"delivered"`
	NotifyFailures  int           `json:"notify_failures"`
	PersistFailures int           `json:"persist_failures"`
}

// Add folds another summary's counters into s.
func (s *PassSummary) Add(o PassSummary) {
	s.Companies += o.Companies
	s.InvalidSeeds += o.InvalidSeeds
	s.FetchFailures += o.FetchFailures
	s.Candidates += o.Candidates
	s.Postings += o.Postings
	s.Delivered += o.Delivered
	s.NotifyFailures += o.NotifyFailures
	s.PersistFailures += o.PersistFailures
}
