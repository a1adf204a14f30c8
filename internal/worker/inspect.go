package worker

import (
	"context"
	"fmt"

	"github.com/JakeFAU/careerwatch/internal/classify"
	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/discovery"
	"github.com/JakeFAU/careerwatch/internal/document"
)

// Inspection is the diagnostic view of a single page.
type Inspection struct {
	URL         string              `json:"url"`
	Method      crawler.FetchMethod `json:"method"`
	Verdict     classify.Verdict    `json:"verdict"`
	Posting     crawler.JobPosting  `json:"posting"`
	CareerPages []crawler.Candidate `json:"career_pages"`
	JobLinks    []crawler.Candidate `json:"job_links"`
}

// Inspect fetches rawURL and reports what the pipeline would see, without
// touching the dedup store or notifier.
func (w *Worker) Inspect(ctx context.Context, rawURL string) (Inspection, error) {
	canonical, err := crawler.Canonicalize(rawURL, "")
	if err != nil {
		return Inspection{}, crawler.NewError(crawler.KindInvalidSeed, "worker.inspect", rawURL, err)
	}
	page, err := w.fetcher.FetchPage(ctx, canonical)
	if err != nil {
		return Inspection{}, err
	}
	doc, err := document.Parse(page.HTML)
	if err != nil {
		return Inspection{}, crawler.NewError(crawler.KindParseEmpty, "worker.inspect", canonical,
			fmt.Errorf("parse: %w", err))
	}
	base := servedFrom(canonical, page)
	return Inspection{
		URL:         canonical,
		Method:      page.Method,
		Verdict:     w.classifier.Classify(canonical, doc),
		Posting:     Extract(doc, crawler.Hostname(canonical), crawler.Candidate{URL: canonical}),
		CareerPages: discovery.CareerPages(base, doc),
		JobLinks:    discovery.JobLinks(base, doc),
	}, nil
}
