// Package classify decides whether a fetched candidate page is a job posting.
package classify

import (
	"strings"

	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/document"
)

// Reason explains a verdict; it is used as a metrics label.
type Reason string

// Verdict reasons in evaluation order.
const (
	ReasonExcludedURL        Reason = "excluded_url"
	ReasonStructuredMetadata Reason = "structured_metadata"
	ReasonTextSignals        Reason = "text_signals"
	ReasonURLKeyword         Reason = "url_keyword"
	ReasonNoSignal           Reason = "no_signal"
)

// DefaultMinSignals is how many distinct posting phrases mark a page.
const DefaultMinSignals = 2

// Verdict is the classifier output.
type Verdict struct {
	Posting bool   `json:"posting"`
	Reason  Reason `json:"reason"`
}

// Classifier applies the posting rules in a fixed order: URL exclusion,
// structured metadata, body phrases, then URL keywords.
type Classifier struct {
	minSignals int
}

// New returns a Classifier. minSignals <= 0 selects DefaultMinSignals.
func New(minSignals int) *Classifier {
	if minSignals <= 0 {
		minSignals = DefaultMinSignals
	}
	return &Classifier{minSignals: minSignals}
}

// Classify evaluates the page fetched from rawURL.
func (c *Classifier) Classify(rawURL string, doc *document.Document) Verdict {
	lowerURL := strings.ToLower(rawURL)
	if crawler.ContainsAny(lowerURL, crawler.ExclusionKeywords) {
		return Verdict{Reason: ReasonExcludedURL}
	}
	if doc != nil && doc.HasJobPostingMetadata() {
		return Verdict{Posting: true, Reason: ReasonStructuredMetadata}
	}
	if doc != nil && crawler.CountMatches(doc.Text(), crawler.PostingSignals) >= c.minSignals {
		return Verdict{Posting: true, Reason: ReasonTextSignals}
	}
	if crawler.ContainsAny(lowerURL, crawler.JobKeywords) {
		return Verdict{Posting: true, Reason: ReasonURLKeyword}
	}
	return Verdict{Reason: ReasonNoSignal}
}

// IsJobPosting is a convenience over Classify.
func (c *Classifier) IsJobPosting(rawURL string, doc *document.Document) bool {
	return c.Classify(rawURL, doc).Posting
}
