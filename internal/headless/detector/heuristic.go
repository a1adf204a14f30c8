// Package detector decides when a static response needs a rendered retry.
package detector

import (
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/document"
)

// Defaults applied by NewHeuristic.
const (
	DefaultMinTextLength = 800
	DefaultMaxScripts    = 20
)

// Heuristic flags pages whose content is mostly script: on a page carrying
// many scripts, either the visible text is short or no anchor's text or href
// carries a career keyword.
type Heuristic struct {
	MinTextLength int
	MaxScripts    int
}

// NewHeuristic creates a detector; zero values select the defaults.
func NewHeuristic(minTextLength, maxScripts int) *Heuristic {
	if minTextLength <= 0 {
		minTextLength = DefaultMinTextLength
	}
	if maxScripts <= 0 {
		maxScripts = DefaultMaxScripts
	}
	return &Heuristic{MinTextLength: minTextLength, MaxScripts: maxScripts}
}

// LooksUnrendered reports whether resp should be re-fetched with rendering.
// Non-200 responses are never promoted.
func (h *Heuristic) LooksUnrendered(resp crawler.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	if len(resp.Body) == 0 {
		return true
	}
	doc, err := document.Parse(resp.Body)
	if err != nil {
		return true
	}
	scripts := doc.Find("script").Length()
	if scripts <= h.MaxScripts {
		return false
	}
	if len(doc.Text()) < h.MinTextLength {
		return true
	}
	return !hasCareerAnchor(doc)
}

func hasCareerAnchor(doc *document.Document) bool {
	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		found = crawler.ContainsAny(href, crawler.CareerKeywords) ||
			crawler.ContainsAny(a.Text(), crawler.CareerKeywords)
		return !found
	})
	return found
}
