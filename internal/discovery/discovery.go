// Package discovery finds career pages on a homepage and candidate job links
// on a career page.
package discovery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/document"
)

var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// CareerPages returns the same-host links on a homepage whose anchor text or
// URL carries a career keyword, in document order without duplicates. When
// none qualify the homepage itself is returned as the only candidate.
func CareerPages(homepageURL string, doc *document.Document) []crawler.Candidate {
	var out []crawler.Candidate
	seen := make(map[string]struct{})
	eachLink(homepageURL, doc, func(link crawler.Candidate) {
		if !crawler.SameHost(link.URL, homepageURL) {
			return
		}
		if !crawler.ContainsAny(link.Text, crawler.CareerKeywords) &&
			!crawler.ContainsAny(link.URL, crawler.CareerKeywords) {
			return
		}
		if _, dup := seen[link.URL]; dup {
			return
		}
		seen[link.URL] = struct{}{}
		out = append(out, link)
	})
	if len(out) == 0 {
		return []crawler.Candidate{{URL: homepageURL}}
	}
	return out
}

// JobLinks returns the links on a career page that look like individual
// postings: no exclusion keyword, and either a job keyword or a hosted ATS
// pattern in the URL. Self-links are dropped.
func JobLinks(careerPageURL string, doc *document.Document) []crawler.Candidate {
	var out []crawler.Candidate
	seen := map[string]struct{}{careerPageURL: {}}
	eachLink(careerPageURL, doc, func(link crawler.Candidate) {
		if crawler.ContainsAny(link.URL, crawler.ExclusionKeywords) {
			return
		}
		if !crawler.ContainsAny(link.URL, crawler.JobKeywords) &&
			!crawler.ContainsAny(link.URL, crawler.ATSPatterns) {
			return
		}
		if _, dup := seen[link.URL]; dup {
			return
		}
		seen[link.URL] = struct{}{}
		out = append(out, link)
	})
	return out
}

// eachLink resolves every usable anchor against base and hands it to fn.
// Anchors that fail to canonicalize are skipped.
func eachLink(base string, doc *document.Document, fn func(crawler.Candidate)) {
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		lower := strings.ToLower(href)
		for _, scheme := range skippedSchemes {
			if strings.HasPrefix(lower, scheme) {
				return
			}
		}
		canonical, err := crawler.Canonicalize(href, base)
		if err != nil {
			return
		}
		if !strings.HasPrefix(canonical, "http://") && !strings.HasPrefix(canonical, "https://") {
			return
		}
		text := document.Text(s)
		if text == "" {
			text, _ = s.Attr("title")
			text = document.CollapseSpaces(text)
		}
		fn(crawler.Candidate{URL: canonical, Text: text})
	})
}
