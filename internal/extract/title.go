package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/careerwatch/internal/document"
)

const (
	minTitleLen = 3
	maxTitleLen = 140
)

// DefaultTitle is used when neither the chain nor the caller yields a title.
const DefaultTitle = "N/A"

// TitleChain is the ordered title extraction chain.
var TitleChain = []Extractor[string]{
	{Name: "og_title", Fn: ogTitle},
	{Name: "title_tag", Fn: titleTag},
	{Name: "heading", Fn: firstHeading},
}

var titleSeparators = []string{" | ", " - ", " – ", " — "}

var headingLevels = []string{"h1", "h2", "h3", "h4"}

// Title returns the posting title, falling back to fallback and then to
// DefaultTitle.
func Title(doc *document.Document, fallback string) string {
	if v, _, ok := First(doc, TitleChain); ok {
		return v
	}
	if fallback = document.CollapseSpaces(fallback); acceptableTitle(fallback) {
		return fallback
	}
	return DefaultTitle
}

func ogTitle(doc *document.Document) (string, bool) {
	content, _ := doc.Find(`meta[property="og:title"], meta[name="og:title"]`).First().Attr("content")
	return siteTitle(content)
}

func titleTag(doc *document.Document) (string, bool) {
	return siteTitle(document.Text(doc.Find("title").First()))
}

func firstHeading(doc *document.Document) (string, bool) {
	for _, level := range headingLevels {
		var text string
		doc.Find(level).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text = document.Text(s)
			return text == ""
		})
		if v := document.CollapseSpaces(text); acceptableTitle(v) {
			return v, true
		}
	}
	return "", false
}

// siteTitle cleans page-level titles, which usually end in the site name.
// Headings are taken as written.
func siteTitle(raw string) (string, bool) {
	title := trimSiteSuffix(document.CollapseSpaces(raw))
	return title, acceptableTitle(title)
}

// trimSiteSuffix drops one trailing " | Site" or " - Site" segment.
func trimSiteSuffix(title string) string {
	for _, sep := range titleSeparators {
		i := strings.LastIndex(title, sep)
		if i <= 0 {
			continue
		}
		if head := strings.TrimSpace(title[:i]); utf8.RuneCountInString(head) >= minTitleLen {
			return head
		}
	}
	return title
}

func acceptableTitle(title string) bool {
	n := utf8.RuneCountInString(title)
	return n >= minTitleLen && n <= maxTitleLen
}
