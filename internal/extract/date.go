package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/careerwatch/internal/document"
)

// DateLayout is the normalized output format: day/month/year, zero-padded.
const DateLayout = "02/01/2006"

const monthNames = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)`

var datePattern = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`,
	`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`,
	`\b` + monthNames + `[a-z]*\.?\s+\d{1,2},?\s+\d{2,4}\b`,
	`\b\d{1,2}\s+` + monthNames + `[a-z]*\.?,?\s+\d{2,4}\b`,
}, "|"))

// dateLayouts are tried in order; day-first numeric forms win ties.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2006-1-2",
	"1/2/2006",
	"1-2-2006",
	"2/1/06",
	"2-1-06",
	"2006/1/2",
	"Jan 2 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"2 Jan, 2006",
	"January 2 2006",
	"January 2, 2006",
	"2 January 2006",
	"2 January, 2006",
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var dateMetaNames = []string{
	"article:published_time",
	"og:updated_time",
	"datePosted",
	"datePublished",
	"pubdate",
	"publishdate",
	"date",
}

var dateLabels = []string{
	"posted",
	"date posted",
	"published",
	"updated",
	"last updated",
}

// DateChain is the ordered posted-date extraction chain.
var DateChain = []Extractor[string]{
	{Name: "structured", Fn: structuredDate},
	{Name: "time_element", Fn: timeElementDate},
	{Name: "meta", Fn: metaDate},
	{Name: "label", Fn: labelDate},
	{Name: "body_text", Fn: bodyTextDate},
}

// PostedDate returns the normalized posting date, or false when none is found.
func PostedDate(doc *document.Document) (string, bool) {
	v, _, ok := First(doc, DateChain)
	return v, ok
}

// FindDate scans text for the leftmost date-shaped substring and normalizes
// it. When no layout parses the match, the raw matched text is returned.
func FindDate(text string) (string, bool) {
	match := datePattern.FindString(text)
	if match == "" {
		return "", false
	}
	if normalized, ok := NormalizeDate(match); ok {
		return normalized, true
	}
	return match, true
}

// NormalizeDate parses raw against the ordered layouts and returns it in
// DateLayout.
func NormalizeDate(raw string) (string, bool) {
	cleaned := cleanDate(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}

func cleanDate(raw string) string {
	s := document.CollapseSpaces(raw)
	s = strings.ReplaceAll(s, ".", "")
	fields := strings.Fields(s)
	for i, f := range fields {
		if strings.EqualFold(f, "sept") {
			fields[i] = "Sep"
		}
	}
	return strings.Join(fields, " ")
}

// parseStructuredDate accepts ISO-8601 values and falls back to FindDate.
func parseStructuredDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	iso := raw
	if strings.HasSuffix(iso, "z") {
		iso = strings.TrimSuffix(iso, "z") + "Z"
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return FindDate(raw)
}

func structuredDate(doc *document.Document) (string, bool) {
	for _, field := range []string{"datePosted", "validThrough"} {
		for _, posting := range doc.JobPostings() {
			if raw, ok := document.StringField(posting, field); ok {
				if v, ok := parseStructuredDate(raw); ok {
					return v, true
				}
			}
		}
	}
	return "", false
}

func timeElementDate(doc *document.Document) (string, bool) {
	var out string
	doc.Find("time").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"datetime", "aria-label"} {
			if raw, ok := s.Attr(attr); ok {
				if v, ok := parseStructuredDate(raw); ok {
					out = v
					return false
				}
			}
		}
		if v, ok := FindDate(document.Text(s)); ok {
			out = v
			return false
		}
		return true
	})
	return out, out != ""
}

func metaDate(doc *document.Document) (string, bool) {
	for _, name := range dateMetaNames {
		selector := `meta[property="` + name + `"], meta[name="` + name + `"], meta[itemprop="` + name + `"]`
		content, ok := doc.Find(selector).First().Attr("content")
		if !ok {
			continue
		}
		if v, ok := parseStructuredDate(content); ok {
			return v, true
		}
	}
	return "", false
}

func labelDate(doc *document.Document) (string, bool) {
	elements := doc.Find("body *")
	for _, label := range dateLabels {
		var out string
		elements.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if document.IsSkipped(goquery.NodeName(s)) {
				return true
			}
			if !strings.Contains(strings.ToLower(document.OwnText(s)), label) {
				return true
			}
			for _, scope := range []*goquery.Selection{s, s.Parent()} {
				if v, ok := FindDate(document.Text(scope)); ok {
					out = v
					return false
				}
			}
			return true
		})
		if out != "" {
			return out, true
		}
	}
	return "", false
}

func bodyTextDate(doc *document.Document) (string, bool) {
	return FindDate(doc.Text())
}
