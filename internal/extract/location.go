package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/JakeFAU/careerwatch/internal/document"
)

// DefaultLocation is reported when no location can be found.
const DefaultLocation = "Not specified"

var knownPlaces = regexp.MustCompile(`(?i)\b(?:` + strings.Join([]string{
	"India",
	"Bengaluru",
	"Bangalore",
	"Hyderabad",
	"Chennai",
	"Pune",
	"Mumbai",
	"Gurugram",
	"Gurgaon",
	"Noida",
	"Kolkata",
	"New Delhi",
	"Delhi",
	"Ahmedabad",
	"Kochi",
	"Jaipur",
	"Singapore",
	"Dubai",
	"London",
	"Berlin",
	"New York",
	"San Francisco",
	"Toronto",
	"Sydney",
	"Remote",
	"Anywhere",
}, "|") + `)\b`)

// LocationChain is the ordered location extraction chain.
var LocationChain = []Extractor[string]{
	{Name: "structured", Fn: structuredLocation},
	{Name: "text_scan", Fn: scannedLocation},
}

// Location returns the posting location or DefaultLocation.
func Location(doc *document.Document) string {
	if v, _, ok := First(doc, LocationChain); ok {
		return v
	}
	return DefaultLocation
}

func structuredLocation(doc *document.Document) (string, bool) {
	for _, posting := range doc.JobPostings() {
		if v, ok := placeText(posting["jobLocation"]); ok {
			return v, true
		}
		if kind, ok := document.StringField(posting, "jobLocationType"); ok && strings.EqualFold(kind, "TELECOMMUTE") {
			return "Remote", true
		}
	}
	return "", false
}

// placeText flattens a schema.org Place (or list of them) into
// "locality, region, country".
func placeText(v any) (string, bool) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			if s, ok := placeText(item); ok {
				return s, true
			}
		}
	case string:
		s := document.CollapseSpaces(node)
		return s, s != ""
	case map[string]any:
		address, ok := node["address"]
		if !ok {
			address = node
		}
		switch addr := address.(type) {
		case string:
			s := document.CollapseSpaces(addr)
			return s, s != ""
		case map[string]any:
			var parts []string
			for _, key := range []string{"addressLocality", "addressRegion", "addressCountry"} {
				if s, ok := nameOrString(addr[key]); ok {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, ", "), true
			}
		}
	}
	return "", false
}

func nameOrString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := document.CollapseSpaces(t)
		return s, s != ""
	case map[string]any:
		return document.StringField(t, "name")
	}
	return "", false
}

func scannedLocation(doc *document.Document) (string, bool) {
	match := knownPlaces.FindString(doc.Text())
	if match == "" {
		return "", false
	}
	// Casers carry state and are not shared across goroutines.
	return cases.Title(language.English).String(strings.ToLower(document.CollapseSpaces(match))), true
}
