package crawler

import (
	"slices"
	"strings"
)

// CareerKeywords mark a link as leading to a careers section.
var CareerKeywords = []string{
	"career",
	"careers",
	"jobs",
	"job",
	"join-us",
	"join us",
	"work-with-us",
	"work with us",
	"opportunities",
	"opening",
	"openings",
	"vacancy",
	"vacancies",
	"recruitment",
	"hiring",
	"talent",
	"apply",
	"positions",
}

// JobKeywords mark a URL as a likely individual posting. It is a superset of
// CareerKeywords.
var JobKeywords = append(append([]string{}, CareerKeywords...),
	"position",
	"posting",
	"requisition",
	"job-detail",
	"jobdetail",
	"job_id",
	"jobid",
	"gh_jid",
	"internship",
)

// ExclusionKeywords rule a URL out as content rather than a posting.
var ExclusionKeywords = []string{
	"blog",
	"event",
	"events",
	"news",
	"press",
	"media",
	"article",
	"insight",
	"stories",
	"webinar",
	"podcast",
	"case-study",
	"whitepaper",
}

// ATSPatterns identify hosted applicant-tracking systems.
var ATSPatterns = []string{
	"greenhouse.io",
	"lever.co",
	"myworkdayjobs.com",
	"smartrecruiters.com",
	"icims.com",
	"jobvite.com",
	"applytojob.com",
	"ashbyhq.com",
	"workable.com",
	"bamboohr.com",
	"recruitee.com",
	"breezy.hr",
	"teamtailor.com",
	"personio.",
	"darwinbox.",
	"freshteam.com",
	"zohorecruit.",
	"successfactors.",
	"taleo.net",
	"keka.com",
}

// PostingSignals are body phrases typical of a job description.
var PostingSignals = []string{
	"apply now",
	"apply",
	"responsibilities",
	"requirements",
	"job description",
	"what you will do",
	"role & responsibilities",
	"position summary",
}

// ContainsAny reports whether s contains any keyword, case-insensitively.
func ContainsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CountMatches returns how many distinct keywords s contains,
// case-insensitively. Longer keywords are matched first and their text is
// consumed, so "apply now" does not also count as "apply" unless "apply"
// appears elsewhere.
func CountMatches(s string, keywords []string) int {
	lower := strings.ToLower(s)
	ordered := slices.Clone(keywords)
	slices.SortStableFunc(ordered, func(a, b string) int { return len(b) - len(a) })
	seen := make(map[string]struct{}, len(ordered))
	for _, kw := range ordered {
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		if strings.Contains(lower, kw) {
			seen[kw] = struct{}{}
			lower = strings.ReplaceAll(lower, kw, "\x00")
		}
	}
	return len(seen)
}
