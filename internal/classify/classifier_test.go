package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/careerwatch/internal/document"
)

func mustParse(t *testing.T, html string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(html))
	require.NoError(t, err)
	return doc
}

func TestClassify(t *testing.T) {
	t.Parallel()

	jsonLD := `<script type="application/ld+json">{"@type":"JobPosting","title":"Engineer"}</script>`
	cases := []struct {
		name   string
		url    string
		html   string
		want   bool
		reason Reason
	}{
		{
			name:   "exclusion beats job keyword",
			url:    "https://acme.example/blog/careers-update",
			html:   jsonLD + `<p>Apply now. Responsibilities. Requirements.</p>`,
			reason: ReasonExcludedURL,
		},
		{
			name:   "structured metadata",
			url:    "https://acme.example/p/123",
			html:   jsonLD,
			want:   true,
			reason: ReasonStructuredMetadata,
		},
		{
			name:   "two distinct phrases",
			url:    "https://acme.example/p/123",
			html:   `<h2>Responsibilities</h2><ul><li>Ship</li></ul><h2>Requirements</h2>`,
			want:   true,
			reason: ReasonTextSignals,
		},
		{
			name:   "one phrase is not enough",
			url:    "https://acme.example/p/123",
			html:   `<h2>Responsibilities</h2><p>Keep the lights on.</p>`,
			reason: ReasonNoSignal,
		},
		{
			name:   "url keyword alone",
			url:    "https://acme.example/careers/123-engineer",
			html:   `<p>Hello</p>`,
			want:   true,
			reason: ReasonURLKeyword,
		},
		{
			name:   "nothing",
			url:    "https://acme.example/about",
			html:   `<p>We make widgets.</p>`,
			reason: ReasonNoSignal,
		},
	}

	c := New(0)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.url, mustParse(t, tc.html))
			require.Equal(t, tc.want, got.Posting)
			require.Equal(t, tc.reason, got.Reason)
			require.Equal(t, tc.want, c.IsJobPosting(tc.url, mustParse(t, tc.html)))
		})
	}
}

func TestClassify_RaisedThreshold(t *testing.T) {
	t.Parallel()

	c := New(3)
	doc := mustParse(t, `<p>Responsibilities and requirements</p>`)
	require.False(t, c.IsJobPosting("https://acme.example/p/1", doc))
}

func TestClassify_ApplyButtonAloneIsOneSignal(t *testing.T) {
	t.Parallel()

	got := New(0).Classify("https://acme.example/p/7", mustParse(t, `<p>We make widgets.</p><button>Apply now</button>`))
	require.False(t, got.Posting)
	require.Equal(t, ReasonNoSignal, got.Reason)
}
