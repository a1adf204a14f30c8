package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_VisibleTextSkipsScripts(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`<html><head><title>Jobs</title><style>p{}</style></head>
<body><p>Posted on<span>Jan 5, 2024</span></p><script>var x = "hidden";</script>
<noscript>enable js</noscript><ul><li>A</li><li>B</li></ul></body></html>`))
	require.NoError(t, err)
	require.Equal(t, "Jobs Posted on Jan 5, 2024 A B", doc.Text())
}

func TestParse_JobPostingJSONLD(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Organization","name":"Acme"}</script>
<script type="application/ld+json">[{"@type":["Thing","JobPosting"],"title":"Engineer"}]</script>
<script type="application/ld+json">{"@graph":[{"@type":"jobposting","title":"Analyst"}]}</script>
<script type="application/ld+json">{not json</script>
</head><body></body></html>`))
	require.NoError(t, err)
	postings := doc.JobPostings()
	require.Len(t, postings, 2)
	title, ok := StringField(postings[0], "title")
	require.True(t, ok)
	require.Equal(t, "Engineer", title)
	require.True(t, doc.HasJobPostingMetadata())
}

func TestParse_Microdata(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`<div itemscope itemtype="https://schema.org/JobPosting"><h1 itemprop="title">Dev</h1></div>`))
	require.NoError(t, err)
	require.Empty(t, doc.JobPostings())
	require.True(t, doc.HasJobPostingMetadata())
}

func TestOwnText(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`<div id="d">Date posted: <b>12/03/2024</b></div>`))
	require.NoError(t, err)
	sel := doc.Find("#d")
	require.Equal(t, "Date posted:", OwnText(sel))
	require.Equal(t, "Date posted: 12/03/2024", Text(sel))
}
