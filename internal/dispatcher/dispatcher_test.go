package dispatcher

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/storage/memory"
)

func TestRunPassAggregatesCompanies(t *testing.T) {
	t.Parallel()

	seeds := []crawler.SeedCompany{
		{Name: "Acme", HomepageURL: "https://acme.example"},
		{Name: "Beta", HomepageURL: "https://beta.example"},
		{Name: "Bad", HomepageURL: "beta.example"},
	}
	proc := &fakeProcessor{}
	store := memory.NewDedupStore("https://acme.example/jobs/1")
	d := New(staticSource{seeds: seeds}, proc, store, fixedIDs{"pass-1"}, nil, Config{Workers: 2}, zap.NewNop())

	require.False(t, d.Started())
	summary, err := d.RunPass(context.Background())
	require.NoError(t, err)

	require.Equal(t, "pass-1", summary.PassID)
	require.Equal(t, 2, summary.Companies)
	require.Equal(t, 1, summary.InvalidSeeds)
	require.Equal(t, 2, summary.Delivered)
	require.ElementsMatch(t, []string{"Acme", "Beta", "Bad"}, proc.names())

	st := d.Status()
	require.True(t, d.Started())
	require.False(t, st.Running)
	require.Equal(t, 1, st.Passes)
	require.NotNil(t, st.LastPass)
	require.Equal(t, summary, *st.LastPass)
	require.Empty(t, st.LastError)
}

func TestRunPassSeedFailure(t *testing.T) {
	t.Parallel()

	d := New(staticSource{err: errors.New("missing column")}, &fakeProcessor{}, nil, nil, nil, Config{}, zap.NewNop())

	summary, err := d.RunPass(context.Background())
	require.ErrorContains(t, err, "load seeds: missing column")
	require.NotEmpty(t, summary.PassID)
	require.Equal(t, "load seeds: missing column", d.Status().LastError)
}

func TestRunPassNeverOverlaps(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	d := New(staticSource{seeds: []crawler.SeedCompany{{Name: "Acme", HomepageURL: "https://acme.example"}}},
		proc, nil, nil, nil, Config{Workers: 1}, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := d.RunPass(context.Background())
		done <- err
	}()

	select {
	case <-proc.entered:
	case <-time.After(time.Second):
		t.Fatal("first pass did not start")
	}
	require.True(t, d.Status().Running)

	_, err := d.RunPass(context.Background())
	require.ErrorIs(t, err, ErrPassRunning)

	close(proc.block)
	require.NoError(t, <-done)
}

func TestRunPassCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seeds := []crawler.SeedCompany{{Name: "Acme", HomepageURL: "https://acme.example"}}
	d := New(staticSource{seeds: seeds}, &fakeProcessor{}, nil, nil, nil, Config{}, zap.NewNop())

	_, err := d.RunPass(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, d.Status().Passes)
}

type staticSource struct {
	seeds []crawler.SeedCompany
	err   error
}

func (s staticSource) Load(context.Context) ([]crawler.SeedCompany, error) {
	return s.seeds, s.err
}

type fixedIDs struct {
	id string
}

func (f fixedIDs) NewID() (string, error) {
	return f.id, nil
}

type fakeProcessor struct {
	mu      sync.Mutex
	seen    []string
	block   chan struct{}
	entered chan struct{}
}

func (p *fakeProcessor) ProcessCompany(_ context.Context, _ string, seed crawler.SeedCompany) crawler.PassSummary {
	if p.entered != nil {
		select {
		case p.entered <- struct{}{}:
		default:
		}
	}
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	p.seen = append(p.seen, seed.Name)
	p.mu.Unlock()
	if !crawler.IsHTTPURL(seed.HomepageURL) {
		return crawler.PassSummary{InvalidSeeds: 1}
	}
	return crawler.PassSummary{Companies: 1, Delivered: 1}
}

func (p *fakeProcessor) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]string(nil), p.seen...)
	sort.Strings(out)
	return out
}
