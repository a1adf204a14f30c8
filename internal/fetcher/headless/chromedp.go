// Package headless renders pages in headless Chrome for sites whose content
// only appears after JavaScript runs.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// Defaults applied by NewChromedp when the config leaves them zero.
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultSettleDelay       = 2500 * time.Millisecond
	defaultWidth             = 1366
	defaultHeight            = 768
)

// Config controls the browser. MaxParallel zero means unlimited tabs; a
// negative SettleDelay disables the post-load wait.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	WindowWidth       int
	WindowHeight      int
}

func (c Config) withDefaults() Config {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	switch {
	case c.SettleDelay < 0:
		c.SettleDelay = 0
	case c.SettleDelay == 0:
		c.SettleDelay = DefaultSettleDelay
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		c.WindowWidth, c.WindowHeight = defaultWidth, defaultHeight
	}
	return c
}

// allocatorOptions returns the Chrome flags for one browser process shared by
// every tab.
func (c Config) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+8)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.WindowSize(c.WindowWidth, c.WindowHeight),
	)
	if c.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.UserAgent))
	}
	return opts
}

// Fetcher implements crawler.Fetcher with headless Chrome. The browser starts
// on the first render and each Fetch runs in its own tab.
type Fetcher struct {
	cfg     Config
	slots   *semaphore.Weighted
	browser context.Context
	stop    context.CancelFunc
}

// NewChromedp creates a chromedp-backed Fetcher.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	cfg = cfg.withDefaults()
	f := &Fetcher{cfg: cfg}
	if cfg.MaxParallel > 0 {
		f.slots = semaphore.NewWeighted(int64(cfg.MaxParallel))
	}
	f.browser, f.stop = chromedp.NewExecAllocator(context.Background(), cfg.allocatorOptions()...)
	return f, nil
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	f.stop()
}

// Fetch loads request.URL in a new tab and returns the rendered DOM.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	if f.slots != nil {
		if err := f.slots.Acquire(ctx, 1); err != nil {
			return crawler.FetchResponse{}, fmt.Errorf("wait for browser tab: %w", err)
		}
		defer f.slots.Release(1)
	}

	tab, closeTab := chromedp.NewContext(f.browser)
	defer closeTab()
	unlink := context.AfterFunc(ctx, closeTab)
	defer unlink()
	tab, cancel := context.WithTimeout(tab, f.cfg.NavigationTimeout)
	defer cancel()

	p := &page{requested: request.URL}
	chromedp.ListenTarget(tab, p.onEvent)

	start := time.Now()
	if err := chromedp.Run(tab, f.tasks(request.Headers, p)); err != nil {
		if ctx.Err() != nil {
			return crawler.FetchResponse{}, fmt.Errorf("render canceled: %w", ctx.Err())
		}
		return crawler.FetchResponse{}, fmt.Errorf("render %s: %w", request.URL, err)
	}
	return p.response(time.Since(start)), nil
}

func (f *Fetcher) tasks(headers http.Header, p *page) chromedp.Tasks {
	return chromedp.Tasks{
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if f.cfg.UserAgent == "" {
				return nil
			}
			return emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(headers) == 0 {
				return nil
			}
			return network.SetExtraHTTPHeaders(toNetworkHeaders(headers)).Do(ctx)
		}),
		chromedp.Navigate(p.requested),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleDelay),
		chromedp.Location(&p.location),
		chromedp.OuterHTML("html", &p.html, chromedp.ByQuery),
	}
}

// page accumulates what one tab observed. Event callbacks run on chromedp's
// goroutine, so the document fields are guarded.
type page struct {
	requested string
	location  string
	html      string

	mu     sync.Mutex
	status int
	docURL string
}

// onEvent records the first top-level document response; later documents
// belong to iframes.
func (p *page) onEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == 0 {
		p.status = int(resp.Response.Status)
		p.docURL = resp.Response.URL
	}
}

func (p *page) response(took time.Duration) crawler.FetchResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := crawler.FetchResponse{
		URL:          p.requested,
		StatusCode:   p.status,
		Headers:      http.Header{},
		Body:         []byte(p.html),
		Duration:     took,
		UsedHeadless: true,
	}
	if out.StatusCode == 0 {
		out.StatusCode = http.StatusOK
	}
	switch {
	case p.location != "":
		out.URL = p.location
	case p.docURL != "":
		out.URL = p.docURL
	}
	return out
}

func toNetworkHeaders(h http.Header) network.Headers {
	out := make(network.Headers, len(h))
	for key, values := range h {
		if len(values) == 1 {
			out[key] = values[0]
		} else if len(values) > 1 {
			out[key] = append([]string(nil), values...)
		}
	}
	return out
}
