// Package collyfetcher implements the static fetch path using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// Defaults applied by New when the config leaves them zero.
const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxBodySize = 5 << 20
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// MaxBodySize truncates larger pages; career pages rarely exceed a few hundred KB.
	MaxBodySize int
}

// Fetcher implements crawler.Fetcher with one GET per call. A base collector
// owns the pooled transport; every call runs on a clone so hooks never leak
// between requests.
type Fetcher struct {
	base *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	base := colly.NewCollector(colly.Async(false))
	// Every pass revisits the same career pages.
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
	})
	// Clones share the backend client, so the timeout is set once here.
	base.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		base.UserAgent = cfg.UserAgent
	}
	base.IgnoreRobotsTxt = !cfg.RespectRobots
	base.MaxBodySize = cfg.MaxBodySize
	return &Fetcher{base: base}
}

// Fetch executes a single HTTP GET. Non-2xx responses surface as errors from
// colly carrying the status code.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	v := &visit{request: request, start: time.Now()}
	c := f.collector()
	c.OnRequest(v.onRequest)
	c.OnResponse(v.onResponse)
	c.OnError(v.onError)

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(request.URL)
	}()

	select {
	case <-ctx.Done():
		return crawler.FetchResponse{}, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return crawler.FetchResponse{}, fmt.Errorf("colly visit: %w", err)
		}
		if v.err != nil {
			return crawler.FetchResponse{}, v.err
		}
		return v.resp, nil
	}
}

func (f *Fetcher) collector() *colly.Collector {
	return f.base.Clone()
}

// visit records the outcome of one collector run.
type visit struct {
	request crawler.FetchRequest
	start   time.Time
	resp    crawler.FetchResponse
	err     error
}

func (v *visit) onRequest(r *colly.Request) {
	for key, values := range v.request.Headers {
		for _, value := range values {
			r.Headers.Add(key, value)
		}
	}
}

// onResponse records the post-redirect URL.
func (v *visit) onResponse(r *colly.Response) {
	var headers http.Header
	if r.Headers != nil {
		headers = r.Headers.Clone()
	}
	v.resp = crawler.FetchResponse{
		URL:        r.Request.URL.String(),
		StatusCode: r.StatusCode,
		Headers:    headers,
		Body:       append([]byte(nil), r.Body...),
		Duration:   time.Since(v.start),
	}
}

func (v *visit) onError(r *colly.Response, err error) {
	if r != nil && r.StatusCode != 0 {
		v.err = fmt.Errorf("status %d: %w", r.StatusCode, err)
		return
	}
	v.err = err
}
