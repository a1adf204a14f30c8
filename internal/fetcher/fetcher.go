// Package fetcher combines the static and rendered fetch paths behind one
// call: scheme and restricted-domain checks, host admission, a static GET,
// and a rendered retry when the static body looks unrendered.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/metrics"
)

// DefaultHeaders accompany every static request.
var DefaultHeaders = http.Header{
	"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	"Accept-Language": {"en-US,en;q=0.9"},
}

// Fetcher implements crawler.PageFetcher.
type Fetcher struct {
	static    crawler.Fetcher
	renderer  crawler.Fetcher
	detector  crawler.RenderDetector
	blocklist *crawler.Blocklist
	limiter   crawler.Limiter
	clock     crawler.Clock
	logger    *zap.Logger
}

// New wires a composite fetcher. renderer and detector may be nil to disable
// the rendered path; limiter may be nil to skip admission control.
func New(
	static crawler.Fetcher,
	renderer crawler.Fetcher,
	detector crawler.RenderDetector,
	blocklist *crawler.Blocklist,
	limiter crawler.Limiter,
	clock crawler.Clock,
	logger *zap.Logger,
) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		static:    static,
		renderer:  renderer,
		detector:  detector,
		blocklist: blocklist,
		limiter:   limiter,
		clock:     clock,
		logger:    logger,
	}
}

// FetchPage retrieves rawURL. The rendered path runs when the static fetch
// fails or its body looks unrendered; if rendering is unavailable or also
// fails, the static result (or its error) is returned.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (crawler.FetchResult, error) {
	if err := f.admit(rawURL); err != nil {
		metrics.ObserveFetch(string(crawler.FetchMethodStatic), "rejected")
		return crawler.FetchResult{}, err
	}
	if f.limiter != nil {
		release, err := f.limiter.Acquire(ctx, rawURL)
		if err != nil {
			return crawler.FetchResult{}, crawler.NewError(crawler.KindFetchTransient, "fetch.admission", rawURL, err)
		}
		defer release()
	}

	logger := f.logger.With(zap.String("url", rawURL))
	resp, staticErr := f.fetchStatic(ctx, rawURL)
	if staticErr == nil && !f.shouldRender(resp) {
		metrics.ObserveFetch(string(crawler.FetchMethodStatic), "ok")
		return f.result(resp, crawler.FetchMethodStatic), nil
	}
	if staticErr != nil {
		metrics.ObserveFetch(string(crawler.FetchMethodStatic), "error")
		if f.renderer == nil || ctx.Err() != nil {
			return crawler.FetchResult{}, staticErr
		}
		logger.Debug("static fetch failed, trying rendered path", zap.Error(staticErr))
	}

	rendered, renderErr := f.fetchRendered(ctx, rawURL)
	if renderErr == nil {
		metrics.ObserveFetch(string(crawler.FetchMethodRendered), "ok")
		return f.result(rendered, crawler.FetchMethodRendered), nil
	}
	if renderDisabled(renderErr) {
		logger.Debug("rendered path unavailable", zap.Error(renderErr))
	} else {
		metrics.ObserveFetch(string(crawler.FetchMethodRendered), "error")
		logger.Warn("rendered fetch failed", zap.Error(renderErr))
	}
	if staticErr != nil {
		return crawler.FetchResult{}, staticErr
	}
	metrics.ObserveFetch(string(crawler.FetchMethodStatic), "ok")
	return f.result(resp, crawler.FetchMethodStatic), nil
}

func (f *Fetcher) admit(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return crawler.NewError(crawler.KindFetchRejected, "fetch.admit", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return crawler.NewError(crawler.KindFetchRejected, "fetch.admit", rawURL,
			fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
	if f.blocklist.IsBlocked(u.Hostname()) {
		return crawler.NewError(crawler.KindFetchRejected, "fetch.admit", rawURL,
			fmt.Errorf("restricted domain %s", u.Hostname()))
	}
	return nil
}

func (f *Fetcher) fetchStatic(ctx context.Context, rawURL string) (crawler.FetchResponse, error) {
	resp, err := f.static.Fetch(ctx, crawler.FetchRequest{URL: rawURL, Headers: DefaultHeaders.Clone()})
	if err != nil {
		return crawler.FetchResponse{}, crawler.NewError(crawler.KindFetchTransient, "fetch.static", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return crawler.FetchResponse{}, crawler.NewError(crawler.KindFetchTransient, "fetch.static", rawURL,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return resp, nil
}

func (f *Fetcher) shouldRender(resp crawler.FetchResponse) bool {
	return f.renderer != nil && f.detector != nil && f.detector.LooksUnrendered(resp)
}

func (f *Fetcher) fetchRendered(ctx context.Context, rawURL string) (crawler.FetchResponse, error) {
	if f.renderer == nil {
		return crawler.FetchResponse{}, crawler.NewError(crawler.KindRenderUnavailable, "fetch.rendered", rawURL, nil)
	}
	resp, err := f.renderer.Fetch(ctx, crawler.FetchRequest{URL: rawURL})
	if err != nil {
		if crawler.KindOf(err) == crawler.KindRenderUnavailable {
			return crawler.FetchResponse{}, err
		}
		return crawler.FetchResponse{}, crawler.NewError(crawler.KindRenderUnavailable, "fetch.rendered", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return crawler.FetchResponse{}, crawler.NewError(crawler.KindFetchTransient, "fetch.rendered", rawURL,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return resp, nil
}

// renderDisabled reports a bare RenderUnavailable error, as returned when no
// browser is configured, as opposed to a browser that failed.
func renderDisabled(err error) bool {
	var e *crawler.Error
	return errors.As(err, &e) && e.Kind == crawler.KindRenderUnavailable && e.Err == nil
}

func (f *Fetcher) result(resp crawler.FetchResponse, method crawler.FetchMethod) crawler.FetchResult {
	return crawler.FetchResult{
		URL:       resp.URL,
		HTML:      resp.Body,
		Method:    method,
		FetchedAt: f.clock.Now(),
	}
}
