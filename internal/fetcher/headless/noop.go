package headless

import (
	"context"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// Noop stands in for the renderer when dynamic rendering is disabled.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always reports that rendering is unavailable.
func (Noop) Fetch(_ context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	return crawler.FetchResponse{}, crawler.NewError(crawler.KindRenderUnavailable, "headless.fetch", request.URL, nil)
}
