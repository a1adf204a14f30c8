// Package extract pulls posting fields out of a parsed page through ordered
// extractor chains. Each chain is a plain slice so the order is visible and
// testable; the first extractor to produce a value wins.
package extract

import "github.com/JakeFAU/careerwatch/internal/document"

// Extractor is one step of a chain.
type Extractor[T any] struct {
	Name string
	Fn   func(doc *document.Document) (T, bool)
}

// First runs chain in order and returns the first value produced along with
// the name of the extractor that produced it.
func First[T any](doc *document.Document, chain []Extractor[T]) (T, string, bool) {
	for _, ex := range chain {
		if v, ok := ex.Fn(doc); ok {
			return v, ex.Name, true
		}
	}
	var zero T
	return zero, "", false
}
