// Package document parses fetched HTML once and exposes the views the
// classifier and field extractors share: the goquery tree, the visible text,
// and any embedded JobPosting objects.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed page. It is read-only after Parse.
type Document struct {
	doc          *goquery.Document
	text         string
	postings     []map[string]any
	hasMicrodata bool
}

var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
}

// Parse builds a Document from raw HTML.
func Parse(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	d := &Document{doc: doc}
	doc.Find(`script[type*="ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		d.postings = append(d.postings, decodeJobPostings(s.Text())...)
	})
	d.hasMicrodata = doc.Find(`[itemtype]`).FilterFunction(func(_ int, s *goquery.Selection) bool {
		itemType, _ := s.Attr("itemtype")
		return strings.HasSuffix(strings.ToLower(strings.TrimSpace(itemType)), "/jobposting")
	}).Length() > 0
	d.text = Text(doc.Selection)
	return d, nil
}

// Find runs a CSS selector over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Text returns the visible text, whitespace-collapsed.
func (d *Document) Text() string {
	return d.text
}

// JobPostings returns embedded JSON-LD objects whose type is JobPosting.
func (d *Document) JobPostings() []map[string]any {
	return d.postings
}

// HasJobPostingMetadata reports whether the page declares a JobPosting in
// JSON-LD or microdata.
func (d *Document) HasJobPostingMetadata() bool {
	return len(d.postings) > 0 || d.hasMicrodata
}

// Text returns the visible text under sel with script-like elements skipped.
// Text nodes are joined by single spaces so adjacent inline elements do not
// run together.
func Text(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	return CollapseSpaces(b.String())
}

// OwnText returns the text of sel's direct text-node children only.
func OwnText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
				b.WriteByte(' ')
			}
		}
	}
	return CollapseSpaces(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.ElementNode:
		if _, skip := skippedElements[n.Data]; skip {
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

// IsSkipped reports whether an element name never contributes visible text.
func IsSkipped(name string) bool {
	_, ok := skippedElements[name]
	return ok
}

// CollapseSpaces trims s and folds every whitespace run to one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func decodeJobPostings(raw string) []map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	var out []map[string]any
	collectJobPostings(payload, &out)
	return out
}

func collectJobPostings(v any, out *[]map[string]any) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			collectJobPostings(item, out)
		}
	case map[string]any:
		if IsJobPostingType(node["@type"]) || IsJobPostingType(node["type"]) {
			*out = append(*out, node)
		}
		if graph, ok := node["@graph"]; ok {
			collectJobPostings(graph, out)
		}
	}
}

// IsJobPostingType reports whether a JSON-LD type value (string or list)
// names JobPosting.
func IsJobPostingType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "jobposting")
	case []any:
		for _, item := range t {
			if IsJobPostingType(item) {
				return true
			}
		}
	}
	return false
}

// StringField returns obj[key] when it is a non-empty string.
func StringField(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}
