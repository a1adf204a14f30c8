package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ErrNotAbsolute is returned when a link cannot be resolved to scheme+host.
var ErrNotAbsolute = errors.New("url is not absolute")

var trackingParams = map[string]struct{}{
	"gclid":   {},
	"dclid":   {},
	"fbclid":  {},
	"msclkid": {},
	"yclid":   {},
	"igshid":  {},
	"mc_cid":  {},
	"mc_eid":  {},
	"mkt_tok": {},
	"_hsenc":  {},
	"_hsmi":   {},
}

// Canonicalize resolves raw against base (which may be empty) and returns a
// stable string form: lower-cased scheme and host, default port removed,
// fragment dropped, tracking parameters removed, remaining query sorted, and
// a trailing "//" collapsed. Canonicalize(Canonicalize(u)) == Canonicalize(u).
func Canonicalize(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("canonicalize: empty url")
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u := ref
	if base = strings.TrimSpace(base); base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("parse base url: %w", err)
		}
		u = b.ResolveReference(ref)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("canonicalize %q: %w", raw, ErrNotAbsolute)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""

	for strings.HasSuffix(u.Path, "//") {
		u.Path = u.Path[:len(u.Path)-1]
	}
	for strings.HasSuffix(u.RawPath, "//") {
		u.RawPath = u.RawPath[:len(u.RawPath)-1]
	}

	u.ForceQuery = false
	u.RawQuery = cleanQuery(u.RawQuery)
	return u.String(), nil
}

// cleanQuery drops tracking parameters and sorts what remains. Segments are
// kept verbatim: url.ParseQuery rejects pairs containing ';' and would
// silently discard them, merging distinct postings into one key.
func cleanQuery(raw string) string {
	if raw == "" {
		return ""
	}
	var kept []string
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		key, _, _ := strings.Cut(seg, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if isTrackingParam(key) {
			continue
		}
		kept = append(kept, seg)
	}
	slices.Sort(kept)
	return strings.Join(kept, "&")
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, ok := trackingParams[key]
	return ok
}

// SameHost reports whether a and b share a host name, ignoring case and port.
func SameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	if ua.Hostname() == "" {
		return false
	}
	return strings.EqualFold(ua.Hostname(), ub.Hostname())
}

// Hostname returns the lower-cased host of rawURL, or "" when unparsable.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// IsHTTPURL reports whether rawURL parses with an http or https scheme and a host.
func IsHTTPURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
