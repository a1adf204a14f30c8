package crawler

import "strings"

// DefaultRestrictedDomains are hosts that never serve job postings and
// routinely block automated clients.
var DefaultRestrictedDomains = []string{
	"*.facebook.com",
	"*.instagram.com",
	"*.twitter.com",
	"*.x.com",
	"*.linkedin.com",
	"*.youtube.com",
	"*.tiktok.com",
	"*.pinterest.com",
	"*.reddit.com",
	"*.whatsapp.com",
	"*.threads.net",
	"t.me",
	"wa.me",
}

// Blocklist matches hosts against exact names and whole domains. A domain
// entry also covers every subdomain.
type Blocklist struct {
	hosts   map[string]struct{}
	domains map[string]struct{}
}

// NewBlocklist parses patterns and returns nil when none remain. "*.acme.com"
// and ".acme.com" block acme.com with its subdomains; any other entry blocks
// that host only.
func NewBlocklist(patterns []string) *Blocklist {
	b := &Blocklist{hosts: map[string]struct{}{}, domains: map[string]struct{}{}}
	for _, raw := range patterns {
		p := normalizeHost(raw)
		if domain, ok := strings.CutPrefix(p, "*."); ok {
			p = "." + domain
		}
		if domain, ok := strings.CutPrefix(p, "."); ok {
			if domain != "" {
				b.domains[domain] = struct{}{}
			}
			continue
		}
		if p != "" {
			b.hosts[p] = struct{}{}
		}
	}
	if len(b.hosts)+len(b.domains) == 0 {
		return nil
	}
	return b
}

// IsBlocked reports whether host is restricted. A nil Blocklist blocks nothing.
func (b *Blocklist) IsBlocked(host string) bool {
	if b == nil {
		return false
	}
	host = strings.TrimSuffix(normalizeHost(host), ".")
	if host == "" {
		return false
	}
	if _, ok := b.hosts[host]; ok {
		return true
	}
	// Walk up the labels: www.in.linkedin.com, in.linkedin.com, linkedin.com, com.
	for name := host; name != ""; {
		if _, ok := b.domains[name]; ok {
			return true
		}
		_, parent, found := strings.Cut(name, ".")
		if !found {
			break
		}
		name = parent
	}
	return false
}

// IsBlockedURL reports whether rawURL's host is restricted.
func (b *Blocklist) IsBlockedURL(rawURL string) bool {
	return b.IsBlocked(Hostname(rawURL))
}

func normalizeHost(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
