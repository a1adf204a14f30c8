package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlocklist(t *testing.T) {
	t.Parallel()

	t.Run("exact match", func(t *testing.T) {
		bl := NewBlocklist([]string{"example.org"})
		require.NotNil(t, bl)
		require.True(t, bl.IsBlocked("example.org"))
		require.True(t, bl.IsBlocked("EXAMPLE.org."))
		require.False(t, bl.IsBlocked("sub.example.org"))
	})

	t.Run("wildcard suffix", func(t *testing.T) {
		bl := NewBlocklist([]string{"*.linkedin.com", ".x.com"})
		cases := []struct {
			host    string
			blocked bool
		}{
			{"linkedin.com", true},
			{"www.linkedin.com", true},
			{"in.linkedin.com", true},
			{"x.com", true},
			{"box.com", false},
			{"notlinkedin.com", false},
		}
		for _, tc := range cases {
			require.Equal(t, tc.blocked, bl.IsBlocked(tc.host), tc.host)
		}
	})

	t.Run("urls", func(t *testing.T) {
		bl := NewBlocklist(DefaultRestrictedDomains)
		require.True(t, bl.IsBlockedURL("https://www.facebook.com/acme"))
		require.True(t, bl.IsBlockedURL("https://t.me/acmejobs"))
		require.False(t, bl.IsBlockedURL("https://acme.example/careers"))
		require.False(t, bl.IsBlockedURL("::not a url"))
	})

	t.Run("nil blocklist", func(t *testing.T) {
		var bl *Blocklist
		require.False(t, bl.IsBlocked("anything"))
		require.Nil(t, NewBlocklist([]string{" ", ""}))
	})
}
