package browser

import "testing"

func TestDomainMatches(t *testing.T) {
	cases := []struct {
		cookieDomain string
		want         string
		match        bool
	}{
		{"twitter.com", "twitter.com", true},
		{".twitter.com", "twitter.com", true},
		{"api.twitter.com", "twitter.com", true},
		{".mobile.twitter.com", "twitter.com", true},
		{"nottwitter.com", "twitter.com", false},
		{"twitter.com.evil.example", "twitter.com", false},
		{"com", "twitter.com", false},
	}

	for _, tc := range cases {
		if got := domainMatches(tc.cookieDomain, tc.want); got != tc.match {
			t.Errorf("domainMatches(%q, %q) = %v, want %v", tc.cookieDomain, tc.want, got, tc.match)
		}
	}
}
