// File: internal/scrape/fallback.go
package scrape

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/birdclip/internal/faults"
)

// locateBundleStatic fetches the tab's page HTML with the live cookie header
// and finds the bundle <script> element by parsing the markup. It exists for
// pages where script injection is unavailable; the result contract is the
// same as the injected locator: empty string when no element matches.
func (s *Scraper) locateBundleStatic(ctx context.Context, pageURL string) (string, error) {
	cookieHeader, err := s.FetchCookieHeader(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("building page request: %w", err)
	}
	req.Header.Set("User-Agent", s.ua)
	req.Header.Set("Cookie", cookieHeader)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", faults.AppStructureChanged("page fetch of %s returned status %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", faults.Wrap(faults.KindAppStructureChanged, err, "parsing page HTML from %s", pageURL)
	}
	return findBundleScript(doc), nil
}

// findBundleScript walks the parsed document for a <script src> matching the
// bundle pattern.
func findBundleScript(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "script" {
		for _, attr := range n.Attr {
			if attr.Key == "src" && bundleURLPattern.MatchString(attr.Val) {
				return attr.Val
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if src := findBundleScript(c); src != "" {
			return src
		}
	}
	return ""
}
