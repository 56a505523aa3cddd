// File: internal/scrape/bundle.go
package scrape

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"

	"github.com/xkilldash9x/birdclip/internal/faults"
)

// bundleMaxBytes bounds how much of the bundle is read. Current builds are
// around 1–2 MB; 32 MB leaves room without letting a broken CDN response
// exhaust memory.
const bundleMaxBytes = 32 << 20

// FetchBundleContents downloads the app bundle. The request is
// unauthenticated and cross-origin, exactly as the app itself loads it.
// The CDN serves brotli to browsers, so the encoding is negotiated
// explicitly and decoded here.
func (s *Scraper) FetchBundleContents(ctx context.Context, bundleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bundleURL, nil)
	if err != nil {
		return "", fmt.Errorf("building bundle request: %w", err)
	}
	req.Header.Set("User-Agent", s.ua)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "br, gzip")
	req.Header.Set("Referer", BaseURL+"/")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching bundle %s: %w", bundleURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("fetching bundle %s: status %d %s", bundleURL, resp.StatusCode, resp.Status)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return "", faults.Wrap(faults.KindUnknown, err, "decoding bundle body from %s", bundleURL)
	}
	return string(body), nil
}

// decodeBody undoes the negotiated content encoding. Setting Accept-Encoding
// by hand disables net/http's transparent gzip, so both encodings are
// handled here.
func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(io.LimitReader(reader, bundleMaxBytes))
}
