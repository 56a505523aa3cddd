// File: internal/scrape/environment.go

// Package scrape reconstructs a request-capable Twitter environment from a
// live page and the app's bundled script. The upstream API is undocumented;
// every artifact needed to call it (bearer token, per-operation query ids,
// CSRF token, cookies) is scraped, never configured.
package scrape

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/birdclip/internal/browser"
	"github.com/xkilldash9x/birdclip/internal/config"
	"github.com/xkilldash9x/birdclip/internal/faults"
)

// Target app constants. The whole tool points at one API family; changing
// the domain means re-verifying every pattern below.
const (
	Domain  = "twitter.com"
	BaseURL = "https://twitter.com"

	// csrfCookie is short-lived and required as a header on API calls.
	csrfCookie = "ct0"
	// sessionCookie marks a logged-in session.
	sessionCookie = "auth_token"
	// identityCookie carries the per-account identity the cache is keyed by.
	identityCookie = "twid"
)

var (
	// TabURLPattern matches any tab on the target domain.
	TabURLPattern = regexp.MustCompile(`^https://([\w-]+\.)?twitter\.com/`)

	// StatusURLPattern recovers (author handle, tweet id) from a status page.
	StatusURLPattern = regexp.MustCompile(`^https://(?:[\w-]+\.)?twitter\.com/(\w+)/status/(\d+)`)

	// bundleURLPattern pins the exact shape of the app bundle URL; the build
	// id between "main." and ".js" is the staleness version.
	bundleURLPattern = regexp.MustCompile(`^https://abs\.twimg\.com/responsive-web/client-web/main\.([0-9a-z]+)\.js$`)

	// authTokenPattern finds the bearer token literal embedded in the bundle.
	authTokenPattern = regexp.MustCompile(`"Bearer (AAAAAAA[\w%]+)"`)

	// queryIDPattern collects every (queryId, operationName) declaration.
	queryIDPattern = regexp.MustCompile(`queryId:"([a-zA-Z0-9\-_]+)",operationName:"(\w+)"`)
)

// locateBundleJS runs inside the page and returns the bundle script URL, or
// an empty string when no script element matches.
const locateBundleJS = `(() => {
	const re = /^https:\/\/abs\.twimg\.com\/responsive-web\/client-web\/main\.[a-z0-9]+\.js$/;
	const el = Array.from(document.getElementsByTagName('script')).find(s => re.test(s.src));
	return el ? el.src : "";
})()`

// Record is the persistable subset of an Environment: stable across a given
// app build, safe to cache per account.
type Record struct {
	BundleURL           string            `json:"bundleUrl"`
	AuthToken           string            `json:"authToken"`
	QueryIDsByOperation map[string]string `json:"queryIdsByOperation"`
}

// Environment is the full artifact set needed for one authenticated API
// call. The two live fields are re-fetched at every use and are never
// serialized; the json tags make that structural, not conventional.
type Environment struct {
	Record

	CSRFToken    string `json:"-"`
	CookieHeader string `json:"-"`
}

// Scraper extracts environments from the live browser and the app bundle.
type Scraper struct {
	probe  browser.PageProbe
	client *http.Client
	ua     string
	logger *zap.Logger
}

// NewScraper wires a scraper to a page probe and an HTTP client config.
func NewScraper(probe browser.PageProbe, netCfg config.NetworkConfig, logger *zap.Logger) *Scraper {
	return &Scraper{
		probe:  probe,
		client: &http.Client{Timeout: netCfg.Timeout},
		ua:     netCfg.UserAgent,
		logger: logger.Named("scrape"),
	}
}

// LocateBundleURL finds the app bundle's URL in the active target-domain
// tab. Script injection is the primary path; when injection itself fails the
// page HTML is fetched and parsed instead. A tab without any matching script
// element means the app restructured its markup.
func (s *Scraper) LocateBundleURL(ctx context.Context) (string, error) {
	tab, err := s.probe.ActiveTab(ctx, TabURLPattern)
	if err != nil {
		return "", err
	}

	var src string
	if evalErr := s.probe.EvalInTab(ctx, tab, locateBundleJS, &src); evalErr != nil {
		s.logger.Debug("Script injection failed; falling back to static page fetch.",
			zap.String("tab_url", tab.URL), zap.Error(evalErr))
		src, err = s.locateBundleStatic(ctx, tab.URL)
		if err != nil {
			return "", err
		}
	}

	if src == "" {
		return "", faults.AppStructureChanged(
			"no script element matching the main.<build>.js bundle pattern in %s", tab.URL)
	}
	if !bundleURLPattern.MatchString(src) {
		return "", faults.AppStructureChanged("located script URL %q does not match the bundle pattern", src)
	}
	return src, nil
}

// ParseBundleVersion extracts the build identifier from a bundle URL.
func ParseBundleVersion(bundleURL string) (string, error) {
	m := bundleURLPattern.FindStringSubmatch(bundleURL)
	if m == nil {
		return "", faults.AppStructureChanged("bundle URL %q does not match the main.<build>.js pattern", bundleURL)
	}
	return m[1], nil
}

// ExtractAuthToken locates the embedded bearer token literal.
func ExtractAuthToken(bundleContents string) (string, error) {
	m := authTokenPattern.FindStringSubmatch(bundleContents)
	if m == nil {
		return "", faults.AppStructureChanged("no bearer token literal in bundle contents")
	}
	return m[1], nil
}

// ExtractQueryIDs collects every (queryId, operationName) pair declared in
// the bundle. Later declarations overwrite earlier ones for the same
// operation; the bundle is generated output, not adversarial input.
func ExtractQueryIDs(bundleContents string) map[string]string {
	ids := make(map[string]string)
	for _, m := range queryIDPattern.FindAllStringSubmatch(bundleContents, -1) {
		ids[m[2]] = m[1]
	}
	return ids
}

// FetchCSRFToken reads the live ct0 cookie.
func (s *Scraper) FetchCSRFToken(ctx context.Context) (string, error) {
	value, ok, err := s.probe.Cookie(ctx, Domain, csrfCookie)
	if err != nil {
		return "", err
	}
	if !ok || value == "" {
		return "", faults.NotLoggedIn("csrf cookie %q absent; log in to %s first", csrfCookie, Domain)
	}
	return value, nil
}

// FetchCookieHeader serializes the live cookie jar for the target domain as
// a single Cookie header line. A jar without the session cookie means the
// user is not logged in, and no amount of scraping will fix that.
func (s *Scraper) FetchCookieHeader(ctx context.Context) (string, error) {
	cookies, err := s.probe.Cookies(ctx, Domain)
	if err != nil {
		return "", err
	}

	loggedIn := false
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == sessionCookie && c.Value != "" {
			loggedIn = true
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	if !loggedIn {
		return "", faults.NotLoggedIn("session cookie %q absent; log in to %s first", sessionCookie, Domain)
	}
	return strings.Join(parts, "; "), nil
}

// AccountIdentity returns the opaque per-account identity the environment
// cache is keyed by.
func (s *Scraper) AccountIdentity(ctx context.Context) (string, error) {
	value, ok, err := s.probe.Cookie(ctx, Domain, identityCookie)
	if err != nil {
		return "", err
	}
	if !ok || value == "" {
		return "", faults.NotLoggedIn("identity cookie %q absent; log in to %s first", identityCookie, Domain)
	}
	return value, nil
}

// Build composes a complete fresh Environment. Any sub-step failure
// propagates unchanged; a partial Environment is never returned.
func (s *Scraper) Build(ctx context.Context) (Environment, error) {
	bundleURL, err := s.LocateBundleURL(ctx)
	if err != nil {
		return Environment{}, err
	}
	contents, err := s.FetchBundleContents(ctx, bundleURL)
	if err != nil {
		return Environment{}, err
	}
	authToken, err := ExtractAuthToken(contents)
	if err != nil {
		return Environment{}, err
	}
	queryIDs := ExtractQueryIDs(contents)

	rec := Record{BundleURL: bundleURL, AuthToken: authToken, QueryIDsByOperation: queryIDs}
	env, err := s.Reconstitute(ctx, rec)
	if err != nil {
		return Environment{}, err
	}

	s.logger.Info("Built fresh environment.",
		zap.String("bundle_url", bundleURL),
		zap.Int("query_operations", len(queryIDs)))
	return env, nil
}

// Reconstitute attaches freshly fetched live fields (CSRF token, cookie
// header) to a stored record. This is the only way live fields ever enter
// an Environment.
func (s *Scraper) Reconstitute(ctx context.Context, rec Record) (Environment, error) {
	csrf, err := s.FetchCSRFToken(ctx)
	if err != nil {
		return Environment{}, err
	}
	cookieHeader, err := s.FetchCookieHeader(ctx)
	if err != nil {
		return Environment{}, err
	}
	return Environment{Record: rec, CSRFToken: csrf, CookieHeader: cookieHeader}, nil
}
