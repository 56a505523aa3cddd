// File: internal/browser/probe.go

// Package browser is the capability boundary to the user's running Chrome.
// Everything above it (scraping, caching, the session protocol) talks to the
// PageProbe interface; the CDP implementation here is the only code that
// knows chromedp exists.
package browser

import (
	"context"
	"regexp"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/birdclip/internal/config"
	"github.com/xkilldash9x/birdclip/internal/faults"
)

// Tab identifies one page target in the attached browser.
type Tab struct {
	ID    target.ID
	URL   string
	Title string
}

// Cookie is one browser cookie scoped to a domain.
type Cookie struct {
	Name   string
	Value  string
	Domain string
}

// PageProbe models the host browser's tab, script-injection, and cookie-jar
// primitives. Implementations must be safe for concurrent use; independent
// session channels probe concurrently.
type PageProbe interface {
	// ActiveTab returns the frontmost page whose URL matches pattern, or a
	// TabNotFound fault when no such page exists.
	ActiveTab(ctx context.Context, pattern *regexp.Regexp) (Tab, error)

	// EvalInTab evaluates a JavaScript expression inside the given tab and
	// decodes the JSON result into out.
	EvalInTab(ctx context.Context, tab Tab, expr string, out any) error

	// Cookies returns every cookie whose domain matches domain (exact or
	// dot-suffix).
	Cookies(ctx context.Context, domain string) ([]Cookie, error)

	// Cookie returns the named cookie's value for domain. The second return
	// is false when the cookie is absent; absence is not an error here, the
	// caller decides what it means.
	Cookie(ctx context.Context, domain, name string) (string, bool, error)
}

// Probe is the chromedp-backed PageProbe. It attaches to an already running
// browser over the DevTools protocol and never launches one; the sessions it
// reads belong to the user.
type Probe struct {
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

// NewProbe attaches to the browser at cfg.DevToolsURL. The returned Probe
// holds the CDP connection until Close.
func NewProbe(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Probe, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, cfg.DevToolsURL)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	// Force the connection up front so a dead endpoint fails here, not in
	// the middle of a message handler.
	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocCancel()
		return nil, faults.Wrap(faults.KindUnknown, err, "attaching to browser at %s", cfg.DevToolsURL)
	}

	return &Probe{
		logger:      logger.Named("probe"),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		browserStop: browserStop,
	}, nil
}

// Close releases the CDP connection.
func (p *Probe) Close() {
	p.browserStop()
	p.allocCancel()
}

// ActiveTab lists page targets and returns the first whose URL matches
// pattern. CDP exposes no cross-window focus order, so "active" here means
// the most recently reported matching page, which is what target listing
// yields in practice.
func (p *Probe) ActiveTab(ctx context.Context, pattern *regexp.Regexp) (Tab, error) {
	infos, err := chromedp.Targets(p.browserCtx)
	if err != nil {
		return Tab{}, faults.Wrap(faults.KindUnknown, err, "listing browser targets")
	}

	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		if pattern.MatchString(info.URL) {
			p.logger.Debug("Matched active tab.",
				zap.String("url", info.URL),
				zap.String("target_id", string(info.TargetID)))
			return Tab{ID: info.TargetID, URL: info.URL, Title: info.Title}, nil
		}
	}
	return Tab{}, faults.TabNotFound("no open tab matches %s", pattern)
}

// EvalInTab runs expr in the tab's page context.
func (p *Probe) EvalInTab(ctx context.Context, tab Tab, expr string, out any) error {
	tabCtx, cancel := chromedp.NewContext(p.browserCtx, chromedp.WithTargetID(tab.ID))
	defer cancel()

	if err := runWithContext(ctx, tabCtx, chromedp.Evaluate(expr, out)); err != nil {
		return faults.Wrap(faults.KindUnknown, err, "evaluating script in tab %s", tab.URL)
	}
	return nil
}

// Cookies reads the full browser cookie jar and keeps cookies scoped to
// domain, either exactly or as a dot-suffix (".twitter.com" style).
func (p *Probe) Cookies(ctx context.Context, domain string) ([]Cookie, error) {
	var raw []*network.Cookie
	err := runWithContext(ctx, p.browserCtx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(c)
		return err
	}))
	if err != nil {
		return nil, faults.Wrap(faults.KindUnknown, err, "reading browser cookies")
	}

	var cookies []Cookie
	for _, c := range raw {
		if !domainMatches(c.Domain, domain) {
			continue
		}
		cookies = append(cookies, Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}
	return cookies, nil
}

// Cookie returns the named cookie for domain.
func (p *Probe) Cookie(ctx context.Context, domain, name string) (string, bool, error) {
	cookies, err := p.Cookies(ctx, domain)
	if err != nil {
		return "", false, err
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value, true, nil
		}
	}
	return "", false, nil
}

// runWithContext runs actions on cdpCtx but honors cancellation of the
// caller's ctx, which carries the per-operation timeout.
func runWithContext(ctx context.Context, cdpCtx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(cdpCtx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func domainMatches(cookieDomain, want string) bool {
	if cookieDomain == want || cookieDomain == "."+want {
		return true
	}
	// Host cookies on subdomains still belong to the site.
	return len(cookieDomain) > len(want)+1 &&
		cookieDomain[len(cookieDomain)-len(want):] == want &&
		cookieDomain[len(cookieDomain)-len(want)-1] == '.'
}
