package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/lukemcguire/siteranker/internal/applog"
)

const (
	navigateTimeout   = 15 * time.Second
	networkIdleWait   = time.Second
	defaultMemLimitMB = 512
)

// Renderer fetches the fully rendered HTML of a page, after JavaScript has
// run, for a given URL.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// Pool owns one long-lived headless browser process, reused across many
// renders by a single worker, and relaunched when heap pressure crosses
// the critical threshold. A crashed browser process is not detected or
// relaunched; renders through it fail with an error.
type Pool struct {
	browser *rod.Browser
	health  *browserHealth
}

// NewPool launches a browser process and returns a Pool ready to render
// pages through it.
func NewPool(memLimitMB int64) (*Pool, error) {
	if memLimitMB <= 0 {
		memLimitMB = defaultMemLimitMB
	}
	p := &Pool{health: newBrowserHealth(memLimitMB)}
	if err := p.launch(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pool) launch() error {
	controlURL, err := launcher.New().
		Headless(true).
		Set("ignore-certificate-errors").
		Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}
	p.browser = browser
	return nil
}

// Close shuts down the underlying browser process.
func (p *Pool) Close() error {
	if p.browser == nil {
		return nil
	}
	return p.browser.Close()
}

// Render navigates to rawURL and returns the fully rendered HTML, trying
// each fingerprint profile in turn until one is not blocked (§4.2). It
// recycles the browser process first if heap pressure has crossed the
// critical threshold.
func (p *Pool) Render(ctx context.Context, rawURL string) (string, error) {
	switch _, level := p.health.Check(); level {
	case HealthCritical:
		if err := p.recycle(); err != nil {
			return "", fmt.Errorf("recycle browser: %w", err)
		}
	case HealthWarning:
		applog.Logger.Warn().Str("url", rawURL).Msg("render worker heap usage elevated, browser recycle imminent")
	}

	var lastErr error
	for _, prof := range profiles {
		html, denied, err := p.renderWithProfile(ctx, rawURL, prof)
		if err != nil {
			lastErr = err
			continue
		}
		if denied {
			continue
		}
		return html, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("render %s: %w", rawURL, lastErr)
	}
	return "", fmt.Errorf("render %s: blocked under every browser profile", rawURL)
}

func (p *Pool) recycle() error {
	if p.browser != nil {
		_ = p.browser.Close()
	}
	return p.launch()
}

func (p *Pool) renderWithProfile(ctx context.Context, rawURL string, prof profile) (html string, accessDenied bool, err error) {
	page, err := p.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", false, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if _, err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: prof.userAgent}); err != nil {
		return "", false, fmt.Errorf("set user agent: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  prof.width,
		Height: prof.height,
	}); err != nil {
		return "", false, fmt.Errorf("set viewport: %w", err)
	}

	timedPage := page.Timeout(navigateTimeout)
	if err := timedPage.Navigate(rawURL); err != nil {
		return "", false, fmt.Errorf("navigate: %w", err)
	}
	if err := timedPage.WaitLoad(); err != nil {
		return "", false, fmt.Errorf("wait load: %w", err)
	}
	_ = timedPage.WaitIdle(networkIdleWait)

	title, err := page.Eval(`() => document.title`)
	if err != nil {
		return "", false, fmt.Errorf("read title: %w", err)
	}

	content, err := page.HTML()
	if err != nil {
		return "", false, fmt.Errorf("read html: %w", err)
	}

	if isAccessDenied(title.Value.Str(), content) {
		return "", true, nil
	}

	return content, false, nil
}

// isAccessDenied reports whether a rendered page's title or body indicates
// the site blocked this browser profile. There may be other indicators of
// access denial, but this is the common one.
func isAccessDenied(title, content string) bool {
	return strings.Contains(title, "Access Denied") || strings.Contains(content, "Access Denied")
}
