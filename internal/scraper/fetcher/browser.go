package fetcher

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/logging/types"
	"jobharvest/internal/sources"
)

// trackingOrigins are iframe hosts that never carry job content. Frames from
// these origins are skipped during frame inspection.
var trackingOrigins = []string{
	"googletagmanager.com",
	"google-analytics.com",
	"doubleclick.net",
	"facebook.com",
	"facebook.net",
	"linkedin.com/px",
	"hotjar.com",
	"clarity.ms",
}

// Browser wraps a single headless Chrome instance used to render JS-heavy
// or bot-protected pages.
type Browser struct {
	cfg      *config.Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	mu       sync.Mutex
	logger   types.Logger
}

// NewBrowser creates a browser wrapper. Chrome is launched on first Render.
func NewBrowser(cfg *config.Config) *Browser {
	l := launcher.New().
		Headless(cfg.Scraper.HeadlessMode).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-web-security").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-gpu").          // prevents GPU context failures in Docker
		Set("disable-dev-shm-usage") // overcomes Docker shared memory limits

	if chromePath := systemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
	}

	if cfg.Scraper.UserAgent != "" {
		l = l.Set("user-agent", cfg.Scraper.UserAgent)
	}

	return &Browser{
		cfg:      cfg,
		launcher: l,
		logger:   logging.GetGlobalLogger(),
	}
}

// Render loads the URL and returns the rendered HTML. Wait strategies are
// tried from strictest to loosest so a page that never reaches network idle
// still gets captured after DOM-ready or plain load.
func (b *Browser) Render(ctx context.Context, url string, src *sources.Config) (string, error) {
	page, err := b.newPage()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = rod.Try(func() { page.MustClose() })
	}()

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.Browser.NavigationTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := b.navigate(p, url); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}

	// Give client-side rendering a moment to settle.
	time.Sleep(b.cfg.Browser.RenderDwell)

	b.waitForContent(p, src)

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get page HTML: %w", err)
	}

	// Some boards render the posting inside an embedded frame; when the top
	// document is nearly empty, the frames are worth a look.
	if looksEmpty(html) {
		if frameHTML := b.inspectFrames(p); frameHTML != "" {
			return frameHTML, nil
		}
	}

	return html, nil
}

// navigate runs the wait-strategy chain: network idle, DOM stable, load
// event, then bare navigation commit.
func (b *Browser) navigate(p *rod.Page, url string) error {
	strategies := []struct {
		name string
		run  func() error
	}{
		{"network_idle", func() error {
			return rod.Try(func() { p.MustNavigate(url).MustWaitIdle() })
		}},
		{"dom_stable", func() error {
			return rod.Try(func() { p.MustNavigate(url).MustWaitDOMStable() })
		}},
		{"load", func() error {
			return rod.Try(func() { p.MustNavigate(url).MustWaitLoad() })
		}},
		{"commit", func() error {
			return rod.Try(func() { p.MustNavigate(url) })
		}},
	}

	var lastErr error
	for _, strategy := range strategies {
		if err := strategy.run(); err != nil {
			lastErr = err
			b.logger.Debug("Navigation strategy failed", map[string]interface{}{
				"strategy": strategy.name,
				"url":      url,
			})
			continue
		}
		return nil
	}
	return lastErr
}

// waitForContent waits briefly for a content selector so extraction sees a
// populated page. Best effort; a miss is not an error.
func (b *Browser) waitForContent(p *rod.Page, src *sources.Config) {
	selectors := src.Selectors.Title
	if len(selectors) == 0 {
		selectors = src.Selectors.JobLinks
	}
	if len(selectors) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Browser.SelectorTimeout)
	defer cancel()

	_ = rod.Try(func() {
		p.Context(ctx).MustElement(selectors[0])
	})
}

// inspectFrames returns the HTML of the largest non-tracking iframe, or ""
// when no usable frame exists.
func (b *Browser) inspectFrames(p *rod.Page) string {
	var best string

	_ = rod.Try(func() {
		for _, el := range p.MustElements("iframe") {
			src := ""
			if attr, err := el.Attribute("src"); err == nil && attr != nil {
				src = *attr
			}
			if isTrackingFrame(src) {
				continue
			}

			frame, err := el.Frame()
			if err != nil {
				continue
			}
			html, err := frame.HTML()
			if err != nil {
				continue
			}
			if len(html) > len(best) {
				best = html
			}
		}
	})

	if best != "" && !looksEmpty(best) {
		return best
	}
	return ""
}

func isTrackingFrame(src string) bool {
	if src == "" {
		return false
	}
	for _, origin := range trackingOrigins {
		if strings.Contains(src, origin) {
			return true
		}
	}
	return false
}

// looksEmpty is a cheap heuristic for a shell document with no real content.
func looksEmpty(html string) bool {
	return len(strings.TrimSpace(html)) < 500
}

// newPage connects the browser if needed and opens a stealth page.
func (b *Browser) newPage() (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil || !b.isHealthy() {
		url, err := b.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}

		browser := rod.New().ControlURL(url)
		if err := browser.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to browser: %w", err)
		}
		b.browser = browser
		b.logger.Info("Headless browser started", map[string]interface{}{})
	}

	var page *rod.Page
	var err error
	if b.cfg.Scraper.StealthMode {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if verr := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); verr != nil {
		b.logger.Warn("Failed to set viewport", map[string]interface{}{
			"error": verr.Error(),
		})
	}

	if b.cfg.Scraper.UserAgent != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: b.cfg.Scraper.UserAgent,
		})
	}

	return page, nil
}

func (b *Browser) isHealthy() bool {
	return rod.Try(func() { b.browser.MustPages() }) == nil
}

// Cleanup closes the browser and launcher.
func (b *Browser) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		_ = rod.Try(func() { b.browser.MustClose() })
		b.browser = nil
	}
	b.launcher.Cleanup()
}

// systemChromePath finds a system-installed Chrome/Chromium binary.
func systemChromePath() string {
	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		if _, err := os.Stat(chromeBin); err == nil {
			return chromeBin
		}
	}

	commonPaths := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
