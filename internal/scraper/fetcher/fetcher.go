package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/logging/types"
	"jobharvest/internal/sources"
	"jobharvest/pkg/utils"
)

// Fetcher retrieves the HTML of a page for a given source, applying the
// source's rate limit, retry policy and rendering strategy.
type Fetcher interface {
	Fetch(ctx context.Context, url string, src *sources.Config) (string, error)
	Close()
}

// Client implements Fetcher with a plain HTTP path and an optional headless
// browser fallback for JS-heavy or bot-protected pages.
type Client struct {
	cfg      *config.Config
	http     *http.Client
	browser  *Browser
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	logger   types.Logger
}

// NewClient creates a fetcher client. The headless browser is launched
// lazily on first use.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Scraper.RequestTimeout,
		},
		limiters: make(map[string]*rate.Limiter),
		logger:   logging.GetGlobalLogger(),
	}
}

// Close shuts down the headless browser if one was started.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		c.browser.Cleanup()
		c.browser = nil
	}
}

// Fetch retrieves the page at url. Sources marked RequiresJS go through the
// headless browser first with an HTTP fallback; everything else goes over
// plain HTTP with a headless fallback when the host blocks the request.
func (c *Client) Fetch(ctx context.Context, url string, src *sources.Config) (string, error) {
	if err := c.limiter(src).Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait for %s: %w", src.Name, err)
	}

	// A perfectly regular request interval is a bot signature. Jitter on top
	// of the limiter keeps the cadence irregular.
	if max := c.cfg.Scraper.JitterMax; max > 0 {
		if err := sleepCtx(ctx, time.Duration(rand.Int63n(int64(max)))); err != nil {
			return "", fmt.Errorf("jitter wait for %s: %w", src.Name, err)
		}
	}

	if src.RequiresJS && c.cfg.Scraper.HeadlessMode {
		html, err := c.renderPage(ctx, url, src)
		if err == nil {
			return html, nil
		}
		c.logger.Warn("Headless render failed, falling back to HTTP", map[string]interface{}{
			"source": src.Name,
			"url":    url,
			"error":  err.Error(),
		})
		return c.fetchHTTP(ctx, url, src)
	}

	html, err := c.fetchHTTP(ctx, url, src)
	if err == nil {
		return html, nil
	}

	// A block page is often passable with a real browser.
	kind := utils.FetchKind(err)
	if c.cfg.Scraper.HeadlessMode && (kind == utils.FetchForbidden || kind == utils.FetchRateLimited) {
		c.logger.Info("HTTP fetch blocked, retrying with headless browser", map[string]interface{}{
			"source": src.Name,
			"url":    url,
		})
		if html, rerr := c.renderPage(ctx, url, src); rerr == nil {
			return html, nil
		}
	}

	return "", err
}

// fetchHTTP performs the plain HTTP fetch with the bounded retry policy:
// 403 backs off exponentially (doubled for hostile hosts), 429 honors
// Retry-After, 404 fails immediately, transient failures retry after a
// fixed delay. The attempt counter caps the loop.
func (c *Client) fetchHTTP(ctx context.Context, url string, src *sources.Config) (string, error) {
	maxAttempts := c.cfg.Scraper.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	base := c.cfg.Scraper.RetryBaseDelay

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, status, retryHdr, err := c.doRequest(ctx, url, src)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", utils.NewFetchError(utils.FetchTimeout, url, 0, attempt, err)
			}
			lastErr = utils.NewFetchError(utils.FetchNetwork, url, 0, attempt, err)
			if attempt < maxAttempts {
				if werr := sleepCtx(ctx, base); werr != nil {
					return "", lastErr
				}
			}
			continue
		}

		switch {
		case status >= 200 && status < 300:
			return body, nil

		case status == http.StatusNotFound:
			// Gone is gone; retrying will not bring the posting back.
			return "", utils.NewFetchError(utils.FetchNotFound, url, status, attempt, nil)

		case status == http.StatusForbidden:
			lastErr = utils.NewFetchError(utils.FetchForbidden, url, status, attempt, nil)
			if attempt < maxAttempts {
				delay := base * time.Duration(1<<(attempt-1))
				if src.HostileHost {
					delay *= 2
				}
				if werr := sleepCtx(ctx, delay); werr != nil {
					return "", lastErr
				}
			}

		case status == http.StatusTooManyRequests:
			lastErr = utils.NewFetchError(utils.FetchRateLimited, url, status, attempt, nil)
			if attempt < maxAttempts {
				delay, ok := parseRetryAfter(retryHdr)
				if !ok {
					delay = base * 2
				}
				if werr := sleepCtx(ctx, delay); werr != nil {
					return "", lastErr
				}
			}

		default:
			lastErr = utils.NewFetchError(utils.FetchBadStatus, url, status, attempt, nil)
			if attempt < maxAttempts {
				if werr := sleepCtx(ctx, base); werr != nil {
					return "", lastErr
				}
			}
		}
	}

	return "", lastErr
}

func (c *Client) doRequest(ctx context.Context, url string, src *sources.Config) (string, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, "", err
	}

	req.Header.Set("User-Agent", c.cfg.Scraper.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for name, value := range src.Headers {
		req.Header.Set(name, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", resp.StatusCode, "", err
	}

	return string(body), resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

// renderPage renders the URL through the headless browser.
func (c *Client) renderPage(ctx context.Context, url string, src *sources.Config) (string, error) {
	c.mu.Lock()
	if c.browser == nil {
		c.browser = NewBrowser(c.cfg)
	}
	browser := c.browser
	c.mu.Unlock()

	return browser.Render(ctx, url, src)
}

// limiter returns the per-source rate limiter, creating it on first use.
func (c *Client) limiter(src *sources.Config) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lim, ok := c.limiters[src.Name]; ok {
		return lim
	}

	rpm := src.RateLimit
	if rpm <= 0 {
		rpm = c.cfg.Scraper.RateLimit
	}
	if rpm <= 0 {
		rpm = 60
	}

	lim := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	c.limiters[src.Name] = lim
	return lim
}

// parseRetryAfter reads a Retry-After header value in seconds.
func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, true
	}
	return 0, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
