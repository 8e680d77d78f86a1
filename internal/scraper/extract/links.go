package extract

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobharvest/internal/logging"
	"jobharvest/internal/sources"
)

// minJobURLLength filters out navigation and category links; real posting
// URLs carry a slug or numeric ID and come out longer than this.
const minJobURLLength = 30

// Fetcher is the page retrieval seam used during listing collection.
type Fetcher interface {
	Fetch(ctx context.Context, url string, src *sources.Config) (string, error)
}

var (
	// brokenJobsPath fixes a recurring typo in listing markup.
	brokenJobsPath = regexp.MustCompile(`/jobss/`)

	// genericIDPatterns pull an external job ID out of a URL path when the
	// source does not define its own patterns.
	genericIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/jobs?/detail/(\d+)`),
		regexp.MustCompile(`/(?:jobs?|vacancies|vacancy|node)/(\d+)`),
	}
)

// ExtractLinks pulls job posting URLs from a listing page. Every configured
// selector contributes; results are cleaned, resolved against the source's
// base URL, filtered and deduplicated preserving document order.
func ExtractLinks(html, pageURL string, src *sources.Config) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	base, err := url.Parse(src.BaseURL)
	if err != nil {
		return nil
	}
	if page, perr := url.Parse(pageURL); perr == nil && page.Host != "" {
		base = page
	}

	seen := make(map[string]bool)
	var links []string

	for _, selector := range src.Selectors.JobLinks {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}

			cleaned := CleanJobURL(href, base)
			if cleaned == "" || len(cleaned) <= minJobURLLength {
				return
			}
			if src.URLFilter != "" && !strings.Contains(cleaned, src.URLFilter) {
				return
			}
			if seen[cleaned] {
				return
			}
			seen[cleaned] = true
			links = append(links, cleaned)
		})
	}

	return links
}

// CleanJobURL normalizes a raw href into an absolute http(s) URL, repairing
// known-broken path segments. Returns "" for unusable links.
func CleanJobURL(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	href = brokenJobsPath.ReplaceAllString(href, "/jobs/")

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	resolved.Fragment = ""
	return resolved.String()
}

// ExtractJobID derives the stable external job ID from a posting URL. The
// source's own patterns win; generic path patterns follow; the last non-empty
// path segment is the fallback so every URL yields some identifier.
func ExtractJobID(jobURL string, src *sources.Config) string {
	for _, pattern := range src.IDPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(jobURL); len(m) > 1 {
			return m[1]
		}
	}

	for _, re := range genericIDPatterns {
		if m := re.FindStringSubmatch(jobURL); len(m) > 1 {
			return m[1]
		}
	}

	parsed, err := url.Parse(jobURL)
	if err != nil {
		return jobURL
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return jobURL
}

// CollectJobURLs fetches the source's listing pages and returns the job URLs
// found, following next-page links up to the source's page cap.
func CollectJobURLs(ctx context.Context, f Fetcher, src *sources.Config) ([]string, error) {
	logger := logging.GetGlobalLogger()

	seen := make(map[string]bool)
	var all []string

	pageURL := src.ListingURL
	for page := 1; page <= src.MaxPages && pageURL != ""; page++ {
		html, err := f.Fetch(ctx, pageURL, src)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			// Later pages are best effort.
			logger.Warn("Pagination fetch failed", map[string]interface{}{
				"source": src.Name,
				"page":   page,
				"error":  err.Error(),
			})
			break
		}

		pageLinks := ExtractLinks(html, pageURL, src)
		if len(pageLinks) == 0 {
			// A page with no valid links means pagination ran past the end.
			break
		}
		for _, link := range pageLinks {
			if !seen[link] {
				seen[link] = true
				all = append(all, link)
			}
		}

		pageURL = nextPageURL(html, pageURL, src, page)
	}

	logger.Info("Collected job URLs", map[string]interface{}{
		"source": src.Name,
		"count":  len(all),
	})
	return all, nil
}

// nextPageURL resolves the next listing page. Query-parameter pagination
// wins when configured; otherwise next-page selectors are followed. Returns
// "" when pagination ends.
func nextPageURL(html, pageURL string, src *sources.Config, page int) string {
	if src.PageParam != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return ""
		}
		q := u.Query()
		q.Set(src.PageParam, strconv.Itoa(page+1))
		u.RawQuery = q.Encode()
		return u.String()
	}

	if len(src.Selectors.NextPage) == 0 {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	for _, selector := range src.Selectors.NextPage {
		if href, ok := doc.Find(selector).First().Attr("href"); ok {
			next := CleanJobURL(href, base)
			if next != "" && next != pageURL {
				return next
			}
		}
	}
	return ""
}
