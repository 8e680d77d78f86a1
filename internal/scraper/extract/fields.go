package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobharvest/internal/sources"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// navigationNoise marks element text that is site chrome, not content.
var navigationNoise = map[string]bool{
	"home": true, "menu": true, "login": true, "register": true,
	"sign in": true, "sign up": true, "jobs": true, "search": true,
	"about": true, "contact": true, "next": true, "previous": true,
}

// maxDescriptionLength bounds the cleaned full-body fallback so a whole site
// page never becomes a job description.
const maxDescriptionLength = 2000

// descriptionFallbackContainers are structural containers tried when the
// source's description selectors come up short.
var descriptionFallbackContainers = []string{
	"article", "main", ".content", "#content", ".entry-content", ".job-details",
}

var (
	titleAtCompany    = regexp.MustCompile(`(?i)\s+at\s+([^()@,|]{2,60})$`)
	titleAmpCompany   = regexp.MustCompile(`@\s*([^()@,|]{2,60})$`)
	titleParenCompany = regexp.MustCompile(`\(([^()]{2,60})\)\s*$`)
)

// CompanyFromTitle pulls an employer out of titles like "Accountant at Acme
// Ltd", "Driver @Acme" or "Nurse (Acme Clinic)".
func CompanyFromTitle(title string) string {
	for _, re := range []*regexp.Regexp{titleAtCompany, titleAmpCompany, titleParenCompany} {
		if m := re.FindStringSubmatch(title); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// ExtractFields captures the per-field text of a job detail page using the
// source's selectors. Selectors are tried in order; the first that yields
// usable content wins. Missing fields stay empty for the normalizer to
// default.
func ExtractFields(html, jobURL string, src *sources.Config, now time.Time) *models.RawExtraction {
	raw := &models.RawExtraction{SourceURL: jobURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return raw
	}

	raw.Title = firstText(doc, src.Selectors.Title)
	raw.Company = firstText(doc, src.Selectors.Company)
	raw.Location = firstText(doc, src.Selectors.Location)
	raw.Description = blockText(doc, src.Selectors.Description)
	raw.Requirements = listItems(doc, src.Selectors.Requirements)
	raw.Responsibilities = listItems(doc, src.Selectors.Responsibilities)
	raw.Benefits = listItems(doc, src.Selectors.Benefits)
	raw.SalaryText = firstText(doc, src.Selectors.Salary)
	raw.ApplicationInstructions = blockText(doc, src.Selectors.ApplicationInstructions)
	raw.ContactInfoText = blockText(doc, src.Selectors.ContactInfo)

	if !descriptionUsable(raw.Description) {
		raw.Description = fallbackDescription(doc)
	}

	if deadlineText := firstText(doc, src.Selectors.Deadline); deadlineText != "" {
		raw.ApplicationDeadline = ParseDeadline(deadlineText, now)
	}
	if raw.ApplicationDeadline == nil {
		// Many boards bury the deadline in the description body.
		searchText := raw.Description
		if searchText == "" {
			searchText = utils.CollapseWhitespace(doc.Text())
		}
		raw.ApplicationDeadline = FindDeadlineInText(searchText, now)
	}

	if postedText := firstText(doc, src.Selectors.PostedDate); postedText != "" {
		raw.PostedDate = ParsePostedDate(postedText, now)
	}

	return raw
}

// descriptionUsable reports whether selector-extracted text is substantial
// enough to stand as the posting body. Short blocks and blocks that are
// mostly navigation furniture trigger the fallback chain.
func descriptionUsable(s string) bool {
	if len(utils.CollapseWhitespace(s)) < 60 {
		return false
	}

	lines := strings.Split(s, "\n")
	noise := 0
	for _, line := range lines {
		if navigationNoise[strings.ToLower(utils.CollapseWhitespace(line))] {
			noise++
		}
	}
	return noise*2 < len(lines)
}

// fallbackDescription re-extracts the posting body from broader structural
// containers, then from the cleaned page body as a last resort. The document
// is stripped of chrome in place; later whole-document scans benefit too.
func fallbackDescription(doc *goquery.Document) string {
	for _, container := range descriptionFallbackContainers {
		if text := blockText(doc, []string{container}); descriptionUsable(text) {
			return utils.Truncate(text, maxDescriptionLength)
		}
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()
	body := utils.CollapseWhitespace(doc.Find("body").Text())
	if body == "" {
		return ""
	}
	return utils.Truncate(body, maxDescriptionLength)
}

// firstText returns the first usable text for the selectors, preferring
// machine-readable datetime and title attributes over visible text.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		if dt, ok := sel.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			return strings.TrimSpace(dt)
		}
		if title, ok := sel.Attr("title"); ok && strings.TrimSpace(title) != "" {
			return strings.TrimSpace(title)
		}

		text := utils.CollapseWhitespace(sel.Text())
		if text == "" || navigationNoise[strings.ToLower(text)] {
			continue
		}
		return text
	}
	return ""
}

// blockText extracts a multi-paragraph text block, preserving paragraph
// breaks so the normalizer sees some structure.
func blockText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		var parts []string
		sel.Find("p, li, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
			if t := utils.CollapseWhitespace(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})

		text := strings.Join(parts, "\n")
		if text == "" {
			text = utils.CollapseWhitespace(sel.Text())
		}
		if text != "" {
			return text
		}
	}
	return ""
}

// listItems collects list entries for a field, falling back to splitting the
// element text on bullets and newlines when there is no list markup.
func listItems(doc *goquery.Document, selectors []string) []string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		var items []string
		sel.Find("li").Each(func(_ int, s *goquery.Selection) {
			if t := utils.CollapseWhitespace(s.Text()); t != "" {
				items = append(items, t)
			}
		})
		if len(items) > 0 {
			return items
		}

		text := sel.Text()
		for _, line := range strings.FieldsFunc(text, func(r rune) bool {
			return r == '\n' || r == '•' || r == ';'
		}) {
			if t := utils.CollapseWhitespace(line); t != "" {
				items = append(items, t)
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}
