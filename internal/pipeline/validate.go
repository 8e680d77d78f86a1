package pipeline

import (
	"strings"

	"jobharvest/internal/scraper/extract"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// listingPageTitles are titles of category and index pages that get linked
// from listings and must never be persisted as jobs.
var listingPageTitles = map[string]bool{
	"employment types":  true,
	"jobs":              true,
	"all jobs":          true,
	"jobs in rwanda":    true,
	"job categories":    true,
	"job opportunities": true,
	"search results":    true,
	"vacancies":         true,
	"latest jobs":       true,
	"browse jobs":       true,
}

// errorPageMarkers show up in titles of error and block pages.
var errorPageMarkers = []string{
	"page not found",
	"404",
	"access denied",
	"forbidden",
	"just a moment",
	"attention required",
}

// placeholderCompanies are template values that prove the page never named a
// real employer.
var placeholderCompanies = []string{
	"unknown",
	"unknown company",
	"company name",
	"n/a",
	"none",
	"not specified",
	"various",
	"test",
}

// jobKeywords is the vocabulary a real posting body uses. At least one must
// appear somewhere in the extracted content.
var jobKeywords = []string{
	"responsibilities",
	"requirements",
	"qualifications",
	"experience",
	"skills",
	"duties",
	"apply",
	"application",
	"salary",
	"deadline",
	"position",
	"role",
	"vacancy",
	"candidate",
	"employment",
	"recruit",
}

const (
	minDescriptionLength          = 40
	minTitlelessDescriptionLength = 80
)

// ValidateJobContent checks that a fetched page actually describes a single
// job posting. Category pages, error pages, navigation shells and pages with
// a placeholder employer all return utils.ErrNotJobContent.
func ValidateJobContent(raw *models.RawExtraction) error {
	title := strings.ToLower(strings.TrimSpace(raw.Title))
	description := strings.TrimSpace(raw.Description)

	if title == "" && description == "" {
		return utils.ErrNotJobContent
	}

	if listingPageTitles[title] {
		return utils.ErrNotJobContent
	}

	for _, marker := range errorPageMarkers {
		if strings.Contains(title, marker) {
			return utils.ErrNotJobContent
		}
	}

	if len(description) < minDescriptionLength {
		return utils.ErrNotJobContent
	}
	if title == "" && len(description) < minTitlelessDescriptionLength {
		return utils.ErrNotJobContent
	}

	// The employer may legitimately be absent before normalization, but a
	// template value proves the page is not a posting.
	company := raw.Company
	if company == "" {
		company = extract.CompanyFromTitle(raw.Title)
	}
	if utils.Contains(placeholderCompanies, strings.ToLower(strings.TrimSpace(company))) {
		return utils.ErrNotJobContent
	}

	if !containsJobKeyword(raw, description) {
		return utils.ErrNotJobContent
	}

	return nil
}

// containsJobKeyword scans the extracted content for posting vocabulary.
func containsJobKeyword(raw *models.RawExtraction, description string) bool {
	var b strings.Builder
	b.WriteString(raw.Title)
	b.WriteString(" ")
	b.WriteString(description)
	for _, item := range raw.Requirements {
		b.WriteString(" ")
		b.WriteString(item)
	}
	for _, item := range raw.Responsibilities {
		b.WriteString(" ")
		b.WriteString(item)
	}
	b.WriteString(" ")
	b.WriteString(raw.ApplicationInstructions)

	content := strings.ToLower(b.String())
	for _, keyword := range jobKeywords {
		if strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}
