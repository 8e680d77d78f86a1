package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

func TestValidateJobContentAcceptsRealPosting(t *testing.T) {
	raw := &models.RawExtraction{
		Title:       "Senior Backend Engineer",
		Company:     "Acme Ltd",
		Description: "We are looking for an engineer to build and operate our payment services in Kigali. Apply before the deadline with your CV.",
	}
	assert.NoError(t, ValidateJobContent(raw))
}

func TestValidateJobContentRejectsNavigationShell(t *testing.T) {
	raw := &models.RawExtraction{
		Title:       "Useful Links And Site Information",
		Description: "Home About Us Contact Privacy Policy Terms of Service Sitemap Newsletter Archives Advertise With Us Follow us on social media for updates.",
	}
	assert.ErrorIs(t, ValidateJobContent(raw), utils.ErrNotJobContent)
}

func TestValidateJobContentRejectsPlaceholderCompany(t *testing.T) {
	for _, company := range []string{"Unknown Company", "N/A", "Company Name", "various"} {
		raw := &models.RawExtraction{
			Title:       "Senior Backend Engineer",
			Company:     company,
			Description: "Responsibilities include building payment services. Apply with your CV before the deadline.",
		}
		assert.ErrorIs(t, ValidateJobContent(raw), utils.ErrNotJobContent, "company %q", company)
	}
}

func TestValidateJobContentRejectsShortDescription(t *testing.T) {
	raw := &models.RawExtraction{
		Title:       "Accountant Position Available",
		Company:     "Acme Ltd",
		Description: "Apply now.",
	}
	assert.ErrorIs(t, ValidateJobContent(raw), utils.ErrNotJobContent)
}

func TestValidateJobContentRejectsCategoryPage(t *testing.T) {
	for _, title := range []string{"Employment Types", "Jobs in Rwanda", "All Jobs", "Search Results"} {
		raw := &models.RawExtraction{Title: title, Description: "Browse our listings below."}
		err := ValidateJobContent(raw)
		assert.ErrorIs(t, err, utils.ErrNotJobContent, "title %q", title)
	}
}

func TestValidateJobContentRejectsErrorPages(t *testing.T) {
	for _, title := range []string{"Page Not Found", "404 Error", "Access Denied", "Just a moment..."} {
		raw := &models.RawExtraction{Title: title, Description: "Something went wrong."}
		assert.ErrorIs(t, ValidateJobContent(raw), utils.ErrNotJobContent, "title %q", title)
	}
}

func TestValidateJobContentRejectsEmptyShell(t *testing.T) {
	assert.ErrorIs(t, ValidateJobContent(&models.RawExtraction{}), utils.ErrNotJobContent)
}

func TestValidateJobContentAcceptsTitlelessLongBody(t *testing.T) {
	raw := &models.RawExtraction{
		Description: strings.Repeat("A detailed description of the role and its duties. ", 5),
	}
	assert.NoError(t, ValidateJobContent(raw))
}

func TestValidateJobContentRejectsTitlelessShortBody(t *testing.T) {
	raw := &models.RawExtraction{Description: "Too short."}
	assert.ErrorIs(t, ValidateJobContent(raw), utils.ErrNotJobContent)
}
