package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/internal/sources"
)

func fieldSource() *sources.Config {
	return &sources.Config{
		Name:       "testboard",
		BaseURL:    "https://board.example.com",
		ListingURL: "https://board.example.com/jobs",
		Priority:   1,
		MaxPages:   1,
		Selectors: sources.Selectors{
			JobLinks:     []string{"a"},
			Title:        []string{"h1.missing", "h1"},
			Company:      []string{".company"},
			Location:     []string{".location"},
			Description:  []string{".description"},
			Requirements: []string{".requirements"},
			Deadline:     []string{"time.deadline", ".deadline"},
			PostedDate:   []string{"time.posted"},
		},
	}
}

func TestExtractFieldsSelectorOrder(t *testing.T) {
	html := `
	<html><body>
		<h1>Senior Backend Engineer</h1>
		<div class="company">Acme Ltd</div>
		<div class="location">Kigali, Rwanda</div>
		<div class="description"><p>Build services.</p><p>Own reliability.</p></div>
		<div class="requirements"><ul><li>Go experience</li><li>5 years backend</li></ul></div>
		<time class="deadline" datetime="2025-09-08">8 Sep</time>
		<time class="posted" datetime="2025-06-10">June 10</time>
	</body></html>`

	raw := ExtractFields(html, "https://board.example.com/jobs/1", fieldSource(), testNow)

	assert.Equal(t, "Senior Backend Engineer", raw.Title)
	assert.Equal(t, "Acme Ltd", raw.Company)
	assert.Equal(t, "Kigali, Rwanda", raw.Location)
	assert.Contains(t, raw.Description, "Build services.")
	assert.Contains(t, raw.Description, "Own reliability.")
	assert.Equal(t, []string{"Go experience", "5 years backend"}, raw.Requirements)

	require.NotNil(t, raw.ApplicationDeadline)
	assert.Equal(t, time.Date(2025, time.September, 8, 23, 59, 59, 0, time.UTC), *raw.ApplicationDeadline)

	require.NotNil(t, raw.PostedDate)
	assert.Equal(t, time.June, raw.PostedDate.Month())
}

func TestExtractFieldsDeadlineFallbackFromDescription(t *testing.T) {
	html := `
	<html><body>
		<h1>Accountant</h1>
		<div class="description"><p>Great role. Deadline: 20 August 2025.</p></div>
	</body></html>`

	raw := ExtractFields(html, "https://board.example.com/jobs/2", fieldSource(), testNow)
	require.NotNil(t, raw.ApplicationDeadline)
	assert.Equal(t, time.August, raw.ApplicationDeadline.Month())
}

func TestExtractFieldsMissingFieldsStayEmpty(t *testing.T) {
	html := `<html><body><h1>Driver</h1></body></html>`

	raw := ExtractFields(html, "https://board.example.com/jobs/3", fieldSource(), testNow)
	assert.Equal(t, "Driver", raw.Title)
	assert.Empty(t, raw.Company)
	assert.Empty(t, raw.Location)
	assert.Empty(t, raw.Requirements)
	assert.Nil(t, raw.ApplicationDeadline)
	assert.Nil(t, raw.PostedDate)
}

func TestExtractFieldsSkipsNavigationNoise(t *testing.T) {
	html := `
	<html><body>
		<div class="company">Home</div>
		<h1>Nurse</h1>
	</body></html>`

	raw := ExtractFields(html, "https://board.example.com/jobs/4", fieldSource(), testNow)
	assert.Empty(t, raw.Company)
}

func TestExtractFieldsDescriptionFallsBackToContainer(t *testing.T) {
	// The description selector only catches site chrome; the article holds
	// the real posting body.
	html := `
	<html><body>
		<h1>Backend Engineer</h1>
		<div class="description">Home
Menu
Login</div>
		<article>
			<p>We are hiring a backend engineer to build and operate the payment
			platform. The role covers service design, delivery and on-call.</p>
			<p>Candidates need five years of production experience.</p>
		</article>
	</body></html>`

	raw := ExtractFields(html, "https://board.example.com/jobs/6", fieldSource(), testNow)
	assert.Contains(t, raw.Description, "payment")
	assert.Contains(t, raw.Description, "five years")
	assert.NotContains(t, raw.Description, "Login")
}

func TestExtractFieldsBodyFallbackIsTruncated(t *testing.T) {
	long := strings.Repeat("The position involves building data pipelines. ", 100)
	html := `
	<html><body>
		<h1>Data Engineer</h1>
		<script>var tracking = 1;</script>
		<nav>Home Jobs About</nav>
		<div>` + long + `</div>
	</body></html>`

	raw := ExtractFields(html, "https://board.example.com/jobs/7", fieldSource(), testNow)
	assert.LessOrEqual(t, len([]rune(raw.Description)), maxDescriptionLength+len("..."))
	assert.Contains(t, raw.Description, "data pipelines")
	assert.NotContains(t, raw.Description, "tracking")
}

func TestExtractFieldsApplicationAndContactBlocks(t *testing.T) {
	src := fieldSource()
	src.Selectors.ApplicationInstructions = []string{".how-to-apply"}
	src.Selectors.ContactInfo = []string{".contact-info"}

	html := `
	<html><body>
		<h1>Project Officer</h1>
		<div class="description"><p>Coordinate field activities across districts and report monthly.</p></div>
		<div class="how-to-apply"><p>Send your CV and cover letter to the address below.</p></div>
		<div class="contact-info"><p>recruitment@acme.example</p><p>+250 788 000 000</p></div>
	</body></html>`

	raw := ExtractFields(html, "https://board.example.com/jobs/8", src, testNow)
	assert.Contains(t, raw.ApplicationInstructions, "CV and cover letter")
	assert.Contains(t, raw.ContactInfoText, "recruitment@acme.example")
	assert.Contains(t, raw.ContactInfoText, "+250 788 000 000")
}

func TestExtractFieldsRequirementsFromBullets(t *testing.T) {
	html := `
	<html><body>
		<div class="requirements">Go experience • SQL knowledge • Teamwork</div>
	</body></html>`

	raw := ExtractFields(html, "https://board.example.com/jobs/5", fieldSource(), testNow)
	assert.Equal(t, []string{"Go experience", "SQL knowledge", "Teamwork"}, raw.Requirements)
}
