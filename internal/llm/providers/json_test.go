package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/pkg/models"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestParseModelResponsePlainJSON(t *testing.T) {
	job, err := parseModelResponse(`{"title":"Backend Engineer","company":"Acme"}`)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, "Acme", job.Company)
}

func TestParseModelResponseFencedJSON(t *testing.T) {
	response := "```json\n{\"title\":\"Designer\",\"company\":\"Studio\"}\n```"
	job, err := parseModelResponse(response)
	require.NoError(t, err)
	assert.Equal(t, "Designer", job.Title)
}

func TestParseModelResponseProseWrapped(t *testing.T) {
	response := `Here is the extracted job data:
{"title":"Analyst","company":"Bank"}
Let me know if you need anything else.`
	job, err := parseModelResponse(response)
	require.NoError(t, err)
	assert.Equal(t, "Analyst", job.Title)
	assert.Equal(t, "Bank", job.Company)
}

func TestParseModelResponseTrailingCommas(t *testing.T) {
	response := `{"title":"Nurse","company":"Clinic","skills":["care","triage",],}`
	job, err := parseModelResponse(response)
	require.NoError(t, err)
	assert.Equal(t, "Nurse", job.Title)
	assert.Equal(t, []string{"care", "triage"}, job.Skills)
}

func TestParseModelResponsePartialRecovery(t *testing.T) {
	// Truncated mid-array; only regex recovery can save it.
	response := `{"title":"Driver","company":"Logistics Co","description":"Deliver goods","requirements":["lic`
	job, err := parseModelResponse(response)
	require.NoError(t, err)
	assert.Equal(t, "Driver", job.Title)
	assert.Equal(t, "Logistics Co", job.Company)
	assert.Equal(t, "Deliver goods", job.Description)
}

func TestParseModelResponseGarbage(t *testing.T) {
	_, err := parseModelResponse("I could not find any job posting on this page.")
	assert.Error(t, err)
}

func TestBuildJobDefaults(t *testing.T) {
	raw := &models.RawExtraction{SourceURL: "https://board.example.com/jobs/1"}
	job := buildJob(&llmJob{}, raw, testNow)

	assert.Equal(t, "Unknown Position", job.Title)
	assert.Equal(t, "Unknown Company", job.Company)
	assert.Equal(t, models.JobTypeFullTime, job.JobType)
	assert.Equal(t, models.ExperienceMid, job.ExperienceLevel)
	assert.Equal(t, models.EducationBachelor, job.EducationLevel)
	assert.NotNil(t, job.Skills)
	assert.NotNil(t, job.Requirements)
	assert.Equal(t, "https://board.example.com/jobs/1", job.ExternalApplicationURL)
	assert.Nil(t, job.Salary)
}

func TestBuildJobSelectorDeadlineWins(t *testing.T) {
	deadline := time.Date(2025, time.September, 8, 23, 59, 59, 0, time.UTC)
	raw := &models.RawExtraction{
		SourceURL:           "https://x.example.com/jobs/2",
		ApplicationDeadline: &deadline,
	}
	parsed := &llmJob{ApplicationDeadline: "2025-12-31"}

	job := buildJob(parsed, raw, testNow)
	require.NotNil(t, job.ApplicationDeadline)
	assert.Equal(t, deadline, *job.ApplicationDeadline)
}

func TestBuildJobModelDeadlineFallback(t *testing.T) {
	raw := &models.RawExtraction{SourceURL: "https://x.example.com/jobs/3"}
	parsed := &llmJob{ApplicationDeadline: "2025-12-31"}

	job := buildJob(parsed, raw, testNow)
	require.NotNil(t, job.ApplicationDeadline)
	assert.Equal(t, time.December, job.ApplicationDeadline.Month())
	assert.Equal(t, 23, job.ApplicationDeadline.Hour())
}

func TestBuildJobEnumCoercion(t *testing.T) {
	raw := &models.RawExtraction{SourceURL: "https://x.example.com/jobs/4"}
	parsed := &llmJob{
		JobType:         "Full-Time",
		ExperienceLevel: "Senior",
		EducationLevel:  "Master's Degree",
	}

	job := buildJob(parsed, raw, testNow)
	assert.Equal(t, models.JobTypeFullTime, job.JobType)
	assert.Equal(t, models.ExperienceSenior, job.ExperienceLevel)
	assert.Equal(t, models.EducationMaster, job.EducationLevel)
}

func TestBuildJobInternshipHeuristic(t *testing.T) {
	raw := &models.RawExtraction{SourceURL: "https://x.example.com/jobs/5"}
	job := buildJob(&llmJob{JobType: "Paid Internship"}, raw, testNow)
	assert.Equal(t, models.JobTypeInternship, job.JobType)
}

func TestSanitizeContactDropsPlaceholders(t *testing.T) {
	ci := sanitizeContact(&models.ContactInfo{
		Email: "noreply@company.com",
	}, "https://x.example.com/jobs/6")

	assert.Empty(t, ci.Email)
	assert.Equal(t, "Apply via the original posting: https://x.example.com/jobs/6", ci.ApplicationInstructions)
}

func TestSanitizeContactKeepsRealEmail(t *testing.T) {
	ci := sanitizeContact(&models.ContactInfo{
		Email: "careers@acme.rw",
	}, "https://x.example.com/jobs/7")

	assert.Equal(t, "careers@acme.rw", ci.Email)
	assert.Empty(t, ci.ApplicationInstructions)
}

func TestSanitizeContactRejectsMalformedEmail(t *testing.T) {
	ci := sanitizeContact(&models.ContactInfo{
		Email: "not-an-email",
	}, "https://x.example.com/jobs/8")
	assert.Empty(t, ci.Email)
	assert.NotEmpty(t, ci.ApplicationInstructions)
}

func TestBuildJobSalaryOnlyWhenStated(t *testing.T) {
	raw := &models.RawExtraction{SourceURL: "https://x.example.com/jobs/9"}
	parsed := &llmJob{}
	parsed.Salary.Min = 500000
	parsed.Salary.Max = 800000
	parsed.Salary.Currency = "RWF"

	job := buildJob(parsed, raw, testNow)
	require.NotNil(t, job.Salary)
	assert.Equal(t, 500000, job.Salary.Min)
	assert.Equal(t, "RWF", job.Salary.Currency)
}

func TestBuildJobRawFieldsFillGaps(t *testing.T) {
	raw := &models.RawExtraction{
		SourceURL:    "https://x.example.com/jobs/10",
		Title:        "Selector Title",
		Company:      "Selector Co",
		Requirements: []string{"From selectors"},
	}

	job := buildJob(&llmJob{}, raw, testNow)
	assert.Equal(t, "Selector Title", job.Title)
	assert.Equal(t, "Selector Co", job.Company)
	assert.Equal(t, []string{"From selectors"}, job.Requirements)
}

func TestBuildJobCompanyRecoveredFromTitle(t *testing.T) {
	cases := map[string]string{
		"Accountant at Acme Ltd":  "Acme Ltd",
		"Driver @Acme Logistics":  "Acme Logistics",
		"Nurse (Kigali Clinic)":   "Kigali Clinic",
		"Plain Title No Employer": "Unknown Company",
	}

	for title, want := range cases {
		raw := &models.RawExtraction{SourceURL: "https://x.example.com/jobs/11", Title: title}
		job := buildJob(&llmJob{}, raw, testNow)
		assert.Equal(t, want, job.Company, "title %q", title)
	}
}
