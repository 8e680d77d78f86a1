package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"jobharvest/internal/scraper/extract"
	"jobharvest/pkg/models"
)

// llmJob mirrors the JSON shape the model is asked to return.
type llmJob struct {
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	Location         string   `json:"location"`
	Description      string   `json:"description"`
	JobType          string   `json:"job_type"`
	ExperienceLevel  string   `json:"experience_level"`
	EducationLevel   string   `json:"education_level"`
	Skills           []string `json:"skills"`
	Requirements     []string `json:"requirements"`
	Responsibilities []string `json:"responsibilities"`
	Benefits         []string `json:"benefits"`
	Salary           struct {
		Min      int    `json:"min"`
		Max      int    `json:"max"`
		Currency string `json:"currency"`
	} `json:"salary"`
	ApplicationDeadline string `json:"application_deadline"`
	ContactInfo         struct {
		Email                   string `json:"email"`
		Phone                   string `json:"phone"`
		Website                 string `json:"website"`
		ContactPerson           string `json:"contact_person"`
		ApplicationInstructions string `json:"application_instructions"`
	} `json:"contact_info"`
}

var (
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)

	partialTitle       = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	partialCompany     = regexp.MustCompile(`"company"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	partialDescription = regexp.MustCompile(`"description"\s*:\s*"((?:[^"\\]|\\.)*)"`)

	emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// placeholderEmailMarkers appear in template or redacted addresses that must
// never reach job seekers.
var placeholderEmailMarkers = []string{
	"example.com",
	"example.org",
	"test.com",
	"email@",
	"your@",
	"noreply",
	"no-reply",
	"donotreply",
}

// parseModelResponse recovers an llmJob from whatever the model returned.
// Recovery ladder: strip markdown fences, carve the outermost JSON object,
// strict unmarshal, retry with trailing commas removed, then field-level
// regex recovery as the last resort.
func parseModelResponse(text string) (*llmJob, error) {
	cleaned := stripFences(strings.TrimSpace(text))

	if obj := carveObject(cleaned); obj != "" {
		var job llmJob
		if err := json.Unmarshal([]byte(obj), &job); err == nil {
			return &job, nil
		}

		repaired := trailingComma.ReplaceAllString(obj, "$1")
		if err := json.Unmarshal([]byte(repaired), &job); err == nil {
			return &job, nil
		}
	}

	// Truncated responses have no closing brace; field-level recovery still
	// applies to whatever text is there.
	if partial, ok := recoverPartial(cleaned); ok {
		return partial, nil
	}

	return nil, fmt.Errorf("model response is not parseable JSON")
}

// stripFences removes a surrounding markdown code block if present.
func stripFences(s string) string {
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// carveObject slices the substring between the first '{' and the last '}'.
// Models like to wrap their JSON in prose.
func carveObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// recoverPartial pulls individual string fields out of a truncated or
// malformed response. Enough to keep a posting rather than lose it.
func recoverPartial(s string) (*llmJob, bool) {
	job := &llmJob{}
	found := false

	if m := partialTitle.FindStringSubmatch(s); m != nil {
		job.Title = unescapeJSONString(m[1])
		found = true
	}
	if m := partialCompany.FindStringSubmatch(s); m != nil {
		job.Company = unescapeJSONString(m[1])
		found = true
	}
	if m := partialDescription.FindStringSubmatch(s); m != nil {
		job.Description = unescapeJSONString(m[1])
		found = true
	}

	return job, found
}

func unescapeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}

// buildJob merges the model output with the deterministic extraction into a
// fully-defaulted canonical job. Selector-derived dates win over the model's.
func buildJob(parsed *llmJob, raw *models.RawExtraction, now time.Time) *models.Job {
	job := &models.Job{
		Title:                  firstNonEmpty(parsed.Title, raw.Title, "Unknown Position"),
		Company:                firstNonEmpty(parsed.Company, raw.Company, extract.CompanyFromTitle(firstNonEmpty(parsed.Title, raw.Title)), "Unknown Company"),
		Location:               firstNonEmpty(parsed.Location, raw.Location),
		Description:            firstNonEmpty(parsed.Description, raw.Description),
		JobType:                coerceJobType(parsed.JobType),
		ExperienceLevel:        coerceExperienceLevel(parsed.ExperienceLevel),
		EducationLevel:         coerceEducationLevel(parsed.EducationLevel),
		Skills:                 nonNil(parsed.Skills),
		Requirements:           firstNonEmptySlice(parsed.Requirements, raw.Requirements),
		Responsibilities:       firstNonEmptySlice(parsed.Responsibilities, raw.Responsibilities),
		Benefits:               firstNonEmptySlice(parsed.Benefits, raw.Benefits),
		ExternalApplicationURL: raw.SourceURL,
	}

	if parsed.Salary.Min > 0 || parsed.Salary.Max > 0 {
		job.Salary = &models.SalaryRange{
			Min:      parsed.Salary.Min,
			Max:      parsed.Salary.Max,
			Currency: parsed.Salary.Currency,
		}
	}

	if raw.ApplicationDeadline != nil {
		job.ApplicationDeadline = raw.ApplicationDeadline
	} else if parsed.ApplicationDeadline != "" {
		job.ApplicationDeadline = extract.ParseDeadline(parsed.ApplicationDeadline, now)
	}
	job.PostedDate = raw.PostedDate

	job.ContactInfo = sanitizeContact(&models.ContactInfo{
		Email:                   parsed.ContactInfo.Email,
		Phone:                   parsed.ContactInfo.Phone,
		Website:                 parsed.ContactInfo.Website,
		ContactPerson:           parsed.ContactInfo.ContactPerson,
		ApplicationInstructions: firstNonEmpty(parsed.ContactInfo.ApplicationInstructions, raw.ApplicationInstructions),
	}, raw.SourceURL)

	return job
}

// FallbackJob builds a minimal canonical record purely from the selector
// extraction, for when no model output is available. Same defaults and
// sanitation as the merged path.
func FallbackJob(raw *models.RawExtraction, now time.Time) *models.Job {
	return buildJob(&llmJob{}, raw, now)
}

// sanitizeContact drops placeholder or malformed contact channels and
// guarantees at least one way to apply.
func sanitizeContact(ci *models.ContactInfo, postingURL string) *models.ContactInfo {
	if ci.Email != "" && !isUsableEmail(ci.Email) {
		ci.Email = ""
	}
	ci.Phone = strings.TrimSpace(ci.Phone)
	ci.Website = strings.TrimSpace(ci.Website)
	if ci.Website != "" && !strings.HasPrefix(ci.Website, "http") {
		ci.Website = ""
	}

	if !ci.HasChannel() {
		ci.ApplicationInstructions = "Apply via the original posting: " + postingURL
	}
	return ci
}

func isUsableEmail(email string) bool {
	lowered := strings.ToLower(strings.TrimSpace(email))
	if !emailShape.MatchString(lowered) {
		return false
	}
	for _, marker := range placeholderEmailMarkers {
		if strings.Contains(lowered, marker) {
			return false
		}
	}
	return true
}

func coerceJobType(s string) models.JobType {
	v := canonicalEnum(s)
	switch models.JobType(v) {
	case models.JobTypeFullTime, models.JobTypePartTime, models.JobTypeContract,
		models.JobTypeFreelance, models.JobTypeInternship:
		return models.JobType(v)
	}

	switch {
	case strings.Contains(v, "intern"):
		return models.JobTypeInternship
	case strings.Contains(v, "part"):
		return models.JobTypePartTime
	case strings.Contains(v, "contract"), strings.Contains(v, "temporary"):
		return models.JobTypeContract
	case strings.Contains(v, "freelance"), strings.Contains(v, "consult"):
		return models.JobTypeFreelance
	}
	return models.JobTypeFullTime
}

func coerceExperienceLevel(s string) models.ExperienceLevel {
	v := canonicalEnum(s)
	switch models.ExperienceLevel(v) {
	case models.ExperienceEntry, models.ExperienceMid, models.ExperienceSenior, models.ExperienceExecutive:
		return models.ExperienceLevel(v)
	}

	switch {
	case strings.Contains(v, "senior"), strings.Contains(v, "lead"):
		return models.ExperienceSenior
	case strings.Contains(v, "entry"), strings.Contains(v, "junior"), strings.Contains(v, "graduate"):
		return models.ExperienceEntry
	case strings.Contains(v, "exec"), strings.Contains(v, "director"), strings.Contains(v, "chief"):
		return models.ExperienceExecutive
	}
	return models.ExperienceMid
}

func coerceEducationLevel(s string) models.EducationLevel {
	v := canonicalEnum(s)
	switch models.EducationLevel(v) {
	case models.EducationHighSchool, models.EducationAssociate, models.EducationBachelor,
		models.EducationMaster, models.EducationDoctorate, models.EducationProfessional:
		return models.EducationLevel(v)
	}

	switch {
	case strings.Contains(v, "master"), strings.Contains(v, "msc"), strings.Contains(v, "mba"):
		return models.EducationMaster
	case strings.Contains(v, "phd"), strings.Contains(v, "doctor"):
		return models.EducationDoctorate
	case strings.Contains(v, "high_school"), strings.Contains(v, "secondary"):
		return models.EducationHighSchool
	case strings.Contains(v, "associate"), strings.Contains(v, "diploma"):
		return models.EducationAssociate
	case strings.Contains(v, "professional"), strings.Contains(v, "certif"):
		return models.EducationProfessional
	}
	return models.EducationBachelor
}

func canonicalEnum(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstNonEmptySlice(slices ...[]string) []string {
	for _, s := range slices {
		if len(s) > 0 {
			return s
		}
	}
	return []string{}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
