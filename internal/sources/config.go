package sources

import "time"

// Selectors holds the CSS selectors tried in order for each field of a job
// posting. The first selector that yields content wins.
type Selectors struct {
	JobLinks                []string `validate:"required,min=1"`
	Title                   []string
	Company                 []string
	Location                []string
	Description             []string
	Requirements            []string
	Responsibilities        []string
	Benefits                []string
	Salary                  []string
	Deadline                []string
	PostedDate              []string
	ApplicationInstructions []string
	ContactInfo             []string
	NextPage                []string
}

// Config describes one job board and how to scrape it.
type Config struct {
	// Name is the stable identifier used in persistence and logs.
	Name string `validate:"required,lowercase"`

	// BaseURL resolves relative job links.
	BaseURL string `validate:"required,url"`

	// ListingURL is the first page of job listings.
	ListingURL string `validate:"required,url"`

	// Priority orders sources within a run; lower runs first.
	Priority int `validate:"gte=1"`

	// MaxPages bounds pagination when following next-page links.
	MaxPages int `validate:"gte=1"`

	// PageParam enables query-parameter pagination (?<PageParam>=N) instead
	// of next-page selectors.
	PageParam string

	// RequiresJS forces the headless browser for every page of this source.
	RequiresJS bool

	// HostileHost doubles the backoff applied after 403 responses.
	HostileHost bool

	// RateLimit overrides the global per-source requests-per-minute limit
	// when non-zero.
	RateLimit int `validate:"gte=0"`

	// RecencyWindow drops listing URLs whose posting date is older than
	// now minus the window. Zero disables the filter.
	RecencyWindow time.Duration

	// ExtraFetchQuota lets a source fetch beyond its remaining daily quota
	// to compensate for a high invalid-posting rate. The persisted count
	// still respects the quota.
	ExtraFetchQuota int `validate:"gte=0"`

	// URLFilter keeps only listing links containing this substring.
	URLFilter string

	// IDPatterns are regexes tried in order against a job URL to pull the
	// external job ID. The generic patterns apply when empty.
	IDPatterns []string

	// Headers are extra request headers sent on every fetch.
	Headers map[string]string

	Selectors Selectors
}

// builtin is the table of supported job boards. Order within the table does
// not matter; the registry sorts by Priority.
var builtin = []Config{
	{
		Name:       "jobinrwanda",
		BaseURL:    "https://www.jobinrwanda.com",
		ListingURL: "https://www.jobinrwanda.com/jobs/all",
		Priority:   1,
		MaxPages:   3,
		URLFilter:  "/job/",
		IDPatterns: []string{`/node/(\d+)`, `/job/([a-z0-9-]+)`},
		Selectors: Selectors{
			JobLinks:                []string{"article.node--type-job a[href*='/job/']", "h5.card-title a", "a[href*='/node/']"},
			Title:                   []string{"h1.page-title", "h1", ".job-title"},
			Company:                 []string{".field--name-field-employer a", ".company-name", ".employer"},
			Location:                []string{".field--name-field-location", ".job-location"},
			Description:             []string{".field--name-body", ".job-description", "article .content"},
			Deadline:                []string{".field--name-field-deadline time", ".deadline", "time[datetime]"},
			PostedDate:              []string{".field--name-created time", "time[datetime]"},
			ApplicationInstructions: []string{".field--name-field-how-to-apply", ".how-to-apply"},
			ContactInfo:             []string{".field--name-field-contact", ".contact-info"},
			NextPage:                []string{"li.pager__item--next a", "a[rel='next']"},
		},
	},
	{
		Name:       "greatrwandajobs",
		BaseURL:    "https://www.greatrwandajobs.com",
		ListingURL: "https://www.greatrwandajobs.com/jobs",
		Priority:   2,
		MaxPages:   3,
		URLFilter:  "/jobs/",
		Selectors: Selectors{
			JobLinks:                []string{".job-listing a.job-title", "h2.job-title a", "a[href*='/job/']"},
			Title:                   []string{"h1.job-title", "h1"},
			Company:                 []string{".job-company", ".company a", ".recruiter-name"},
			Location:                []string{".job-location", ".location"},
			Description:             []string{".job-description", "#job-description", ".description"},
			Deadline:                []string{".job-deadline", ".deadline", ".application-deadline"},
			PostedDate:              []string{".job-posted", ".posted-date", "time[datetime]"},
			ApplicationInstructions: []string{".how-to-apply", ".application-instructions"},
			ContactInfo:             []string{".contact-details", ".contact-info"},
			NextPage:                []string{"a.next", "li.next a", "a[rel='next']"},
		},
	},
	{
		Name:       "mucuruzi",
		BaseURL:    "https://mucuruzi.com",
		ListingURL: "https://mucuruzi.com/category/jobs/",
		Priority:   3,
		MaxPages:   2,
		URLFilter:  "mucuruzi.com",
		Selectors: Selectors{
			JobLinks:    []string{"h2.entry-title a", "article a[rel='bookmark']"},
			Title:       []string{"h1.entry-title", "h1"},
			Description: []string{".entry-content", "article .content"},
			PostedDate:  []string{"time.entry-date", "time[datetime]"},
			NextPage:    []string{"a.next.page-numbers", "a[rel='next']"},
		},
	},
	{
		Name:          "workingnomads",
		BaseURL:       "https://www.workingnomads.com",
		ListingURL:    "https://www.workingnomads.com/jobs",
		Priority:      4,
		MaxPages:      2,
		RequiresJS:    true,
		RecencyWindow: 72 * time.Hour,
		URLFilter:     "/jobs/",
		Selectors: Selectors{
			JobLinks:    []string{".job-desktop a.open-button", "a[href*='/jobs/']"},
			Title:       []string{"h1", ".job-title"},
			Company:     []string{".company-name", "a[href*='/company/']"},
			Location:    []string{".job-location", ".boxes .box"},
			Description: []string{".job-description", "#job-description"},
			PostedDate:  []string{"time[datetime]", ".posted"},
		},
	},
	{
		Name:            "unjobnet",
		BaseURL:         "https://www.unjobnet.org",
		ListingURL:      "https://www.unjobnet.org/jobs?keywords=&location=rwanda",
		Priority:        5,
		MaxPages:        2,
		PageParam:       "page",
		HostileHost:     true,
		ExtraFetchQuota: 15,
		URLFilter:       "/jobs/detail/",
		IDPatterns:      []string{`/jobs/detail/(\d+)`},
		Headers: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         "https://www.unjobnet.org/",
		},
		Selectors: Selectors{
			JobLinks:    []string{"a[href*='/jobs/detail/']", ".jobs-list .title a"},
			Title:       []string{"h1", ".job-header h2"},
			Company:     []string{".organization-name", "a[href*='/organizations/']"},
			Location:    []string{".job-location", ".meta .location"},
			Description: []string{".job-description", "#description", ".details"},
			Deadline:    []string{".closing-date", ".deadline", "time[datetime]"},
			PostedDate:  []string{".posted-date", "time[datetime]"},
			NextPage:    []string{"a[rel='next']", "li.next a"},
		},
	},
	{
		Name:       "internshiprw",
		BaseURL:    "https://internship.rw",
		ListingURL: "https://internship.rw/opportunities",
		Priority:   6,
		MaxPages:   2,
		RequiresJS: true,
		URLFilter:  "/opportunities/",
		Selectors: Selectors{
			JobLinks:    []string{"a[href*='/opportunities/']", ".opportunity-card a"},
			Title:       []string{"h1", ".opportunity-title"},
			Company:     []string{".organization", ".company"},
			Location:    []string{".location"},
			Description: []string{".opportunity-description", ".description"},
			Deadline:    []string{".deadline", "time[datetime]"},
		},
	},
}
