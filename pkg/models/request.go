package models

// WebhookEvent is the payload accepted by the scrape webhook. All fields are
// optional; an empty body is treated as a default-urgency notification.
type WebhookEvent struct {
	Source   string `json:"source,omitempty"`
	Urgency  string `json:"urgency,omitempty"` // "low", "medium", "high"
	JobCount int    `json:"job_count,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// UpdateIntervalRequest changes the scraping cron schedule at runtime.
type UpdateIntervalRequest struct {
	CronSpec string `json:"cron_spec" validate:"required"`
}
