package models

import "time"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// TriggerResponse is returned when a run is started or refused.
type TriggerResponse struct {
	Started bool   `json:"started"`
	RunID   string `json:"run_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// WebhookResponse reports the gateway's decision for a webhook event.
type WebhookResponse struct {
	Status string `json:"status"` // "triggered", "deferred", "rejected"
	Reason string `json:"reason,omitempty"`
	RunID  string `json:"run_id,omitempty"`
}
