package models

import "time"

// JobStatus is the lifecycle status of a persisted job posting.
type JobStatus string

const (
	JobStatusActive  JobStatus = "active"
	JobStatusExpired JobStatus = "expired"
	JobStatusPaused  JobStatus = "paused"
	JobStatusClosed  JobStatus = "closed"
)

// JobType enumerates the allowed employment types.
type JobType string

const (
	JobTypeFullTime   JobType = "full_time"
	JobTypePartTime   JobType = "part_time"
	JobTypeContract   JobType = "contract"
	JobTypeFreelance  JobType = "freelance"
	JobTypeInternship JobType = "internship"
)

// ExperienceLevel enumerates the allowed experience levels.
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry_level"
	ExperienceMid       ExperienceLevel = "mid_level"
	ExperienceSenior    ExperienceLevel = "senior_level"
	ExperienceExecutive ExperienceLevel = "executive"
)

// EducationLevel enumerates the allowed education levels.
type EducationLevel string

const (
	EducationHighSchool   EducationLevel = "high_school"
	EducationAssociate    EducationLevel = "associate"
	EducationBachelor     EducationLevel = "bachelor"
	EducationMaster       EducationLevel = "master"
	EducationDoctorate    EducationLevel = "doctorate"
	EducationProfessional EducationLevel = "professional"
)

// SalaryRange represents the salary information for a job posting.
type SalaryRange struct {
	Min      int    `json:"min" bson:"min"`
	Max      int    `json:"max" bson:"max"`
	Currency string `json:"currency" bson:"currency"`
}

// ContactInfo holds whatever contact channels a posting exposes. All fields
// are optional; sanitation may strip invalid ones before persistence.
type ContactInfo struct {
	Email                   string `json:"email,omitempty" bson:"email,omitempty"`
	Phone                   string `json:"phone,omitempty" bson:"phone,omitempty"`
	Website                 string `json:"website,omitempty" bson:"website,omitempty"`
	Address                 string `json:"address,omitempty" bson:"address,omitempty"`
	ContactPerson           string `json:"contact_person,omitempty" bson:"contact_person,omitempty"`
	ApplicationInstructions string `json:"application_instructions,omitempty" bson:"application_instructions,omitempty"`
}

// HasChannel reports whether at least one usable contact channel remains.
func (c *ContactInfo) HasChannel() bool {
	if c == nil {
		return false
	}
	return c.Email != "" || c.Phone != "" || c.Website != "" ||
		c.ContactPerson != "" || c.ApplicationInstructions != ""
}

// Job is the canonical, fully-populated job record produced by normalization.
// Every enum field carries a deterministic default; optional pointers are nil
// when the posting simply does not state the value.
type Job struct {
	Title                  string          `json:"title" bson:"title"`
	Description            string          `json:"description" bson:"description"`
	Company                string          `json:"company" bson:"company"`
	Location               string          `json:"location" bson:"location"`
	JobType                JobType         `json:"job_type" bson:"job_type"`
	ExperienceLevel        ExperienceLevel `json:"experience_level" bson:"experience_level"`
	EducationLevel         EducationLevel  `json:"education_level" bson:"education_level"`
	Skills                 []string        `json:"skills" bson:"skills"`
	Requirements           []string        `json:"requirements" bson:"requirements"`
	Responsibilities       []string        `json:"responsibilities" bson:"responsibilities"`
	Benefits               []string        `json:"benefits" bson:"benefits"`
	Salary                 *SalaryRange    `json:"salary,omitempty" bson:"salary,omitempty"`
	ApplicationDeadline    *time.Time      `json:"application_deadline,omitempty" bson:"application_deadline,omitempty"`
	PostedDate             *time.Time      `json:"posted_date,omitempty" bson:"posted_date,omitempty"`
	ExternalApplicationURL string          `json:"external_application_url" bson:"external_application_url"`
	ExternalJobID          string          `json:"external_job_id" bson:"external_job_id"`
	ContactInfo            *ContactInfo    `json:"contact_info,omitempty" bson:"contact_info,omitempty"`
}

// PersistedJob is a Job as stored in the document store, keyed by
// (Source, ExternalJobID).
type PersistedJob struct {
	Job       `bson:",inline"`
	Source    string    `json:"source" bson:"source"`
	Status    JobStatus `json:"status" bson:"status"`
	Employer  string    `json:"employer" bson:"employer"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// RawExtraction carries the per-field text captured by selectors from a
// detail page before normalization. Transient, one per scraped URL.
type RawExtraction struct {
	SourceURL               string
	Title                   string
	Company                 string
	Location                string
	Description             string
	Requirements            []string
	Responsibilities        []string
	Benefits                []string
	SalaryText              string
	ApplicationInstructions string
	ContactInfoText         string
	PostedDate              *time.Time
	ApplicationDeadline     *time.Time
}

// SourceResult is the outcome of running the pipeline for one source.
type SourceResult struct {
	Source    string   `json:"source"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}

// RunSummary is the operator-visible outcome of a whole scraping run.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	Success    bool           `json:"success"`
	Processed  int            `json:"processed"`
	Errors     []string       `json:"errors"`
	PerSource  map[string]int `json:"per_source"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}
