package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// CustomError represents a custom application error surfaced through the API.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *CustomError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// Common error constructors
func NewBadRequestError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusUnauthorized,
		Message: message,
	}
}

func NewValidationError(detail string) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: "Validation failed",
		Detail:  detail,
	}
}

// Sentinel errors shared across the pipeline.
var (
	// ErrDuplicateJob signals that a (source, external job ID) pair already
	// exists in the store. First write wins.
	ErrDuplicateJob = errors.New("job already exists")

	// ErrNotJobContent signals that a fetched page does not describe a real
	// job posting and must be skipped without persistence.
	ErrNotJobContent = errors.New("page content is not a job posting")

	// ErrRunInProgress signals that a scraping run is already holding the
	// run lock.
	ErrRunInProgress = errors.New("scraping run already in progress")

	// ErrCircuitOpen signals that automated runs are suspended after too
	// many consecutive failures.
	ErrCircuitOpen = errors.New("automated scraping suspended after consecutive failures")

	// ErrQuotaReached signals that a source hit its daily job cap.
	ErrQuotaReached = errors.New("daily job quota reached for source")
)

// FetchErrorKind classifies fetch failures so the retry policy can branch on
// them without string matching.
type FetchErrorKind string

const (
	FetchForbidden   FetchErrorKind = "forbidden"
	FetchNotFound    FetchErrorKind = "not_found"
	FetchRateLimited FetchErrorKind = "rate_limited"
	FetchTimeout     FetchErrorKind = "timeout"
	FetchNetwork     FetchErrorKind = "network"
	FetchBadStatus   FetchErrorKind = "bad_status"
)

// FetchError wraps a page fetch failure with its classification, the URL and
// how many attempts were spent.
type FetchError struct {
	Kind     FetchErrorKind
	URL      string
	Status   int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed (%s, %d attempts): %v", e.URL, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s failed (%s, status %d, %d attempts)", e.URL, e.Kind, e.Status, e.Attempts)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a classified fetch error.
func NewFetchError(kind FetchErrorKind, url string, status, attempts int, err error) *FetchError {
	return &FetchError{
		Kind:     kind,
		URL:      url,
		Status:   status,
		Attempts: attempts,
		Err:      err,
	}
}

// FetchKind extracts the classification from an error chain, or "" when the
// error is not a FetchError.
func FetchKind(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// NormalizationError wraps a failure to turn raw extracted content into a
// canonical job record.
type NormalizationError struct {
	Reason string
	Err    error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalization failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("normalization failed: %s", e.Reason)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// NewNormalizationError creates a normalization error.
func NewNormalizationError(reason string, err error) *NormalizationError {
	return &NormalizationError{Reason: reason, Err: err}
}
