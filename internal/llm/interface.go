package llm

import (
	"context"

	"jobharvest/pkg/models"
)

// Provider turns raw extracted posting content into a canonical job record.
type Provider interface {
	// Normalize enriches and normalizes the raw extraction. The returned
	// job always has valid enum values and non-nil slices.
	Normalize(ctx context.Context, raw *models.RawExtraction) (*models.Job, error)

	// IsHealthy checks if the provider is available
	IsHealthy(ctx context.Context) error

	// GetProviderName returns the name of the provider
	GetProviderName() string
}
