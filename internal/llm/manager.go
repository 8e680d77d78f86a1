package llm

import (
	"context"
	"fmt"
	"sync"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/logging/types"
	"jobharvest/pkg/models"
)

// Manager manages the configured LLM provider and its lifecycle.
type Manager struct {
	config   *config.Config
	factory  *Factory
	provider Provider
	logger   types.Logger
	mu       sync.RWMutex
	healthy  bool
}

// NewManager creates a new LLM manager instance
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config:  cfg,
		factory: NewFactory(cfg),
		logger:  logging.GetGlobalLogger(),
	}
}

// Start initializes the LLM manager and creates the provider
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Starting LLM manager", map[string]interface{}{
		"provider": m.config.LLM.Provider,
	})

	provider, err := m.factory.CreateProvider()
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	m.provider = provider

	ctx, cancel := context.WithTimeout(context.Background(), m.config.LLM.Timeout)
	defer cancel()

	if err := m.provider.IsHealthy(ctx); err != nil {
		// The server still starts; runs will fail per-job until the
		// provider recovers.
		m.logger.Warn("LLM provider health check failed", map[string]interface{}{
			"error": err.Error(),
		})
		m.healthy = false
	} else {
		m.healthy = true
		m.logger.Info("LLM manager started", map[string]interface{}{
			"provider": m.provider.GetProviderName(),
		})
	}

	return nil
}

// Normalize runs the provider under the configured timeout.
func (m *Manager) Normalize(ctx context.Context, raw *models.RawExtraction) (*models.Job, error) {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return nil, fmt.Errorf("LLM manager not started")
	}

	callCtx, cancel := context.WithTimeout(ctx, m.config.LLM.Timeout)
	defer cancel()

	return provider.Normalize(callCtx, raw)
}

// IsHealthy reports the result of the last health probe.
func (m *Manager) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

// ProviderName returns the active provider's name, or "" before Start.
func (m *Manager) ProviderName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.provider == nil {
		return ""
	}
	return m.provider.GetProviderName()
}
