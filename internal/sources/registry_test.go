package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryIsValid(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.Len(), 5)

	// Priority order must be ascending.
	all := r.All()
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Priority, all[i].Priority)
	}
}

func TestRegistryByName(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	cfg, ok := r.ByName("unjobnet")
	require.True(t, ok)
	assert.True(t, cfg.HostileHost)
	assert.Equal(t, 15, cfg.ExtraFetchQuota)

	_, ok = r.ByName("nosuchboard")
	assert.False(t, ok)
}

func TestNewRegistryRejectsInvalidConfig(t *testing.T) {
	_, err := NewRegistry([]Config{
		{
			Name:       "broken",
			BaseURL:    "not-a-url",
			ListingURL: "https://example.com/jobs",
			Priority:   1,
			MaxPages:   1,
			Selectors:  Selectors{JobLinks: []string{"a"}},
		},
	})
	assert.Error(t, err)
}

func TestNewRegistryRejectsDuplicateNames(t *testing.T) {
	cfg := Config{
		Name:       "dupe",
		BaseURL:    "https://example.com",
		ListingURL: "https://example.com/jobs",
		Priority:   1,
		MaxPages:   1,
		Selectors:  Selectors{JobLinks: []string{"a"}},
	}
	_, err := NewRegistry([]Config{cfg, cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewRegistryRejectsMissingJobLinks(t *testing.T) {
	_, err := NewRegistry([]Config{
		{
			Name:       "nolinks",
			BaseURL:    "https://example.com",
			ListingURL: "https://example.com/jobs",
			Priority:   1,
			MaxPages:   1,
		},
	})
	assert.Error(t, err)
}
