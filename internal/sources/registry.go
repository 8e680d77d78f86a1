package sources

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Registry holds the validated set of job board configurations.
type Registry struct {
	byName  map[string]*Config
	ordered []*Config
}

var validate = validator.New()

// NewRegistry validates the given configurations and builds a registry.
// Duplicate names and invalid entries are rejected up front so a bad table
// fails at startup, not mid-run.
func NewRegistry(configs []Config) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*Config, len(configs)),
	}

	for i := range configs {
		cfg := &configs[i]
		if err := validate.Struct(cfg); err != nil {
			return nil, fmt.Errorf("invalid source config %q: %w", cfg.Name, err)
		}
		if _, exists := r.byName[cfg.Name]; exists {
			return nil, fmt.Errorf("duplicate source name %q", cfg.Name)
		}
		r.byName[cfg.Name] = cfg
		r.ordered = append(r.ordered, cfg)
	}

	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Priority < r.ordered[j].Priority
	})

	return r, nil
}

// Default builds a registry from the builtin source table.
func Default() (*Registry, error) {
	return NewRegistry(builtin)
}

// All returns the sources in priority order. The returned slice must not be
// modified.
func (r *Registry) All() []*Config {
	return r.ordered
}

// ByName looks a source up by its stable name.
func (r *Registry) ByName(name string) (*Config, bool) {
	cfg, ok := r.byName[name]
	return cfg, ok
}

// Names returns the source names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ordered))
	for _, cfg := range r.ordered {
		names = append(names, cfg.Name)
	}
	return names
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.ordered)
}
