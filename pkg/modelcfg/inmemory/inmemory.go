// Package inmemory provides a map-backed model configuration resolver,
// used for tests and for static tables seeded from the config file.
package inmemory

import (
	"context"
	"sync"

	"github.com/spoolhq/spool/pkg/modelcfg"
)

// Resolver implements modelcfg.Resolver using an in-memory map.
type Resolver struct {
	// mu guards configs
	mu sync.RWMutex

	// configs is keyed by tenantID + "\x00" + modelID; global entries use
	// an empty tenant id.
	configs map[string]modelcfg.ModelConfig
}

// NewResolver creates an empty in-memory resolver.
func NewResolver() *Resolver {
	return &Resolver{
		configs: make(map[string]modelcfg.ModelConfig),
	}
}

// NewFromEntries creates a resolver seeded with the given entries.
func NewFromEntries(entries []modelcfg.Entry) *Resolver {
	r := NewResolver()
	for _, e := range entries {
		r.Set(e.ModelID, e.TenantID, e.Config)
	}
	return r
}

// Set stores or replaces the configuration for (modelID, tenantID).
func (r *Resolver) Set(modelID, tenantID string, cfg modelcfg.ModelConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[key(modelID, tenantID)] = cfg
}

// Lookup returns the tenant-scoped entry if present, falling back to the
// global entry, and (nil, nil) when neither exists.
func (r *Resolver) Lookup(_ context.Context, modelID, tenantID string) (*modelcfg.ModelConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tenantID != "" {
		if cfg, ok := r.configs[key(modelID, tenantID)]; ok {
			return &cfg, nil
		}
	}

	if cfg, ok := r.configs[key(modelID, "")]; ok {
		return &cfg, nil
	}

	return nil, nil
}

// Close is a no-op.
func (r *Resolver) Close() error {
	return nil
}

func key(modelID, tenantID string) string {
	return tenantID + "\x00" + modelID
}
