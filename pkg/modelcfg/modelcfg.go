// Package modelcfg resolves connection parameters for model endpoints,
// keyed by model id and optional tenant id. Absence of a configuration is
// valid input, not an error: callers degrade to empty connection values.
package modelcfg

import "context"

// ModelConfig holds the connection parameters for one model endpoint.
type ModelConfig struct {
	BaseURL   string `json:"base_url"`
	APIKey    string `json:"api_key"`
	ModelName string `json:"model_name"`
}

// Resolver looks up model configurations. Implementations live in the
// inmemory, sqlite, and postgres subpackages.
type Resolver interface {
	// Lookup returns the configuration for (modelID, tenantID). A
	// tenant-scoped entry wins over a global one; tenantID may be empty.
	// Lookup returns (nil, nil) when no entry exists.
	Lookup(ctx context.Context, modelID, tenantID string) (*ModelConfig, error)

	// Close releases any resources held by the resolver.
	Close() error
}

// Entry pairs a ModelConfig with its lookup key, for bulk seeding from
// configuration files.
type Entry struct {
	ModelID  string `json:"model_id"`
	TenantID string `json:"tenant_id,omitempty"`
	Config   ModelConfig
}
