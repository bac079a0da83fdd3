package config

import (
	"strconv"

	"github.com/spoolhq/spool/pkg/modelcfg"
)

// Config represents the persistent spool configuration stored as config.toml
// in the .spool/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Client   ClientConfig   `toml:"client"`
	Endpoint EndpointConfig `toml:"endpoint"`
	Storage  StorageConfig  `toml:"storage"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Models   []ModelEntry   `toml:"models,omitempty"`
}

// ClientConfig holds settings for the interactive chat and generate commands.
type ClientConfig struct {
	Model    string `toml:"model,omitempty"`
	TenantID string `toml:"tenant_id,omitempty"`
	NoThink  bool   `toml:"no_think,omitempty"`
}

// EndpointConfig holds the default provider connection, used when no model
// registry entry matches the requested model.
type EndpointConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
}

// StorageConfig holds transcript and model-registry storage settings.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"` // "none", "sqlite", "postgres"
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresURL string `toml:"postgres_url,omitempty"`
}

// MonitorConfig holds call monitoring settings.
type MonitorConfig struct {
	Provider     string `toml:"provider,omitempty"` // "nop", "log", "kafka"
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// ModelEntry is one model registry row seeded from the config file. Rows
// are loaded into the model-configuration resolver at startup; a
// tenant-scoped row wins over a global one.
type ModelEntry struct {
	ModelID   string `toml:"model_id"`
	TenantID  string `toml:"tenant_id,omitempty"`
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key,omitempty"`
	ModelName string `toml:"model_name,omitempty"`
}

// ModelEntries converts the configured model rows into resolver seed entries.
func (c *Config) ModelEntries() []modelcfg.Entry {
	out := make([]modelcfg.Entry, 0, len(c.Models))
	for _, m := range c.Models {
		out = append(out, modelcfg.Entry{
			ModelID:  m.ModelID,
			TenantID: m.TenantID,
			Config: modelcfg.ModelConfig{
				BaseURL:   m.BaseURL,
				APIKey:    m.APIKey,
				ModelName: m.ModelName,
			},
		})
	}

	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.model": {
		get: func(c *Config) string { return c.Client.Model },
		set: func(c *Config, v string) error { c.Client.Model = v; return nil },
	},
	"client.tenant_id": {
		get: func(c *Config) string { return c.Client.TenantID },
		set: func(c *Config, v string) error { c.Client.TenantID = v; return nil },
	},
	"client.no_think": {
		get: func(c *Config) string { return strconv.FormatBool(c.Client.NoThink) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return invalidKeyValue("client.no_think", err)
			}
			c.Client.NoThink = b
			return nil
		},
	},
	"endpoint.base_url": {
		get: func(c *Config) string { return c.Endpoint.BaseURL },
		set: func(c *Config, v string) error { c.Endpoint.BaseURL = v; return nil },
	},
	"endpoint.api_key": {
		get: func(c *Config) string { return c.Endpoint.APIKey },
		set: func(c *Config, v string) error { c.Endpoint.APIKey = v; return nil },
	},
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_url": {
		get: func(c *Config) string { return c.Storage.PostgresURL },
		set: func(c *Config, v string) error { c.Storage.PostgresURL = v; return nil },
	},
	"monitor.provider": {
		get: func(c *Config) string { return c.Monitor.Provider },
		set: func(c *Config, v string) error { c.Monitor.Provider = v; return nil },
	},
	"monitor.kafka_brokers": {
		get: func(c *Config) string { return c.Monitor.KafkaBrokers },
		set: func(c *Config, v string) error { c.Monitor.KafkaBrokers = v; return nil },
	},
	"monitor.kafka_topic": {
		get: func(c *Config) string { return c.Monitor.KafkaTopic },
		set: func(c *Config, v string) error { c.Monitor.KafkaTopic = v; return nil },
	},
}
