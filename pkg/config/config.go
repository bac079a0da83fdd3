package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/spoolhq/spool/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .spool/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the list of all supported configuration key names
// in a stable, logical order matching the TOML section layout.
func ValidConfigKeys() []string {
	ordered := []string{
		"client.model",
		"client.tenant_id",
		"client.no_think",
		"endpoint.base_url",
		"endpoint.api_key",
		"storage.provider",
		"storage.sqlite_path",
		"storage.postgres_url",
		"monitor.provider",
		"monitor.kafka_brokers",
		"monitor.kafka_topic",
	}

	// Sanity: only return keys that actually exist in the map, then append
	// any registered keys the ordered list missed.
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}
	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .spool/
// directory. If the file does not exist, returns NewDefaultConfig() so
// callers always receive a fully-populated Config with sane defaults.
// Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Client.Model == "" {
		cfg.Client.Model = defaults.Client.Model
	}

	if cfg.Endpoint.BaseURL == "" {
		cfg.Endpoint.BaseURL = defaults.Endpoint.BaseURL
	}

	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = defaults.Storage.Provider
	}

	if cfg.Monitor.Provider == "" {
		cfg.Monitor.Provider = defaults.Monitor.Provider
	}
	if cfg.Monitor.KafkaBrokers == "" {
		cfg.Monitor.KafkaBrokers = defaults.Monitor.KafkaBrokers
	}
	if cfg.Monitor.KafkaTopic == "" {
		cfg.Monitor.KafkaTopic = defaults.Monitor.KafkaTopic
	}
}

// SaveConfig persists the configuration to config.toml in the target .spool/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named endpoint preset.
// Supported presets: "openai", "deepseek", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	switch strings.ToLower(name) {
	case "openai":
		return &Config{
			Version: CurrentV,
			Client: ClientConfig{
				Model: "gpt-4o-mini",
			},
			Endpoint: EndpointConfig{
				BaseURL: "https://api.openai.com/v1",
			},
			Storage: StorageConfig{
				Provider: defaultStorageProvider,
			},
			Monitor: MonitorConfig{
				Provider: defaultMonitorProvider,
			},
		}, nil

	case "deepseek":
		return &Config{
			Version: CurrentV,
			Client: ClientConfig{
				Model: "deepseek-reasoner",
			},
			Endpoint: EndpointConfig{
				BaseURL: "https://api.deepseek.com/v1",
			},
			Storage: StorageConfig{
				Provider: defaultStorageProvider,
			},
			Monitor: MonitorConfig{
				Provider: defaultMonitorProvider,
			},
		}, nil

	case "ollama":
		return &Config{
			Version: CurrentV,
			Client: ClientConfig{
				Model: defaultModel,
			},
			Endpoint: EndpointConfig{
				BaseURL: defaultBaseURL,
			},
			Storage: StorageConfig{
				Provider: defaultStorageProvider,
			},
			Monitor: MonitorConfig{
				Provider: defaultMonitorProvider,
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, deepseek, ollama)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "deepseek", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

func invalidKeyValue(key string, err error) error {
	return fmt.Errorf("invalid value for %s: %w", key, err)
}
