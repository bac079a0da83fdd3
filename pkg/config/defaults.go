package config

const (
	defaultModel   = "qwen3"
	defaultBaseURL = "http://localhost:11434/v1"

	defaultStorageProvider = "sqlite"

	defaultMonitorProvider = "log"
	defaultKafkaBrokers    = "localhost:9092"
	defaultKafkaTopic      = "spool.calls"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
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
			Provider:     defaultMonitorProvider,
			KafkaBrokers: defaultKafkaBrokers,
			KafkaTopic:   defaultKafkaTopic,
		},
	}
}
