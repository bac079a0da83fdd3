package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spoolhq/spool/pkg/config"
)

var _ = Describe("Configer", func() {
	var dir string

	newConfiger := func() *config.Configer {
		cfger, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())
		return cfger
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("LoadConfig", func() {
		It("returns defaults when no config file exists", func() {
			cfg, err := newConfiger().LoadConfig()

			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.Model).To(Equal("qwen3"))
			Expect(cfg.Endpoint.BaseURL).To(Equal("http://localhost:11434/v1"))
			Expect(cfg.Storage.Provider).To(Equal("sqlite"))
			Expect(cfg.Monitor.Provider).To(Equal("log"))
		})

		It("merges file values over defaults", func() {
			content := `
version = 0

[client]
model = "deepseek-reasoner"

[endpoint]
base_url = "https://api.deepseek.com/v1"
api_key = "sk-test"
`
			Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600)).To(Succeed())

			cfg, err := newConfiger().LoadConfig()

			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.Model).To(Equal("deepseek-reasoner"))
			Expect(cfg.Endpoint.BaseURL).To(Equal("https://api.deepseek.com/v1"))
			Expect(cfg.Endpoint.APIKey).To(Equal("sk-test"))
			// Untouched sections keep defaults.
			Expect(cfg.Storage.Provider).To(Equal("sqlite"))
			Expect(cfg.Monitor.KafkaTopic).To(Equal("spool.calls"))
		})

		It("loads model registry entries", func() {
			content := `
[[models]]
model_id = "fast"
base_url = "http://localhost:8000/v1"
model_name = "qwen3-8b"

[[models]]
model_id = "fast"
tenant_id = "acme"
base_url = "http://acme.internal:8000/v1"
api_key = "sk-acme"
`
			Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600)).To(Succeed())

			cfg, err := newConfiger().LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			entries := cfg.ModelEntries()
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].ModelID).To(Equal("fast"))
			Expect(entries[0].Config.ModelName).To(Equal("qwen3-8b"))
			Expect(entries[1].TenantID).To(Equal("acme"))
			Expect(entries[1].Config.APIKey).To(Equal("sk-acme"))
		})

		It("rejects an unsupported config version", func() {
			content := "version = 99\n"
			Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600)).To(Succeed())

			_, err := newConfiger().LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips through the file", func() {
			cfger := newConfiger()
			cfg := config.NewDefaultConfig()
			cfg.Client.Model = "saved-model"

			Expect(cfger.SaveConfig(cfg)).To(Succeed())

			loaded, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Client.Model).To(Equal("saved-model"))
		})

		It("rejects a nil config", func() {
			Expect(newConfiger().SaveConfig(nil)).NotTo(Succeed())
		})
	})

	Describe("Get and Set by key", func() {
		It("sets and gets a string key", func() {
			cfger := newConfiger()

			Expect(cfger.SetConfigValue("client.model", "qwen3-32b")).To(Succeed())

			got, err := cfger.GetConfigValue("client.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("qwen3-32b"))
		})

		It("sets and gets a bool key", func() {
			cfger := newConfiger()

			Expect(cfger.SetConfigValue("client.no_think", "true")).To(Succeed())

			got, err := cfger.GetConfigValue("client.no_think")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("true"))
		})

		It("rejects a malformed bool value", func() {
			Expect(newConfiger().SetConfigValue("client.no_think", "maybe")).NotTo(Succeed())
		})

		It("rejects unknown keys", func() {
			cfger := newConfiger()

			Expect(cfger.SetConfigValue("nope.nothing", "x")).NotTo(Succeed())
			_, err := cfger.GetConfigValue("nope.nothing")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ValidConfigKeys", func() {
		It("covers every registered key exactly once", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(ContainElement("client.model"))
			Expect(keys).To(ContainElement("monitor.kafka_topic"))

			seen := map[string]bool{}
			for _, k := range keys {
				Expect(seen[k]).To(BeFalse(), "duplicate key %s", k)
				seen[k] = true
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})
	})

	Describe("PresetConfig", func() {
		It("returns the openai preset", func() {
			cfg, err := config.PresetConfig("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Endpoint.BaseURL).To(Equal("https://api.openai.com/v1"))
		})

		It("is case-insensitive", func() {
			_, err := config.PresetConfig("DeepSeek")
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown presets", func() {
			_, err := config.PresetConfig("unknown")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("InitViper", func() {
		It("applies defaults and env overrides", func() {
			GinkgoT().Setenv("SPOOL_CLIENT_MODEL", "env-model")

			v, err := config.InitViper(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.GetString("client.model")).To(Equal("env-model"))
			Expect(v.GetString("endpoint.base_url")).To(Equal("http://localhost:11434/v1"))
		})

		It("reads values from config.toml", func() {
			content := "[monitor]\nprovider = \"kafka\"\n"
			Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600)).To(Succeed())

			v, err := config.InitViper(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.GetString("monitor.provider")).To(Equal("kafka"))
		})
	})
})
