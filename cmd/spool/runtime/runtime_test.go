package runtime

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spoolhq/spool/pkg/config"
)

var _ = Describe("Runtime", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.NewDefaultConfig()
		cfg.Monitor.Provider = "nop"
		cfg.Models = []config.ModelEntry{
			{
				ModelID:   "qwen3",
				BaseURL:   "http://localhost:11434/v1",
				ModelName: "qwen3-32b",
			},
		}
	})

	Context("with in-memory storage", func() {
		BeforeEach(func() {
			cfg.Storage.Provider = "memory"
		})

		It("seeds the model registry from the config file", func() {
			rt, err := NewFromConfig(cfg, "", false)
			Expect(err).NotTo(HaveOccurred())
			defer rt.Close()

			got, err := rt.Resolver.Lookup(context.Background(), "qwen3", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got.ModelName).To(Equal("qwen3-32b"))
		})

		It("starts the transcript pool", func() {
			rt, err := NewFromConfig(cfg, "", false)
			Expect(err).NotTo(HaveOccurred())
			defer rt.Close()

			Expect(rt.Transcripts).NotTo(BeNil())
		})
	})

	Context("with sqlite storage", func() {
		BeforeEach(func() {
			dir := GinkgoT().TempDir()
			cfg.Storage.Provider = "sqlite"
			cfg.Storage.SQLitePath = filepath.Join(dir, "spool.db")
		})

		It("persists and resolves the seeded model registry", func() {
			rt, err := NewFromConfig(cfg, "", false)
			Expect(err).NotTo(HaveOccurred())
			defer rt.Close()

			got, err := rt.Resolver.Lookup(context.Background(), "qwen3", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got.BaseURL).To(Equal("http://localhost:11434/v1"))
		})
	})

	Context("with postgres storage", func() {
		BeforeEach(func() {
			cfg.Storage.Provider = "postgres"
			cfg.Storage.PostgresURL = "postgres://spool@127.0.0.1:1/spool?sslmode=disable&connect_timeout=1"
		})

		It("fails wiring rather than silently falling back to an in-memory registry", func() {
			_, err := NewFromConfig(cfg, "", false)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("model registry"))
		})
	})

	Context("with storage disabled", func() {
		BeforeEach(func() {
			cfg.Storage.Provider = "none"
		})

		It("leaves the transcript pool nil and Record is a no-op", func() {
			rt, err := NewFromConfig(cfg, "", false)
			Expect(err).NotTo(HaveOccurred())
			defer rt.Close()

			Expect(rt.Transcripts).To(BeNil())
			rt.Record(nil)
		})
	})
})
