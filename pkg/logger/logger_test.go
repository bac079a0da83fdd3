package logger_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spoolhq/spool/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("NewLoggerWithWriters", func() {
		It("writes info logs to the provided writer", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Info("hello")
			l.Sync()

			Expect(buf.String()).To(ContainSubstring("hello"))
		})

		It("respects debug level", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(true, &buf)
			l.Debug("debug msg")
			l.Sync()

			Expect(buf.String()).To(ContainSubstring("debug msg"))
		})

		It("filters debug when not enabled", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Debug("hidden")
			l.Sync()

			Expect(buf.String()).To(BeEmpty())
		})

		It("fans out to multiple writers", func() {
			var a, b bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &a, &b)
			l.Info("both")
			l.Sync()

			Expect(a.String()).To(ContainSubstring("both"))
			Expect(b.String()).To(ContainSubstring("both"))
		})
	})
})
