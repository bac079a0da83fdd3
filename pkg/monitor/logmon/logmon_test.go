package logmon

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spoolhq/spool/pkg/monitor"
)

var _ = Describe("Monitor", func() {
	var (
		mon  *Monitor
		logs *observer.ObservedLogs
	)

	BeforeEach(func() {
		core, observed := observer.New(zap.InfoLevel)
		logs = observed
		mon = NewMonitor(zap.New(core))
	})

	It("logs events with their attributes", func() {
		mon.AddEvent(monitor.EventCompletionStarted, monitor.Attrs{"model": "test"})

		entries := logs.All()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Message).To(Equal(monitor.EventCompletionStarted))
		Expect(entries[0].ContextMap()).To(HaveKeyWithValue("model", "test"))
	})

	It("attaches accumulated summary attributes to later events", func() {
		mon.SetAttributes(monitor.Attrs{"call_id": "abc"})
		mon.SetAttributes(monitor.Attrs{"role": "assistant"})
		mon.AddEvent(monitor.EventCompletionFinished, nil)

		entries := logs.All()
		Expect(entries).To(HaveLen(1))

		summary, ok := entries[0].ContextMap()["summary"].(monitor.Attrs)
		Expect(ok).To(BeTrue())
		Expect(summary).To(HaveKeyWithValue("call_id", "abc"))
		Expect(summary).To(HaveKeyWithValue("role", "assistant"))
	})

	It("omits the summary field when no attributes were set", func() {
		mon.AddEvent(monitor.EventModelStopped, nil)

		Expect(logs.All()[0].ContextMap()).NotTo(HaveKey("summary"))
	})
})
