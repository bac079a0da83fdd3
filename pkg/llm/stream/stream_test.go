package stream

import (
	"context"
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spoolhq/spool/pkg/llm"
	"github.com/spoolhq/spool/pkg/llm/provider"
	"github.com/spoolhq/spool/pkg/monitor"
)

// fakeStream yields a fixed chunk sequence and counts Recv calls.
type fakeStream struct {
	chunks    []*llm.StreamChunk
	recvCount int
	onRecv    func(n int)
	err       error
}

func (f *fakeStream) Recv() (*llm.StreamChunk, error) {
	f.recvCount++
	if f.onRecv != nil {
		f.onRecv(f.recvCount)
	}
	if f.recvCount > len(f.chunks) {
		if f.err != nil {
			return nil, f.err
		}
		return nil, io.EOF
	}
	return f.chunks[f.recvCount-1], nil
}

func (f *fakeStream) Close() error { return nil }

// fakeOpener hands out a prepared stream and captures the outgoing request.
type fakeOpener struct {
	stream  *fakeStream
	openErr error
	lastReq *llm.ChatRequest
	opened  int
}

func (f *fakeOpener) Name() string { return "fake" }

func (f *fakeOpener) OpenStream(_ context.Context, req *llm.ChatRequest) (provider.ChunkStream, error) {
	f.opened++
	f.lastReq = req
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.stream, nil
}

// recordingObserver captures forwarded tokens per channel.
type recordingObserver struct {
	tokens    []string
	reasoning []string
	flushes   int
}

func (o *recordingObserver) OnToken(text string)     { o.tokens = append(o.tokens, text) }
func (o *recordingObserver) OnReasoning(text string) { o.reasoning = append(o.reasoning, text) }
func (o *recordingObserver) Flush()                  { o.flushes++ }

// recordingMonitor captures emitted event names.
type recordingMonitor struct {
	events []string
	attrs  []monitor.Attrs
}

func (m *recordingMonitor) AddEvent(name string, attrs monitor.Attrs) {
	m.events = append(m.events, name)
	m.attrs = append(m.attrs, attrs)
}

func (m *recordingMonitor) SetAttributes(_ monitor.Attrs) {}

// recordingTracker counts token lifecycle callbacks.
type recordingTracker struct {
	firstTokens int
	tokens      []string
	completions [][2]int
}

func (t *recordingTracker) RecordFirstToken()       { t.firstTokens++ }
func (t *recordingTracker) RecordToken(text string) { t.tokens = append(t.tokens, text) }
func (t *recordingTracker) RecordCompletion(i, o int) {
	t.completions = append(t.completions, [2]int{i, o})
}

func strptr(s string) *string { return &s }

func contentChunk(text string) *llm.StreamChunk {
	return &llm.StreamChunk{Delta: llm.Delta{Content: strptr(text)}}
}

func reasoningChunk(text string) *llm.StreamChunk {
	return &llm.StreamChunk{Delta: llm.Delta{ReasoningContent: strptr(text)}}
}

func userMessages(text string) []any {
	return []any{llm.NewTextMessage("user", text)}
}

var _ = Describe("Client", func() {
	var (
		opener   *fakeOpener
		observer *recordingObserver
		ctx      context.Context
	)

	BeforeEach(func() {
		opener = &fakeOpener{stream: &fakeStream{}}
		observer = &recordingObserver{}
		ctx = context.Background()
	})

	Describe("Call", func() {
		It("aggregates content deltas and forwards them to the observer", func() {
			opener.stream.chunks = []*llm.StreamChunk{
				{Delta: llm.Delta{Role: "assistant", Content: strptr("Hello")}},
				contentChunk(" world"),
				contentChunk("!"),
			}

			c := New(opener, nil)
			result, err := c.Call(ctx, "test", userMessages("hi"), Options{Observer: observer})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Message.GetText()).To(Equal("Hello world!"))
			Expect(result.Message.Role).To(Equal("assistant"))
			Expect(observer.tokens).To(Equal([]string{"Hello", " world", "!"}))
			Expect(observer.flushes).To(Equal(1))
			Expect(result.Raw).To(HaveLen(3))
		})

		It("forwards reasoning on an independent channel, unfiltered", func() {
			opener.stream.chunks = []*llm.StreamChunk{
				reasoningChunk("<think>this stays"),
				contentChunk("answer"),
			}

			c := New(opener, nil)
			result, err := c.Call(ctx, "test", userMessages("hi"), Options{Observer: observer})

			Expect(err).NotTo(HaveOccurred())
			Expect(observer.reasoning).To(Equal([]string{"<think>this stays"}))
			Expect(observer.tokens).To(Equal([]string{"answer"}))
			Expect(result.Reasoning).To(Equal("<think>this stays"))
			Expect(result.Message.GetText()).To(Equal("answer"))
		})

		It("copies usage verbatim from the terminal chunk", func() {
			opener.stream.chunks = []*llm.StreamChunk{
				contentChunk("hi"),
				{Usage: &llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
			}

			c := New(opener, nil)
			_, err := c.Call(ctx, "test", userMessages("hi"), Options{Observer: observer})

			Expect(err).NotTo(HaveOccurred())
			Expect(c.LastInputTokenCount).To(Equal(10))
			Expect(c.LastOutputTokenCount).To(Equal(5))
		})

		It("leaves usage counters at zero when no chunk carries usage", func() {
			opener.stream.chunks = []*llm.StreamChunk{contentChunk("hi")}

			c := New(opener, nil)
			c.LastInputTokenCount = 99 // stale from a previous call
			c.LastOutputTokenCount = 99

			_, err := c.Call(ctx, "test", userMessages("hi"), Options{Observer: observer})

			Expect(err).NotTo(HaveOccurred())
			Expect(c.LastInputTokenCount).To(BeZero())
			Expect(c.LastOutputTokenCount).To(BeZero())
		})

		It("resets usage counters even when the call fails before streaming", func() {
			opener.stream.chunks = []*llm.StreamChunk{
				contentChunk("hi"),
				{Usage: &llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
			}

			c := New(opener, nil)
			_, err := c.Call(ctx, "test", userMessages("hi"), Options{Observer: observer})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.LastInputTokenCount).To(Equal(10))

			_, err = c.Call(ctx, "test", []any{42}, Options{Observer: observer})
			Expect(err).To(HaveOccurred())
			Expect(c.LastInputTokenCount).To(BeZero())
			Expect(c.LastOutputTokenCount).To(BeZero())
		})

		Context("message normalization", func() {
			It("accepts plain mappings with role and content", func() {
				opener.stream.chunks = []*llm.StreamChunk{contentChunk("ok")}

				c := New(opener, nil)
				_, err := c.Call(ctx, "test", []any{
					map[string]any{"role": "system", "content": "be brief"},
					map[string]any{"role": "user", "content": "hi"},
				}, Options{Observer: observer})

				Expect(err).NotTo(HaveOccurred())
				Expect(opener.lastReq.Messages).To(HaveLen(2))
				Expect(opener.lastReq.Messages[0].GetText()).To(Equal("be brief"))
			})

			It("rejects a mapping missing content before any network call", func() {
				c := New(opener, nil)
				_, err := c.Call(ctx, "test", []any{
					map[string]any{"role": "user"},
				}, Options{Observer: observer})

				var invalidErr llm.InvalidMessageError
				Expect(errors.As(err, &invalidErr)).To(BeTrue())
				Expect(opener.opened).To(BeZero())
			})

			It("rejects unsupported message types", func() {
				c := New(opener, nil)
				_, err := c.Call(ctx, "test", []any{42}, Options{Observer: observer})

				var invalidErr llm.InvalidMessageError
				Expect(errors.As(err, &invalidErr)).To(BeTrue())
				Expect(opener.opened).To(BeZero())
			})
		})

		Context("no-think directive", func() {
			It("appends the directive to a trailing user message", func() {
				opener.stream.chunks = []*llm.StreamChunk{contentChunk("ok")}

				c := New(opener, nil)
				_, err := c.Call(ctx, "test", userMessages("hi"), Options{
					Observer: observer,
					NoThink:  true,
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(opener.lastReq.Messages[0].GetText()).To(Equal("hi /no_think"))
			})

			It("leaves a trailing assistant message untouched", func() {
				opener.stream.chunks = []*llm.StreamChunk{contentChunk("ok")}

				c := New(opener, nil)
				_, err := c.Call(ctx, "test", []any{llm.NewTextMessage("assistant", "prior")}, Options{
					Observer: observer,
					NoThink:  true,
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(opener.lastReq.Messages[0].GetText()).To(Equal("prior"))
			})
		})

		Context("cooperative cancellation", func() {
			It("raises before the first chunk when the flag is already set", func() {
				opener.stream.chunks = []*llm.StreamChunk{contentChunk("never seen")}
				flag := NewStopFlag()
				flag.Stop()

				mon := &recordingMonitor{}
				c := New(opener, nil)
				result, err := c.Call(ctx, "test", userMessages("hi"), Options{
					Observer: observer,
					Monitor:  mon,
					Stop:     flag,
				})

				Expect(errors.Is(err, llm.ErrInterrupted)).To(BeTrue())
				Expect(result).To(BeNil())
				Expect(observer.tokens).To(BeEmpty())
				Expect(observer.reasoning).To(BeEmpty())
				Expect(observer.flushes).To(BeZero())
				Expect(opener.stream.recvCount).To(BeZero())
				Expect(mon.events).To(ContainElement(monitor.EventModelStopped))
			})

			It("stops consuming chunks once the flag is observed mid-stream", func() {
				flag := NewStopFlag()
				opener.stream.chunks = []*llm.StreamChunk{
					contentChunk("one"),
					contentChunk("two"),
					contentChunk("three"),
				}
				opener.stream.onRecv = func(n int) {
					if n == 2 {
						flag.Stop()
					}
				}

				c := New(opener, nil)
				_, err := c.Call(ctx, "test", userMessages("hi"), Options{
					Observer: observer,
					Stop:     flag,
				})

				Expect(errors.Is(err, llm.ErrInterrupted)).To(BeTrue())
				// Tokens forwarded before the flag was observed are not retracted.
				Expect(observer.tokens).To(Equal([]string{"one", "two"}))
				Expect(opener.stream.recvCount).To(Equal(2))
			})
		})

		Context("monitoring", func() {
			It("emits started and finished events on success", func() {
				opener.stream.chunks = []*llm.StreamChunk{
					contentChunk("hi"),
					{Usage: &llm.Usage{PromptTokens: 3, CompletionTokens: 7, TotalTokens: 10}},
				}

				mon := &recordingMonitor{}
				c := New(opener, nil)
				_, err := c.Call(ctx, "test", userMessages("hi"), Options{
					Observer: observer,
					Monitor:  mon,
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(mon.events).To(Equal([]string{
					monitor.EventCompletionStarted,
					monitor.EventCompletionFinished,
				}))
				finished := mon.attrs[1]
				Expect(finished["input_tokens"]).To(Equal(3))
				Expect(finished["output_tokens"]).To(Equal(7))
			})

			It("emits a context-length event when the provider rejects the input", func() {
				opener.openErr = llm.ContextLengthError{Model: "test"}

				mon := &recordingMonitor{}
				c := New(opener, nil)
				_, err := c.Call(ctx, "test", userMessages("hi"), Options{
					Observer: observer,
					Monitor:  mon,
				})

				var ctxErr llm.ContextLengthError
				Expect(errors.As(err, &ctxErr)).To(BeTrue())
				Expect(mon.events).To(ContainElement(monitor.EventContextLengthExceeded))
				Expect(mon.events).NotTo(ContainElement(monitor.EventErrorOccurred))
			})

			It("emits error_occurred and wraps untyped stream failures", func() {
				opener.stream.chunks = []*llm.StreamChunk{contentChunk("partial")}
				opener.stream.err = errors.New("connection reset")

				mon := &recordingMonitor{}
				c := New(opener, nil)
				result, err := c.Call(ctx, "test", userMessages("hi"), Options{
					Observer: observer,
					Monitor:  mon,
				})

				Expect(result).To(BeNil())
				var transportErr llm.TransportError
				Expect(errors.As(err, &transportErr)).To(BeTrue())
				Expect(mon.events).To(ContainElement(monitor.EventErrorOccurred))
				// No flush on failure paths.
				Expect(observer.flushes).To(BeZero())
			})
		})

		Context("token tracking", func() {
			It("records the first token exactly once, whether content or reasoning", func() {
				opener.stream.chunks = []*llm.StreamChunk{
					reasoningChunk("thinking"),
					contentChunk("answer"),
					{Usage: &llm.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}},
				}

				tracker := &recordingTracker{}
				c := New(opener, nil)
				_, err := c.Call(ctx, "test", userMessages("hi"), Options{
					Observer: observer,
					Tracker:  tracker,
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(tracker.firstTokens).To(Equal(1))
				Expect(tracker.tokens).To(Equal([]string{"answer"}))
				Expect(tracker.completions).To(Equal([][2]int{{1, 2}}))
			})

			It("skips empty deltas entirely", func() {
				opener.stream.chunks = []*llm.StreamChunk{
					{Delta: llm.Delta{Content: strptr("")}},
					contentChunk("real"),
				}

				tracker := &recordingTracker{}
				c := New(opener, nil)
				_, err := c.Call(ctx, "test", userMessages("hi"), Options{
					Observer: observer,
					Tracker:  tracker,
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(observer.tokens).To(Equal([]string{"real"}))
				Expect(tracker.firstTokens).To(Equal(1))
			})
		})
	})
})
