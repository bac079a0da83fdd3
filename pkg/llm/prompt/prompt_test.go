package prompt

import (
	"context"
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spoolhq/spool/pkg/llm"
	"github.com/spoolhq/spool/pkg/llm/provider"
	"github.com/spoolhq/spool/pkg/modelcfg"
	"github.com/spoolhq/spool/pkg/modelcfg/inmemory"
)

type scriptedStream struct {
	chunks []*llm.StreamChunk
	pos    int
	err    error
}

func (s *scriptedStream) Recv() (*llm.StreamChunk, error) {
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *scriptedStream) Close() error { return nil }

type scriptedOpener struct {
	stream  *scriptedStream
	openErr error
	lastReq *llm.ChatRequest
	lastCfg modelcfg.ModelConfig
}

func (o *scriptedOpener) Name() string { return "scripted" }

func (o *scriptedOpener) OpenStream(_ context.Context, req *llm.ChatRequest) (provider.ChunkStream, error) {
	o.lastReq = req
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.stream, nil
}

func textChunks(fragments ...string) []*llm.StreamChunk {
	out := make([]*llm.StreamChunk, len(fragments))
	for i := range fragments {
		f := fragments[i]
		out[i] = &llm.StreamChunk{Delta: llm.Delta{Content: &f}}
	}
	return out
}

var _ = Describe("Generator", func() {
	var (
		opener *scriptedOpener
		gen    *Generator
		ctx    context.Context
	)

	newGenerator := func(resolver modelcfg.Resolver) *Generator {
		return New(resolver, WithOpener(func(cfg modelcfg.ModelConfig) provider.Opener {
			opener.lastCfg = cfg
			return opener
		}))
	}

	BeforeEach(func() {
		opener = &scriptedOpener{stream: &scriptedStream{}}
		gen = newGenerator(nil)
		ctx = context.Background()
	})

	It("filters thinking spans out of the streamed content", func() {
		opener.stream.chunks = textChunks("Hello ", "<think>", "secret", "</think>", "World")

		out, err := gen.Generate(ctx, "test", "", "system", "user", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Hello World"))
	})

	It("handles markers split across chunk boundaries", func() {
		opener.stream.chunks = textChunks("A<thi", "nk>hidden</th", "ink>B")

		out, err := gen.Generate(ctx, "test", "", "system", "user", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("AB"))
	})

	It("sends a two-message payload with fixed generation parameters", func() {
		opener.stream.chunks = textChunks("ok")

		_, err := gen.Generate(ctx, "test", "", "be brief", "summarize", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(opener.lastReq.Messages).To(HaveLen(2))
		Expect(opener.lastReq.Messages[0].Role).To(Equal("system"))
		Expect(opener.lastReq.Messages[0].GetText()).To(Equal("be brief"))
		Expect(opener.lastReq.Messages[1].Role).To(Equal("user"))
		Expect(opener.lastReq.Messages[1].GetText()).To(Equal("summarize"))
		Expect(opener.lastReq.Stream).To(BeTrue())
		Expect(*opener.lastReq.Temperature).To(Equal(0.3))
		Expect(*opener.lastReq.TopP).To(Equal(0.95))
	})

	It("reports visible progress as the output grows", func() {
		opener.stream.chunks = textChunks("<think>plan</think>", "Step one. ", "Step two.")

		var progress []string
		out, err := gen.Generate(ctx, "test", "", "system", "user", func(visible string) {
			progress = append(progress, visible)
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Step one. Step two."))
		Expect(progress).To(Equal([]string{"Step one. ", "Step one. Step two."}))
	})

	It("returns empty output when the whole turn is a thinking span", func() {
		opener.stream.chunks = textChunks("<think>", "all hidden", "</think>")

		out, err := gen.Generate(ctx, "test", "", "system", "user", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeEmpty())
	})

	It("ignores reasoning deltas entirely", func() {
		reasoning := "<think>side channel"
		opener.stream.chunks = []*llm.StreamChunk{
			{Delta: llm.Delta{ReasoningContent: &reasoning}},
		}
		opener.stream.chunks = append(opener.stream.chunks, textChunks("answer")...)

		out, err := gen.Generate(ctx, "test", "", "system", "user", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("answer"))
	})

	Context("model configuration", func() {
		It("uses the resolved model name and connection parameters", func() {
			resolver := inmemory.NewFromEntries([]modelcfg.Entry{
				{
					ModelID: "alias",
					Config: modelcfg.ModelConfig{
						BaseURL:   "http://localhost:8000/v1",
						APIKey:    "sk-local",
						ModelName: "qwen3-8b",
					},
				},
			})
			gen = newGenerator(resolver)
			opener.stream.chunks = textChunks("ok")

			_, err := gen.Generate(ctx, "alias", "", "system", "user", nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(opener.lastCfg.BaseURL).To(Equal("http://localhost:8000/v1"))
			Expect(opener.lastCfg.APIKey).To(Equal("sk-local"))
			Expect(opener.lastReq.Model).To(Equal("qwen3-8b"))
		})

		It("degrades to empty parameters when no configuration exists", func() {
			gen = newGenerator(inmemory.NewResolver())
			opener.stream.chunks = textChunks("ok")

			_, err := gen.Generate(ctx, "unknown", "", "system", "user", nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(opener.lastCfg).To(Equal(modelcfg.ModelConfig{}))
			Expect(opener.lastReq.Model).To(Equal("unknown"))
		})
	})

	Context("failures", func() {
		It("propagates open errors unchanged", func() {
			opener.openErr = llm.ContextLengthError{Model: "test"}

			_, err := gen.Generate(ctx, "test", "", "system", "user", nil)

			var ctxErr llm.ContextLengthError
			Expect(errors.As(err, &ctxErr)).To(BeTrue())
		})

		It("propagates mid-stream errors unchanged", func() {
			opener.stream.chunks = textChunks("partial")
			opener.stream.err = llm.TransportError{Cause: errors.New("reset")}

			out, err := gen.Generate(ctx, "test", "", "system", "user", nil)

			Expect(out).To(BeEmpty())
			var transportErr llm.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
		})
	})
})
