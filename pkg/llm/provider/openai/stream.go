package openai

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spoolhq/spool/pkg/llm"
	"github.com/spoolhq/spool/pkg/llm/provider"
	"github.com/spoolhq/spool/pkg/sse"
)

// doneSentinel is OpenAI's end-of-stream marker.
const doneSentinel = "[DONE]"

// stream adapts an SSE response body into a ChunkStream.
type stream struct {
	resp   *http.Response
	reader *sse.Reader
	logger *zap.Logger
	closed bool
}

func newStream(resp *http.Response, logger *zap.Logger) *stream {
	return &stream{
		resp:   resp,
		reader: sse.NewReader(resp.Body),
		logger: logger,
	}
}

// Recv returns the next normalized chunk, io.EOF at end of stream, or a
// TransportError if the underlying read fails.
func (s *stream) Recv() (*llm.StreamChunk, error) {
	if s.closed {
		return nil, provider.ErrStreamClosed
	}

	for {
		ev, err := s.reader.Next()
		if err != nil {
			return nil, llm.TransportError{Cause: err}
		}
		if ev == nil {
			return nil, io.EOF
		}

		if ev.Data == doneSentinel {
			continue
		}

		var wire openaiStreamChunk
		if err := json.Unmarshal([]byte(ev.Data), &wire); err != nil {
			s.logger.Debug("skipping unparseable stream chunk",
				zap.Error(err),
				zap.String("data", ev.Data),
			)
			continue
		}

		return normalizeChunk(&wire), nil
	}
}

// Close releases the upstream connection.
func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	return s.resp.Body.Close()
}

// normalizeChunk maps the wire chunk to the internal representation. Usage
// is carried through only when the provider attached it, which happens on
// the terminal chunk.
func normalizeChunk(wire *openaiStreamChunk) *llm.StreamChunk {
	chunk := &llm.StreamChunk{
		Model: wire.Model,
	}

	if wire.Created > 0 {
		chunk.CreatedAt = time.Unix(wire.Created, 0)
	}

	if len(wire.Choices) > 0 {
		choice := wire.Choices[0]
		chunk.Delta = llm.Delta{
			Content:          choice.Delta.Content,
			ReasoningContent: choice.Delta.ReasoningContent,
			Role:             choice.Delta.Role,
		}
		chunk.StopReason = choice.FinishReason
	}

	if wire.Usage != nil {
		chunk.Usage = &llm.Usage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}

	return chunk
}
