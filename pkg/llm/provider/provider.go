// Package provider defines the interface between the stream-processing core
// and LLM provider endpoints. A provider owns HTTP transport, timeouts, and
// wire-format translation; the core treats the call as an opaque lazy
// sequence of normalized chunks.
package provider

import (
	"context"
	"errors"

	"github.com/spoolhq/spool/pkg/llm"
)

// ErrStreamClosed is returned by Recv after Close has been called.
var ErrStreamClosed = errors.New("stream closed")

// ChunkStream is a lazily produced sequence of streaming chunks. Recv blocks
// until the next chunk arrives and returns io.EOF once the stream is
// exhausted. Chunks are yielded strictly in arrival order.
type ChunkStream interface {
	Recv() (*llm.StreamChunk, error)

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// Opener opens streaming completion calls against a provider endpoint.
type Opener interface {
	// Name returns the canonical provider name (e.g., "openai").
	Name() string

	// OpenStream starts a streaming completion call. Transport failures and
	// provider rejections surface as llm.TransportError or
	// llm.ContextLengthError.
	OpenStream(ctx context.Context, req *llm.ChatRequest) (ChunkStream, error)
}
