package llm

import "time"

// Delta carries the incremental payload of one streaming chunk. Content and
// ReasoningContent are independent optional channels: a provider may emit
// either, both, or neither on a given chunk. nil means the field was absent
// from the wire payload, which is distinct from an empty string token.
type Delta struct {
	Content          *string `json:"content,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
	Role             string  `json:"role,omitempty"`
}

// StreamChunk represents a single chunk in a streaming chat-completion
// response, already normalized from the provider's wire format.
type StreamChunk struct {
	// Model that generated the chunk
	Model string `json:"model"`

	// Chunk timestamp
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Incremental payload
	Delta Delta `json:"delta"`

	// Stop reason (only present on the final chunk)
	StopReason string `json:"stop_reason,omitempty"`

	// Usage metrics. Providers attach these only to the terminal chunk.
	Usage *Usage `json:"usage,omitempty"`
}

// HasContent reports whether the chunk carries a content token, including
// the empty-string token.
func (c *StreamChunk) HasContent() bool {
	return c.Delta.Content != nil
}

// HasReasoning reports whether the chunk carries a reasoning token.
func (c *StreamChunk) HasReasoning() bool {
	return c.Delta.ReasoningContent != nil
}
