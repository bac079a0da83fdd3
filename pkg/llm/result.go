package llm

import "time"

// AggregatedResult is the terminal value of one streaming call: the
// assembled assistant message plus the ordered raw chunk list retained for
// diagnostics. Raw preserves arrival order; nothing is deduplicated or
// reordered.
type AggregatedResult struct {
	// The assistant's assembled response message. Content is the
	// concatenation of every forwarded content delta; Reasoning is the
	// concatenation of every reasoning delta.
	Message   Message `json:"message"`
	Reasoning string  `json:"reasoning,omitempty"`

	// Raw retains every consumed chunk in arrival order.
	Raw []*StreamChunk `json:"raw,omitempty"`

	// Usage from the terminal chunk, or nil if no chunk carried usage.
	Usage *Usage `json:"usage,omitempty"`

	// Call timing
	StartedAt   time.Time `json:"started_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}
