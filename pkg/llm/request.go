package llm

// ChatRequest represents a provider-agnostic chat completion request.
// Provider implementations translate this into their wire format.
type ChatRequest struct {
	// Model name (e.g., "gpt-4", "qwen3:32b")
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// Whether to stream the response
	Stream bool `json:"stream"`

	// Generation parameters
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}
