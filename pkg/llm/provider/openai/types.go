package openai

// openaiRequest is the wire format for an OpenAI-compatible chat completion
// request.
type openaiRequest struct {
	Model         string          `json:"model"`
	Messages      []openaiMessage `json:"messages"`
	Stream        bool            `json:"stream"`
	StreamOptions *streamOptions  `json:"stream_options,omitempty"`
	MaxTokens     *int            `json:"max_tokens,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	Stop          []string        `json:"stop,omitempty"`
}

// streamOptions asks the provider to attach usage to the terminal chunk.
type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// openaiMessage is a single wire-format message. Content is a string for
// text-only messages or an array of parts for multimodal content.
type openaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// openaiContentPart is one element of a multimodal content array.
type openaiContentPart struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	ImageURL *openaiImagePart `json:"image_url,omitempty"`
}

type openaiImagePart struct {
	URL string `json:"url"`
}

// openaiStreamChunk is one parsed "data:" payload of the SSE response.
type openaiStreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   *openaiUsage   `json:"usage,omitempty"`
}

type openaiChoice struct {
	Index        int         `json:"index"`
	Delta        openaiDelta `json:"delta"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// openaiDelta mirrors the provider's incremental payload. Content and
// ReasoningContent stay pointers so absent fields are distinguishable from
// empty-string tokens.
type openaiDelta struct {
	Role             string  `json:"role,omitempty"`
	Content          *string `json:"content,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// openaiError is the provider's error envelope.
type openaiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}
