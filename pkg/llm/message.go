package llm

// Message represents a single message in a conversation.
// Content is stored as an array of ContentBlocks so that callers holding
// multi-part content (text plus attachments) can pass through unchanged,
// while plain text still round-trips via NewTextMessage/GetText.
type Message struct {
	Role    string         `json:"role"`    // "system", "user", "assistant"
	Content []ContentBlock `json:"content"` // Array of content blocks
}

// ContentBlock represents a single piece of content within a message.
// The Type field determines which other fields are populated.
type ContentBlock struct {
	Type string `json:"type"` // "text", "image"

	// Text content (type="text")
	Text string `json:"text,omitempty"`

	// Image content (type="image")
	ImageURL  string `json:"image_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{Type: "text", Text: text},
		},
	}
}

// GetText returns the concatenated text content from all text blocks in the message.
// This is a convenience method for simple text-only messages.
func (m *Message) GetText() string {
	var result string
	for _, block := range m.Content {
		if block.Type == "text" {
			result += block.Text
		}
	}
	return result
}

// AppendText appends text to the message's last text block, or adds a new
// text block if the message has none. The stream client uses this to attach
// the no-think directive to the trailing user message in place.
func (m *Message) AppendText(text string) {
	for i := len(m.Content) - 1; i >= 0; i-- {
		if m.Content[i].Type == "text" {
			m.Content[i].Text += text
			return
		}
	}
	m.Content = append(m.Content, ContentBlock{Type: "text", Text: text})
}
