package llm

// NormalizeMessages converts a heterogeneous message list into typed
// Messages. Already-typed messages pass through unchanged. Plain mappings
// (as produced by decoding client JSON) must carry both "role" and
// "content"; anything else fails with InvalidMessageError before any
// network call is made.
func NormalizeMessages(in []any) ([]Message, error) {
	out := make([]Message, 0, len(in))

	for _, item := range in {
		switch v := item.(type) {
		case Message:
			out = append(out, v)
		case *Message:
			if v == nil {
				return nil, InvalidMessageError{Reason: "nil message"}
			}
			out = append(out, *v)
		case map[string]any:
			msg, err := normalizeMapping(v)
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
		default:
			return nil, InvalidMessageError{Reason: "unsupported message type"}
		}
	}

	return out, nil
}

func normalizeMapping(m map[string]any) (Message, error) {
	role, ok := m["role"].(string)
	if !ok || role == "" {
		return Message{}, InvalidMessageError{Reason: "missing role"}
	}

	content, ok := m["content"]
	if !ok {
		return Message{}, InvalidMessageError{Reason: "missing content"}
	}

	switch c := content.(type) {
	case string:
		return NewTextMessage(role, c), nil
	case []any:
		msg := Message{Role: role}
		for _, part := range c {
			block, ok := part.(map[string]any)
			if !ok {
				return Message{}, InvalidMessageError{Reason: "unsupported content part"}
			}
			cb := ContentBlock{}
			if t, ok := block["type"].(string); ok {
				cb.Type = t
			}
			if text, ok := block["text"].(string); ok {
				cb.Text = text
			}
			if url, ok := block["image_url"].(string); ok {
				cb.Type = "image"
				cb.ImageURL = url
			}
			msg.Content = append(msg.Content, cb)
		}
		return msg, nil
	default:
		return Message{}, InvalidMessageError{Reason: "missing content"}
	}
}
