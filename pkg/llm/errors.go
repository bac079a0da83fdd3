package llm

import (
	"errors"
	"strings"
)

// ErrInterrupted is returned when the cooperative stop flag is observed
// mid-stream. No partial result accompanies it.
var ErrInterrupted = errors.New("stream interrupted")

// InvalidMessageError is returned when a message cannot be normalized:
// a mapping missing role or content, or an unsupported value type.
// It is always raised before any network call is made.
type InvalidMessageError struct {
	Reason string
}

func (e InvalidMessageError) Error() string {
	if e.Reason == "" {
		return "invalid message"
	}

	return "invalid message: " + e.Reason
}

// ContextLengthError is returned when the provider rejects a call because
// the input exceeds the model's context window. Callers may shrink their
// input and retry.
type ContextLengthError struct {
	Model string
	Cause error
}

func (e ContextLengthError) Error() string {
	if e.Model == "" {
		return "context length exceeded"
	}

	return "context length exceeded for model " + e.Model
}

func (e ContextLengthError) Unwrap() error { return e.Cause }

// TransportError wraps any other failure surfaced by the streaming call.
// Retry and backoff policy belong to the caller.
type TransportError struct {
	Cause error
}

func (e TransportError) Error() string {
	if e.Cause == nil {
		return "transport error"
	}

	return "transport error: " + e.Cause.Error()
}

func (e TransportError) Unwrap() error { return e.Cause }

// contextLengthMarker is the substring providers embed in error bodies when
// the prompt does not fit the model's context window.
const contextLengthMarker = "context length"

// IsContextLengthMessage reports whether a provider error message indicates
// a context-window overflow.
func IsContextLengthMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), contextLengthMarker)
}
