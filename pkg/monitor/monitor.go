// Package monitor defines the monitoring collaborator for streaming
// completion calls: named lifecycle events plus free-form summary
// attributes. Implementations live in the nop, logmon, and kafkamon
// subpackages.
package monitor

// Event names emitted by the stream client.
const (
	// EventCompletionStarted is emitted before the first chunk is consumed.
	EventCompletionStarted = "completion_started"

	// EventCompletionFinished is emitted on successful completion, with
	// token and elapsed-time attributes.
	EventCompletionFinished = "completion_finished"

	// EventModelStopped is emitted when the cooperative stop flag
	// interrupts the call.
	EventModelStopped = "model_stopped"

	// EventErrorOccurred is emitted on any failure path before the error
	// is re-raised to the caller.
	EventErrorOccurred = "error_occurred"

	// EventContextLengthExceeded is emitted instead of EventErrorOccurred
	// when the provider rejects the call for context-window overflow.
	EventContextLengthExceeded = "context_length_exceeded"
)

// Attrs is a free-form attribute set attached to events and summaries.
type Attrs map[string]any

// Monitor receives call lifecycle telemetry. Implementations must not
// block the streaming hot path; slow sinks should buffer or drop.
type Monitor interface {
	// AddEvent records a named event with optional attributes.
	AddEvent(name string, attrs Attrs)

	// SetAttributes attaches summary attributes to the in-flight call.
	SetAttributes(attrs Attrs)
}
