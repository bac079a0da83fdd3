// Package track records per-call token and latency telemetry for streaming
// completion calls: time to first token, per-token throughput, and the
// final provider-reported counts.
package track

import (
	"sync"
	"time"
)

// Tracker receives token lifecycle events from a streaming call. All
// methods are invoked from the call's single consuming goroutine, in
// arrival order.
type Tracker interface {
	// RecordFirstToken marks the arrival of the first token (content or
	// reasoning) of the call.
	RecordFirstToken()

	// RecordToken records one visible content token.
	RecordToken(text string)

	// RecordCompletion records the provider-reported token counts once the
	// call finishes.
	RecordCompletion(inputTokens, outputTokens int)
}

// Timing is a Tracker that captures wall-clock telemetry. Reads are safe
// while a call is still in flight.
type Timing struct {
	mu sync.Mutex

	startedAt    time.Time
	firstTokenAt time.Time
	lastTokenAt  time.Time

	tokenCount   int
	charCount    int
	inputTokens  int
	outputTokens int
}

// NewTiming creates a Timing tracker with the call clock started now.
func NewTiming() *Timing {
	return &Timing{startedAt: time.Now()}
}

func (t *Timing) RecordFirstToken() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.firstTokenAt.IsZero() {
		t.firstTokenAt = time.Now()
	}
}

func (t *Timing) RecordToken(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tokenCount++
	t.charCount += len(text)
	t.lastTokenAt = time.Now()
}

func (t *Timing) RecordCompletion(inputTokens, outputTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inputTokens = inputTokens
	t.outputTokens = outputTokens
}

// FirstTokenLatency returns the delay between call start and the first
// token, or 0 if no token has arrived.
func (t *Timing) FirstTokenLatency() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.firstTokenAt.IsZero() {
		return 0
	}

	return t.firstTokenAt.Sub(t.startedAt)
}

// Elapsed returns the time since the call started.
func (t *Timing) Elapsed() time.Duration {
	return time.Since(t.startedAt)
}

// TokenCount returns the number of content tokens recorded so far.
func (t *Timing) TokenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.tokenCount
}

// Counts returns the provider-reported input and output token counts.
func (t *Timing) Counts() (input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.inputTokens, t.outputTokens
}

// TokensPerSecond returns content-token throughput measured from the first
// token to the last, or 0 if fewer than two tokens arrived.
func (t *Timing) TokensPerSecond() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tokenCount < 2 {
		return 0
	}

	window := t.lastTokenAt.Sub(t.firstTokenAt).Seconds()
	if window <= 0 {
		return 0
	}

	return float64(t.tokenCount-1) / window
}
