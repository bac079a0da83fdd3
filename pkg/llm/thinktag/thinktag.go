// Package thinktag removes provider-emitted <think>...</think> reasoning
// spans from a stream of text fragments. The filter is a pure incremental
// state machine: it assumes nothing about where chunk boundaries fall, so a
// sentinel marker may arrive whole, split across two fragments, or split
// across an arbitrary number of successive calls.
package thinktag

import "strings"

const (
	// StartTag opens a thinking span.
	StartTag = "<think>"

	// EndTag closes a thinking span.
	EndTag = "</think>"
)

// Sink receives the full joined visible buffer after every mutation:
// each append, and the defensive clear (which notifies with "").
type Sink func(visible string)

// Filter strips thinking spans from a fragment sequence. The zero value is
// ready to use and starts outside a thinking span. A Filter is scoped to a
// single call and is not safe for concurrent use.
type Filter struct {
	thinking bool
	buffer   []string

	// pending holds a trailing partial marker carried over to the next
	// fragment so that a tag split across chunk boundaries is still caught.
	pending string
}

// NewFilter returns a Filter with is_thinking=false and an empty buffer.
func NewFilter() *Filter {
	return &Filter{}
}

// Thinking reports whether the filter is currently inside a thinking span.
func (f *Filter) Thinking() bool {
	return f.thinking
}

// Output returns the cumulative visible text buffered so far.
func (f *Filter) Output() string {
	return strings.Join(f.buffer, "")
}

// Process consumes one fragment and returns the updated thinking state.
//
// Markers are consumed left to right, with END handled before START
// whenever it comes first: a fragment carrying a complete end-then-start
// round trip degrades correctly in one pass. An END arriving while outside
// a thinking span is out-of-order input: the entire visible buffer is
// cleared and the sink (if any) observes an empty-string notification
// before output resumes. Text preceding a START marker in the same
// fragment is discarded along with the marker.
func (f *Filter) Process(fragment string, sink Sink) bool {
	work := f.pending + fragment
	f.pending = ""

	for {
		idxEnd := strings.Index(work, EndTag)

		if f.thinking {
			if idxEnd < 0 {
				// Still inside the span: suppress everything, but hold a
				// trailing partial END so a marker split across fragments
				// still terminates the span.
				f.pending = partialMarkerSuffix(work)
				return true
			}
			work = work[idxEnd+len(EndTag):]
			f.thinking = false
			continue
		}

		idxStart := strings.Index(work, StartTag)

		if idxEnd >= 0 && (idxStart < 0 || idxEnd < idxStart) {
			// An END with no matching START: defensive reset. Everything
			// buffered so far is retracted before output resumes.
			f.buffer = f.buffer[:0]
			if sink != nil {
				sink("")
			}
			work = work[idxEnd+len(EndTag):]
			continue
		}

		if idxStart >= 0 {
			// The prefix before the marker is discarded along with it.
			work = work[idxStart+len(StartTag):]
			f.thinking = true
			continue
		}

		break
	}

	// Hold back a trailing partial marker; emit the rest.
	hold := partialMarkerSuffix(work)
	emit := work[:len(work)-len(hold)]
	f.pending = hold

	if emit != "" {
		f.append(emit, sink)
	}

	return false
}

// Flush drains any held-back partial marker into the visible buffer and
// returns the final output. Call once at end of stream: a trailing "<" that
// never became a marker is ordinary text.
func (f *Filter) Flush(sink Sink) string {
	if f.pending != "" && !f.thinking {
		f.append(f.pending, sink)
	}
	f.pending = ""

	return f.Output()
}

func (f *Filter) append(text string, sink Sink) {
	f.buffer = append(f.buffer, text)
	if sink != nil {
		sink(f.Output())
	}
}

// partialMarkerSuffix returns the longest non-empty suffix of s that is a
// proper prefix of StartTag or EndTag, or "" if there is none. The result
// is bounded by len(EndTag)-1 bytes.
func partialMarkerSuffix(s string) string {
	maxLen := len(EndTag) - 1
	if len(s) < maxLen {
		maxLen = len(s)
	}

	for l := maxLen; l > 0; l-- {
		suffix := s[len(s)-l:]
		if strings.HasPrefix(StartTag, suffix) || strings.HasPrefix(EndTag, suffix) {
			return suffix
		}
	}

	return ""
}
