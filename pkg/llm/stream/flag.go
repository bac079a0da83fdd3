package stream

import "sync/atomic"

// StopFlag is a shared cooperative cancellation flag. Any goroutine may set
// it; the stream client polls it once per chunk boundary and aborts the
// call with llm.ErrInterrupted when it is observed. The flag never
// preempts an in-flight network read — that is the transport's job.
type StopFlag struct {
	flag atomic.Bool
}

// NewStopFlag creates an unset flag.
func NewStopFlag() *StopFlag {
	return &StopFlag{}
}

// Stop requests cancellation of the call(s) sharing this flag.
func (s *StopFlag) Stop() {
	s.flag.Store(true)
}

// Stopped reports whether cancellation has been requested.
func (s *StopFlag) Stopped() bool {
	return s.flag.Load()
}

// Reset clears the flag so the handle can be reused for a new call.
func (s *StopFlag) Reset() {
	s.flag.Store(false)
}
