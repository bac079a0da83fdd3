// Package logmon implements the monitor interface on top of a zap logger,
// turning call lifecycle events into structured log lines.
package logmon

import (
	"sync"

	"go.uber.org/zap"

	"github.com/spoolhq/spool/pkg/monitor"
)

// Monitor logs events and accumulates summary attributes per call.
type Monitor struct {
	logger *zap.Logger

	mu    sync.Mutex
	attrs monitor.Attrs
}

// NewMonitor creates a log-backed monitor.
func NewMonitor(logger *zap.Logger) *Monitor {
	return &Monitor{
		logger: logger,
		attrs:  make(monitor.Attrs),
	}
}

// AddEvent logs the event together with any accumulated summary attributes.
func (m *Monitor) AddEvent(name string, attrs monitor.Attrs) {
	fields := make([]zap.Field, 0, len(attrs)+1)
	for k, v := range attrs {
		fields = append(fields, zap.Any(k, v))
	}

	m.mu.Lock()
	if len(m.attrs) > 0 {
		fields = append(fields, zap.Any("summary", m.attrs))
	}
	m.mu.Unlock()

	m.logger.Info(name, fields...)
}

// SetAttributes merges attrs into the call's summary attributes.
func (m *Monitor) SetAttributes(attrs monitor.Attrs) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range attrs {
		m.attrs[k] = v
	}
}
