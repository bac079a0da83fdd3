// Package nop provides a no-op monitor used for tests and disabled mode.
package nop

import "github.com/spoolhq/spool/pkg/monitor"

// Monitor discards all events and attributes.
type Monitor struct{}

// NewMonitor creates a new no-op monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// AddEvent does nothing.
func (m *Monitor) AddEvent(_ string, _ monitor.Attrs) {}

// SetAttributes does nothing.
func (m *Monitor) SetAttributes(_ monitor.Attrs) {}
