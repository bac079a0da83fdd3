// Package kafkamon publishes call lifecycle events to a Kafka topic so
// external consumers can aggregate completion telemetry. Publishing is
// fire-and-forget: a broker failure is logged, never surfaced to the
// streaming hot path.
package kafkamon

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/spoolhq/spool/pkg/monitor"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// eventTypePrefix namespaces event names on the wire.
	eventTypePrefix = "spool.call."
)

// Envelope is the transport-neutral payload written to the topic.
type Envelope struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	Source        string        `json:"source,omitempty"`
	Attrs         monitor.Attrs `json:"attrs,omitempty"`
	Summary       monitor.Attrs `json:"summary,omitempty"`
}

// Monitor implements the monitor interface over a kafka writer.
type Monitor struct {
	writer *kafka.Writer
	logger *zap.Logger
	source string

	mu    sync.Mutex
	attrs monitor.Attrs
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSource tags every envelope with an originating service name.
func WithSource(source string) Option {
	return func(m *Monitor) {
		m.source = source
	}
}

// NewMonitor creates a Kafka-backed monitor writing to the given topic.
func NewMonitor(brokers []string, topic string, logger *zap.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
			// The hot path must never block on a slow broker.
			Async:        true,
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
		attrs:  make(monitor.Attrs),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.writer.Completion = func(messages []kafka.Message, err error) {
		if err != nil {
			m.logger.Warn("failed to publish monitor events",
				zap.Error(err),
				zap.Int("count", len(messages)),
			)
		}
	}

	return m
}

// AddEvent publishes the event envelope with a snapshot of the summary
// attributes accumulated so far.
func (m *Monitor) AddEvent(name string, attrs monitor.Attrs) {
	m.mu.Lock()
	summary := make(monitor.Attrs, len(m.attrs))
	for k, v := range m.attrs {
		summary[k] = v
	}
	m.mu.Unlock()

	envelope := Envelope{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventTypePrefix + name,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        m.source,
		Attrs:         attrs,
		Summary:       summary,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		m.logger.Warn("failed to marshal monitor event", zap.Error(err), zap.String("event", name))
		return
	}

	err = m.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(name),
		Value: payload,
	})
	if err != nil {
		m.logger.Warn("failed to enqueue monitor event", zap.Error(err), zap.String("event", name))
	}
}

// SetAttributes merges attrs into the call's summary attributes.
func (m *Monitor) SetAttributes(attrs monitor.Attrs) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range attrs {
		m.attrs[k] = v
	}
}

// Close flushes buffered events and releases the writer.
func (m *Monitor) Close() error {
	return m.writer.Close()
}
