// Package transcript persists completed streaming calls for diagnostics:
// the prompt messages, the aggregated reply, the raw reasoning, usage
// counters, and timing. Storage backends implement Driver; recording runs
// through the worker subpackage so the streaming hot path never blocks on
// a database write.
package transcript

import (
	"context"
	"time"

	"github.com/spoolhq/spool/pkg/llm"
)

// Record is one persisted call: the request side, the aggregated reply,
// and the telemetry captured alongside it.
type Record struct {
	ID       string `json:"id"`
	Model    string `json:"model"`
	TenantID string `json:"tenant_id,omitempty"`

	Messages  []llm.Message `json:"messages"`
	Reply     llm.Message   `json:"reply"`
	Reasoning string        `json:"reasoning,omitempty"`

	Usage       *llm.Usage `json:"usage,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// NewRecord builds a Record from a completed call's inputs and result.
func NewRecord(id, model, tenantID string, messages []llm.Message, result *llm.AggregatedResult) *Record {
	return &Record{
		ID:          id,
		Model:       model,
		TenantID:    tenantID,
		Messages:    messages,
		Reply:       result.Message,
		Reasoning:   result.Reasoning,
		Usage:       result.Usage,
		StartedAt:   result.StartedAt,
		CompletedAt: result.CompletedAt,
	}
}

// Driver defines the interface for persisting and retrieving call records.
// Implementations live in the inmemory, sqlite, and postgres subpackages.
type Driver interface {
	// Put stores a record. Storing the same ID twice replaces the record.
	Put(ctx context.Context, rec *Record) error

	// Get retrieves a record by ID. A missing record yields ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns all records, most recent first.
	List(ctx context.Context) ([]*Record, error)

	// Close closes the store and releases any resources.
	Close() error
}
