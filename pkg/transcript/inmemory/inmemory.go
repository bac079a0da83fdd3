// Package inmemory provides an in-memory transcript driver, used in tests
// and when no storage backend is configured.
package inmemory

import (
	"context"
	"sync"

	"github.com/spoolhq/spool/pkg/transcript"
)

// Driver implements transcript.Driver with an in-process map.
type Driver struct {
	mu      sync.RWMutex
	records map[string]*transcript.Record
	order   []string
}

// NewDriver creates an empty in-memory store.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*transcript.Record),
	}
}

// Put stores a record, replacing any existing record with the same ID.
func (d *Driver) Put(_ context.Context, rec *transcript.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.records[rec.ID]; !exists {
		d.order = append(d.order, rec.ID)
	}
	d.records[rec.ID] = rec

	return nil
}

// Get retrieves a record by ID.
func (d *Driver) Get(_ context.Context, id string) (*transcript.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[id]
	if !ok {
		return nil, transcript.ErrNotFound{ID: id}
	}

	return rec, nil
}

// List returns all records, most recent first.
func (d *Driver) List(_ context.Context) ([]*transcript.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*transcript.Record, 0, len(d.order))
	for i := len(d.order) - 1; i >= 0; i-- {
		out = append(out, d.records[d.order[i]])
	}

	return out, nil
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}
