// Package sqlite provides a SQLite-backed transcript driver. Message
// payloads are stored as JSON; the queryable columns are the ones the CLI
// filters on.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spoolhq/spool/pkg/llm"
	"github.com/spoolhq/spool/pkg/transcript"
)

// Driver implements transcript.Driver using SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a SQLite-backed transcript store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Driver{db: db}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		tenant_id TEXT NOT NULL DEFAULT '',
		messages TEXT NOT NULL,
		reply TEXT NOT NULL,
		reasoning TEXT NOT NULL DEFAULT '',
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_started_at ON transcripts(started_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Put stores a record, replacing any existing record with the same ID.
func (d *Driver) Put(ctx context.Context, rec *transcript.Record) error {
	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	reply, err := json.Marshal(rec.Reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	var promptTokens, completionTokens, totalTokens int
	if rec.Usage != nil {
		promptTokens = rec.Usage.PromptTokens
		completionTokens = rec.Usage.CompletionTokens
		totalTokens = rec.Usage.TotalTokens
	}

	query := `INSERT OR REPLACE INTO transcripts
	(id, model, tenant_id, messages, reply, reasoning, prompt_tokens, completion_tokens, total_tokens, started_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = d.db.ExecContext(ctx, query,
		rec.ID, rec.Model, rec.TenantID, string(messages), string(reply), rec.Reasoning,
		promptTokens, completionTokens, totalTokens,
		rec.StartedAt.UTC(), rec.CompletedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert transcript: %w", err)
	}

	return nil
}

// Get retrieves a record by ID.
func (d *Driver) Get(ctx context.Context, id string) (*transcript.Record, error) {
	query := `SELECT id, model, tenant_id, messages, reply, reasoning,
	prompt_tokens, completion_tokens, total_tokens, started_at, completed_at
	FROM transcripts WHERE id = ?`

	rec, err := scanRecord(d.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transcript.ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// List returns all records, most recent first.
func (d *Driver) List(ctx context.Context) ([]*transcript.Record, error) {
	query := `SELECT id, model, tenant_id, messages, reply, reasoning,
	prompt_tokens, completion_tokens, total_tokens, started_at, completed_at
	FROM transcripts ORDER BY started_at DESC, id DESC`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var out []*transcript.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*transcript.Record, error) {
	var (
		rec       transcript.Record
		messages  string
		reply     string
		usage     llm.Usage
		startedAt time.Time
		completed time.Time
	)

	err := row.Scan(&rec.ID, &rec.Model, &rec.TenantID, &messages, &reply, &rec.Reasoning,
		&usage.PromptTokens, &usage.CompletionTokens, &usage.TotalTokens,
		&startedAt, &completed)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messages), &rec.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	if err := json.Unmarshal([]byte(reply), &rec.Reply); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reply: %w", err)
	}

	if usage != (llm.Usage{}) {
		rec.Usage = &usage
	}
	rec.StartedAt = startedAt
	rec.CompletedAt = completed

	return &rec, nil
}
