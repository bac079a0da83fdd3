// Package sqlite provides a SQLite-backed model configuration resolver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spoolhq/spool/pkg/modelcfg"
)

// Resolver implements modelcfg.Resolver using SQLite.
type Resolver struct {
	db *sql.DB
}

// NewResolver creates a SQLite-backed resolver.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewResolver(dbPath string) (*Resolver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r := &Resolver{db: db}

	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return r, nil
}

// migrate creates the necessary tables if they don't exist.
func (r *Resolver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS model_configs (
		model_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL DEFAULT '',
		base_url TEXT NOT NULL,
		api_key TEXT NOT NULL DEFAULT '',
		model_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (model_id, tenant_id)
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Put stores or replaces the configuration for (modelID, tenantID).
func (r *Resolver) Put(ctx context.Context, modelID, tenantID string, cfg modelcfg.ModelConfig) error {
	query := `INSERT OR REPLACE INTO model_configs (model_id, tenant_id, base_url, api_key, model_name)
	VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, modelID, tenantID, cfg.BaseURL, cfg.APIKey, cfg.ModelName)
	if err != nil {
		return fmt.Errorf("failed to insert model config: %w", err)
	}

	return nil
}

// Lookup returns the tenant-scoped entry if present, falling back to the
// global entry. A missing entry yields (nil, nil).
func (r *Resolver) Lookup(ctx context.Context, modelID, tenantID string) (*modelcfg.ModelConfig, error) {
	// Tenant-scoped rows sort before the global row; one query serves both.
	query := `SELECT base_url, api_key, model_name FROM model_configs
	WHERE model_id = ? AND tenant_id IN (?, '')
	ORDER BY tenant_id DESC LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, modelID, tenantID)

	var cfg modelcfg.ModelConfig
	err := row.Scan(&cfg.BaseURL, &cfg.APIKey, &cfg.ModelName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan model config: %w", err)
	}

	return &cfg, nil
}

// Close closes the database connection.
func (r *Resolver) Close() error {
	return r.db.Close()
}
