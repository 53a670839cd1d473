package rulestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository reads rule rows from a local SQLite file, the default
// admin database per the configuration contract ("sqlite:data/app.sqlite").
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens path (a plain filesystem path, with the
// "sqlite:" scheme prefix already stripped by the caller).
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("rulestore: open sqlite: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// ListEnabledOrdered implements Repository.
func (r *SQLiteRepository) ListEnabledOrdered(ctx context.Context) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, query_text, enabled, rule_order, updated_at
		FROM filter_rules
		WHERE enabled = 1
		ORDER BY rule_order ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("rulestore: list enabled rules: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var enabled int
		var updatedAt time.Time
		if err := rows.Scan(&row.ID, &row.Name, &row.QueryText, &enabled, &row.Order, &updatedAt); err != nil {
			return nil, fmt.Errorf("rulestore: scan rule row: %w", err)
		}
		row.Enabled = enabled != 0
		row.UpdatedAt = updatedAt
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListEnabledRelays implements Repository.
func (r *SQLiteRepository) ListEnabledRelays(ctx context.Context) ([]RelayRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT url, enabled, relay_order
		FROM relays
		WHERE enabled = 1
		ORDER BY relay_order ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("rulestore: list enabled relays: %w", err)
	}
	defer rows.Close()

	var out []RelayRow
	for rows.Next() {
		var row RelayRow
		var enabled int
		if err := rows.Scan(&row.URL, &enabled, &row.Order); err != nil {
			return nil, fmt.Errorf("rulestore: scan relay row: %w", err)
		}
		row.Enabled = enabled != 0
		out = append(out, row)
	}
	return out, rows.Err()
}
