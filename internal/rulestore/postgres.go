package rulestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresRepository reads rule rows from a Postgres-backed admin schema.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository opens a connection pool against dsn, which must
// be a "postgres://" URL.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("rulestore: open postgres: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// ListEnabledOrdered implements Repository.
func (r *PostgresRepository) ListEnabledOrdered(ctx context.Context) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, query_text, enabled, "order", updated_at
		FROM filter_rules
		WHERE enabled = true
		ORDER BY "order" ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("rulestore: list enabled rules: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// ListEnabledRelays implements Repository.
func (r *PostgresRepository) ListEnabledRelays(ctx context.Context) ([]RelayRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT url, enabled, "order"
		FROM relays
		WHERE enabled = true
		ORDER BY "order" ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("rulestore: list enabled relays: %w", err)
	}
	defer rows.Close()

	var out []RelayRow
	for rows.Next() {
		var row RelayRow
		if err := rows.Scan(&row.URL, &row.Enabled, &row.Order); err != nil {
			return nil, fmt.Errorf("rulestore: scan relay row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var row Row
		var updatedAt time.Time
		if err := rows.Scan(&row.ID, &row.Name, &row.QueryText, &row.Enabled, &row.Order, &updatedAt); err != nil {
			return nil, fmt.Errorf("rulestore: scan rule row: %w", err)
		}
		row.UpdatedAt = updatedAt
		out = append(out, row)
	}
	return out, rows.Err()
}
