package rulestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	supabase "github.com/supabase-community/supabase-go"
)

// SupabaseRepository reads rule rows through the Supabase REST facade
// instead of a direct database connection, for deployments that manage
// their admin schema through a Supabase project.
type SupabaseRepository struct {
	client *supabase.Client
}

// NewSupabaseRepository builds a client against projectURL using apiKey.
func NewSupabaseRepository(projectURL, apiKey string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(projectURL, apiKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("rulestore: new supabase client: %w", err)
	}
	return &SupabaseRepository{client: client}, nil
}

type supabaseRuleRow struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	QueryText string    `json:"query_text"`
	Enabled   bool      `json:"enabled"`
	Order     int64     `json:"order"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListEnabledOrdered implements Repository.
func (r *SupabaseRepository) ListEnabledOrdered(ctx context.Context) ([]Row, error) {
	data, _, err := r.client.From("filter_rules").
		Select("id,name,query_text,enabled,order,updated_at", "", false).
		Eq("enabled", "true").
		Order("order", nil).
		ExecuteWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("rulestore: supabase select: %w", err)
	}

	var raw []supabaseRuleRow
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("rulestore: decode supabase rows: %w", err)
	}

	out := make([]Row, 0, len(raw))
	for _, r := range raw {
		out = append(out, Row{
			ID: r.ID, Name: r.Name, QueryText: r.QueryText,
			Enabled: r.Enabled, Order: r.Order, UpdatedAt: r.UpdatedAt,
		})
	}
	return out, nil
}

type supabaseRelayRow struct {
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
	Order   int64  `json:"order"`
}

// ListEnabledRelays implements Repository.
func (r *SupabaseRepository) ListEnabledRelays(ctx context.Context) ([]RelayRow, error) {
	data, _, err := r.client.From("relays").
		Select("url,enabled,order", "", false).
		Eq("enabled", "true").
		Order("order", nil).
		ExecuteWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("rulestore: supabase select relays: %w", err)
	}

	var raw []supabaseRelayRow
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("rulestore: decode supabase relay rows: %w", err)
	}

	out := make([]RelayRow, 0, len(raw))
	for _, r := range raw {
		out = append(out, RelayRow{URL: r.URL, Enabled: r.Enabled, Order: r.Order})
	}
	return out, nil
}
