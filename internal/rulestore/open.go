package rulestore

import (
	"fmt"
	"strings"
)

// Open selects a concrete Repository from a DATABASE_URL, matching the
// scheme against the three adapters this facade ships. supabaseAPIKey is
// only consulted for the "supabase://" scheme.
func Open(databaseURL, supabaseAPIKey string) (Repository, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return NewPostgresRepository(databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return NewSQLiteRepository(strings.TrimPrefix(databaseURL, "sqlite:"))
	case strings.HasPrefix(databaseURL, "supabase://"):
		return NewSupabaseRepository(strings.TrimPrefix(databaseURL, "supabase://"), supabaseAPIKey)
	default:
		return nil, fmt.Errorf("rulestore: unrecognized DATABASE_URL scheme in %q", databaseURL)
	}
}
