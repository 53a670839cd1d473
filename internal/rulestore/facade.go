// Package rulestore loads the admin-managed set of filter rules from an
// external repository, compiles and caches them, and publishes an
// immutable, ordered snapshot for the policy pipeline to consult (§4.4).
package rulestore

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relayguard/relayguard/internal/dsl"
	"github.com/relayguard/relayguard/internal/policy"
)

// Row is one stored rule row as the admin repository presents it.
type Row struct {
	ID        int64
	Name      string
	QueryText string
	Enabled   bool
	Order     int64
	UpdatedAt time.Time
}

// RelayRow is one configured upstream relay entry. Per §6 the relay list
// is a repository concern, not an environment variable.
type RelayRow struct {
	URL     string
	Enabled bool
	Order   int64
}

// Repository is the external collaborator contract: the core only reads,
// admin endpoints write.
type Repository interface {
	ListEnabledOrdered(ctx context.Context) ([]Row, error)
	ListEnabledRelays(ctx context.Context) ([]RelayRow, error)
}

type cacheKey struct {
	id        int64
	updatedAt time.Time
}

// Facade loads, compiles, and caches the active rule set and hands the
// policy pipeline a cheap, stable handle to the current snapshot.
type Facade struct {
	repo   Repository
	logger *slog.Logger

	mu    sync.Mutex
	cache map[int64]compiledRow

	snapshot atomic.Pointer[[]policy.Rule]
}

type compiledRow struct {
	key  cacheKey
	node *dsl.CompiledNode
}

// NewFacade wires the facade to its repository. The snapshot starts empty
// until the first Reload.
func NewFacade(repo Repository, logger *slog.Logger) *Facade {
	f := &Facade{repo: repo, logger: logger, cache: map[int64]compiledRow{}}
	empty := []policy.Rule{}
	f.snapshot.Store(&empty)
	return f
}

// Reload fetches all enabled rows, compiles any not already cached under
// the same (id, updated_at), sorts by (order asc, id asc), and publishes
// the result as the new snapshot. Rules that fail to compile are skipped
// with a warning; they never abort the load.
func (f *Facade) Reload(ctx context.Context) error {
	rows, err := f.repo.ListEnabledOrdered(ctx)
	if err != nil {
		return err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Order != rows[j].Order {
			return rows[i].Order < rows[j].Order
		}
		return rows[i].ID < rows[j].ID
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	active := make([]policy.Rule, 0, len(rows))
	fresh := make(map[int64]compiledRow, len(rows))

	for _, row := range rows {
		key := cacheKey{id: row.ID, updatedAt: row.UpdatedAt}
		if existing, ok := f.cache[row.ID]; ok && existing.key == key {
			fresh[row.ID] = existing
			active = append(active, policy.Rule{ID: row.ID, Node: existing.node})
			continue
		}

		result, parseErr := dsl.ValidateQuery(row.QueryText)
		if parseErr != nil {
			f.logger.Warn("rule failed to compile, quarantined",
				"rule_id", row.ID, "error", parseErr.Message, "position", parseErr.Position)
			continue
		}

		compiled := compiledRow{key: key, node: result.Compiled}
		fresh[row.ID] = compiled
		active = append(active, policy.Rule{ID: row.ID, Node: compiled.node})
	}

	f.cache = fresh
	f.snapshot.Store(&active)
	return nil
}

// Invalidate drops the cached compilation for id; the next Reload
// recompiles it from scratch.
func (f *Facade) Invalidate(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, id)
}

// ActiveRules satisfies policy.RuleProvider with the current snapshot.
func (f *Facade) ActiveRules() []policy.Rule {
	return *f.snapshot.Load()
}

// Validate compiles query text without touching the cache or snapshot,
// for the admin validation endpoint.
func (f *Facade) Validate(queryText string) (*dsl.Result, *dsl.SyntaxError) {
	return dsl.ValidateQuery(queryText)
}

// RelayURLs fetches the configured upstream relay list, sorted by order
// ascending (stable for equal orders). Unlike the rule snapshot this is read once
// at bootstrap; the upstream dialer only ever needs the first enabled
// entry, and reconnection is not transparent per §4.9.
func (f *Facade) RelayURLs(ctx context.Context) ([]string, error) {
	rows, err := f.repo.ListEnabledRelays(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Order < rows[j].Order })

	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		urls = append(urls, row.URL)
	}
	return urls, nil
}
