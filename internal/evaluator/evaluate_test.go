package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayguard/relayguard/internal/dsl"
	"github.com/relayguard/relayguard/internal/eventview"
)

func compile(t *testing.T, query string) *dsl.CompiledNode {
	t.Helper()
	r, err := dsl.ValidateQuery(query)
	require.Nil(t, err)
	return r.Compiled
}

// Scenario 1: kind == 6 matches a kind-6 event.
func TestScenarioKindMatch(t *testing.T) {
	n := compile(t, `kind == 6`)
	ev := eventview.View{Kind: 6, Content: "hi"}
	assert.True(t, Evaluate(n, ev))
}

// Scenario 2: kind in [6,7] AND referenced_created_at == created_at,
// with and without a populated reference lookup.
func TestScenarioReferencedCreatedAt(t *testing.T) {
	n := compile(t, `kind in [6, 7] AND referenced_created_at == created_at`)

	withRef := eventview.View{
		Kind: 6, CreatedAt: 1000,
		Tags:                eventview.TagTable{'e': {{"X"}}},
		ReferencedPresent:   true,
		ReferencedCreatedAt: 1000,
	}
	assert.True(t, Evaluate(n, withRef))

	withoutRef := withRef
	withoutRef.ReferencedPresent = false
	assert.False(t, Evaluate(n, withoutRef))
}

// Scenario 3: case-insensitive contains.
func TestScenarioContainsCaseInsensitive(t *testing.T) {
	n := compile(t, `content contains "SPAM"`)
	ev := eventview.View{Kind: 1, Content: "free spam here"}
	assert.True(t, Evaluate(n, ev))
}

// Scenario 4: tag count combined with content length.
func TestScenarioTagCountAndContentLength(t *testing.T) {
	n := compile(t, `tag[e].count > 5 AND content_length < 50`)

	six := eventview.View{Content: "short", Tags: eventview.TagTable{'e': {{"1"}, {"2"}, {"3"}, {"4"}, {"5"}, {"6"}}}}
	assert.True(t, Evaluate(n, six))

	three := eventview.View{Content: "short", Tags: eventview.TagTable{'e': {{"1"}, {"2"}, {"3"}}}}
	assert.False(t, Evaluate(n, three))
}

func TestScenarioNotMatchesInert(t *testing.T) {
	n := compile(t, `content matches "^never-matches-anything-here$"`)
	ev := eventview.View{Content: "something else entirely"}
	assert.False(t, Evaluate(n, ev))
}

func TestBoundaryEmptyContentAndTags(t *testing.T) {
	n := compile(t, `content_length == 0 AND tag[e] exists false`)
	ev := eventview.View{Content: "", Tags: eventview.TagTable{}}
	assert.True(t, Evaluate(n, ev))
}

func TestShortCircuitAndOr(t *testing.T) {
	and := compile(t, `kind == 999 AND content matches "^zzz$"`)
	// The regex is valid and precompiled, but kind==999 is false first and
	// AND short-circuits without needing to run it.
	ev := eventview.View{Kind: 1}
	assert.False(t, Evaluate(and, ev))

	or := compile(t, `kind == 1 OR kind == 999`)
	assert.True(t, Evaluate(or, ev))
}
