package policy

import (
	"github.com/relayguard/relayguard/internal/dsl"
	"github.com/relayguard/relayguard/internal/evaluator"
	"github.com/relayguard/relayguard/internal/eventview"
)

// Rule pairs a compiled AST with the store id used for log correlation.
type Rule struct {
	ID   int64
	Node *dsl.CompiledNode
}

// RuleProvider hands the pipeline the current ordered, enabled rule set.
// internal/rulestore's facade is the production implementation; tests can
// supply a literal slice.
type RuleProvider interface {
	ActiveRules() []Rule
}

// ReferenceLookup is the read side of the reference cache the bot filter
// and referenced_created_at field both depend on.
type ReferenceLookup interface {
	Lookup(eventID string) (createdAt int64, ok bool)
}

const (
	kindRepost   = 6
	kindReaction = 7
)

// Pipeline runs an event view through the layered checks of §4.6 in strict
// order, returning at the first rejection.
type Pipeline struct {
	Lists *Store
	Rules RuleProvider
	Refs  ReferenceLookup
}

// NewPipeline wires the three collaborators the pipeline consults.
func NewPipeline(lists *Store, rules RuleProvider, refs ReferenceLookup) *Pipeline {
	return &Pipeline{Lists: lists, Rules: rules, Refs: refs}
}

// Evaluate produces a verdict for an inbound event publication from the
// given remote IP. It never mutates ev, the lists snapshot, or the rule
// set — repeated calls with the same inputs and cache state return the
// same verdict.
func (p *Pipeline) Evaluate(ev eventview.View, remoteIP string) Verdict {
	lists := p.Lists.Get()

	// 1. IP access control.
	if lists.ipBanned(remoteIP) {
		return reject(ReasonBannedIP, 0)
	}
	if lists.ipWhitelisted(remoteIP) {
		return Accept
	}

	// 2. Npub ban.
	if lists.npubBanned(ev.Npub) {
		return reject(ReasonBannedNpub, 0)
	}

	// 3. Kind blacklist.
	if id, ok := lists.matchKindBlacklist(ev.Kind); ok {
		return reject(ReasonKindBlacklist, id)
	}

	// 4. Safelist bypass, then the post_allowed gate that runs before
	// custom rules.
	entry, inSafelist := lists.safelistEntry(ev.Npub)
	if inSafelist && entry.FilterBypass {
		return Accept
	}
	if !(inSafelist && entry.PostAllowed) {
		return reject(ReasonNotInSafelist, 0)
	}

	// 5. Custom filter rules, in store order; first match rejects.
	for _, rule := range p.Rules.ActiveRules() {
		if evaluator.Evaluate(rule.Node, ev) {
			return reject(ReasonFilterRule, rule.ID)
		}
	}

	// 6. Built-in bot filter: a repost/reaction whose referenced event's
	// cached timestamp matches the new event's timestamp is treated as
	// an automated repost loop.
	if ev.Kind == kindRepost || ev.Kind == kindReaction {
		if refID, ok := ev.Tags.First('e'); ok {
			if createdAt, hit := p.Refs.Lookup(refID); hit && createdAt == ev.CreatedAt {
				return reject(ReasonBotFilter, 0)
			}
		}
	}

	// 7. No layer objected.
	return Accept
}
