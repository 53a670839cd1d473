// Package evaluator implements the pure function from a compiled rule and
// an event view to a boolean match result (§4.5).
package evaluator

import (
	"strings"

	"github.com/relayguard/relayguard/internal/dsl"
	"github.com/relayguard/relayguard/internal/eventview"
)

// Evaluate returns true when the compiled rule matches the event — which
// in policy semantics means the event should be rejected. And/Or
// short-circuit for efficiency; this is never observable to a rule
// author since every sub-expression is statically type-checked at parse
// time (§4.5).
func Evaluate(n *dsl.CompiledNode, ev eventview.View) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case dsl.NodeAnd:
		return Evaluate(n.L, ev) && Evaluate(n.R, ev)
	case dsl.NodeOr:
		return Evaluate(n.L, ev) || Evaluate(n.R, ev)
	case dsl.NodeNot:
		return !Evaluate(n.X, ev)
	case dsl.NodeCond:
		return evalCond(n, ev)
	}
	return false
}

func evalCond(n *dsl.CompiledNode, ev eventview.View) bool {
	if n.Field.IsTagExists() {
		return ev.Tags.Exists(n.Field.Tag) == n.Value.Bool
	}
	if n.Field.IsNumeric() {
		val, ok := numericFieldValue(n.Field, ev)
		if !ok {
			// cache miss on referenced_created_at: inert, not an error (§4.5).
			return false
		}
		rhs := n.Value.Num
		if n.Value.Kind == dsl.ValFieldRef {
			v, ok := numericFieldValue(n.Value.Field, ev)
			if !ok {
				return false
			}
			rhs = v
		}
		return evalNumeric(n, val, rhs)
	}
	if n.Field.IsString() {
		return evalString(n, stringFieldValue(n.Field, ev))
	}
	return false
}

func numericFieldValue(f dsl.Field, ev eventview.View) (int64, bool) {
	if f.Kind == dsl.FieldTagCount {
		return int64(ev.Tags.Count(f.Tag)), true
	}
	switch f.Name {
	case dsl.FieldKindName:
		return ev.Kind, true
	case dsl.FieldCreatedAt:
		return ev.CreatedAt, true
	case dsl.FieldContentLength:
		return int64(ev.ContentLength()), true
	case dsl.FieldReferencedCreatedAt:
		if !ev.ReferencedPresent {
			return 0, false
		}
		return ev.ReferencedCreatedAt, true
	}
	return 0, false
}

func stringFieldValue(f dsl.Field, ev eventview.View) string {
	if f.Kind == dsl.FieldTagValue {
		return ev.Tags.Value(f.Tag)
	}
	switch f.Name {
	case dsl.FieldID:
		return ev.ID
	case dsl.FieldPubkey:
		return ev.PubkeyHex
	case dsl.FieldNpub:
		return ev.Npub
	case dsl.FieldContent:
		return ev.Content
	}
	return ""
}

func evalNumeric(n *dsl.CompiledNode, val, rhs int64) bool {
	switch n.Op {
	case dsl.OpEq:
		return val == rhs
	case dsl.OpNeq:
		return val != rhs
	case dsl.OpGt:
		return val > rhs
	case dsl.OpLt:
		return val < rhs
	case dsl.OpGte:
		return val >= rhs
	case dsl.OpLte:
		return val <= rhs
	case dsl.OpIn:
		return n.NumSet[val]
	case dsl.OpNotIn:
		return !n.NumSet[val]
	}
	return false
}

func evalString(n *dsl.CompiledNode, val string) bool {
	switch n.Op {
	case dsl.OpEq:
		return val == n.Value.Str
	case dsl.OpNeq:
		return val != n.Value.Str
	case dsl.OpContains:
		return strings.Contains(strings.ToLower(val), n.LowerStr)
	case dsl.OpStartsWith:
		return strings.HasPrefix(strings.ToLower(val), n.LowerStr)
	case dsl.OpEndsWith:
		return strings.HasSuffix(strings.ToLower(val), n.LowerStr)
	case dsl.OpMatches:
		return n.Regex.MatchString(val)
	case dsl.OpIn:
		return n.StrSet[val]
	case dsl.OpNotIn:
		return !n.StrSet[val]
	}
	return false
}
