package dsl

import (
	"regexp"
	"strings"

	"github.com/relayguard/relayguard/internal/npub"
)

// CompiledNode is the evaluable form of a Node: regexes are pre-compiled
// and in/not_in lists are pre-converted to sets, so Evaluate never
// compiles (§4.3 invariant).
type CompiledNode struct {
	Kind NodeKind

	L, R *CompiledNode
	X    *CompiledNode

	Field Field
	Op    Op
	Value Value

	// LowerStr is Value.Str case-folded, precomputed for contains/
	// starts_with/ends_with which are case-insensitive comparisons.
	LowerStr string

	// Regex is set when Op == OpMatches.
	Regex *regexp.Regexp

	// StrSet/NumSet back OpIn/OpNotIn membership tests in O(1).
	StrSet map[string]bool
	NumSet map[int64]bool
}

// Compile turns a parsed AST into its evaluable, precompiled form.
func Compile(n *Node) (*CompiledNode, *SyntaxError) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case NodeAnd, NodeOr:
		l, err := Compile(n.L)
		if err != nil {
			return nil, err
		}
		r, err := Compile(n.R)
		if err != nil {
			return nil, err
		}
		return &CompiledNode{Kind: n.Kind, L: l, R: r}, nil
	case NodeNot:
		x, err := Compile(n.X)
		if err != nil {
			return nil, err
		}
		return &CompiledNode{Kind: NodeNot, X: x}, nil
	case NodeCond:
		return compileCond(n)
	}
	return nil, &SyntaxError{Message: "unreachable node kind"}
}

func compileCond(n *Node) (*CompiledNode, *SyntaxError) {
	cn := &CompiledNode{Kind: NodeCond, Field: n.Field, Op: n.Op, Value: n.Value}

	if n.Field.Name == "npub" || (n.Field.Kind == FieldSimple && n.Field.Name == FieldNpub) {
		if err := validateNpubOperand(n.Value, n.Pos); err != nil {
			return nil, err
		}
	}

	switch n.Op {
	case OpContains, OpStartsWith, OpEndsWith:
		cn.LowerStr = strings.ToLower(n.Value.Str)
	case OpMatches:
		re, err := regexp.Compile(n.Value.Str)
		if err != nil {
			return nil, errInvalidRegex(n.Value.Str, n.Pos)
		}
		cn.Regex = re
	case OpIn, OpNotIn:
		if n.Value.Kind == ValList {
			if len(n.Value.List) > 0 && n.Value.List[0].Kind == ValString {
				set := make(map[string]bool, len(n.Value.List))
				for _, v := range n.Value.List {
					set[v.Str] = true
				}
				cn.StrSet = set
			} else {
				set := make(map[int64]bool, len(n.Value.List))
				for _, v := range n.Value.List {
					set[v.Num] = true
				}
				cn.NumSet = set
			}
		}
	}

	return cn, nil
}

func validateNpubOperand(v Value, pos int) *SyntaxError {
	switch v.Kind {
	case ValString:
		if err := npub.Validate(v.Str); err != nil {
			return errInvalidNpub(v.Str, pos)
		}
	case ValList:
		for _, el := range v.List {
			if err := validateNpubOperand(el, pos); err != nil {
				return err
			}
		}
	}
	return nil
}
