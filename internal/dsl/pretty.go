package dsl

import (
	"fmt"
	"strconv"
	"strings"
)

// Pretty renders an AST back into DSL query text. Parenthesization is
// total (every And/Or/Not wraps its operands) so that re-parsing the
// output always reproduces a structurally identical tree regardless of
// how the original query grouped its operators (§8 round-trip property).
func Pretty(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case NodeAnd:
		return fmt.Sprintf("(%s AND %s)", Pretty(n.L), Pretty(n.R))
	case NodeOr:
		return fmt.Sprintf("(%s OR %s)", Pretty(n.L), Pretty(n.R))
	case NodeNot:
		return fmt.Sprintf("NOT (%s)", Pretty(n.X))
	case NodeCond:
		return fmt.Sprintf("%s %s %s", n.Field.String(), opSymbol(n.Op), prettyValue(n.Value))
	}
	return ""
}

func opSymbol(op Op) string {
	switch op {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	default:
		return op.String()
	}
}

func prettyValue(v Value) string {
	switch v.Kind {
	case ValNumber:
		return strconv.FormatInt(v.Num, 10)
	case ValString:
		return quoteString(v.Str)
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValList:
		parts := make([]string, len(v.List))
		for i, el := range v.List {
			parts[i] = prettyValue(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ValFieldRef:
		return v.Field.String()
	}
	return ""
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}
