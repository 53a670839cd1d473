package dsl

import "fmt"

// Parse compiles DSL query text into an AST and the set of field
// references that appear in it (§4.2, §8 invariant 1).
func Parse(src string) (*Node, map[string]bool, *SyntaxError) {
	p := &parser{lx: newLexer(src)}
	p.advance()

	node, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	if p.cur.typ != tokEOF {
		return nil, nil, errExpectedOperator(p.cur.String(), p.cur.pos)
	}

	fields := map[string]bool{}
	collectFields(node, fields)
	return node, fields, nil
}

func collectFields(n *Node, out map[string]bool) {
	if n == nil {
		return
	}
	switch n.Kind {
	case NodeAnd, NodeOr:
		collectFields(n.L, out)
		collectFields(n.R, out)
	case NodeNot:
		collectFields(n.X, out)
	case NodeCond:
		out[n.Field.String()] = true
		if n.Value.Kind == ValFieldRef {
			out[n.Value.Field.String()] = true
		}
	}
}

type parser struct {
	lx     *lexer
	cur    token
	curErr *SyntaxError
}

func (p *parser) advance() {
	p.cur, p.curErr = p.lx.next()
}

// expr := or_expr
func (p *parser) parseExpr() (*Node, *SyntaxError) {
	return p.parseOr()
}

// or_expr := and_expr ( "OR" and_expr )*
func (p *parser) parseOr() (*Node, *SyntaxError) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if p.curErr != nil {
			return nil, p.curErr
		}
		if p.cur.typ != tokOr {
			return left, nil
		}
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: NodeOr, L: left, R: right}
	}
}

// and_expr := not_expr ( "AND" not_expr )*
func (p *parser) parseAnd() (*Node, *SyntaxError) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		if p.curErr != nil {
			return nil, p.curErr
		}
		if p.cur.typ != tokAnd {
			return left, nil
		}
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: NodeAnd, L: left, R: right}
	}
}

// not_expr := "NOT" not_expr | primary
func (p *parser) parseNot() (*Node, *SyntaxError) {
	if p.curErr != nil {
		return nil, p.curErr
	}
	if p.cur.typ == tokNot {
		p.advance()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeNot, X: x}, nil
	}
	return p.parsePrimary()
}

// primary := "(" expr ")" | condition
func (p *parser) parsePrimary() (*Node, *SyntaxError) {
	if p.curErr != nil {
		return nil, p.curErr
	}
	if p.cur.typ == tokLParen {
		p.advance()
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.curErr != nil {
			return nil, p.curErr
		}
		if p.cur.typ != tokRParen {
			return nil, errExpectedOperator(p.cur.String(), p.cur.pos)
		}
		p.advance()
		return n, nil
	}
	return p.parseCondition()
}

// condition := field op value
func (p *parser) parseCondition() (*Node, *SyntaxError) {
	field, err := p.parseField()
	if err != nil {
		return nil, err
	}

	if p.curErr != nil {
		return nil, p.curErr
	}

	opTok := p.cur
	op, ok := tokenToOp(opTok.typ)
	if !ok {
		return nil, errExpectedOperator(opTok.String(), opTok.pos)
	}
	if err := checkFieldOp(field, op, opTok.pos); err != nil {
		return nil, err
	}
	p.advance()

	if field.IsTagExists() {
		if p.curErr != nil {
			return nil, p.curErr
		}
		valPos := p.cur.pos
		var b bool
		switch p.cur.typ {
		case tokTrue:
			b = true
		case tokFalse:
			b = false
		default:
			return nil, errExpectedValue(p.cur.String(), p.cur.pos)
		}
		p.advance()
		return &Node{Kind: NodeCond, Field: field, Op: op, Value: Value{Kind: ValBool, Bool: b}, Pos: valPos}, nil
	}

	valPos := p.cur.pos
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if err := checkValueType(field, val, opTok.pos); err != nil {
		return nil, err
	}
	return &Node{Kind: NodeCond, Field: field, Op: op, Value: val, Pos: valPos}, nil
}

func tokenToOp(t tokenType) (Op, bool) {
	switch t {
	case tokEq:
		return OpEq, true
	case tokNeq:
		return OpNeq, true
	case tokGt:
		return OpGt, true
	case tokLt:
		return OpLt, true
	case tokGte:
		return OpGte, true
	case tokLte:
		return OpLte, true
	case tokContains:
		return OpContains, true
	case tokStartsWith:
		return OpStartsWith, true
	case tokEndsWith:
		return OpEndsWith, true
	case tokMatches:
		return OpMatches, true
	case tokIn:
		return OpIn, true
	case tokNotIn:
		return OpNotIn, true
	case tokExists:
		return OpExists, true
	}
	return 0, false
}

var numericOps = map[Op]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpLt: true, OpGte: true, OpLte: true,
	OpIn: true, OpNotIn: true,
}

var stringOps = map[Op]bool{
	OpEq: true, OpNeq: true, OpContains: true, OpStartsWith: true,
	OpEndsWith: true, OpMatches: true, OpIn: true, OpNotIn: true,
}

func checkFieldOp(f Field, op Op, pos int) *SyntaxError {
	switch {
	case f.IsTagExists():
		if op != OpExists {
			return errExpectedOperator(op.String(), pos)
		}
	case f.IsNumeric():
		if !numericOps[op] {
			return errExpectedOperator(op.String(), pos)
		}
	case f.IsString():
		if !stringOps[op] {
			return errExpectedOperator(op.String(), pos)
		}
	default:
		return errExpectedOperator(op.String(), pos)
	}
	return nil
}

func checkValueType(f Field, v Value, pos int) *SyntaxError {
	switch v.Kind {
	case ValList:
		for _, el := range v.List {
			if err := checkValueType(f, el, pos); err != nil {
				return err
			}
		}
		return nil
	case ValNumber:
		if !f.IsNumeric() {
			return errExpectedValue(fmt.Sprintf("%d", v.Num), pos)
		}
	case ValString:
		if !f.IsString() {
			return errExpectedValue(v.Str, pos)
		}
	case ValFieldRef:
		// Field-to-field comparisons are only meaningful, and only
		// needed, for numeric fields (§8 scenario 2).
		if !f.IsNumeric() || !v.Field.IsNumeric() {
			return errExpectedValue(v.Field.String(), pos)
		}
	}
	return nil
}

// field := ident | "tag" "[" ident "]" ( "." ident )?
func (p *parser) parseField() (Field, *SyntaxError) {
	if p.curErr != nil {
		return Field{}, p.curErr
	}

	if p.cur.typ == tokTag {
		p.advance()
		if p.curErr != nil {
			return Field{}, p.curErr
		}
		if p.cur.typ != tokLBracket {
			return Field{}, errExpectedOperator(p.cur.String(), p.cur.pos)
		}
		p.advance()
		if p.curErr != nil {
			return Field{}, p.curErr
		}
		if p.cur.typ != tokIdent || len(p.cur.lit) != 1 || !isASCIILetter(p.cur.lit[0]) {
			return Field{}, errExpectedValue(p.cur.String(), p.cur.pos)
		}
		letter := p.cur.lit[0]
		p.advance()
		if p.curErr != nil {
			return Field{}, p.curErr
		}
		if p.cur.typ != tokRBracket {
			return Field{}, errExpectedOperator(p.cur.String(), p.cur.pos)
		}
		p.advance()

		if p.curErr != nil {
			return Field{}, p.curErr
		}
		if p.cur.typ == tokDot {
			p.advance()
			if p.curErr != nil {
				return Field{}, p.curErr
			}
			if p.cur.typ != tokIdent {
				return Field{}, errExpectedValue(p.cur.String(), p.cur.pos)
			}
			switch p.cur.lit {
			case "count":
				p.advance()
				return Field{Kind: FieldTagCount, Tag: letter}, nil
			case "value":
				p.advance()
				return Field{Kind: FieldTagValue, Tag: letter}, nil
			default:
				return Field{}, errExpectedValue(p.cur.lit, p.cur.pos)
			}
		}
		return Field{Kind: FieldTagExists, Tag: letter}, nil
	}

	if p.cur.typ != tokIdent {
		return Field{}, errExpectedValue(p.cur.String(), p.cur.pos)
	}
	name := p.cur.lit
	if !simpleFields[name] {
		return Field{}, errExpectedValue(name, p.cur.pos)
	}
	p.advance()
	return Field{Kind: FieldSimple, Name: name}, nil
}

func isASCIILetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// value := number | string | list | field
//
// The field alternative is not in the original grammar sketch but is
// required to compare two event fields directly (e.g.
// "referenced_created_at == created_at", §8 scenario 2); it is only
// permitted as a top-level scalar value, never inside a list.
func (p *parser) parseValue() (Value, *SyntaxError) {
	if p.curErr != nil {
		return Value{}, p.curErr
	}
	switch p.cur.typ {
	case tokIdent, tokTag:
		f, err := p.parseField()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValFieldRef, Field: f}, nil
	}
	return p.parseLiteralValue()
}

// parseLiteralValue parses number | string | list, used both as the
// top-level fallback and for every element of a list (list elements are
// always literals, never field references).
func (p *parser) parseLiteralValue() (Value, *SyntaxError) {
	if p.curErr != nil {
		return Value{}, p.curErr
	}
	switch p.cur.typ {
	case tokNumber:
		n, err := parseInt64(p.cur.lit)
		if err != nil {
			return Value{}, errExpectedValue(p.cur.lit, p.cur.pos)
		}
		p.advance()
		return Value{Kind: ValNumber, Num: n}, nil
	case tokString:
		v := Value{Kind: ValString, Str: p.cur.lit}
		p.advance()
		return v, nil
	case tokLBracket:
		return p.parseList()
	}
	return Value{}, errExpectedValue(p.cur.String(), p.cur.pos)
}

// list := "[" value ( "," value )* "]"
func (p *parser) parseList() (Value, *SyntaxError) {
	p.advance() // consume '['
	var items []Value
	for {
		if p.curErr != nil {
			return Value{}, p.curErr
		}
		if p.cur.typ == tokRBracket && len(items) == 0 {
			break
		}
		v, err := p.parseLiteralValue()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
		if p.curErr != nil {
			return Value{}, p.curErr
		}
		if p.cur.typ == tokComma {
			p.advance()
			continue
		}
		break
	}
	if p.curErr != nil {
		return Value{}, p.curErr
	}
	if p.cur.typ != tokRBracket {
		return Value{}, errExpectedValue(p.cur.String(), p.cur.pos)
	}
	p.advance()
	if len(items) > 0 {
		kind := items[0].Kind
		for _, it := range items[1:] {
			if it.Kind != kind {
				return Value{}, errExpectedValue(p.cur.String(), p.cur.pos)
			}
		}
	}
	return Value{Kind: ValList, List: items}, nil
}

func parseInt64(s string) (int64, error) {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var n int64
	for i := 0; i < len(s); i++ {
		n = n*10 + int64(s[i]-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
