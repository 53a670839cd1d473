package dsl

// FieldKind is a closed tagged variant over the field references a
// condition can target, so the evaluator can switch exhaustively instead
// of dispatching on a runtime string.
type FieldKind int

const (
	FieldSimple FieldKind = iota
	FieldTagExists
	FieldTagCount
	FieldTagValue
)

// simple field names allowed as bare identifiers.
const (
	FieldID                  = "id"
	FieldPubkey              = "pubkey"
	FieldNpub                = "npub"
	FieldKindName            = "kind"
	FieldCreatedAt           = "created_at"
	FieldContent             = "content"
	FieldContentLength       = "content_length"
	FieldReferencedCreatedAt = "referenced_created_at"
)

var simpleFields = map[string]bool{
	FieldID:                  true,
	FieldPubkey:              true,
	FieldNpub:                true,
	FieldKindName:            true,
	FieldCreatedAt:           true,
	FieldContent:             true,
	FieldContentLength:       true,
	FieldReferencedCreatedAt: true,
}

var numericFields = map[string]bool{
	FieldKindName:            true,
	FieldCreatedAt:           true,
	FieldContentLength:       true,
	FieldReferencedCreatedAt: true,
}

var stringFields = map[string]bool{
	FieldID:     true,
	FieldPubkey: true,
	FieldNpub:   true,
	FieldContent: true,
}

// Field is a single field reference appearing in a condition.
type Field struct {
	Kind FieldKind
	Name string // valid when Kind == FieldSimple
	Tag  byte   // valid when Kind != FieldSimple
}

func (f Field) String() string {
	switch f.Kind {
	case FieldTagExists, FieldTagCount, FieldTagValue:
		suffix := ""
		switch f.Kind {
		case FieldTagCount:
			suffix = ".count"
		case FieldTagValue:
			suffix = ".value"
		}
		return "tag[" + string(f.Tag) + "]" + suffix
	default:
		return f.Name
	}
}

// IsNumeric reports whether the field's values compare as 64-bit integers.
func (f Field) IsNumeric() bool {
	if f.Kind == FieldTagCount {
		return true
	}
	if f.Kind == FieldSimple {
		return numericFields[f.Name]
	}
	return false
}

// IsString reports whether the field's values compare as strings.
func (f Field) IsString() bool {
	if f.Kind == FieldTagValue {
		return true
	}
	if f.Kind == FieldSimple {
		return stringFields[f.Name]
	}
	return false
}

// IsTagExists reports whether the field is a tag[X] existence check, the
// only field that takes a boolean literal operand.
func (f Field) IsTagExists() bool {
	return f.Kind == FieldTagExists
}

// Op is a condition operator.
type Op int

const (
	OpEq Op = iota
	OpNeq
	OpGt
	OpLt
	OpGte
	OpLte
	OpContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpIn
	OpNotIn
	OpExists
)

// String renders the operator using the lowercase name the admin
// validation endpoint's AST encoding uses (§6).
func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpNeq:
		return "neq"
	case OpGt:
		return "gt"
	case OpLt:
		return "lt"
	case OpGte:
		return "gte"
	case OpLte:
		return "lte"
	case OpContains:
		return "contains"
	case OpStartsWith:
		return "starts_with"
	case OpEndsWith:
		return "ends_with"
	case OpMatches:
		return "matches"
	case OpIn:
		return "in"
	case OpNotIn:
		return "not_in"
	case OpExists:
		return "exists"
	}
	return "?"
}

// ValueKind distinguishes the literal shapes a condition operand can take.
type ValueKind int

const (
	ValNumber ValueKind = iota
	ValString
	ValBool
	ValList
	// ValFieldRef marks an operand that is itself another field reference
	// rather than a literal, e.g. "referenced_created_at == created_at"
	// (§8 scenario 2). Only numeric fields may be compared this way.
	ValFieldRef
)

// Value is a parsed (not yet compiled) operand literal.
type Value struct {
	Kind  ValueKind
	Num   int64
	Str   string
	Bool  bool
	List  []Value
	Field Field // valid when Kind == ValFieldRef
}

// NodeKind distinguishes the four AST node shapes.
type NodeKind int

const (
	NodeAnd NodeKind = iota
	NodeOr
	NodeNot
	NodeCond
)

// Node is one node of the expression tree. Exactly the fields relevant to
// Kind are populated; this mirrors a tagged union without needing an
// interface-per-node-type, matching the "FieldRef as tagged variant"
// design note.
type Node struct {
	Kind NodeKind

	// NodeAnd / NodeOr
	L, R *Node

	// NodeNot
	X *Node

	// NodeCond
	Field Field
	Op    Op
	Value Value
	Pos   int // byte position of the value literal, for compile-time errors
}
