package dsl

// Result is the successful outcome of validating a query: its AST, its
// evaluable compiled form, and the field references it touches.
type Result struct {
	AST        *Node
	Compiled   *CompiledNode
	FieldsUsed map[string]bool
}

// ValidateQuery parses and compiles query text, the pure operation behind
// the admin validation endpoint (§4.4 validate, §6 validation endpoint).
// It has no side effects: it neither touches the rule store nor mutates
// any shared cache.
func ValidateQuery(text string) (*Result, *SyntaxError) {
	ast, fields, err := Parse(text)
	if err != nil {
		return nil, err
	}
	compiled, err := Compile(ast)
	if err != nil {
		return nil, err
	}
	return &Result{AST: ast, Compiled: compiled, FieldsUsed: fields}, nil
}
