package dsl

import "fmt"

// SyntaxError is returned by the lexer, parser, and compiler for any
// input that cannot be turned into a compiled rule. Position is the
// 0-indexed byte offset into the query text where the error was detected.
type SyntaxError struct {
	Message  string
	Position int
}

func (e *SyntaxError) Error() string {
	return e.Message
}

func errUnexpectedChar(ch byte, pos int) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf("Unexpected character: '%c'", ch), Position: pos}
}

func errExpectedEqEq(pos int) *SyntaxError {
	return &SyntaxError{Message: "Expected '==' but got '='", Position: pos}
}

func errUnterminatedString(pos int) *SyntaxError {
	return &SyntaxError{Message: "Unterminated string", Position: pos}
}

func errExpectedOperator(got string, pos int) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf("Expected operator but got '%s'", got), Position: pos}
}

func errExpectedValue(got string, pos int) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf("Expected value but got '%s'", got), Position: pos}
}

func errInvalidRegex(pattern string, pos int) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf("Invalid regex: %s", pattern), Position: pos}
}

func errInvalidNpub(lit string, pos int) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf("Invalid npub: %s", lit), Position: pos}
}
