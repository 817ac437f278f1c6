// Package query implements the expression language used to select and
// reshape schema values: a pipeline of filters composed with `|`, evaluated
// lazily against a single input value.
//
// The language is a small jq dialect. Field access (.a.b), indexing (.[0]),
// iteration (.[]), array/object construction, comparisons, and a fixed set
// of builtin functions (select, map, sort_by, group_by, ...) are supported.
// Evaluation produces a pull-based iterator; errors downstream in a pipeline
// surface only when the failing element is consumed.
package query

import "fmt"

// ErrorKind classifies an evaluation failure.
type ErrorKind int

const (
	// ParseError means the expression is malformed. Detected before any
	// evaluation begins.
	ParseError ErrorKind = iota
	// TypeMismatch means a filter was applied to a value of the wrong shape.
	TypeMismatch
	// UndefinedFunction means the expression calls a function that does not
	// exist.
	UndefinedFunction
	// UndefinedVariable means the expression references a variable that was
	// not declared.
	UndefinedVariable
	// RuntimeFailure covers other failures during evaluation.
	RuntimeFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ParseError:
		return "parse error"
	case TypeMismatch:
		return "type mismatch"
	case UndefinedFunction:
		return "undefined function"
	case UndefinedVariable:
		return "undefined variable"
	case RuntimeFailure:
		return "runtime failure"
	default:
		return "unknown"
	}
}

// EvalError is a failure in parsing or evaluating a query expression.
// Pos is a byte offset into Expression.
type EvalError struct {
	Kind       ErrorKind
	Expression string
	Pos        int
	Msg        string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s at offset %d in %q: %s", e.Kind, e.Pos, e.Expression, e.Msg)
}

func errf(kind ErrorKind, expr string, pos int, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Expression: expr, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
