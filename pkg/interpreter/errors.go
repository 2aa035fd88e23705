package interpreter

import (
	"fmt"

	"github.com/delyan-kirov/BC/pkg/ast"
)

// ErrorKind classifies evaluation failures.
type ErrorKind int

const (
	UnboundVariable ErrorKind = iota + 1
	UnsupportedNodeType
	DivisionByZero
	NotAFunction
	InvalidOperand
	ForeignCall
	RecursionLimit
)

func (k ErrorKind) String() string {
	switch k {
	case UnboundVariable:
		return "UNBOUND_VARIABLE"
	case UnsupportedNodeType:
		return "UNSUPPORTED_NODE_TYPE"
	case DivisionByZero:
		return "DIVISION_BY_ZERO"
	case NotAFunction:
		return "NOT_A_FUNCTION"
	case InvalidOperand:
		return "INVALID_OPERAND"
	case ForeignCall:
		return "FOREIGN_CALL"
	case RecursionLimit:
		return "RECURSION_LIMIT"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is an evaluation failure. Expr is the node being reduced.
type Error struct {
	Kind    ErrorKind
	Message string
	Expr    ast.Expr
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, expr ast.Expr, format string, args ...any) *Error {
	return &Error{Kind: kind, Expr: expr, Message: fmt.Sprintf(format, args...)}
}
