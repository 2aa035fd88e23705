package parser

import (
	"fmt"

	"github.com/delyan-kirov/BC/pkg/lexer"
)

// ErrorKind classifies parse failures.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota + 1
	ArityMismatch
	InvalidUnaryContext
	OutOfMemory
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "UNEXPECTED_TOKEN"
	case ArityMismatch:
		return "ARITY_MISMATCH"
	case InvalidUnaryContext:
		return "INVALID_UNARY_CONTEXT"
	case OutOfMemory:
		return "OUT_OF_MEMORY"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ParseError includes a message plus the position of the offending token.
type ParseError struct {
	Kind     ErrorKind
	Message  string
	Location lexer.Position
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Position implements the diagnostics locator.
func (e *ParseError) Position() lexer.Position { return e.Location }

func errorAt(kind ErrorKind, tok lexer.Token, format string, args ...any) *ParseError {
	err := &ParseError{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if tok != nil {
		err.Location = tok.Pos()
	}
	return err
}
