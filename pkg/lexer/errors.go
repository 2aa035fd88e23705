package lexer

import "fmt"

// Terminator reports why a lexer stopped. It is not an error: enclosing
// lexers check it against the terminator their construct requires.
type Terminator int

const (
	// End means the whole requested range was consumed.
	End Terminator = iota
	// In means the keyword `in` was consumed.
	In
	// Else means the keyword `else` was consumed.
	Else
	// FatArrow means `=>` was consumed.
	FatArrow
	// Definition means a definition keyword was reached; it is left unconsumed.
	Definition
)

func (t Terminator) String() string {
	switch t {
	case End:
		return "end of input"
	case In:
		return "'in'"
	case Else:
		return "'else'"
	case FatArrow:
		return "'=>'"
	case Definition:
		return "definition"
	default:
		return fmt.Sprintf("Terminator(%d)", int(t))
	}
}

// ErrorKind classifies lexing failures.
type ErrorKind int

const (
	ParenUnbalanced ErrorKind = iota + 1
	NumberParseFailure
	UnrecognizedString
	OperatorMatchFailure
	ControlStructureError
	WordNotFound
	OutOfMemory
)

func (k ErrorKind) String() string {
	switch k {
	case ParenUnbalanced:
		return "PARENTHESIS_UNBALANCED"
	case NumberParseFailure:
		return "NUMBER_PARSING_FAILURE"
	case UnrecognizedString:
		return "UNRECOGNIZED_STRING"
	case OperatorMatchFailure:
		return "OPERATOR_MATCH_FAILURE"
	case ControlStructureError:
		return "CONTROL_STRUCTURE_ERROR"
	case WordNotFound:
		return "WORD_NOT_FOUND"
	case OutOfMemory:
		return "OUT_OF_MEMORY"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a lexing failure at a position in the input.
type Error struct {
	Kind    ErrorKind
	Pos     Position
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Position implements the diagnostics locator.
func (e *Error) Position() Position { return e.Pos }
