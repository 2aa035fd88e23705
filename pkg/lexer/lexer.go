// Package lexer turns source text into a tree of tokens.
//
// Structured constructs (groups, lambdas, let and if) are lexed by spawning a
// sub-lexer over the rest of the range. A sub-lexer reports why it stopped
// through a Terminator, which the enclosing construct validates.
package lexer

import (
	"fmt"
	"strconv"

	"github.com/delyan-kirov/BC/pkg/arena"
)

// DefaultMaxDepth bounds sub-lexer nesting.
const DefaultMaxDepth = 256

// Options configures a lexer.
type Options struct {
	// MaxDepth limits nested constructs; 0 selects DefaultMaxDepth.
	MaxDepth int
}

func (o *Options) normalize() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.MaxDepth <= 0 {
		out.MaxDepth = DefaultMaxDepth
	}
	return out
}

// Lexer scans the range [begin, end) of a shared input buffer.
type Lexer struct {
	arena  *arena.Arena
	input  string
	end    int
	cursor int
	line   int
	// offset of the first byte of the current line
	lineStart int
	depth     int
	module    bool
	opts      Options
	tokens    *arena.Vec[Token]
}

// New returns an expression lexer over input[begin:end].
func New(a *arena.Arena, input string, begin, end int, opts *Options) *Lexer {
	l := &Lexer{
		arena:  a,
		input:  input,
		end:    end,
		cursor: begin,
		line:   1,
		opts:   opts.normalize(),
		tokens: arena.NewVec[Token](a),
	}
	for i := 0; i < begin && i < len(input); i++ {
		if input[i] == '\n' {
			l.line++
			l.lineStart = i + 1
		}
	}
	return l
}

// NewModule returns the top-level lexer, which only accepts definitions.
func NewModule(a *arena.Arena, input string, opts *Options) *Lexer {
	l := New(a, input, 0, len(input), opts)
	l.module = true
	return l
}

// Lex is a convenience wrapper lexing a whole expression.
func Lex(a *arena.Arena, input string) (Tokens, Terminator, error) {
	return New(a, input, 0, len(input), nil).Run()
}

// Cursor returns the offset where lexing stopped.
func (l *Lexer) Cursor() int { return l.cursor }

// Run lexes the range. On success it returns the tokens together with the
// reason it stopped.
func (l *Lexer) Run() (Tokens, Terminator, error) {
	if l.module {
		return l.runModule()
	}
	for l.cursor < l.end {
		c := l.input[l.cursor]
		switch {
		case c == '\n' || c == ' ' || c == '\t' || c == '\r' || c == '#':
			l.skipSpace()
		case c == '+':
			if err := l.operator(KindPlus, 1); err != nil {
				return nil, End, err
			}
		case c == '-':
			if err := l.operator(KindMinus, 1); err != nil {
				return nil, End, err
			}
		case c == '*':
			if err := l.operator(KindMult, 1); err != nil {
				return nil, End, err
			}
		case c == '/':
			if err := l.operator(KindDiv, 1); err != nil {
				return nil, End, err
			}
		case c == '%':
			if err := l.operator(KindModulus, 1); err != nil {
				return nil, End, err
			}
		case c == '?':
			if l.peek(1) != '=' {
				return nil, End, l.errorf(OperatorMatchFailure, l.pos(), "expected '?=' but found '?%s'", l.describe(1))
			}
			if err := l.operator(KindIsEq, 2); err != nil {
				return nil, End, err
			}
		case c == '=':
			if l.peek(1) != '>' {
				return nil, End, l.errorf(OperatorMatchFailure, l.pos(), "unexpected '='")
			}
			l.cursor += 2
			return l.finish(FatArrow)
		case c == '(':
			if err := l.group(); err != nil {
				return nil, End, err
			}
		case c == ')':
			return nil, End, l.errorf(ParenUnbalanced, l.pos(), "unmatched ')'")
		case c == '\\':
			term, err := l.lambda()
			if err != nil {
				return nil, End, err
			}
			if term != End {
				return l.finish(term)
			}
		case isDigit(c):
			if err := l.number(); err != nil {
				return nil, End, err
			}
		case isWordStart(c):
			start := l.pos()
			word := l.readWord()
			switch word {
			case "let":
				term, err := l.let(start)
				if err != nil {
					return nil, End, err
				}
				if term != End {
					return l.finish(term)
				}
			case "if":
				term, err := l.ifElse(start)
				if err != nil {
					return nil, End, err
				}
				if term != End {
					return l.finish(term)
				}
			case "in":
				return l.finish(In)
			case "else":
				return l.finish(Else)
			case "int", "pub":
				l.rewind(start)
				return l.finish(Definition)
			default:
				if err := emit(l, Word{tokenImpl: tokenImpl{KindWord, start}, Name: word}); err != nil {
					return nil, End, err
				}
			}
		default:
			return nil, End, l.errorf(UnrecognizedString, l.pos(), "unrecognized character %q", c)
		}
	}
	return l.finish(End)
}

func (l *Lexer) runModule() (Tokens, Terminator, error) {
	for {
		l.skipSpace()
		if l.cursor >= l.end {
			return l.finish(End)
		}
		start := l.pos()
		var word string
		if isWordStart(l.input[l.cursor]) {
			word = l.readWord()
		}
		var vis Visibility
		switch word {
		case "int":
			vis = Internal
		case "pub":
			vis = Public
		default:
			l.rewind(start)
			return nil, End, l.errorf(ControlStructureError, start, "expected a top-level definition ('int' or 'pub')")
		}
		if err := l.definition(start, vis); err != nil {
			return nil, End, err
		}
	}
}

func (l *Lexer) definition(start Position, vis Visibility) error {
	name, err := l.binder("definition")
	if err != nil {
		return err
	}
	body, term, err := l.sub(l.cursor, l.end)
	if err != nil {
		return err
	}
	if term != End && term != Definition {
		return l.errorf(ControlStructureError, l.pos(), "definition %q ended by unexpected %s", name, term)
	}
	return emit(l, Def{tokenImpl: tokenImpl{KindDef, start}, Visibility: vis, Name: name, Body: body})
}

// group lexes a parenthesized range as an independent sub-lexer.
func (l *Lexer) group() error {
	start := l.pos()
	closing := l.matchParen(l.cursor)
	if closing < 0 {
		return l.errorf(ParenUnbalanced, start, "unclosed '('")
	}
	l.cursor++
	inner, term, err := l.sub(l.cursor, closing)
	if err != nil {
		return err
	}
	if term != End {
		return l.errorf(ControlStructureError, l.pos(), "unexpected %s inside parentheses", term)
	}
	l.cursor = closing + 1
	return emit(l, Group{tokenImpl: tokenImpl{KindGroup, start}, Tokens: inner})
}

func (l *Lexer) lambda() (Terminator, error) {
	start := l.pos()
	l.cursor++
	param, err := l.binder("lambda")
	if err != nil {
		return End, err
	}
	body, term, err := l.sub(l.cursor, l.end)
	if err != nil {
		return End, err
	}
	return term, emit(l, Fn{tokenImpl: tokenImpl{KindFn, start}, Var: param, Body: body})
}

func (l *Lexer) let(start Position) (Terminator, error) {
	name, err := l.binder("let")
	if err != nil {
		return End, err
	}
	value, term, err := l.sub(l.cursor, l.end)
	if err != nil {
		return End, err
	}
	if term != In {
		return End, l.errorf(ControlStructureError, l.pos(), "let %q: expected 'in' but found %s", name, term)
	}
	cont, term, err := l.sub(l.cursor, l.end)
	if err != nil {
		return End, err
	}
	return term, emit(l, Let{tokenImpl: tokenImpl{KindLet, start}, Var: name, LetTokens: value, InTokens: cont})
}

func (l *Lexer) ifElse(start Position) (Terminator, error) {
	cond, term, err := l.sub(l.cursor, l.end)
	if err != nil {
		return End, err
	}
	if term != FatArrow {
		return End, l.errorf(ControlStructureError, l.pos(), "if: expected '=>' but found %s", term)
	}
	then, term, err := l.sub(l.cursor, l.end)
	if err != nil {
		return End, err
	}
	if term != Else {
		return End, l.errorf(ControlStructureError, l.pos(), "if: expected 'else' but found %s", term)
	}
	otherwise, term, err := l.sub(l.cursor, l.end)
	if err != nil {
		return End, err
	}
	return term, emit(l, If{tokenImpl: tokenImpl{KindIf, start}, Condition: cond, TrueBranch: then, ElseBranch: otherwise})
}

// binder reads `name =` for let, lambdas and definitions.
func (l *Lexer) binder(construct string) (string, error) {
	l.skipSpace()
	if l.cursor >= l.end || !isWordStart(l.input[l.cursor]) {
		return "", l.errorf(WordNotFound, l.pos(), "%s: expected a name", construct)
	}
	name := l.readWord()
	l.skipSpace()
	if l.peek(0) != '=' || l.peek(1) == '>' {
		return "", l.errorf(OperatorMatchFailure, l.pos(), "%s %q: expected '=' but found %s", construct, name, l.describe(0))
	}
	l.cursor++
	return name, nil
}

// sub runs a child lexer over [begin, end) and adopts its stopping point.
func (l *Lexer) sub(begin, end int) (Tokens, Terminator, error) {
	if l.depth+1 > l.opts.MaxDepth {
		return nil, End, l.errorf(ControlStructureError, l.pos(), "nesting exceeds %d levels", l.opts.MaxDepth)
	}
	child := &Lexer{
		arena:     l.arena,
		input:     l.input,
		end:       end,
		cursor:    begin,
		line:      l.line,
		lineStart: l.lineStart,
		depth:     l.depth + 1,
		opts:      l.opts,
		tokens:    arena.NewVec[Token](l.arena),
	}
	toks, term, err := child.Run()
	if err != nil {
		return nil, End, err
	}
	l.cursor = child.cursor
	l.line = child.line
	l.lineStart = child.lineStart
	return toks, term, nil
}

func (l *Lexer) number() error {
	start := l.pos()
	for l.cursor < l.end && isDigit(l.input[l.cursor]) {
		l.cursor++
	}
	text := l.input[start.Offset:l.cursor]
	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return &Error{Kind: NumberParseFailure, Pos: start, Message: fmt.Sprintf("invalid integer literal %s", text), Err: err}
	}
	return emit(l, Int{tokenImpl: tokenImpl{KindInt, start}, Value: value})
}

func (l *Lexer) operator(kind Kind, width int) error {
	start := l.pos()
	l.cursor += width
	return emit(l, Operator{tokenImpl{kind, start}})
}

// matchParen returns the offset of the ')' closing the '(' at open, or -1.
func (l *Lexer) matchParen(open int) int {
	depth := 0
	for i := open; i < l.end; i++ {
		switch l.input[i] {
		case '#':
			for i < l.end && l.input[i] != '\n' {
				i++
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (l *Lexer) skipSpace() {
	for l.cursor < l.end {
		switch l.input[l.cursor] {
		case '\n':
			l.cursor++
			l.line++
			l.lineStart = l.cursor
		case ' ', '\t', '\r':
			l.cursor++
		case '#':
			for l.cursor < l.end && l.input[l.cursor] != '\n' {
				l.cursor++
			}
		default:
			return
		}
	}
}

func (l *Lexer) readWord() string {
	start := l.cursor
	for l.cursor < l.end && isWordPart(l.input[l.cursor]) {
		l.cursor++
	}
	return l.input[start:l.cursor]
}

func (l *Lexer) rewind(p Position) {
	l.cursor = p.Offset
	l.line = p.Line
	l.lineStart = p.Offset - (p.Column - 1)
}

func (l *Lexer) finish(term Terminator) (Tokens, Terminator, error) {
	return Tokens(l.tokens.Items()), term, nil
}

func (l *Lexer) pos() Position {
	return Position{Offset: l.cursor, Line: l.line, Column: l.cursor - l.lineStart + 1}
}

func (l *Lexer) peek(n int) byte {
	if l.cursor+n >= l.end {
		return 0
	}
	return l.input[l.cursor+n]
}

func (l *Lexer) describe(n int) string {
	if c := l.peek(n); c != 0 {
		return strconv.QuoteRune(rune(c))
	}
	return "end of input"
}

func (l *Lexer) errorf(kind ErrorKind, pos Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// emit places tok in the arena and appends it to the token list.
func emit[T any, PT interface {
	*T
	Token
}](l *Lexer, tok T) error {
	p, err := arena.NewValue(l.arena, tok)
	if err == nil {
		err = l.tokens.Push(PT(p))
	}
	if err != nil {
		return &Error{Kind: OutOfMemory, Pos: l.pos(), Message: "token allocation failed", Err: err}
	}
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordPart(c byte) bool { return isWordStart(c) || isDigit(c) || c == '\'' }
