package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a token variant.
type Kind int

const (
	KindInt Kind = iota + 1
	KindPlus
	KindMinus
	KindMult
	KindDiv
	KindModulus
	KindIsEq
	KindGroup
	KindWord
	KindLet
	KindFn
	KindIf
	KindDef
)

var kindNames = map[Kind]string{
	KindInt:     "Int",
	KindPlus:    "Plus",
	KindMinus:   "Minus",
	KindMult:    "Mult",
	KindDiv:     "Div",
	KindModulus: "Modulus",
	KindIsEq:    "IsEq",
	KindGroup:   "Group",
	KindWord:    "Word",
	KindLet:     "Let",
	KindFn:      "Fn",
	KindIf:      "If",
	KindDef:     "Def",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsOperator reports whether k is one of the infix operator markers.
func (k Kind) IsOperator() bool {
	return k >= KindPlus && k <= KindIsEq
}

// Position locates a token in the shared input buffer. Line and Column are
// 1-based.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is the sealed set of lexical units.
type Token interface {
	Kind() Kind
	Pos() Position
	String() string
	isToken()
}

type tokenImpl struct {
	kind Kind
	pos  Position
}

func (t tokenImpl) Kind() Kind     { return t.kind }
func (t tokenImpl) Pos() Position  { return t.pos }
func (tokenImpl) isToken()         {}
func (t tokenImpl) String() string { return t.kind.String() }

// Tokens is an ordered token list.
type Tokens []Token

func (ts Tokens) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, t := range ts {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(t.String())
	}
	b.WriteString("]")
	return b.String()
}

type Int struct {
	tokenImpl
	Value int64
}

func (t *Int) String() string { return "Int(" + strconv.FormatInt(t.Value, 10) + ")" }

// Operator covers Plus, Minus, Mult, Div, Modulus and IsEq.
type Operator struct {
	tokenImpl
}

// Group holds the tokens of one matched parenthesis pair.
type Group struct {
	tokenImpl
	Tokens Tokens
}

func (t *Group) String() string { return "Group" + t.Tokens.String() }

// Word is an identifier.
type Word struct {
	tokenImpl
	Name string
}

func (t *Word) String() string { return "Word(" + t.Name + ")" }

// Let is `let Var = LetTokens in InTokens`.
type Let struct {
	tokenImpl
	Var       string
	LetTokens Tokens
	InTokens  Tokens
}

func (t *Let) String() string {
	return fmt.Sprintf("Let(%s = %s in %s)", t.Var, t.LetTokens, t.InTokens)
}

// Fn is `\Var = Body`.
type Fn struct {
	tokenImpl
	Var  string
	Body Tokens
}

func (t *Fn) String() string { return fmt.Sprintf("Fn(%s = %s)", t.Var, t.Body) }

type If struct {
	tokenImpl
	Condition  Tokens
	TrueBranch Tokens
	ElseBranch Tokens
}

func (t *If) String() string {
	return fmt.Sprintf("If(%s => %s else %s)", t.Condition, t.TrueBranch, t.ElseBranch)
}

// Visibility distinguishes module-private from exported definitions.
type Visibility int

const (
	Internal Visibility = iota
	Public
)

func (v Visibility) String() string {
	if v == Public {
		return "pub"
	}
	return "int"
}

// Def is a top-level `int Name = Body` or `pub Name = Body` definition.
type Def struct {
	tokenImpl
	Visibility Visibility
	Name       string
	Body       Tokens
}

func (t *Def) String() string {
	return fmt.Sprintf("Def(%s %s = %s)", t.Visibility, t.Name, t.Body)
}

// GroupDepth returns the deepest Group nesting found in ts, looking through
// structured tokens.
func GroupDepth(ts Tokens) int {
	depth := 0
	for _, t := range ts {
		var d int
		switch tok := t.(type) {
		case *Group:
			d = 1 + GroupDepth(tok.Tokens)
		case *Let:
			d = max(GroupDepth(tok.LetTokens), GroupDepth(tok.InTokens))
		case *Fn:
			d = GroupDepth(tok.Body)
		case *If:
			d = max(GroupDepth(tok.Condition), GroupDepth(tok.TrueBranch), GroupDepth(tok.ElseBranch))
		case *Def:
			d = GroupDepth(tok.Body)
		}
		depth = max(depth, d)
	}
	return depth
}
