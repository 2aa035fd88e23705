package ast

import (
	"fmt"
	"strconv"
	"strings"
)

var operatorSymbols = map[NodeType]string{
	NodeAdd:     "+",
	NodeSub:     "-",
	NodeMult:    "*",
	NodeDiv:     "/",
	NodeModulus: "%",
	NodeIsEq:    "?=",
}

// Symbol returns the source spelling of a binary operator.
func Symbol(t NodeType) string { return operatorSymbols[t] }

// Format renders an expression in fully parenthesized source-like form.
func Format(e Expr) string {
	var b strings.Builder
	write(&b, e)
	return b.String()
}

func write(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Int:
		b.WriteString(strconv.FormatInt(n.Value, 10))
	case *Str:
		b.WriteString(strconv.Quote(n.Value))
	case *Var:
		b.WriteString(n.Name)
	case *Binary:
		b.WriteByte('(')
		write(b, n.Left)
		b.WriteString(" " + Symbol(n.Type) + " ")
		write(b, n.Right)
		b.WriteByte(')')
	case *Minus:
		b.WriteByte('-')
		write(b, n.Operand)
	case *FnDef:
		b.WriteString(`(\` + n.Param + " = ")
		write(b, n.Body)
		b.WriteByte(')')
	case *FnApp:
		write(b, n.Def)
		writeArgs(b, n.Args)
	case *VarApp:
		b.WriteString(n.Name)
		writeArgs(b, n.Args)
	case *Let:
		b.WriteString("(let " + n.Var + " = ")
		write(b, n.Value)
		b.WriteString(" in ")
		write(b, n.Continuation)
		b.WriteByte(')')
	case *If:
		b.WriteString("(if ")
		write(b, n.Condition)
		b.WriteString(" => ")
		write(b, n.TrueBranch)
		b.WriteString(" else ")
		write(b, n.ElseBranch)
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "<%T>", e)
	}
}

func writeArgs(b *strings.Builder, args []Expr) {
	b.WriteByte('(')
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		write(b, arg)
	}
	b.WriteByte(')')
}
