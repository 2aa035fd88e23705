// Package parser builds expression trees from lexer tokens.
//
// Operators come in two tiers. Mult, Div, Modulus and IsEq take the next
// operand directly; Plus and Minus first gather any high-tier chain to their
// right. Unary minus binds tighter than both tiers, and a primary directly
// following an applicable expression becomes one of its arguments.
package parser

import (
	"github.com/delyan-kirov/BC/pkg/arena"
	"github.com/delyan-kirov/BC/pkg/ast"
	"github.com/delyan-kirov/BC/pkg/lexer"
)

// Parser consumes tokens[begin:end] into an accumulator of expressions.
// Child parsers share the token slice and arena.
type Parser struct {
	arena  *arena.Arena
	tokens lexer.Tokens
	begin  int
	end    int
	exprs  *arena.Vec[ast.Expr]
}

// New returns a parser over tokens[begin:end].
func New(a *arena.Arena, tokens lexer.Tokens, begin, end int) *Parser {
	return &Parser{
		arena:  a,
		tokens: tokens,
		begin:  begin,
		end:    end,
		exprs:  arena.NewVec[ast.Expr](a),
	}
}

// Parse parses a complete token list and returns its final expression.
func Parse(a *arena.Arena, tokens lexer.Tokens) (ast.Expr, error) {
	return New(a, tokens, 0, len(tokens)).single(nil)
}

// Run parses the range and returns the accumulated expressions.
func (p *Parser) Run() (ast.Exprs, error) {
	i := p.begin
	for i < p.end {
		tok := p.tokens[i]
		kind := tok.Kind()
		switch {
		case kind == lexer.KindMinus && p.unaryAt(i):
			next, err := p.unary(i)
			if err != nil {
				return nil, err
			}
			i = next
		case kind.IsOperator():
			next, err := p.binary(i)
			if err != nil {
				return nil, err
			}
			i = next
		case isPrimary(tok):
			expr, err := p.primary(tok)
			if err != nil {
				return nil, err
			}
			if i > p.begin && isPrimary(p.tokens[i-1]) && p.exprs.Len() > 0 {
				applied, ok, err := p.apply(p.exprs.Last(), expr)
				if err != nil {
					return nil, err
				}
				if ok {
					p.exprs.Set(p.exprs.Len()-1, applied)
					i++
					continue
				}
			}
			if err := p.push(expr); err != nil {
				return nil, err
			}
			i++
		default:
			return nil, errorAt(UnexpectedToken, tok, "unexpected %s in expression", kind)
		}
	}
	return ast.Exprs(p.exprs.Items()), nil
}

// unaryAt reports whether the Minus at i negates rather than subtracts.
func (p *Parser) unaryAt(i int) bool {
	if p.exprs.Len() == 0 {
		return true
	}
	return i > p.begin && p.tokens[i-1].Kind().IsOperator()
}

func (p *Parser) unary(i int) (int, error) {
	end, err := p.operandEnd(i + 1)
	if err != nil {
		return 0, p.unaryError(i, err)
	}
	operand, err := p.child(i+1, end).single(p.tokens[i])
	if err != nil {
		return 0, err
	}
	expr, err := place(p, *ast.NewMinus(operand))
	if err != nil {
		return 0, err
	}
	return end, p.push(expr)
}

func (p *Parser) unaryError(i int, err error) error {
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind == OutOfMemory {
		return err
	}
	if pe.Kind == InvalidUnaryContext {
		return pe
	}
	return errorAt(InvalidUnaryContext, p.tokens[i], "'-' is not followed by an operand")
}

func (p *Parser) binary(i int) (int, error) {
	op := p.tokens[i]
	if p.exprs.Len() == 0 {
		return 0, errorAt(UnexpectedToken, op, "operator %s has no left operand", op.Kind())
	}
	end, err := p.operandEnd(i + 1)
	if err != nil {
		return 0, err
	}
	if isLowTier(op.Kind()) {
		for end < p.end && isHighTier(p.tokens[end].Kind()) {
			if end, err = p.operandEnd(end + 1); err != nil {
				return 0, err
			}
		}
	}
	right, err := p.child(i+1, end).single(op)
	if err != nil {
		return 0, err
	}
	expr, err := place(p, *ast.NewBinary(nodeTypeFor(op.Kind()), p.exprs.Last(), right))
	if err != nil {
		return 0, err
	}
	p.exprs.Set(p.exprs.Len()-1, expr)
	return end, nil
}

// operandEnd returns the end of the operand starting at i: any unary minus
// prefix, one primary, and the arguments juxtaposed to it.
func (p *Parser) operandEnd(i int) (int, error) {
	j := i
	for j < p.end && p.tokens[j].Kind() == lexer.KindMinus {
		j++
	}
	if j >= p.end {
		if j > i {
			return 0, errorAt(InvalidUnaryContext, p.tokens[j-1], "'-' is not followed by an operand")
		}
		var prev lexer.Token
		if i > 0 {
			prev = p.tokens[i-1]
		}
		return 0, errorAt(ArityMismatch, prev, "missing operand")
	}
	head := p.tokens[j]
	if !isPrimary(head) {
		if j > i {
			return 0, errorAt(InvalidUnaryContext, p.tokens[j-1], "'-' followed by %s", head.Kind())
		}
		return 0, errorAt(UnexpectedToken, head, "expected an operand but found %s", head.Kind())
	}
	j++
	switch head.Kind() {
	case lexer.KindWord, lexer.KindFn, lexer.KindGroup:
		for j < p.end && isPrimary(p.tokens[j]) {
			j++
		}
	}
	return j, nil
}

func (p *Parser) child(begin, end int) *Parser {
	return New(p.arena, p.tokens, begin, end)
}

// single runs the parser and returns the last expression, failing when the
// range produced none. at locates the error.
func (p *Parser) single(at lexer.Token) (ast.Expr, error) {
	exprs, err := p.Run()
	if err != nil {
		return nil, err
	}
	if len(exprs) == 0 {
		if at == nil && p.begin < len(p.tokens) {
			at = p.tokens[p.begin]
		}
		return nil, errorAt(ArityMismatch, at, "expected an expression")
	}
	return exprs.Last(), nil
}

func (p *Parser) primary(tok lexer.Token) (ast.Expr, error) {
	switch t := tok.(type) {
	case *lexer.Int:
		return place(p, *ast.NewInt(t.Value))
	case *lexer.Word:
		return place(p, *ast.NewVar(t.Name))
	case *lexer.Group:
		return p.nested(t.Tokens, t)
	case *lexer.Let:
		value, err := p.nested(t.LetTokens, t)
		if err != nil {
			return nil, err
		}
		cont, err := p.nested(t.InTokens, t)
		if err != nil {
			return nil, err
		}
		return place(p, *ast.NewLet(t.Var, value, cont))
	case *lexer.Fn:
		body, err := p.nested(t.Body, t)
		if err != nil {
			return nil, err
		}
		return place(p, *ast.NewFnDef(t.Var, body))
	case *lexer.If:
		cond, err := p.nested(t.Condition, t)
		if err != nil {
			return nil, err
		}
		then, err := p.nested(t.TrueBranch, t)
		if err != nil {
			return nil, err
		}
		otherwise, err := p.nested(t.ElseBranch, t)
		if err != nil {
			return nil, err
		}
		return place(p, *ast.NewIf(cond, then, otherwise))
	default:
		return nil, errorAt(UnexpectedToken, tok, "unexpected %s", tok.Kind())
	}
}

func (p *Parser) nested(tokens lexer.Tokens, owner lexer.Token) (ast.Expr, error) {
	return New(p.arena, tokens, 0, len(tokens)).single(owner)
}

// apply attaches arg to an applicable expression. ok is false when last
// cannot take arguments.
func (p *Parser) apply(last, arg ast.Expr) (ast.Expr, bool, error) {
	switch fn := last.(type) {
	case *ast.Var:
		args, err := p.appendArg(nil, arg)
		if err != nil {
			return nil, false, err
		}
		expr, err := place(p, *ast.NewVarApp(fn.Name, args...))
		return expr, err == nil, err
	case *ast.VarApp:
		args, err := p.appendArg(fn.Args, arg)
		fn.Args = args
		return fn, err == nil, err
	case *ast.FnDef:
		args, err := p.appendArg(nil, arg)
		if err != nil {
			return nil, false, err
		}
		expr, err := place(p, *ast.NewFnApp(fn, args...))
		return expr, err == nil, err
	case *ast.FnApp:
		args, err := p.appendArg(fn.Args, arg)
		fn.Args = args
		return fn, err == nil, err
	default:
		return nil, false, nil
	}
}

func (p *Parser) appendArg(args []ast.Expr, arg ast.Expr) ([]ast.Expr, error) {
	if len(args) == cap(args) {
		grown, err := arena.MakeSlice[ast.Expr](p.arena, max(2*len(args), 2))
		if err != nil {
			return args, oom(err)
		}
		grown = grown[:copy(grown, args)]
		args = grown
	}
	return append(args, arg), nil
}

func (p *Parser) push(expr ast.Expr) error {
	if err := p.exprs.Push(expr); err != nil {
		return oom(err)
	}
	return nil
}

// place moves a node into the arena.
func place[T any, PT interface {
	*T
	ast.Expr
}](p *Parser, node T) (PT, error) {
	ptr, err := arena.NewValue(p.arena, node)
	if err != nil {
		return nil, oom(err)
	}
	return PT(ptr), nil
}

func oom(err error) error {
	return &ParseError{Kind: OutOfMemory, Message: "node allocation failed", Err: err}
}

func isPrimary(tok lexer.Token) bool {
	switch tok.Kind() {
	case lexer.KindInt, lexer.KindGroup, lexer.KindWord, lexer.KindLet, lexer.KindFn, lexer.KindIf:
		return true
	}
	return false
}

func isLowTier(k lexer.Kind) bool { return k == lexer.KindPlus || k == lexer.KindMinus }

func isHighTier(k lexer.Kind) bool {
	switch k {
	case lexer.KindMult, lexer.KindDiv, lexer.KindModulus, lexer.KindIsEq:
		return true
	}
	return false
}

func nodeTypeFor(k lexer.Kind) ast.NodeType {
	switch k {
	case lexer.KindPlus:
		return ast.NodeAdd
	case lexer.KindMinus:
		return ast.NodeSub
	case lexer.KindMult:
		return ast.NodeMult
	case lexer.KindDiv:
		return ast.NodeDiv
	case lexer.KindModulus:
		return ast.NodeModulus
	default:
		return ast.NodeIsEq
	}
}
