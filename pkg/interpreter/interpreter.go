// Package interpreter reduces expressions to values: integers, lambdas, or
// strings returned by host routines.
package interpreter

import (
	"github.com/delyan-kirov/BC/pkg/ast"
	"github.com/delyan-kirov/BC/pkg/foreign"
	"github.com/delyan-kirov/BC/pkg/runtime"
	"github.com/delyan-kirov/BC/pkg/trace"
)

// DefaultMaxDepth bounds nested evaluation.
const DefaultMaxDepth = 10000

type Options struct {
	// MaxDepth limits evaluation nesting; 0 selects DefaultMaxDepth.
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

// Interpreter evaluates expressions. It carries the host routine table and
// the trace log; there is no interpreter-wide variable state.
type Interpreter struct {
	foreign *foreign.Table
	trace   *trace.Log
	opts    Options
	depth   int
}

// New returns an interpreter. A nil table disables host routines and a nil
// log disables tracing.
func New(table *foreign.Table, log *trace.Log, opts *Options) *Interpreter {
	return &Interpreter{foreign: table, trace: log, opts: opts.normalize()}
}

// Eval reduces expr under env.
func (i *Interpreter) Eval(expr ast.Expr, env *runtime.Environment) (ast.Expr, error) {
	i.depth++
	defer func() { i.depth-- }()
	if i.depth > i.opts.MaxDepth {
		return nil, newError(RecursionLimit, expr, "evaluation nested deeper than %d", i.opts.MaxDepth)
	}
	i.trace.Debugf("eval %s", expr)

	switch n := expr.(type) {
	case *ast.Int, *ast.Str, *ast.FnDef:
		return expr, nil
	case *ast.Binary:
		return i.evalBinary(n, env)
	case *ast.Minus:
		v, err := i.evalInt(n.Operand, env, n)
		if err != nil {
			return nil, err
		}
		return ast.NewInt(-v), nil
	case *ast.Var:
		if v, ok := env.Get(n.Name); ok {
			return v, nil
		}
		if _, ok := i.foreign.Lookup(n.Name); ok {
			return i.callForeign(n, n.Name, nil, env)
		}
		return nil, newError(UnboundVariable, n, "%s is not bound", n.Name)
	case *ast.Let:
		value, err := i.Eval(n.Value, env)
		if err != nil {
			return nil, err
		}
		return i.Eval(n.Continuation, env.Extend(n.Var, value))
	case *ast.If:
		cond, err := i.evalInt(n.Condition, env, n)
		if err != nil {
			return nil, err
		}
		if cond != 0 {
			return i.Eval(n.TrueBranch, env)
		}
		return i.Eval(n.ElseBranch, env)
	case *ast.FnApp:
		return i.apply(n, n.Def, n.Args, env)
	case *ast.VarApp:
		fn, ok := env.Get(n.Name)
		if !ok {
			if _, ok := i.foreign.Lookup(n.Name); ok {
				return i.callForeign(n, n.Name, n.Args, env)
			}
			return nil, newError(UnboundVariable, n, "%s is not bound", n.Name)
		}
		def, ok := fn.(*ast.FnDef)
		if !ok {
			return nil, newError(NotAFunction, n, "%s is bound to %s, not a function", n.Name, fn)
		}
		return i.apply(n, def, n.Args, env)
	default:
		if expr == nil {
			return nil, newError(UnsupportedNodeType, nil, "nil expression")
		}
		return nil, newError(UnsupportedNodeType, expr, "cannot evaluate %s", expr.NodeType())
	}
}

// apply binds args one at a time. Each argument is evaluated in the caller's
// environment and bound to the parameter of the current lambda; when the body
// is itself a lambda (directly or after reduction) it takes the next one.
func (i *Interpreter) apply(call ast.Expr, def *ast.FnDef, args []ast.Expr, env *runtime.Environment) (ast.Expr, error) {
	values := make([]ast.Expr, len(args))
	for idx, arg := range args {
		v, err := i.Eval(arg, env)
		if err != nil {
			return nil, err
		}
		values[idx] = v
	}

	callEnv := env
	var body ast.Expr = def
	for idx, v := range values {
		fn, ok := body.(*ast.FnDef)
		if !ok {
			reduced, err := i.Eval(body, callEnv)
			if err != nil {
				return nil, err
			}
			if fn, ok = reduced.(*ast.FnDef); !ok {
				return nil, newError(NotAFunction, call, "argument %d applied to %s", idx+1, reduced)
			}
		}
		callEnv = callEnv.Extend(fn.Param, v)
		body = fn.Body
	}
	return i.Eval(body, callEnv)
}

func (i *Interpreter) evalBinary(n *ast.Binary, env *runtime.Environment) (ast.Expr, error) {
	left, err := i.evalInt(n.Left, env, n)
	if err != nil {
		return nil, err
	}
	right, err := i.evalInt(n.Right, env, n)
	if err != nil {
		return nil, err
	}
	var out int64
	switch n.Type {
	case ast.NodeAdd:
		out = left + right
	case ast.NodeSub:
		out = left - right
	case ast.NodeMult:
		out = left * right
	case ast.NodeDiv, ast.NodeModulus:
		if right == 0 {
			return nil, newError(DivisionByZero, n, "%d %s 0", left, ast.Symbol(n.Type))
		}
		if n.Type == ast.NodeDiv {
			out = left / right
		} else {
			out = left % right
		}
	case ast.NodeIsEq:
		if left == right {
			out = 1
		}
	default:
		return nil, newError(UnsupportedNodeType, n, "unknown binary operator %s", n.Type)
	}
	return ast.NewInt(out), nil
}

// evalInt reduces expr and requires an integer result.
func (i *Interpreter) evalInt(expr ast.Expr, env *runtime.Environment, owner ast.Expr) (int64, error) {
	v, err := i.Eval(expr, env)
	if err != nil {
		return 0, err
	}
	n, ok := v.(*ast.Int)
	if !ok {
		return 0, newError(InvalidOperand, owner, "%s needs an integer operand, got %s", owner.NodeType(), v)
	}
	return n.Value, nil
}
