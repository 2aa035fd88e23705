package interpreter

import (
	"github.com/delyan-kirov/BC/pkg/ast"
	"github.com/delyan-kirov/BC/pkg/foreign"
	"github.com/delyan-kirov/BC/pkg/runtime"
)

func (i *Interpreter) callForeign(call ast.Expr, name string, args []ast.Expr, env *runtime.Environment) (ast.Expr, error) {
	entry, _ := i.foreign.Lookup(name)
	values := make([]foreign.Value, len(args))
	for idx, arg := range args {
		v, err := i.Eval(arg, env)
		if err != nil {
			return nil, err
		}
		switch val := v.(type) {
		case *ast.Int:
			values[idx] = foreign.IntValue(val.Value)
		case *ast.Str:
			values[idx] = foreign.StrValue(val.Value)
		default:
			return nil, newError(ForeignCall, call, "%s: argument %d cannot be marshalled: %s", name, idx+1, v)
		}
	}
	i.trace.Debugf("foreign %s", entry.Descriptor)
	out, err := entry.Call(values)
	if err != nil {
		return nil, &Error{Kind: ForeignCall, Expr: call, Message: err.Error(), Err: err}
	}
	if out.Type == foreign.Str {
		return ast.NewStr(out.Str), nil
	}
	return ast.NewInt(out.Int), nil
}
