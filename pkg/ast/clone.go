package ast

// Clone deep-copies e onto the Go heap so the result does not share storage
// with the arena the parser allocated it from.
func Clone(e Expr) Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *Int:
		return NewInt(n.Value)
	case *Str:
		return NewStr(cloneString(n.Value))
	case *Var:
		return NewVar(cloneString(n.Name))
	case *Binary:
		return NewBinary(n.Type, Clone(n.Left), Clone(n.Right))
	case *Minus:
		return NewMinus(Clone(n.Operand))
	case *FnDef:
		return cloneFnDef(n)
	case *FnApp:
		return NewFnApp(cloneFnDef(n.Def), cloneArgs(n.Args)...)
	case *VarApp:
		return NewVarApp(cloneString(n.Name), cloneArgs(n.Args)...)
	case *Let:
		return NewLet(cloneString(n.Var), Clone(n.Value), Clone(n.Continuation))
	case *If:
		return NewIf(Clone(n.Condition), Clone(n.TrueBranch), Clone(n.ElseBranch))
	default:
		return e
	}
}

func cloneFnDef(def *FnDef) *FnDef {
	if def == nil {
		return nil
	}
	return NewFnDef(cloneString(def.Param), Clone(def.Body))
}

func cloneArgs(args []Expr) []Expr {
	if args == nil {
		return nil
	}
	out := make([]Expr, len(args))
	for i, arg := range args {
		out[i] = Clone(arg)
	}
	return out
}

func cloneString(s string) string {
	return string([]byte(s))
}
