package ast

// Short constructors for tests and builtins.

func I(value int64) *Int { return NewInt(value) }

func S(value string) *Str { return NewStr(value) }

func V(name string) *Var { return NewVar(name) }

func Add(left, right Expr) *Binary { return NewBinary(NodeAdd, left, right) }

func Sub(left, right Expr) *Binary { return NewBinary(NodeSub, left, right) }

func Mul(left, right Expr) *Binary { return NewBinary(NodeMult, left, right) }

func Div(left, right Expr) *Binary { return NewBinary(NodeDiv, left, right) }

func Mod(left, right Expr) *Binary { return NewBinary(NodeModulus, left, right) }

func Eq(left, right Expr) *Binary { return NewBinary(NodeIsEq, left, right) }

func Neg(operand Expr) *Minus { return NewMinus(operand) }

// Lam nests one FnDef per parameter around body.
func Lam(body Expr, params ...string) *FnDef {
	if len(params) == 0 {
		panic("ast.Lam: at least one parameter required")
	}
	for i := len(params) - 1; i > 0; i-- {
		body = NewFnDef(params[i], body)
	}
	return NewFnDef(params[0], body)
}

func App(def *FnDef, args ...Expr) *FnApp { return NewFnApp(def, args...) }

func Call(name string, args ...Expr) *VarApp { return NewVarApp(name, args...) }

func LetIn(name string, value, continuation Expr) *Let { return NewLet(name, value, continuation) }

func Cond(condition, trueBranch, elseBranch Expr) *If {
	return NewIf(condition, trueBranch, elseBranch)
}
