package ast

type NodeType string

const (
	NodeInt     NodeType = "Int"
	NodeStr     NodeType = "Str"
	NodeVar     NodeType = "Var"
	NodeAdd     NodeType = "Add"
	NodeSub     NodeType = "Sub"
	NodeMult    NodeType = "Mult"
	NodeDiv     NodeType = "Div"
	NodeModulus NodeType = "Modulus"
	NodeIsEq    NodeType = "IsEq"
	NodeMinus   NodeType = "Minus"
	NodeFnDef   NodeType = "FnDef"
	NodeFnApp   NodeType = "FnApp"
	NodeVarApp  NodeType = "VarApp"
	NodeLet     NodeType = "Let"
	NodeIf      NodeType = "If"
)

// Expr is the sealed set of expression nodes.
type Expr interface {
	NodeType() NodeType
	String() string
	isNode()
}

// Exprs is the parser's accumulator; only the last element of a fully parsed
// range is meaningful.
type Exprs []Expr

// Last returns the final expression or nil.
func (es Exprs) Last() Expr {
	if len(es) == 0 {
		return nil
	}
	return es[len(es)-1]
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Values

type Int struct {
	nodeImpl

	Value int64 `json:"value"`
}

func NewInt(value int64) *Int {
	return &Int{nodeImpl: newNodeImpl(NodeInt), Value: value}
}

func (e *Int) String() string { return Format(e) }

// Str only arises from foreign routines returning strings.
type Str struct {
	nodeImpl

	Value string `json:"value"`
}

func NewStr(value string) *Str {
	return &Str{nodeImpl: newNodeImpl(NodeStr), Value: value}
}

func (e *Str) String() string { return Format(e) }

type Var struct {
	nodeImpl

	Name string `json:"name"`
}

func NewVar(name string) *Var {
	return &Var{nodeImpl: newNodeImpl(NodeVar), Name: name}
}

func (e *Var) String() string { return Format(e) }

// Operators

// Binary covers Add, Sub, Mult, Div, Modulus and IsEq; the node type selects
// the operation.
type Binary struct {
	nodeImpl

	Left  Expr `json:"left"`
	Right Expr `json:"right"`
}

func NewBinary(kind NodeType, left, right Expr) *Binary {
	return &Binary{nodeImpl: newNodeImpl(kind), Left: left, Right: right}
}

func (e *Binary) String() string { return Format(e) }

// Minus is unary negation.
type Minus struct {
	nodeImpl

	Operand Expr `json:"operand"`
}

func NewMinus(operand Expr) *Minus {
	return &Minus{nodeImpl: newNodeImpl(NodeMinus), Operand: operand}
}

func (e *Minus) String() string { return Format(e) }

// Functions

// FnDef is a single-parameter lambda. Multi-parameter functions are nested
// FnDefs.
type FnDef struct {
	nodeImpl

	Param string `json:"param"`
	Body  Expr   `json:"body"`
}

func NewFnDef(param string, body Expr) *FnDef {
	return &FnDef{nodeImpl: newNodeImpl(NodeFnDef), Param: param, Body: body}
}

func (e *FnDef) String() string { return Format(e) }

// FnApp applies a lambda literal to arguments.
type FnApp struct {
	nodeImpl

	Def  *FnDef `json:"def"`
	Args []Expr `json:"args"`
}

func NewFnApp(def *FnDef, args ...Expr) *FnApp {
	return &FnApp{nodeImpl: newNodeImpl(NodeFnApp), Def: def, Args: args}
}

func (e *FnApp) String() string { return Format(e) }

// VarApp applies whatever a name is bound to.
type VarApp struct {
	nodeImpl

	Name string `json:"name"`
	Args []Expr `json:"args"`
}

func NewVarApp(name string, args ...Expr) *VarApp {
	return &VarApp{nodeImpl: newNodeImpl(NodeVarApp), Name: name, Args: args}
}

func (e *VarApp) String() string { return Format(e) }

// Control flow

type Let struct {
	nodeImpl

	Var          string `json:"var"`
	Value        Expr   `json:"value"`
	Continuation Expr   `json:"continuation"`
}

func NewLet(name string, value, continuation Expr) *Let {
	return &Let{nodeImpl: newNodeImpl(NodeLet), Var: name, Value: value, Continuation: continuation}
}

func (e *Let) String() string { return Format(e) }

type If struct {
	nodeImpl

	Condition  Expr `json:"condition"`
	TrueBranch Expr `json:"trueBranch"`
	ElseBranch Expr `json:"elseBranch"`
}

func NewIf(condition, trueBranch, elseBranch Expr) *If {
	return &If{nodeImpl: newNodeImpl(NodeIf), Condition: condition, TrueBranch: trueBranch, ElseBranch: elseBranch}
}

func (e *If) String() string { return Format(e) }
