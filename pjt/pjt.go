// Package pjt defines the annotated syntax tree consumed by the code generator.
//
// Every expression node carries its resolved type and every variable reference
// its resolved symbol. Expressions and statements are closed sets of node types;
// generators switch over them exhaustively.
package pjt

import (
	"fmt"

	"github.com/fzipp/pascal-jvm/pjb"
)

type Op int

// operators
const (
	OpEql Op = 1 + iota
	OpNeq
	OpLss
	OpLeq
	OpGtr
	OpGeq

	OpPlus
	OpMinus
	OpOr

	OpTimes
	OpSlash
	OpDiv
	OpMod
	OpAnd
)

var opNames = [...]string{
	OpEql:   "=",
	OpNeq:   "<>",
	OpLss:   "<",
	OpLeq:   "<=",
	OpGtr:   ">",
	OpGeq:   ">=",
	OpPlus:  "+",
	OpMinus: "-",
	OpOr:    "or",
	OpTimes: "*",
	OpSlash: "/",
	OpDiv:   "div",
	OpMod:   "mod",
	OpAnd:   "and",
}

func (op Op) String() string {
	if op > 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

// ParseOp returns the operator spelled s.
func ParseOp(s string) (Op, bool) {
	for op, name := range opNames {
		if name != "" && name == s {
			return Op(op), true
		}
	}
	return 0, false
}

func (op Op) IsRelation() bool       { return op >= OpEql && op <= OpGeq }
func (op Op) IsAdditive() bool       { return op >= OpPlus && op <= OpOr }
func (op Op) IsMultiplicative() bool { return op >= OpTimes && op <= OpAnd }

// An Expr is one of *Relation, *Sum, *Product, *Not, *IntLit, *RealLit,
// *CharLit, *StringLit, *VarRef, *Call or *StdCall.
type Expr interface {
	Type() pjb.Type
	expr()
}

type (
	// X Op Y with Op a relation
	Relation struct {
		Op   Op
		X, Y Expr
	}

	// [-] Terms[0] Ops[0] Terms[1] ...
	Sum struct {
		Neg   bool
		Terms []Expr
		Ops   []Op
		Typ   pjb.Type
	}

	// Factors[0] Ops[0] Factors[1] ...
	Product struct {
		Factors []Expr
		Ops     []Op
		Typ     pjb.Type
	}

	Not struct {
		X Expr
	}

	IntLit struct {
		Val int32
	}

	RealLit struct {
		Val float32
	}

	CharLit struct {
		Val rune
	}

	StringLit struct {
		Val string
	}

	// VarRef is a variable, constant or field access chain.
	VarRef struct {
		Obj  *pjb.Object
		Mods []Modifier
		Typ  pjb.Type // type after applying all modifiers
	}

	// Call is a call of a declared function.
	Call struct {
		Func *pjb.Object
		Args []Expr
	}

	// StdCall is a call of a standard function.
	StdCall struct {
		Func pjb.Std
		Args []Expr
		Typ  pjb.Type
	}
)

func (x *Relation) Type() pjb.Type  { return pjb.BoolType }
func (x *Sum) Type() pjb.Type       { return x.Typ }
func (x *Product) Type() pjb.Type   { return x.Typ }
func (x *Not) Type() pjb.Type       { return pjb.BoolType }
func (x *IntLit) Type() pjb.Type    { return pjb.IntType }
func (x *RealLit) Type() pjb.Type   { return pjb.RealType }
func (x *CharLit) Type() pjb.Type   { return pjb.CharType }
func (x *StringLit) Type() pjb.Type { return pjb.StringType }
func (x *VarRef) Type() pjb.Type {
	if x.Typ == nil {
		return x.Obj.Type
	}
	return x.Typ
}
func (x *Call) Type() pjb.Type    { return x.Func.Type }
func (x *StdCall) Type() pjb.Type { return x.Typ }

func (*Relation) expr()  {}
func (*Sum) expr()       {}
func (*Product) expr()   {}
func (*Not) expr()       {}
func (*IntLit) expr()    {}
func (*RealLit) expr()   {}
func (*CharLit) expr()   {}
func (*StringLit) expr() {}
func (*VarRef) expr()    {}
func (*Call) expr()      {}
func (*StdCall) expr()   {}

// A Modifier is one of *Index or *Field.
type Modifier interface {
	modifier()
}

type (
	// Index is a subscript list [e1, e2, ...]; each expression selects one dimension.
	Index struct {
		Exprs []Expr
	}

	Field struct {
		Obj *pjb.Object
	}
)

func (*Index) modifier() {}
func (*Field) modifier() {}

// Pos records the source line of a statement; zero means unknown.
type Pos struct {
	Line int
}

func (p Pos) Position() int { return p.Line }

// A Stmt is one of *Compound, *Assign, *If, *While, *Repeat, *For, *Case,
// *ProcCall, *Write, *Read or *Empty.
type Stmt interface {
	Position() int
	stmt()
}

type (
	Compound struct {
		Pos
		Stmts []Stmt
	}

	Assign struct {
		Pos
		Lhs *VarRef
		Rhs Expr
	}

	If struct {
		Pos
		Cond Expr
		Then Stmt
		Else Stmt // nil if absent
	}

	While struct {
		Pos
		Cond Expr
		Body Stmt
	}

	Repeat struct {
		Pos
		Body []Stmt
		Cond Expr
	}

	For struct {
		Pos
		Var      *pjb.Object
		From, To Expr
		Down     bool
		Body     Stmt
	}

	Case struct {
		Pos
		Selector Expr
		Branches []*Branch
	}

	ProcCall struct {
		Pos
		Proc *pjb.Object
		Args []Expr
	}

	// Write is a write or writeln statement.
	Write struct {
		Pos
		Args    []*WriteArg
		Newline bool
	}

	// Read is a read or readln statement.
	Read struct {
		Pos
		Vars    []*VarRef
		Newline bool
	}

	Empty struct {
		Pos
	}
)

// Branch is one arm of a case statement. Labels are constant expressions.
type Branch struct {
	Labels []Expr
	Body   Stmt
}

// WriteArg is an argument of write or writeln with optional field width
// and decimal places.
type WriteArg struct {
	X      Expr
	Width  *int
	Places *int
}

func (*Compound) stmt() {}
func (*Assign) stmt()   {}
func (*If) stmt()       {}
func (*While) stmt()    {}
func (*Repeat) stmt()   {}
func (*For) stmt()      {}
func (*Case) stmt()     {}
func (*ProcCall) stmt() {}
func (*Write) stmt()    {}
func (*Read) stmt()     {}
func (*Empty) stmt()    {}

// Program is the root of the tree.
type Program struct {
	Obj      *pjb.Object // ClassProgram; Obj.Routine.Scope is the level 1 scope
	Routines []*Routine
	Body     *Compound
}

func (p *Program) Name() string { return p.Obj.Name }

func (p *Program) Scope() *pjb.Scope { return p.Obj.Routine.Scope }

// Routine is a procedure or function declaration.
type Routine struct {
	Obj      *pjb.Object // ClassProc or ClassFunc
	Routines []*Routine  // nested declarations
	Body     *Compound
}

func (r *Routine) Scope() *pjb.Scope { return r.Obj.Routine.Scope }

// IsLiteralString reports whether x is a string literal, the only kind of
// write argument that is inlined into the output format.
func IsLiteralString(x Expr) bool {
	_, ok := x.(*StringLit)
	return ok
}

// Walk calls f for every statement reachable from s in depth-first order.
func Walk(s Stmt, f func(Stmt)) {
	if s == nil {
		return
	}
	f(s)
	switch s := s.(type) {
	case *Compound:
		for _, x := range s.Stmts {
			Walk(x, f)
		}
	case *If:
		Walk(s.Then, f)
		Walk(s.Else, f)
	case *While:
		Walk(s.Body, f)
	case *Repeat:
		for _, x := range s.Body {
			Walk(x, f)
		}
	case *For:
		Walk(s.Body, f)
	case *Case:
		for _, b := range s.Branches {
			Walk(b.Body, f)
		}
	}
}
