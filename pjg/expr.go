package pjg

import (
	"github.com/fzipp/pascal-jvm/internal/contract"
	"github.com/fzipp/pascal-jvm/pjb"
	"github.com/fzipp/pascal-jvm/pjt"
)

// CompareMode selects the instructions of a relation.
type CompareMode int

const (
	CompareInt CompareMode = iota
	CompareReal
	CompareChar
	CompareString
)

func (m CompareMode) String() string {
	return [...]string{"integer", "real", "character", "string"}[m]
}

// CompareModeOf returns the comparison mode for operands of type t1 and t2.
func CompareModeOf(t1, t2 pjb.Type) CompareMode {
	f1, f2 := pjb.FormOf(t1), pjb.FormOf(t2)
	switch {
	case f1 == pjb.FormReal || f2 == pjb.FormReal:
		return CompareReal
	case f1 == pjb.FormChar && f2 == pjb.FormChar:
		return CompareChar
	case pjb.IsOrdinal(t1) && pjb.IsOrdinal(t2):
		return CompareInt
	}
	return CompareString
}

var (
	icmpOps = map[pjt.Op]Op{
		pjt.OpEql: IF_ICMPEQ, pjt.OpNeq: IF_ICMPNE,
		pjt.OpLss: IF_ICMPLT, pjt.OpLeq: IF_ICMPLE,
		pjt.OpGtr: IF_ICMPGT, pjt.OpGeq: IF_ICMPGE,
	}
	ifOps = map[pjt.Op]Op{
		pjt.OpEql: IFEQ, pjt.OpNeq: IFNE,
		pjt.OpLss: IFLT, pjt.OpLeq: IFLE,
		pjt.OpGtr: IFGT, pjt.OpGeq: IFGE,
	}
)

// Expr emits code leaving the value of x on the operand stack.
func (g *Generator) Expr(x pjt.Expr) {
	switch x := x.(type) {
	case *pjt.Relation:
		g.relation(x)
	case *pjt.Sum:
		g.sum(x)
	case *pjt.Product:
		g.product(x)
	case *pjt.Not:
		g.Expr(x.X)
		g.put(ICONST_1)
		g.put(IXOR)
	case *pjt.IntLit:
		g.LoadConstant(x.Val)
	case *pjt.RealLit:
		g.LoadReal(x.Val)
	case *pjt.CharLit:
		g.LoadConstant(int32(x.Val))
	case *pjt.StringLit:
		g.LoadString(x.Val)
	case *pjt.VarRef:
		g.loadVar(x)
	case *pjt.Call:
		g.call(x.Func, x.Args)
	case *pjt.StdCall:
		g.stdCall(x)
	default:
		contract.Failf("unexpected expression %T", x)
	}
}

func (g *Generator) relation(x *pjt.Relation) {
	t1, t2 := x.X.Type(), x.Y.Type()
	trueLabel := NewLabel()
	exitLabel := NewLabel()

	g.Expr(x.X)
	switch CompareModeOf(t1, t2) {
	case CompareInt, CompareChar:
		g.Expr(x.Y)
		g.putBranch(icmpOps[x.Op], trueLabel)
	case CompareReal:
		g.toReal(t1)
		g.Expr(x.Y)
		g.toReal(t2)
		g.put(FCMPG)
		g.putBranch(ifOps[x.Op], trueLabel)
	case CompareString:
		g.toString(t1)
		g.Expr(x.Y)
		g.toString(t2)
		g.invoke(INVOKEVIRTUAL, "java/lang/String/compareTo(Ljava/lang/String;)I")
		g.putBranch(ifOps[x.Op], trueLabel)
	}

	g.put(ICONST_0)
	g.putBranch(GOTO, exitLabel)
	g.placeLabel(trueLabel)
	g.put(ICONST_1)
	g.placeLabel(exitLabel)
}

// toReal widens an integer on top of the stack.
func (g *Generator) toReal(t pjb.Type) {
	if pjb.FormOf(t) == pjb.FormInt {
		g.put(I2F)
	}
}

// toString converts a character on top of the stack to a string.
func (g *Generator) toString(t pjb.Type) {
	if pjb.FormOf(t) == pjb.FormChar {
		g.invoke(INVOKESTATIC, "java/lang/String/valueOf(C)Ljava/lang/String;")
	}
}

// coerce converts a value of type from on top of the stack to type to.
func (g *Generator) coerce(from, to pjb.Type) {
	switch ff, ft := pjb.FormOf(from), pjb.FormOf(to); {
	case ff == pjb.FormInt && ft == pjb.FormReal:
		g.put(I2F)
	case ff == pjb.FormReal && ft == pjb.FormInt:
		g.put(F2I)
	case ff == pjb.FormChar && ft == pjb.FormString:
		g.toString(from)
	}
}

// valueOfDescriptor returns the parameter descriptor of String.valueOf for t.
func valueOfDescriptor(t pjb.Type) string {
	switch pjb.FormOf(t) {
	case pjb.FormInt, pjb.FormEnum:
		return "I"
	case pjb.FormReal:
		return "F"
	case pjb.FormBool:
		return "Z"
	case pjb.FormChar:
		return "C"
	}
	return "Ljava/lang/Object;"
}

// appendDescriptor returns the parameter descriptor of StringBuilder.append for t.
func appendDescriptor(t pjb.Type) string {
	if pjb.FormOf(t) == pjb.FormString {
		return "Ljava/lang/String;"
	}
	return valueOfDescriptor(t)
}

func (g *Generator) sum(x *pjt.Sum) {
	contract.Requiref(len(x.Terms) == len(x.Ops)+1, "x", "%d terms and %d operators", len(x.Terms), len(x.Ops))
	t1 := x.Terms[0].Type()
	g.Expr(x.Terms[0])
	if x.Neg {
		if pjb.FormOf(t1) == pjb.FormReal {
			g.put(FNEG)
		} else {
			g.put(INEG)
		}
	}
	for i, op := range x.Ops {
		y := x.Terms[i+1]
		t2 := y.Type()
		f1, f2 := pjb.FormOf(t1), pjb.FormOf(t2)
		switch {
		case f1 == pjb.FormInt && f2 == pjb.FormInt:
			g.Expr(y)
			if op == pjt.OpPlus {
				g.put(IADD)
			} else {
				g.put(ISUB)
			}
		case f1 == pjb.FormReal || f2 == pjb.FormReal:
			g.toReal(t1)
			g.Expr(y)
			g.toReal(t2)
			if op == pjt.OpPlus {
				g.put(FADD)
			} else {
				g.put(FSUB)
			}
			t1 = pjb.RealType
		case f1 == pjb.FormBool && f2 == pjb.FormBool:
			contract.Assertf(op == pjt.OpOr, "operator %v on booleans", op)
			g.Expr(y)
			g.put(IOR)
		default:
			contract.Assertf(op == pjt.OpPlus, "operator %v on strings", op)
			g.concat(t1, y)
			t1 = pjb.StringType
		}
	}
}

// concat appends y to the value of type t on top of the stack.
func (g *Generator) concat(t pjb.Type, y pjt.Expr) {
	g.put(NEW, "java/lang/StringBuilder")
	g.put(DUP_X1)
	g.put(SWAP)
	g.invoke(INVOKESTATIC, "java/lang/String/valueOf("+valueOfDescriptor(t)+")Ljava/lang/String;")
	g.invoke(INVOKESPECIAL, "java/lang/StringBuilder/<init>(Ljava/lang/String;)V")
	g.Expr(y)
	g.invoke(INVOKEVIRTUAL, "java/lang/StringBuilder/append("+appendDescriptor(y.Type())+")Ljava/lang/StringBuilder;")
	g.invoke(INVOKEVIRTUAL, "java/lang/StringBuilder/toString()Ljava/lang/String;")
}

func (g *Generator) product(x *pjt.Product) {
	contract.Requiref(len(x.Factors) == len(x.Ops)+1, "x", "%d factors and %d operators", len(x.Factors), len(x.Ops))
	t1 := x.Factors[0].Type()
	g.Expr(x.Factors[0])
	for i, op := range x.Ops {
		y := x.Factors[i+1]
		t2 := y.Type()
		f1, f2 := pjb.FormOf(t1), pjb.FormOf(t2)
		switch {
		case f1 == pjb.FormInt && f2 == pjb.FormInt && op != pjt.OpSlash:
			g.Expr(y)
			switch op {
			case pjt.OpTimes:
				g.put(IMUL)
			case pjt.OpDiv:
				g.put(IDIV)
			case pjt.OpMod:
				g.put(IREM)
			default:
				contract.Failf("operator %v on integers", op)
			}
		case f1 == pjb.FormReal || f2 == pjb.FormReal || op == pjt.OpSlash:
			g.toReal(t1)
			g.Expr(y)
			g.toReal(t2)
			switch op {
			case pjt.OpTimes:
				g.put(FMUL)
			case pjt.OpSlash:
				g.put(FDIV)
			default:
				contract.Failf("operator %v on reals", op)
			}
			t1 = pjb.RealType
		default:
			contract.Assertf(op == pjt.OpAnd, "operator %v on booleans", op)
			g.Expr(y)
			g.put(IAND)
		}
	}
}

// component describes the storage selected by a variable access chain.
type component struct {
	obj  *pjb.Object // the unmodified variable, or the selected record field
	typ  pjb.Type
	elem bool // array element; array and index are on the stack
	char bool // string character; string and zero-based index are on the stack
}

// selectComponent emits the base of v and all modifiers except the final
// element or field load, leaving on the stack what a load or store of the
// selected component needs.
func (g *Generator) selectComponent(v *pjt.VarRef) component {
	obj := v.Obj
	if len(v.Mods) == 0 {
		g.loadAddress(obj)
		return component{obj: obj, typ: obj.Type}
	}
	g.LoadValue(obj)
	t := obj.Type
	var sel component
	for i, m := range v.Mods {
		last := i == len(v.Mods)-1
		switch m := m.(type) {
		case *pjt.Index:
			for j, x := range m.Exprs {
				final := last && j == len(m.Exprs)-1
				if pjb.FormOf(t) == pjb.FormString {
					contract.Assertf(final, "string subscript must be the last modifier of %s", obj.Name)
					g.Expr(x)
					g.put(ICONST_1)
					g.put(ISUB)
					t = pjb.CharType
					sel = component{typ: t, char: true}
					continue
				}
				a, ok := pjb.Base(t).(*pjb.Array)
				contract.Assertf(ok, "subscript of non-array %s", pjb.TypeName(t))
				g.Expr(x)
				g.normalizeIndex(a.Index)
				t = a.Elem
				if final {
					sel = component{typ: t, elem: true}
				} else {
					g.put(AALOAD)
				}
			}
		case *pjt.Field:
			if last {
				sel = component{obj: m.Obj, typ: m.Obj.Type}
			} else {
				g.put(GETFIELD, fieldPath(m.Obj), TypeDescriptor(m.Obj.Type))
				t = m.Obj.Type
			}
		default:
			contract.Failf("unexpected modifier %T", m)
		}
	}
	return sel
}

// normalizeIndex subtracts the lower bound of the index type.
func (g *Generator) normalizeIndex(index pjb.Type) {
	if low := pjb.Low(index); low != 0 {
		g.LoadConstant(low)
		g.put(ISUB)
	}
}

// fetch loads the component selected by selectComponent.
func (g *Generator) fetch(c component) {
	switch {
	case c.char:
		g.invoke(INVOKEVIRTUAL, "java/lang/String/charAt(I)C")
	case c.elem:
		g.loadElement(c.typ)
	case c.obj.Class == pjb.ClassFld:
		g.put(GETFIELD, fieldPath(c.obj), TypeDescriptor(c.obj.Type))
	default:
		g.LoadValue(c.obj)
	}
}

// assign stores the value on top of the stack into the selected component.
func (g *Generator) assign(c component, check bool) {
	switch {
	case c.char:
		contract.Failf("assignment to a character of a string")
	case c.elem:
		g.store(nil, c.typ, check)
	default:
		g.store(c.obj, c.typ, check)
	}
}

func (g *Generator) loadVar(v *pjt.VarRef) {
	if len(v.Mods) == 0 {
		g.LoadValue(v.Obj)
		return
	}
	g.fetch(g.selectComponent(v))
}

func (g *Generator) stdCall(x *pjt.StdCall) {
	arg := func(i int) pjb.Type {
		g.Expr(x.Args[i])
		return x.Args[i].Type()
	}
	switch x.Func {
	case pjb.StdAbs:
		if t := arg(0); pjb.FormOf(t) == pjb.FormReal {
			g.invoke(INVOKESTATIC, "java/lang/Math/abs(F)F")
		} else {
			g.invoke(INVOKESTATIC, "java/lang/Math/abs(I)I")
		}
	case pjb.StdSqr:
		t := arg(0)
		g.put(DUP)
		if pjb.FormOf(t) == pjb.FormReal {
			g.put(FMUL)
		} else {
			g.put(IMUL)
		}
	case pjb.StdSqrt, pjb.StdSin, pjb.StdCos, pjb.StdExp, pjb.StdLn, pjb.StdArctan:
		g.toReal(arg(0))
		g.put(F2D)
		g.invoke(INVOKESTATIC, "java/lang/Math/"+mathFuncs[x.Func]+"(D)D")
		g.put(D2F)
	case pjb.StdChr:
		arg(0)
		g.put(I2C)
	case pjb.StdOrd:
		arg(0)
	case pjb.StdOdd:
		arg(0)
		g.put(ICONST_1)
		g.put(IAND)
	case pjb.StdPred:
		arg(0)
		g.put(ICONST_1)
		g.put(ISUB)
	case pjb.StdSucc:
		arg(0)
		g.put(ICONST_1)
		g.put(IADD)
	case pjb.StdRound:
		g.toReal(arg(0))
		g.invoke(INVOKESTATIC, "java/lang/Math/round(F)I")
	case pjb.StdTrunc:
		if t := arg(0); pjb.FormOf(t) == pjb.FormReal {
			g.put(F2I)
		}
	case pjb.StdEOF:
		g.put(GETSTATIC, g.c.prog+"/_sysin", "Ljava/util/Scanner;")
		g.invoke(INVOKEVIRTUAL, "java/util/Scanner/hasNext()Z")
		g.put(ICONST_1)
		g.put(IXOR)
	default:
		contract.Failf("%v is not a standard function", x.Func)
	}
}

var mathFuncs = map[pjb.Std]string{
	pjb.StdSqrt:   "sqrt",
	pjb.StdSin:    "sin",
	pjb.StdCos:    "cos",
	pjb.StdExp:    "exp",
	pjb.StdLn:     "log",
	pjb.StdArctan: "atan",
}
