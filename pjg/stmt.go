package pjg

import (
	"strconv"

	"github.com/golang/glog"

	"github.com/fzipp/pascal-jvm/internal/contract"
	"github.com/fzipp/pascal-jvm/pjb"
	"github.com/fzipp/pascal-jvm/pjt"
)

// Stmt emits code for s. Every statement leaves the operand stack as it found it.
func (g *Generator) Stmt(s pjt.Stmt) {
	if s == nil {
		return
	}
	if line := s.Position(); line > 0 && g.c.opts.Lines {
		g.directive(LINE, strconv.Itoa(line))
	}
	depth := g.stack.Size()
	switch s := s.(type) {
	case *pjt.Compound:
		for _, x := range s.Stmts {
			g.Stmt(x)
		}
	case *pjt.Assign:
		g.assignment(s)
	case *pjt.If:
		g.ifStmt(s)
	case *pjt.While:
		g.whileStmt(s)
	case *pjt.Repeat:
		g.repeatStmt(s)
	case *pjt.For:
		g.forStmt(s)
	case *pjt.Case:
		g.caseStmt(s)
	case *pjt.ProcCall:
		g.call(s.Proc, s.Args)
	case *pjt.Write:
		g.write(s)
	case *pjt.Read:
		g.read(s)
	case *pjt.Empty:
	default:
		contract.Failf("unexpected statement %T", s)
	}
	contract.Assertf(g.stack.Size() == depth, "%T changed the stack depth from %d to %d", s, depth, g.stack.Size())
}

func (g *Generator) assignment(s *pjt.Assign) {
	glog.V(7).Infof("assignment to %s", s.Lhs.Obj.Name)
	c := g.selectComponent(s.Lhs)
	g.Expr(s.Rhs)
	if pjb.IsStructured(c.typ) {
		g.cloneValue(c.typ)
	} else {
		g.coerce(s.Rhs.Type(), c.typ)
	}
	g.assign(c, g.c.opts.RangeCheck)
}

func (g *Generator) ifStmt(s *pjt.If) {
	elseLabel := NewLabel()
	afterLabel := NewLabel()
	g.Expr(s.Cond)
	g.putBranch(IFEQ, elseLabel)
	g.Stmt(s.Then)
	g.putBranch(GOTO, afterLabel)
	g.placeLabel(elseLabel)
	g.Stmt(s.Else)
	g.placeLabel(afterLabel)
}

func (g *Generator) whileStmt(s *pjt.While) {
	testLabel := NewLabel()
	exitLabel := NewLabel()
	g.placeLabel(testLabel)
	g.Expr(s.Cond)
	g.putBranch(IFEQ, exitLabel)
	g.Stmt(s.Body)
	g.putBranch(GOTO, testLabel)
	g.placeLabel(exitLabel)
}

func (g *Generator) repeatStmt(s *pjt.Repeat) {
	loopLabel := NewLabel()
	exitLabel := NewLabel()
	g.placeLabel(loopLabel)
	for _, x := range s.Body {
		g.Stmt(x)
	}
	g.Expr(s.Cond)
	g.putBranch(IFNE, exitLabel)
	g.putBranch(GOTO, loopLabel)
	g.placeLabel(exitLabel)
}

// forStmt evaluates the limit before every iteration.
func (g *Generator) forStmt(s *pjt.For) {
	ctrl := s.Var
	testLabel := NewLabel()
	exitLabel := NewLabel()

	g.loadAddress(ctrl)
	g.Expr(s.From)
	g.coerce(s.From.Type(), ctrl.Type)
	g.StoreValue(ctrl, ctrl.Type)

	g.placeLabel(testLabel)
	g.LoadValue(ctrl)
	g.Expr(s.To)
	if s.Down {
		g.putBranch(IF_ICMPLT, exitLabel)
	} else {
		g.putBranch(IF_ICMPGT, exitLabel)
	}

	g.Stmt(s.Body)

	g.loadAddress(ctrl)
	g.LoadValue(ctrl)
	g.put(ICONST_1)
	if s.Down {
		g.put(ISUB)
	} else {
		g.put(IADD)
	}
	// The final step may leave the bounds of the control variable's type.
	g.store(ctrl, ctrl.Type, false)
	g.putBranch(GOTO, testLabel)
	g.placeLabel(exitLabel)
}

func (g *Generator) caseStmt(s *pjt.Case) {
	exitLabel := NewLabel()
	str := pjb.FormOf(s.Selector.Type()) == pjb.FormString
	branchLabels := make([][]Label, len(s.Branches))
	for i, b := range s.Branches {
		for _, c := range b.Labels {
			l := NewLabel()
			branchLabels[i] = append(branchLabels[i], l)
			g.Expr(s.Selector)
			g.caseConstant(c)
			if str {
				g.invoke(INVOKEVIRTUAL, "java/lang/String/equals(Ljava/lang/Object;)Z")
				g.putBranch(IFNE, l)
			} else {
				g.putBranch(IF_ICMPEQ, l)
			}
		}
	}
	g.putBranch(GOTO, exitLabel)
	for i, b := range s.Branches {
		for _, l := range branchLabels[i] {
			g.placeLabel(l)
		}
		g.Stmt(b.Body)
		g.putBranch(GOTO, exitLabel)
	}
	g.placeLabel(exitLabel)
}

// caseConstant pushes a case label. Negative integers are pushed as their
// magnitude followed by a negation.
func (g *Generator) caseConstant(c pjt.Expr) {
	if lit, ok := c.(*pjt.IntLit); ok && lit.Val < 0 {
		g.LoadConstant(-lit.Val)
		g.put(INEG)
		return
	}
	g.Expr(c)
}

// call emits a call of a declared procedure or function. Scalar actual
// parameters of reference formals are passed in one-element arrays, which
// are copied back to the actual variables after the call. The array and
// subscript or the record of a selected actual are evaluated once, before
// the call.
func (g *Generator) call(routine *pjb.Object, args []pjt.Expr) {
	contract.Requiref(routine.Class == pjb.ClassProc || routine.Class == pjb.ClassFunc,
		"routine", "%s is a %v", routine.Name, routine.Class)
	formals := routine.Routine.Params
	contract.Requiref(len(args) == len(formals), "args", "%s expects %d arguments, got %d",
		routine.Name, len(formals), len(args))

	type writeBack struct {
		wrapper int
		v       *pjt.VarRef
		c       component
		ref     int // saved array or record, -1 for a plain variable
		index   int // saved normalized subscript, -1 unless c.elem
		typ     pjb.Type
	}
	var wbs []writeBack
	var temps []int
	reserve := func() int {
		slot := g.locals.Reserve()
		temps = append(temps, slot)
		return slot
	}
	for i, formal := range formals {
		arg := args[i]
		switch {
		case isWrapped(formal):
			v, ok := arg.(*pjt.VarRef)
			contract.Assertf(ok, "argument %d of %s must be a variable", i+1, routine.Name)
			wb := writeBack{v: v, ref: -1, index: -1, typ: formal.Type}
			if len(v.Mods) > 0 {
				wb.c = g.selectComponent(v)
				contract.Assertf(!wb.c.char, "argument %d of %s is a character of a string", i+1, routine.Name)
				if wb.c.elem {
					wb.index = reserve()
					g.StoreLocal(pjb.IntType, wb.index)
				}
				wb.ref = reserve()
				g.storeRef(wb.ref)
			}
			g.LoadConstant(1)
			g.newArray(formal.Type)
			g.put(DUP)
			g.put(ICONST_0)
			if wb.ref < 0 {
				g.Expr(v)
			} else {
				g.reloadContainer(wb.ref, wb.index)
				g.fetch(wb.c)
			}
			g.coerce(v.Type(), formal.Type)
			g.storeElement(formal.Type)
			g.put(DUP)
			wb.wrapper = reserve()
			g.storeRef(wb.wrapper)
			wbs = append(wbs, wb)
		case formal.Class == pjb.ClassRefPar:
			g.Expr(arg)
		default:
			g.Expr(arg)
			g.coerce(arg.Type(), formal.Type)
			if NeedsCloning(formal) {
				g.cloneValue(formal.Type)
			}
		}
	}
	g.invoke(INVOKESTATIC, g.c.prog+"/"+MethodName(routine)+MethodDescriptor(routine))

	for _, wb := range wbs {
		c := wb.c
		if wb.ref < 0 {
			c = g.selectComponent(wb.v)
		} else {
			g.reloadContainer(wb.ref, wb.index)
		}
		g.loadRef(wb.wrapper)
		g.put(ICONST_0)
		g.loadElement(wb.typ)
		g.assign(c, g.c.opts.RangeCheck)
	}
	for i := len(temps) - 1; i >= 0; i-- {
		g.locals.Release(temps[i])
	}
}

// reloadContainer pushes a saved array and subscript, or a saved record
// when index is negative.
func (g *Generator) reloadContainer(ref, index int) {
	g.loadRef(ref)
	if index >= 0 {
		g.LoadLocal(pjb.IntType, index)
	}
}
