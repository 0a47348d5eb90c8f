package pjl

import (
	"github.com/spf13/cast"

	"github.com/fzipp/pascal-jvm/pjb"
	"github.com/fzipp/pascal-jvm/pjt"
)

// bad stands in for an expression that could not be resolved, so that
// resolution continues and reports further errors.
func bad() pjt.Expr { return &pjt.IntLit{} }

func (l *loader) expr(n *exprNode, e *env) pjt.Expr {
	if n == nil {
		l.errorf("missing expression")
		return bad()
	}
	switch n.tag {
	case "":
		return l.scalar(n.scalar, e)
	case "str":
		return &pjt.StringLit{Val: n.Str}
	case "char":
		c, err := charValue(n.Char)
		if err != nil {
			l.errorf("character literal: %v", err)
		}
		return &pjt.CharLit{Val: rune(c)}
	case "ref":
		return l.ref(n.Ref, n.Sel, e)
	case "rel":
		op, ok := pjt.ParseOp(n.Rel)
		if !ok || !op.IsRelation() {
			l.errorf("%q is not a relation", n.Rel)
			op = pjt.OpEql
		}
		return &pjt.Relation{Op: op, X: l.expr(n.X, e), Y: l.expr(n.Y, e)}
	case "sum":
		terms, ops := l.chain(n.Sum, e, pjt.Op.IsAdditive)
		return &pjt.Sum{Neg: n.Neg, Terms: terms, Ops: ops, Typ: l.sumType(n.Neg, terms, ops)}
	case "product":
		factors, ops := l.chain(n.Product, e, pjt.Op.IsMultiplicative)
		return &pjt.Product{Factors: factors, Ops: ops, Typ: l.productType(factors, ops)}
	case "not":
		return &pjt.Not{X: l.expr(n.Not, e)}
	case "call":
		return l.funcCall(n.Call, n.Args, e)
	}
	l.errorf("unexpected expression node %s", n.tag)
	return bad()
}

func (l *loader) scalar(v interface{}, e *env) pjt.Expr {
	switch v := v.(type) {
	case nil:
		l.errorf("missing expression")
		return bad()
	case int, int64, uint64:
		i, err := cast.ToInt32E(v)
		if err != nil {
			l.errorf("integer literal: %v", err)
		}
		return &pjt.IntLit{Val: i}
	case float64:
		return &pjt.RealLit{Val: float32(v)}
	case bool:
		name := "false"
		if v {
			name = "true"
		}
		obj := pjb.Universe().Lookup(name)
		return &pjt.VarRef{Obj: obj, Typ: obj.Type}
	case string:
		return l.name(v, e)
	}
	l.errorf("unexpected literal %v", v)
	return bad()
}

// name resolves a plain name used as an expression.
func (l *loader) name(name string, e *env) pjt.Expr {
	obj := e.lookup(name)
	if obj == nil {
		l.errorf("undeclared %s", name)
		return bad()
	}
	switch obj.Class {
	case pjb.ClassVar, pjb.ClassValPar, pjb.ClassRefPar, pjb.ClassConst, pjb.ClassEnumConst:
		return &pjt.VarRef{Obj: obj, Typ: obj.Type}
	case pjb.ClassFunc, pjb.ClassSFunc:
		return l.funcCall(name, nil, e)
	}
	l.errorf("%s %s is not a value", obj.Class, name)
	return bad()
}

// ref resolves an access chain starting at a variable.
func (l *loader) ref(name string, sels []*selNode, e *env) pjt.Expr {
	obj := e.lookup(name)
	if obj == nil {
		l.errorf("undeclared %s", name)
		return bad()
	}
	if len(sels) == 0 {
		return l.name(name, e)
	}
	switch obj.Class {
	case pjb.ClassVar, pjb.ClassValPar, pjb.ClassRefPar:
	default:
		l.errorf("%s %s cannot be selected from", obj.Class, name)
		return bad()
	}
	v := &pjt.VarRef{Obj: obj}
	t := obj.Type
	for _, s := range sels {
		if s.index != nil {
			idx := &pjt.Index{}
			for _, x := range s.index {
				switch bt := pjb.Base(t).(type) {
				case *pjb.Array:
					t = bt.Elem
				default:
					if pjb.FormOf(t) != pjb.FormString {
						l.errorf("subscript of %s, which is not an array", pjb.TypeName(t))
						return bad()
					}
					t = pjb.CharType
				}
				idx.Exprs = append(idx.Exprs, l.expr(x, e))
			}
			v.Mods = append(v.Mods, idx)
			continue
		}
		rec, ok := pjb.Base(t).(*pjb.Record)
		if !ok {
			l.errorf("field %s of %s, which is not a record", s.field, pjb.TypeName(t))
			return bad()
		}
		fld := rec.Fields.Lookup(s.field)
		if fld == nil {
			l.errorf("%s has no field %s", rec.Path, s.field)
			return bad()
		}
		v.Mods = append(v.Mods, &pjt.Field{Obj: fld})
		t = fld.Type
	}
	v.Typ = t
	return v
}

// chain resolves the alternating operands and operators of a sum or product.
func (l *loader) chain(items []*exprNode, e *env, valid func(pjt.Op) bool) ([]pjt.Expr, []pjt.Op) {
	if len(items)%2 == 0 {
		l.errorf("operator chain of %d items", len(items))
		return []pjt.Expr{bad()}, nil
	}
	var xs []pjt.Expr
	var ops []pjt.Op
	for i, item := range items {
		if i%2 == 0 {
			xs = append(xs, l.expr(item, e))
			continue
		}
		s, _ := item.scalar.(string)
		op, ok := pjt.ParseOp(s)
		if item.tag != "" || !ok || !valid(op) {
			l.errorf("unexpected operator %v", item.scalar)
			op = pjt.OpPlus
			if !valid(op) {
				op = pjt.OpTimes
			}
		}
		ops = append(ops, op)
	}
	return xs, ops
}

func isNumeric(t pjb.Type) bool {
	f := pjb.FormOf(t)
	return f == pjb.FormInt || f == pjb.FormReal
}

func isText(t pjb.Type) bool {
	f := pjb.FormOf(t)
	return f == pjb.FormString || f == pjb.FormChar
}

// arith is the type of a numeric operation on t and u, or false if one of
// them is not a number.
func arith(t, u pjb.Type) (pjb.Type, bool) {
	switch {
	case !isNumeric(t) || !isNumeric(u):
		return pjb.IntType, false
	case pjb.FormOf(t) == pjb.FormInt && pjb.FormOf(u) == pjb.FormInt:
		return pjb.IntType, true
	}
	return pjb.RealType, true
}

func (l *loader) badOperands(op pjt.Op, t, u pjb.Type) {
	l.errorf("operator %v does not apply to %s and %s", op, pjb.TypeName(t), pjb.TypeName(u))
}

// sumType folds the types of the terms the way the generator combines them.
// A + with a string or character operand is a concatenation.
func (l *loader) sumType(neg bool, terms []pjt.Expr, ops []pjt.Op) pjb.Type {
	t := terms[0].Type()
	if neg && !isNumeric(t) {
		l.errorf("cannot negate %s", pjb.TypeName(t))
	}
	for i, op := range ops {
		u := terms[i+1].Type()
		switch {
		case op == pjt.OpOr:
			if pjb.FormOf(t) != pjb.FormBool || pjb.FormOf(u) != pjb.FormBool {
				l.badOperands(op, t, u)
			}
			t = pjb.BoolType
		case op == pjt.OpPlus && (isText(t) || isText(u)):
			t = pjb.StringType
		default:
			r, ok := arith(t, u)
			if !ok {
				l.badOperands(op, t, u)
			}
			t = r
		}
	}
	return t
}

func (l *loader) productType(factors []pjt.Expr, ops []pjt.Op) pjb.Type {
	t := factors[0].Type()
	for i, op := range ops {
		u := factors[i+1].Type()
		switch op {
		case pjt.OpAnd:
			if pjb.FormOf(t) != pjb.FormBool || pjb.FormOf(u) != pjb.FormBool {
				l.badOperands(op, t, u)
			}
			t = pjb.BoolType
		case pjt.OpDiv, pjt.OpMod:
			if pjb.FormOf(t) != pjb.FormInt || pjb.FormOf(u) != pjb.FormInt {
				l.badOperands(op, t, u)
			}
			t = pjb.IntType
		default:
			r, ok := arith(t, u)
			if !ok {
				l.badOperands(op, t, u)
			}
			if op == pjt.OpSlash {
				r = pjb.RealType
			}
			t = r
		}
	}
	return t
}

func (l *loader) args(ns []*exprNode, e *env) []pjt.Expr {
	var xs []pjt.Expr
	for _, n := range ns {
		xs = append(xs, l.expr(n, e))
	}
	return xs
}

func (l *loader) funcCall(name string, argNodes []*exprNode, e *env) pjt.Expr {
	obj := e.lookupRoutine(name)
	if obj == nil {
		l.errorf("undeclared function %s", name)
		return bad()
	}
	args := l.args(argNodes, e)
	switch obj.Class {
	case pjb.ClassFunc:
		l.checkArgs(obj, args)
		return &pjt.Call{Func: obj, Args: args}
	case pjb.ClassSFunc:
		std := obj.Val.(pjb.Std)
		want := 1
		if std == pjb.StdEOF {
			want = 0
		}
		if len(args) != want {
			l.errorf("%s expects %d arguments, got %d", name, want, len(args))
			return bad()
		}
		return &pjt.StdCall{Func: std, Args: args, Typ: stdType(std, args)}
	}
	l.errorf("%s %s is not a function", obj.Class, name)
	return bad()
}

// stdType returns the result type of a standard function.
func stdType(std pjb.Std, args []pjt.Expr) pjb.Type {
	switch std {
	case pjb.StdAbs, pjb.StdSqr, pjb.StdPred, pjb.StdSucc:
		return pjb.Base(args[0].Type())
	case pjb.StdSqrt, pjb.StdSin, pjb.StdCos, pjb.StdExp, pjb.StdLn, pjb.StdArctan:
		return pjb.RealType
	case pjb.StdChr:
		return pjb.CharType
	case pjb.StdOdd, pjb.StdEOF:
		return pjb.BoolType
	}
	return pjb.IntType
}

// checkArgs verifies the number of arguments and that reference
// parameters are passed variables.
func (l *loader) checkArgs(routine *pjb.Object, args []pjt.Expr) {
	formals := routine.Routine.Params
	if len(args) != len(formals) {
		l.errorf("%s expects %d arguments, got %d", routine.Name, len(formals), len(args))
		return
	}
	for i, formal := range formals {
		if formal.Class != pjb.ClassRefPar {
			continue
		}
		if !isVariable(args[i]) {
			l.errorf("argument %d of %s must be a variable", i+1, routine.Name)
		}
	}
}

func isVariable(x pjt.Expr) bool {
	v, ok := x.(*pjt.VarRef)
	if !ok {
		return false
	}
	switch v.Obj.Class {
	case pjb.ClassVar, pjb.ClassValPar, pjb.ClassRefPar:
		return true
	}
	return false
}

// target resolves the variable of an assignment or read.
func (l *loader) target(n *exprNode, e *env) *pjt.VarRef {
	x := l.expr(n, e)
	if !isVariable(x) {
		l.errorf("cannot assign to %s", describe(n))
		return &pjt.VarRef{Obj: &pjb.Object{Class: pjb.ClassVar, Type: pjb.IntType}}
	}
	return x.(*pjt.VarRef)
}

func describe(n *exprNode) string {
	if n == nil {
		return "nothing"
	}
	if n.tag == "" {
		return cast.ToString(n.scalar)
	}
	if n.tag == "ref" {
		return n.Ref
	}
	return "a " + n.tag + " expression"
}

// ==========
// Statements
// ==========

func (l *loader) compound(list []*stmtNode, e *env, line int) *pjt.Compound {
	c := &pjt.Compound{Pos: pjt.Pos{Line: line}}
	for _, n := range list {
		c.Stmts = append(c.Stmts, l.stmt(n, e))
	}
	return c
}

// stmtList returns nil for an empty list and the statement itself for a
// single one.
func (l *loader) stmtList(list stmtList, e *env) pjt.Stmt {
	switch len(list) {
	case 0:
		return nil
	case 1:
		return l.stmt(list[0], e)
	}
	return l.compound(list, e, list[0].Line)
}

func (l *loader) stmt(n *stmtNode, e *env) pjt.Stmt {
	if n == nil {
		return &pjt.Empty{}
	}
	outer := l.line
	if n.Line > 0 {
		l.line = n.Line
	}
	defer func() { l.line = outer }()
	pos := pjt.Pos{Line: n.Line}

	switch n.tag {
	case "assign":
		lhs := l.target(n.Assign, e)
		return &pjt.Assign{Pos: pos, Lhs: lhs, Rhs: l.expr(n.Value, e)}
	case "if":
		return &pjt.If{Pos: pos, Cond: l.expr(n.If, e), Then: l.stmtList(n.Then, e), Else: l.stmtList(n.Else, e)}
	case "while":
		return &pjt.While{Pos: pos, Cond: l.expr(n.While, e), Body: l.stmtList(n.Do, e)}
	case "repeat":
		s := &pjt.Repeat{Pos: pos}
		for _, x := range n.Repeat {
			s.Body = append(s.Body, l.stmt(x, e))
		}
		s.Cond = l.expr(n.Until, e)
		return s
	case "for":
		return l.forStmt(n, pos, e)
	case "case":
		s := &pjt.Case{Pos: pos, Selector: l.expr(n.Case, e)}
		for _, b := range n.Of {
			br := &pjt.Branch{Body: l.stmtList(b.Do, e)}
			for _, c := range b.Labels {
				br.Labels = append(br.Labels, l.expr(c, e))
			}
			s.Branches = append(s.Branches, br)
		}
		return s
	case "call":
		return l.procCall(n.Call, n.Args, pos, e)
	case "write", "writeln":
		args := n.Write
		if n.tag == "writeln" {
			args = n.Writeln
		}
		s := &pjt.Write{Pos: pos, Newline: n.tag == "writeln"}
		for _, a := range args {
			s.Args = append(s.Args, &pjt.WriteArg{X: l.expr(a.X, e), Width: a.Width, Places: a.Places})
		}
		return s
	case "read", "readln":
		vars := n.Read
		if n.tag == "readln" {
			vars = n.Readln
		}
		s := &pjt.Read{Pos: pos, Newline: n.tag == "readln"}
		for _, v := range vars {
			s.Vars = append(s.Vars, l.target(v, e))
		}
		return s
	case "begin":
		return l.compound(n.Begin, e, n.Line)
	case "empty":
		return &pjt.Empty{Pos: pos}
	}
	l.errorf("unexpected statement node %s", n.tag)
	return &pjt.Empty{Pos: pos}
}

func (l *loader) forStmt(n *stmtNode, pos pjt.Pos, e *env) pjt.Stmt {
	s := &pjt.For{Pos: pos, From: l.expr(n.From, e)}
	switch obj := e.lookup(n.For); {
	case obj == nil:
		l.errorf("undeclared %s", n.For)
		s.Var = &pjb.Object{Class: pjb.ClassVar, Name: n.For, Type: pjb.IntType}
	case obj.Class != pjb.ClassVar && obj.Class != pjb.ClassValPar && obj.Class != pjb.ClassRefPar,
		!pjb.IsOrdinal(obj.Type):
		l.errorf("%s cannot control a for loop", n.For)
		s.Var = obj
	default:
		s.Var = obj
	}
	switch {
	case n.To != nil && n.Downto != nil:
		l.errorf("for loop with both to and downto")
		s.To = l.expr(n.To, e)
	case n.Downto != nil:
		s.To, s.Down = l.expr(n.Downto, e), true
	default:
		s.To = l.expr(n.To, e)
	}
	s.Body = l.stmtList(n.Do, e)
	return s
}

func (l *loader) procCall(name string, argNodes []*exprNode, pos pjt.Pos, e *env) pjt.Stmt {
	obj := e.lookupRoutine(name)
	if obj == nil {
		l.errorf("undeclared procedure %s", name)
		return &pjt.Empty{Pos: pos}
	}
	switch obj.Class {
	case pjb.ClassProc:
		args := l.args(argNodes, e)
		l.checkArgs(obj, args)
		return &pjt.ProcCall{Pos: pos, Proc: obj, Args: args}
	case pjb.ClassSProc:
		switch std := obj.Val.(pjb.Std); std {
		case pjb.StdWrite, pjb.StdWriteln:
			s := &pjt.Write{Pos: pos, Newline: std == pjb.StdWriteln}
			for _, a := range l.args(argNodes, e) {
				s.Args = append(s.Args, &pjt.WriteArg{X: a})
			}
			return s
		default:
			s := &pjt.Read{Pos: pos, Newline: std == pjb.StdReadln}
			for _, a := range argNodes {
				s.Vars = append(s.Vars, l.target(a, e))
			}
			return s
		}
	}
	l.errorf("%s %s is not a procedure", obj.Class, name)
	return &pjt.Empty{Pos: pos}
}
