package pjg

import (
	"fmt"
	"strconv"

	"github.com/golang/glog"

	"github.com/fzipp/pascal-jvm/files"
	"github.com/fzipp/pascal-jvm/internal/contract"
	"github.com/fzipp/pascal-jvm/pjb"
	"github.com/fzipp/pascal-jvm/pjt"
)

// Compile generates the Jasmin units of prog: one per record type, the
// program class, and the range checker if range checks were emitted.
// It returns the names of the units written. Output errors are returned;
// a malformed tree is a programming defect and panics with a contract.Violation.
func Compile(prog *pjt.Program, out files.Output, opts Options) (units []string, err error) {
	c := &compilation{prog: prog.Name(), out: out, opts: opts}
	defer func() {
		if rec := recover(); rec != nil {
			e, ok := rec.(error)
			if !ok {
				panic(rec)
			}
			units, err = c.units, e
		}
	}()

	for _, r := range collectRecords(prog) {
		c.record(r)
	}
	c.program(prog)
	if c.rangeChecker {
		c.rangeCheckerUnit()
	}
	glog.V(5).Infof("compiled %s into %d units", prog.Name(), len(c.units))
	return c.units, nil
}

// collectRecords returns all record types used by the declarations of
// prog, inner records before the records containing them.
func collectRecords(prog *pjt.Program) []*pjb.Record {
	var recs []*pjb.Record
	seen := make(map[*pjb.Record]bool)
	var visitType func(t pjb.Type)
	visitType = func(t pjb.Type) {
		switch t := pjb.Base(t).(type) {
		case *pjb.Array:
			visitType(t.Elem)
		case *pjb.Record:
			if seen[t] {
				return
			}
			seen[t] = true
			for _, fld := range t.Fields.Objects() {
				visitType(fld.Type)
			}
			recs = append(recs, t)
		}
	}
	visitScope := func(s *pjb.Scope) {
		for _, obj := range s.Objects() {
			switch obj.Class {
			case pjb.ClassVar, pjb.ClassValPar, pjb.ClassRefPar, pjb.ClassTyp, pjb.ClassFunc:
				if obj.Type != nil {
					visitType(obj.Type)
				}
			}
		}
	}
	var visitRoutines func(rs []*pjt.Routine)
	visitRoutines = func(rs []*pjt.Routine) {
		for _, r := range rs {
			visitScope(r.Scope())
			visitRoutines(r.Routines)
		}
	}
	visitScope(prog.Scope())
	visitRoutines(prog.Routines)
	return recs
}

// record emits the unit of a record type: its fields, a constructor
// creating the field values and a deep copy method.
func (c *compilation) record(r *pjb.Record) {
	u := c.create(r.Path)
	u.directive(CLASS_PUBLIC, r.Path)
	u.directive(SUPER, "java/lang/Object")
	u.blank()
	fields := r.Fields.Sorted()
	for _, fld := range fields {
		if fld.Class == pjb.ClassFld {
			u.directive(FIELD, fld.Name, TypeDescriptor(fld.Type))
		}
	}

	u.blank()
	u.directive(METHOD_PUBLIC, "<init>()V")
	u.directive(VAR, "0 is this", "L"+r.Path+";")
	g := c.method(u, nil, 1)
	g.put(ALOAD_0)
	g.invoke(INVOKESPECIAL, "java/lang/Object/<init>()V")
	for _, fld := range fields {
		if fld.Class == pjb.ClassFld && needsValue(fld.Type) {
			g.put(ALOAD_0)
			g.allocate(fld.Type)
			g.store(fld, fld.Type, false)
		}
	}
	g.put(RETURN)
	g.endMethod()

	u.blank()
	u.directive(METHOD_PUBLIC, "copy()L"+r.Path+";")
	u.directive(VAR, "0 is this", "L"+r.Path+";")
	g = c.method(u, nil, 1)
	dup := g.locals.Reserve()
	g.put(NEW, r.Path)
	g.put(DUP)
	g.invoke(INVOKESPECIAL, r.Path+"/<init>()V")
	g.storeRef(dup)
	for _, fld := range fields {
		if fld.Class != pjb.ClassFld {
			continue
		}
		g.loadRef(dup)
		g.put(ALOAD_0)
		g.put(GETFIELD, fieldPath(fld), TypeDescriptor(fld.Type))
		if pjb.IsStructured(fld.Type) {
			g.cloneValue(fld.Type)
		}
		g.store(fld, fld.Type, false)
	}
	g.loadRef(dup)
	g.put(ARETURN)
	g.endMethod()
	u.close()
}

// program emits the program class.
func (c *compilation) program(prog *pjt.Program) {
	u := c.create(c.prog)
	scope := prog.Scope()
	u.directive(CLASS_PUBLIC, c.prog)
	u.directive(SUPER, "java/lang/Object")

	u.blank()
	u.directive(FIELD_PRIVATE_STATIC, "_sysin", "Ljava/util/Scanner;")
	for _, obj := range scope.Sorted() {
		if obj.Class == pjb.ClassVar {
			u.directive(FIELD_PRIVATE_STATIC, obj.Name, TypeDescriptor(obj.Type))
		}
	}

	u.blank()
	u.comment("Runtime input scanner")
	u.directive(METHOD_STATIC, "<clinit>()V")
	g := c.method(u, nil, 0)
	g.put(NEW, "java/util/Scanner")
	g.put(DUP)
	g.put(GETSTATIC, "java/lang/System/in", "Ljava/io/InputStream;")
	g.invoke(INVOKESPECIAL, "java/util/Scanner/<init>(Ljava/io/InputStream;)V")
	g.put(PUTSTATIC, c.prog+"/_sysin", "Ljava/util/Scanner;")
	g.put(RETURN)
	g.endMethod()

	u.blank()
	u.comment("Main class constructor")
	u.directive(METHOD_PUBLIC, "<init>()V")
	u.directive(VAR, "0 is this", "L"+c.prog+";")
	g = c.method(u, nil, 1)
	g.put(ALOAD_0)
	g.invoke(INVOKESPECIAL, "java/lang/Object/<init>()V")
	g.put(RETURN)
	g.endMethod()

	c.routines(u, prog.Routines)

	u.blank()
	u.comment("MAIN")
	u.directive(METHOD_PUBLIC_STATIC, "main([Ljava/lang/String;)V")
	u.directive(VAR, "0 is args", "[Ljava/lang/String;")
	g = c.method(u, scope, 1)
	g.initVariables(scope)
	u.blank()
	g.Stmt(prog.Body)
	g.put(RETURN)
	g.endMethod()
	u.close()
}

func (c *compilation) routines(u *unit, rs []*pjt.Routine) {
	for _, r := range rs {
		c.routine(u, r)
		c.routines(u, r.Routines)
	}
}

// routine emits the static method of a procedure or function.
func (c *compilation) routine(u *unit, r *pjt.Routine) {
	obj := r.Obj
	scope := r.Scope()
	glog.V(7).Infof("generating %s %s", obj.Class, obj.Name)

	u.blank()
	if obj.Class == pjb.ClassFunc {
		u.comment("FUNCTION " + obj.Name)
	} else {
		u.comment("PROCEDURE " + obj.Name)
	}
	u.directive(METHOD_PRIVATE_STATIC, MethodName(obj)+MethodDescriptor(obj))
	u.blank()
	for _, v := range scope.Sorted() {
		switch v.Class {
		case pjb.ClassVar, pjb.ClassValPar, pjb.ClassRefPar:
			u.directive(VAR, strconv.Itoa(v.Slot)+" is "+v.Name, ParamDescriptor(v))
		}
	}

	g := c.method(u, scope, scope.SlotCount())
	g.initVariables(scope)
	u.blank()
	g.Stmt(r.Body)

	u.blank()
	if obj.Class == pjb.ClassFunc {
		result := obj.Routine.Result
		contract.Requiref(result != nil, "r", "function %s has no result variable", obj.Name)
		g.LoadValue(result)
		g.ReturnValue(obj.Type)
	} else {
		g.put(RETURN)
	}
	g.endMethod()
}

// rangeCheckerUnit emits the class whose static check method throws when a
// value is outside [min, max].
func (c *compilation) rangeCheckerUnit() {
	u := c.create(rangeCheckerClass)
	u.directive(CLASS_PUBLIC, rangeCheckerClass)
	u.directive(SUPER, "java/lang/Object")
	u.blank()
	u.directive(METHOD_PUBLIC_STATIC, "check(III)V")
	u.directive(VAR, "0 is value", "I")
	u.directive(VAR, "1 is min", "I")
	u.directive(VAR, "2 is max", "I")
	g := c.method(u, nil, 3)
	fail := NewLabel()
	g.put(ILOAD_0)
	g.put(ILOAD_1)
	g.putBranch(IF_ICMPLT, fail)
	g.put(ILOAD_0)
	g.put(ILOAD_2)
	g.putBranch(IF_ICMPGT, fail)
	g.put(RETURN)
	g.placeLabel(fail)
	g.put(NEW, "java/lang/RuntimeException")
	g.put(DUP)
	g.LoadString("value out of range")
	g.invoke(INVOKESPECIAL, "java/lang/RuntimeException/<init>(Ljava/lang/String;)V")
	g.put(ATHROW)
	g.endMethod()
	u.close()
}

// String returns a short description of the options, used in log output.
func (o Options) String() string {
	return fmt.Sprintf("range-check=%t lines=%t", o.RangeCheck, o.Lines)
}
