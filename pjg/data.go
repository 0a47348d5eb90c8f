package pjg

import (
	"strconv"

	"github.com/fzipp/pascal-jvm/pjb"
)

var newarrayTypes = map[pjb.Form]string{
	pjb.FormInt:  "int",
	pjb.FormEnum: "int",
	pjb.FormReal: "float",
	pjb.FormBool: "boolean",
	pjb.FormChar: "char",
}

// newArray creates a one-dimensional array of elem whose length is on top of the stack.
func (g *Generator) newArray(elem pjb.Type) {
	if name, ok := newarrayTypes[pjb.FormOf(elem)]; ok {
		g.put(NEWARRAY, name)
		return
	}
	g.put(ANEWARRAY, ClassName(TypeDescriptor(elem)))
}

// needsValue reports whether variables of type t hold a reference that must
// be created before the variable is used.
func needsValue(t pjb.Type) bool {
	f := pjb.FormOf(t)
	return f == pjb.FormString || f == pjb.FormArray || f == pjb.FormRecord
}

// allocate pushes a new value of a string, array or record type. Arrays are
// filled with new elements of their element type.
func (g *Generator) allocate(t pjb.Type) {
	switch t := pjb.Base(t).(type) {
	case *pjb.Record:
		g.put(NEW, t.Path)
		g.put(DUP)
		g.invoke(INVOKESPECIAL, t.Path+"/<init>()V")
	case *pjb.Array:
		dims, elem := pjb.Dims(t)
		if !needsValue(elem) {
			if dims == 1 {
				g.LoadConstant(t.Count)
				g.newArray(t.Elem)
				return
			}
			for a := pjb.Type(t); dims > 0; dims-- {
				arr := pjb.Base(a).(*pjb.Array)
				g.LoadConstant(arr.Count)
				a = arr.Elem
			}
			n, _ := pjb.Dims(t)
			g.put(MULTIANEWARRAY, TypeDescriptor(t), strconv.Itoa(n))
			return
		}
		g.LoadConstant(t.Count)
		g.newArray(t.Elem)
		g.fill(t.Count, func(_, _ int) { g.allocate(t.Elem) })
	default:
		g.LoadString("")
	}
}

// fill stores the values pushed by elem into every element of the array
// on top of the stack, which is left in place. elem is passed the slots
// holding the array and the current index.
func (g *Generator) fill(count int32, elem func(arr, i int)) {
	arr := g.locals.Reserve()
	i := g.locals.Reserve()
	testLabel := NewLabel()
	exitLabel := NewLabel()

	g.storeRef(arr)
	g.put(ICONST_0)
	g.StoreLocal(pjb.IntType, i)
	g.placeLabel(testLabel)
	g.LoadLocal(pjb.IntType, i)
	g.LoadConstant(count)
	g.putBranch(IF_ICMPGE, exitLabel)
	g.loadRef(arr)
	g.LoadLocal(pjb.IntType, i)
	elem(arr, i)
	g.put(AASTORE)
	g.put(IINC, strconv.Itoa(i), "1")
	g.putBranch(GOTO, testLabel)
	g.placeLabel(exitLabel)
	g.loadRef(arr)

	g.locals.Release(i)
	g.locals.Release(arr)
}

// initialValue pushes the value a variable of type t holds before its first assignment.
func (g *Generator) initialValue(t pjb.Type) {
	switch pjb.FormOf(t) {
	case pjb.FormReal:
		g.put(FCONST_0)
	case pjb.FormInt, pjb.FormBool, pjb.FormChar, pjb.FormEnum:
		g.put(ICONST_0)
	default:
		g.allocate(t)
	}
}

// initVariables initializes the variables of scope. Static variables
// start out zero, so only references are created for them.
func (g *Generator) initVariables(scope *pjb.Scope) {
	for _, obj := range scope.Objects() {
		if obj.Class != pjb.ClassVar {
			continue
		}
		if obj.Level() == 1 && !needsValue(obj.Type) {
			continue
		}
		g.initialValue(obj.Type)
		g.store(obj, obj.Type, false)
	}
}

// cloneValue replaces the array or record reference on top of the stack by
// a deep copy.
func (g *Generator) cloneValue(t pjb.Type) {
	switch t := pjb.Base(t).(type) {
	case *pjb.Record:
		g.invoke(INVOKEVIRTUAL, t.Path+"/copy()L"+t.Path+";")
	case *pjb.Array:
		desc := TypeDescriptor(t)
		g.invoke(INVOKEVIRTUAL, desc+"/clone()Ljava/lang/Object;")
		g.put(CHECKCAST, desc)
		if !pjb.IsStructured(t.Elem) {
			return
		}
		g.fill(t.Count, func(arr, i int) {
			g.loadRef(arr)
			g.LoadLocal(pjb.IntType, i)
			g.put(AALOAD)
			g.cloneValue(t.Elem)
		})
	}
}
