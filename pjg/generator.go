// Package pjg contains the code generator of the Pascal JVM compiler.
//
// The generator translates an annotated tree into Jasmin assembly, one text
// unit per program and per record type. Every emitted instruction updates the
// operand stack tracker of the method being generated, so that the declared
// stack limit is exact.
package pjg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/fzipp/pascal-jvm/files"
	"github.com/fzipp/pascal-jvm/internal/contract"
	"github.com/fzipp/pascal-jvm/pjb"
)

// Options control code generation.
type Options struct {
	// RangeCheck enables run-time checks of assignments to subrange targets.
	RangeCheck bool
	// Lines enables .line directives for statements with a known source line.
	Lines bool
}

// rangeCheckerClass is the class of the generated range checking routine.
const rangeCheckerClass = "RangeChecker"

// compilation is the state shared by all units of one program.
type compilation struct {
	prog         string // class name of the program
	out          files.Output
	opts         Options
	rangeChecker bool // a range check was emitted
	units        []string
}

// unit is one output text unit.
type unit struct {
	name string
	w    *bufio.Writer
	c    io.Closer
}

func (c *compilation) create(name string) *unit {
	wc, err := c.out.Create(name)
	if err != nil {
		panic(errors.Wrapf(err, "creating unit %s", name))
	}
	glog.V(5).Infof("generating unit %s", name)
	c.units = append(c.units, name)
	return &unit{name: name, w: bufio.NewWriter(wc), c: wc}
}

func (u *unit) close() {
	werr := u.w.Flush()
	cerr := u.c.Close()
	if werr != nil {
		panic(errors.Wrapf(werr, "writing unit %s", u.name))
	}
	if cerr != nil {
		panic(errors.Wrapf(cerr, "closing unit %s", u.name))
	}
}

func (u *unit) printf(format string, args ...interface{}) {
	fmt.Fprintf(u.w, format, args...)
}

func (u *unit) blank() {
	u.printf("\n")
}

func (u *unit) comment(text string) {
	u.printf(";\n; %s\n;\n", text)
}

func (u *unit) directive(d Directive, operands ...string) {
	if len(operands) == 0 {
		u.printf("%s\n", d)
		return
	}
	u.printf("%s %s\n", d, strings.Join(operands, " "))
}

// Generator emits the body of one method. A fresh Generator, with its own
// stack and local variable trackers, is created for every method.
type Generator struct {
	*unit
	c      *compilation
	stack  *LocalStack
	locals *LocalVariables
	scope  *pjb.Scope // scope whose variables live in this method's slots
}

func (c *compilation) method(u *unit, scope *pjb.Scope, nlocals int) *Generator {
	return &Generator{
		unit:   u,
		c:      c,
		stack:  NewLocalStack(),
		locals: NewLocalVariables(nlocals),
		scope:  scope,
	}
}

// endMethod emits the limits and closes the method.
func (g *Generator) endMethod() {
	contract.Assertf(g.stack.Size() == 0 || g.stack.dead,
		"operand stack not empty at end of method: %d", g.stack.Size())
	g.blank()
	g.directive(LIMIT_LOCALS, strconv.Itoa(g.locals.Count()))
	g.directive(LIMIT_STACK, strconv.Itoa(g.stack.Capacity()))
	g.directive(END_METHOD)
}

// Stack returns the operand stack tracker of the method.
func (g *Generator) Stack() *LocalStack { return g.stack }

// Locals returns the local variable tracker of the method.
func (g *Generator) Locals() *LocalVariables { return g.locals }

func (g *Generator) put(op Op, operands ...string) {
	if len(operands) == 0 {
		g.printf("\t%s\n", op)
	} else {
		g.printf("\t%s\t%s\n", op, strings.Join(operands, " "))
	}
	g.stack.apply(Effect(op, operands...))
	if op.IsTerminal() {
		g.stack.stop()
	}
}

func (g *Generator) putInt(op Op, n int) {
	g.put(op, strconv.Itoa(n))
}

func (g *Generator) putBranch(op Op, l Label) {
	contract.Require(op.IsBranch(), "op")
	g.printf("\t%s\t%s\n", op, l)
	g.stack.apply(Effect(op))
	g.stack.branch(l)
	if op.IsTerminal() {
		g.stack.stop()
	}
}

func (g *Generator) placeLabel(l Label) {
	g.printf("%s:\n", l)
	g.stack.place(l)
}

func (g *Generator) invoke(op Op, method string) {
	g.put(op, method)
}

// =====
// Loads
// =====

// LoadConstant pushes an integer constant using the shortest instruction.
func (g *Generator) LoadConstant(v int32) {
	switch {
	case v >= -1 && v <= 5:
		g.put(Op(int(ICONST_0) + int(v)))
	case v >= -128 && v <= 127:
		g.put(BIPUSH, strconv.Itoa(int(v)))
	case v >= -32768 && v <= 32767:
		g.put(SIPUSH, strconv.Itoa(int(v)))
	default:
		g.put(LDC, strconv.Itoa(int(v)))
	}
}

// LoadReal pushes a real constant.
func (g *Generator) LoadReal(v float32) {
	switch v {
	case 0:
		g.put(FCONST_0)
	case 1:
		g.put(FCONST_1)
	case 2:
		g.put(FCONST_2)
	default:
		g.put(LDC, formatReal(v))
	}
}

// LoadString pushes a string constant.
func (g *Generator) LoadString(s string) {
	g.put(LDC, Quote(s))
}

func formatReal(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// Quote returns s as a Jasmin string literal.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func (g *Generator) loadConst(t pjb.Type, val interface{}) {
	switch pjb.FormOf(t) {
	case pjb.FormInt, pjb.FormBool, pjb.FormChar, pjb.FormEnum:
		g.LoadConstant(cast.ToInt32(val))
	case pjb.FormReal:
		g.LoadReal(cast.ToFloat32(val))
	case pjb.FormString:
		g.LoadString(cast.ToString(val))
	default:
		contract.Failf("constant of type %s", pjb.TypeName(t))
	}
}

const (
	intFamily = iota
	realFamily
	refFamily
)

func family(t pjb.Type) int {
	switch pjb.FormOf(t) {
	case pjb.FormInt, pjb.FormBool, pjb.FormChar, pjb.FormEnum:
		return intFamily
	case pjb.FormReal:
		return realFamily
	}
	return refFamily
}

var (
	loadOps       = [3]Op{ILOAD, FLOAD, ALOAD}
	shortLoadOps  = [3]Op{ILOAD_0, FLOAD_0, ALOAD_0}
	storeOps      = [3]Op{ISTORE, FSTORE, ASTORE}
	shortStoreOps = [3]Op{ISTORE_0, FSTORE_0, ASTORE_0}
	returnOps     = [3]Op{IRETURN, FRETURN, ARETURN}
)

// LoadLocal pushes the local variable in slot.
func (g *Generator) LoadLocal(t pjb.Type, slot int) {
	f := family(t)
	if slot <= 3 {
		g.put(shortLoadOps[f] + Op(slot))
	} else {
		g.putInt(loadOps[f], slot)
	}
}

// StoreLocal pops the top of stack into the local variable in slot.
func (g *Generator) StoreLocal(t pjb.Type, slot int) {
	f := family(t)
	if slot <= 3 {
		g.put(shortStoreOps[f] + Op(slot))
	} else {
		g.putInt(storeOps[f], slot)
	}
}

func (g *Generator) loadRef(slot int) {
	g.LoadLocal(pjb.StringType, slot)
}

func (g *Generator) storeRef(slot int) {
	g.StoreLocal(pjb.StringType, slot)
}

func (g *Generator) staticField(obj *pjb.Object) string {
	return g.c.prog + "/" + obj.Name
}

func fieldPath(fld *pjb.Object) string {
	contract.Requiref(fld.Scope != nil && fld.Scope.Rec != nil, "fld", "%s is not a record field", fld.Name)
	return fld.Scope.Rec.Path + "/" + fld.Name
}

func (g *Generator) checkAccess(obj *pjb.Object) {
	contract.Assertf(obj.Scope == g.scope, "%s is not accessible from this routine", obj.Name)
}

// LoadValue pushes the value of a constant or variable, or the reference
// to a structured variable.
func (g *Generator) LoadValue(obj *pjb.Object) {
	switch {
	case obj.Class == pjb.ClassConst:
		g.loadConst(obj.Type, obj.Val)
	case obj.Class == pjb.ClassEnumConst:
		g.LoadConstant(cast.ToInt32(obj.Val))
	case obj.Class == pjb.ClassFld:
		contract.Failf("field %s loaded without its record", obj.Name)
	case obj.Level() == 1:
		g.put(GETSTATIC, g.staticField(obj), TypeDescriptor(obj.Type))
	case isWrapped(obj):
		g.checkAccess(obj)
		g.loadRef(obj.Slot)
		g.put(ICONST_0)
		g.loadElement(obj.Type)
	default:
		g.checkAccess(obj)
		g.LoadLocal(obj.Type, obj.Slot)
	}
}

// loadAddress pushes what a store to obj needs below the value:
// the wrapper array and index of a scalar reference parameter.
func (g *Generator) loadAddress(obj *pjb.Object) {
	if obj.Class != pjb.ClassFld && obj.Level() > 1 && isWrapped(obj) {
		g.checkAccess(obj)
		g.loadRef(obj.Slot)
		g.put(ICONST_0)
	}
}

var (
	elemLoadOps  = map[pjb.Form]Op{pjb.FormInt: IALOAD, pjb.FormEnum: IALOAD, pjb.FormReal: FALOAD, pjb.FormBool: BALOAD, pjb.FormChar: CALOAD}
	elemStoreOps = map[pjb.Form]Op{pjb.FormInt: IASTORE, pjb.FormEnum: IASTORE, pjb.FormReal: FASTORE, pjb.FormBool: BASTORE, pjb.FormChar: CASTORE}
)

func (g *Generator) loadElement(t pjb.Type) {
	if op, ok := elemLoadOps[pjb.FormOf(t)]; ok {
		g.put(op)
		return
	}
	g.put(AALOAD)
}

func (g *Generator) storeElement(t pjb.Type) {
	if op, ok := elemStoreOps[pjb.FormOf(t)]; ok {
		g.put(op)
		return
	}
	g.put(AASTORE)
}

// ======
// Stores
// ======

// StoreValue pops the top of stack into target. A nil target stores into the
// array element whose array and index are below the value; a field target
// stores into the record below the value. Scalar reference parameters expect
// the address pushed by loadAddress.
func (g *Generator) StoreValue(target *pjb.Object, t pjb.Type) {
	g.store(target, t, g.c.opts.RangeCheck)
}

func (g *Generator) store(target *pjb.Object, t pjb.Type, check bool) {
	if check {
		g.rangeCheck(t)
	}
	switch {
	case target == nil:
		g.storeElement(t)
	case target.Class == pjb.ClassFld:
		g.put(PUTFIELD, fieldPath(target), TypeDescriptor(target.Type))
	case target.Level() == 1:
		g.put(PUTSTATIC, g.staticField(target), TypeDescriptor(target.Type))
	case isWrapped(target):
		g.checkAccess(target)
		g.storeElement(target.Type)
	default:
		g.checkAccess(target)
		g.StoreLocal(target.Type, target.Slot)
	}
}

// rangeCheck verifies the value on top of the stack against the bounds of
// a subrange type, leaving the value in place.
func (g *Generator) rangeCheck(t pjb.Type) {
	s, ok := t.(*pjb.Subrange)
	if !ok || !pjb.IsOrdinal(s) {
		return
	}
	g.put(DUP)
	g.LoadConstant(s.Min)
	g.LoadConstant(s.Max)
	g.invoke(INVOKESTATIC, rangeCheckerClass+"/check(III)V")
	g.c.rangeChecker = true
}

// ReturnValue emits the return instruction for a value of type t.
func (g *Generator) ReturnValue(t pjb.Type) {
	g.put(returnOps[family(t)])
}

// CheckCast emits a checkcast to the representation of t.
func (g *Generator) CheckCast(t pjb.Type) {
	g.put(CHECKCAST, ClassName(TypeDescriptor(t)))
}
