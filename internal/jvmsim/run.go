package jvmsim

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fzipp/pascal-jvm/pjg"
)

// DefaultMaxSteps bounds the number of instructions a Machine executes.
const DefaultMaxSteps = 10000000

// Exception is a Java exception that reached the top of the call stack.
type Exception struct {
	Class   string
	Message string
}

func (e *Exception) Error() string {
	return strings.Replace(e.Class, "/", ".", -1) + ": " + e.Message
}

func throw(class, format string, args ...interface{}) *Exception {
	return &Exception{Class: class, Message: fmt.Sprintf(format, args...)}
}

// Object is an instance of a program class or of a library class, whose
// state is kept in native.
type Object struct {
	Class  string
	Fields map[string]interface{}
	native interface{}
}

// Array is a Java array. Elements of int, boolean and char arrays are int32,
// of float arrays float32.
type Array struct {
	Desc  string
	Elems []interface{}
}

// box is a boxed scalar such as a java/lang/Integer.
type box struct {
	class string
	v     interface{}
}

type printStream struct{}

type inputStream struct{}

// Machine executes the methods of a program. Values are int32, float32,
// float64, string, nil, *Object, *Array and the library types.
type Machine struct {
	prog     *Program
	statics  map[string]interface{}
	inited   map[string]bool
	out      strings.Builder
	in       *scanner
	steps    int
	MaxSteps int
}

func NewMachine(p *Program, input string) *Machine {
	return &Machine{
		prog:     p,
		statics:  make(map[string]interface{}),
		inited:   make(map[string]bool),
		in:       newScanner(input),
		MaxSteps: DefaultMaxSteps,
	}
}

// Output returns what the program printed so far.
func (vm *Machine) Output() string { return vm.out.String() }

// Static returns the value of a static field such as "Hello/n".
func (vm *Machine) Static(ref string) interface{} { return vm.statics[ref] }

// Run executes the main method of class with the given standard input and
// returns the standard output.
func Run(p *Program, class, input string) (string, error) {
	vm := NewMachine(p, input)
	err := vm.Main(class)
	return vm.Output(), err
}

// Main executes class.main.
func (vm *Machine) Main(class string) error {
	m, ok := vm.prog.Method(class + "/main([Ljava/lang/String;)V")
	if !ok {
		return errors.Errorf("class %s has no main method", class)
	}
	_, err := vm.Invoke(m, &Array{Desc: "[Ljava/lang/String;"})
	return err
}

// Invoke executes m with the given arguments, starting with the receiver of
// an instance method.
func (vm *Machine) Invoke(m *Method, args ...interface{}) (result interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			e, ok := rec.(fault)
			if !ok {
				panic(rec)
			}
			err = e.err
		}
	}()
	if m.Static {
		vm.initClass(m.Class.Name)
	}
	return vm.call(m, args)
}

// fault carries an error out of the interpreter loop.
type fault struct{ err error }

func failf(format string, args ...interface{}) {
	panic(fault{errors.Errorf(format, args...)})
}

type frame struct {
	m      *Method
	pc     int
	locals []interface{}
	stack  []interface{}
}

func (f *frame) push(v interface{}) { f.stack = append(f.stack, v) }

func (f *frame) pop() interface{} {
	if len(f.stack) == 0 {
		failf("%s/%s: pop from an empty stack at %d", f.m.Class.Name, f.m.Name, f.pc)
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) popInt() int32 {
	v := f.pop()
	i, ok := v.(int32)
	if !ok {
		failf("%s/%s: expected int, found %T", f.m.Class.Name, f.m.Name, v)
	}
	return i
}

func (f *frame) popFloat() float32 {
	v := f.pop()
	x, ok := v.(float32)
	if !ok {
		failf("%s/%s: expected float, found %T", f.m.Class.Name, f.m.Name, v)
	}
	return x
}

func (f *frame) popArray() (*Array, *Exception) {
	v := f.pop()
	if v == nil {
		return nil, throw("java/lang/NullPointerException", "array is null")
	}
	a, ok := v.(*Array)
	if !ok {
		failf("%s/%s: expected array, found %T", f.m.Class.Name, f.m.Name, v)
	}
	return a, nil
}

func (f *frame) local(slot int) interface{} {
	if slot >= len(f.locals) {
		failf("%s/%s: slot %d beyond .limit locals %d", f.m.Class.Name, f.m.Name, slot, len(f.locals))
	}
	return f.locals[slot]
}

func (f *frame) setLocal(slot int, v interface{}) {
	if slot >= len(f.locals) {
		failf("%s/%s: slot %d beyond .limit locals %d", f.m.Class.Name, f.m.Name, slot, len(f.locals))
	}
	f.locals[slot] = v
}

func (f *frame) jump(label string) {
	pc, ok := f.m.Labels[label]
	if !ok {
		failf("%s/%s: undefined label %s", f.m.Class.Name, f.m.Name, label)
	}
	f.pc = pc
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		failf("bad integer operand %q", s)
	}
	return n
}

// zero returns the default value of a field or array element of type desc.
func zero(desc string) interface{} {
	switch desc {
	case "I", "Z", "C", "B", "S":
		return int32(0)
	case "F":
		return float32(0)
	case "D":
		return float64(0)
	case "J":
		return int64(0)
	}
	return nil
}

func (vm *Machine) initClass(name string) {
	if vm.inited[name] {
		return
	}
	vm.inited[name] = true
	if c, ok := vm.prog.Classes[name]; ok {
		if m, ok := c.Methods["<clinit>()V"]; ok {
			if _, err := vm.call(m, nil); err != nil {
				panic(fault{errors.Wrapf(err, "initializing %s", name)})
			}
		}
	}
}

func (vm *Machine) call(m *Method, args []interface{}) (interface{}, error) {
	n := m.Locals
	if len(args) > n {
		n = len(args)
	}
	f := &frame{m: m, locals: make([]interface{}, n)}
	copy(f.locals, args)
	for {
		if f.pc >= len(m.Code) {
			failf("%s/%s: control falls off the end of the method", m.Class.Name, m.Name)
		}
		vm.steps++
		if vm.MaxSteps > 0 && vm.steps > vm.MaxSteps {
			return nil, errors.Errorf("step limit of %d instructions exceeded", vm.MaxSteps)
		}
		in := m.Code[f.pc]
		f.pc++
		ret, done, err := vm.step(f, in)
		if err != nil || done {
			return ret, err
		}
	}
}

// step executes one instruction. done is set by returns.
func (vm *Machine) step(f *frame, in Insn) (ret interface{}, done bool, err error) {
	op := in.Op
	switch {
	case op >= pjg.ICONST_M1 && op <= pjg.ICONST_5:
		f.push(int32(int(op) - int(pjg.ICONST_0)))
		return
	case op >= pjg.FCONST_0 && op <= pjg.FCONST_2:
		f.push(float32(op - pjg.FCONST_0))
		return
	case op >= pjg.ILOAD_0 && op <= pjg.ILOAD_3:
		f.push(f.local(int(op - pjg.ILOAD_0)))
		return
	case op >= pjg.FLOAD_0 && op <= pjg.FLOAD_3:
		f.push(f.local(int(op - pjg.FLOAD_0)))
		return
	case op >= pjg.ALOAD_0 && op <= pjg.ALOAD_3:
		f.push(f.local(int(op - pjg.ALOAD_0)))
		return
	case op >= pjg.ISTORE_0 && op <= pjg.ISTORE_3:
		f.setLocal(int(op-pjg.ISTORE_0), f.pop())
		return
	case op >= pjg.FSTORE_0 && op <= pjg.FSTORE_3:
		f.setLocal(int(op-pjg.FSTORE_0), f.pop())
		return
	case op >= pjg.ASTORE_0 && op <= pjg.ASTORE_3:
		f.setLocal(int(op-pjg.ASTORE_0), f.pop())
		return
	}

	switch op {
	case pjg.NOP:
	case pjg.ACONST_NULL:
		f.push(nil)
	case pjg.BIPUSH, pjg.SIPUSH:
		f.push(int32(atoi(in.Args[0])))
	case pjg.LDC:
		f.push(constant(in.Args[0]))

	case pjg.ILOAD, pjg.FLOAD, pjg.ALOAD:
		f.push(f.local(atoi(in.Args[0])))
	case pjg.ISTORE, pjg.FSTORE, pjg.ASTORE:
		f.setLocal(atoi(in.Args[0]), f.pop())
	case pjg.IINC:
		slot := atoi(in.Args[0])
		v, ok := f.local(slot).(int32)
		if !ok {
			failf("iinc of a non-int slot %d", slot)
		}
		f.setLocal(slot, v+int32(atoi(in.Args[1])))

	case pjg.IALOAD, pjg.FALOAD, pjg.AALOAD, pjg.BALOAD, pjg.CALOAD:
		i := f.popInt()
		a, exc := f.popArray()
		if exc != nil {
			return nil, true, exc
		}
		if i < 0 || int(i) >= len(a.Elems) {
			return nil, true, throw("java/lang/ArrayIndexOutOfBoundsException", "Index %d out of bounds for length %d", i, len(a.Elems))
		}
		f.push(a.Elems[i])
	case pjg.IASTORE, pjg.FASTORE, pjg.AASTORE, pjg.BASTORE, pjg.CASTORE:
		v := f.pop()
		i := f.popInt()
		a, exc := f.popArray()
		if exc != nil {
			return nil, true, exc
		}
		if i < 0 || int(i) >= len(a.Elems) {
			return nil, true, throw("java/lang/ArrayIndexOutOfBoundsException", "Index %d out of bounds for length %d", i, len(a.Elems))
		}
		if op == pjg.BASTORE {
			v = f.boolByte(v)
		}
		a.Elems[i] = v

	case pjg.POP:
		f.pop()
	case pjg.POP2:
		f.pop()
		f.pop()
	case pjg.DUP:
		v := f.pop()
		f.push(v)
		f.push(v)
	case pjg.DUP_X1:
		v1, v2 := f.pop(), f.pop()
		f.push(v1)
		f.push(v2)
		f.push(v1)
	case pjg.DUP_X2:
		v1, v2, v3 := f.pop(), f.pop(), f.pop()
		f.push(v1)
		f.push(v3)
		f.push(v2)
		f.push(v1)
	case pjg.DUP2:
		v1, v2 := f.pop(), f.pop()
		f.push(v2)
		f.push(v1)
		f.push(v2)
		f.push(v1)
	case pjg.SWAP:
		v1, v2 := f.pop(), f.pop()
		f.push(v1)
		f.push(v2)

	case pjg.IADD, pjg.ISUB, pjg.IMUL, pjg.IDIV, pjg.IREM, pjg.IAND, pjg.IOR, pjg.IXOR:
		y, x := f.popInt(), f.popInt()
		r, exc := intOp(op, x, y)
		if exc != nil {
			return nil, true, exc
		}
		f.push(r)
	case pjg.FADD, pjg.FSUB, pjg.FMUL, pjg.FDIV, pjg.FREM:
		y, x := f.popFloat(), f.popFloat()
		f.push(floatOp(op, x, y))
	case pjg.INEG:
		f.push(-f.popInt())
	case pjg.FNEG:
		f.push(-f.popFloat())

	case pjg.I2F:
		f.push(float32(f.popInt()))
	case pjg.F2I:
		f.push(f2i(float64(f.popFloat())))
	case pjg.I2D:
		f.push(float64(f.popInt()))
	case pjg.F2D:
		f.push(float64(f.popFloat()))
	case pjg.D2F:
		v, ok := f.pop().(float64)
		if !ok {
			failf("d2f of a non-double")
		}
		f.push(float32(v))
	case pjg.I2C:
		f.push(int32(uint16(f.popInt())))

	case pjg.FCMPG, pjg.FCMPL:
		y, x := f.popFloat(), f.popFloat()
		switch {
		case x > y:
			f.push(int32(1))
		case x == y:
			f.push(int32(0))
		case x < y:
			f.push(int32(-1))
		case op == pjg.FCMPG:
			f.push(int32(1))
		default:
			f.push(int32(-1))
		}

	case pjg.IFEQ, pjg.IFNE, pjg.IFLT, pjg.IFGE, pjg.IFGT, pjg.IFLE:
		if compare(op, f.popInt(), 0) {
			f.jump(in.Args[0])
		}
	case pjg.IF_ICMPEQ, pjg.IF_ICMPNE, pjg.IF_ICMPLT, pjg.IF_ICMPGE, pjg.IF_ICMPGT, pjg.IF_ICMPLE:
		y, x := f.popInt(), f.popInt()
		if compare(op, x, y) {
			f.jump(in.Args[0])
		}
	case pjg.IF_ACMPEQ, pjg.IF_ACMPNE:
		y, x := f.pop(), f.pop()
		if (x == y) == (op == pjg.IF_ACMPEQ) {
			f.jump(in.Args[0])
		}
	case pjg.IFNULL, pjg.IFNONNULL:
		if (f.pop() == nil) == (op == pjg.IFNULL) {
			f.jump(in.Args[0])
		}
	case pjg.GOTO:
		f.jump(in.Args[0])

	case pjg.IRETURN, pjg.FRETURN, pjg.ARETURN:
		return f.pop(), true, nil
	case pjg.RETURN:
		return nil, true, nil

	case pjg.GETSTATIC:
		f.push(vm.getStatic(in.Args[0], in.Args[1]))
	case pjg.PUTSTATIC:
		class, _ := splitMember(in.Args[0])
		vm.initClass(class)
		vm.statics[in.Args[0]] = f.pop()
	case pjg.GETFIELD:
		obj, exc := f.popObject()
		if exc != nil {
			return nil, true, exc
		}
		_, name := splitMember(in.Args[0])
		v, ok := obj.Fields[name]
		if !ok {
			v = zero(in.Args[1])
		}
		f.push(v)
	case pjg.PUTFIELD:
		v := f.pop()
		obj, exc := f.popObject()
		if exc != nil {
			return nil, true, exc
		}
		_, name := splitMember(in.Args[0])
		obj.Fields[name] = v

	case pjg.INVOKESTATIC, pjg.INVOKEVIRTUAL, pjg.INVOKESPECIAL:
		return vm.invoke(f, op, in.Args[0])

	case pjg.NEW:
		class := in.Args[0]
		obj := &Object{Class: class, Fields: make(map[string]interface{})}
		if c, ok := vm.prog.Classes[class]; ok {
			vm.initClass(class)
			for _, fld := range c.Fields {
				if !fld.Static {
					obj.Fields[fld.Name] = zero(fld.Desc)
				}
			}
		}
		f.push(obj)
	case pjg.NEWARRAY:
		n := f.popInt()
		if n < 0 {
			return nil, true, throw("java/lang/NegativeArraySizeException", "%d", n)
		}
		desc, ok := primitiveArrays[in.Args[0]]
		if !ok {
			failf("newarray of %s", in.Args[0])
		}
		f.push(newArray(desc, int(n)))
	case pjg.ANEWARRAY:
		n := f.popInt()
		if n < 0 {
			return nil, true, throw("java/lang/NegativeArraySizeException", "%d", n)
		}
		elem := in.Args[0]
		if !strings.HasPrefix(elem, "[") {
			elem = "L" + elem + ";"
		}
		f.push(newArray("["+elem, int(n)))
	case pjg.MULTIANEWARRAY:
		dims := atoi(in.Args[1])
		counts := make([]int, dims)
		for i := dims - 1; i >= 0; i-- {
			counts[i] = int(f.popInt())
			if counts[i] < 0 {
				return nil, true, throw("java/lang/NegativeArraySizeException", "%d", counts[i])
			}
		}
		f.push(newMultiArray(in.Args[0], counts))
	case pjg.ARRAYLENGTH:
		a, exc := f.popArray()
		if exc != nil {
			return nil, true, exc
		}
		f.push(int32(len(a.Elems)))
	case pjg.ATHROW:
		obj, exc := f.popObject()
		if exc != nil {
			return nil, true, exc
		}
		msg, _ := obj.native.(string)
		return nil, true, &Exception{Class: obj.Class, Message: msg}
	case pjg.CHECKCAST:
		v := f.pop()
		if !instanceOf(v, in.Args[0]) {
			return nil, true, throw("java/lang/ClassCastException", "%T cannot be cast to %s", v, in.Args[0])
		}
		f.push(v)
	default:
		failf("unsupported instruction %s", in)
	}
	return nil, false, nil
}

func (f *frame) popObject() (*Object, *Exception) {
	v := f.pop()
	if v == nil {
		return nil, throw("java/lang/NullPointerException", "object is null")
	}
	obj, ok := v.(*Object)
	if !ok {
		failf("%s/%s: expected object, found %T", f.m.Class.Name, f.m.Name, v)
	}
	return obj, nil
}

// boolByte truncates a value stored by bastore.
func (f *frame) boolByte(v interface{}) interface{} {
	i, ok := v.(int32)
	if !ok {
		failf("bastore of %T", v)
	}
	return int32(int8(i))
}

// constant decodes the operand of ldc.
func constant(arg string) interface{} {
	if strings.HasPrefix(arg, quoted) {
		return arg[len(quoted):]
	}
	if strings.ContainsAny(arg, ".eE") {
		x, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			failf("bad float constant %s", arg)
		}
		return float32(x)
	}
	n, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		failf("bad int constant %s", arg)
	}
	return int32(n)
}

func intOp(op pjg.Op, x, y int32) (int32, *Exception) {
	switch op {
	case pjg.IADD:
		return x + y, nil
	case pjg.ISUB:
		return x - y, nil
	case pjg.IMUL:
		return x * y, nil
	case pjg.IDIV, pjg.IREM:
		if y == 0 {
			return 0, throw("java/lang/ArithmeticException", "/ by zero")
		}
		if op == pjg.IDIV {
			return x / y, nil
		}
		return x % y, nil
	case pjg.IAND:
		return x & y, nil
	case pjg.IOR:
		return x | y, nil
	}
	return x ^ y, nil
}

func floatOp(op pjg.Op, x, y float32) float32 {
	switch op {
	case pjg.FADD:
		return x + y
	case pjg.FSUB:
		return x - y
	case pjg.FMUL:
		return x * y
	case pjg.FDIV:
		return x / y
	}
	return float32(math.Mod(float64(x), float64(y)))
}

// f2i converts like the JVM: NaN becomes zero, out of range values saturate.
func f2i(x float64) int32 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt32:
		return math.MaxInt32
	case x <= math.MinInt32:
		return math.MinInt32
	}
	return int32(x)
}

func compare(op pjg.Op, x, y int32) bool {
	switch op {
	case pjg.IFEQ, pjg.IF_ICMPEQ:
		return x == y
	case pjg.IFNE, pjg.IF_ICMPNE:
		return x != y
	case pjg.IFLT, pjg.IF_ICMPLT:
		return x < y
	case pjg.IFGE, pjg.IF_ICMPGE:
		return x >= y
	case pjg.IFGT, pjg.IF_ICMPGT:
		return x > y
	}
	return x <= y
}

var primitiveArrays = map[string]string{
	"int":     "[I",
	"float":   "[F",
	"boolean": "[Z",
	"char":    "[C",
	"double":  "[D",
	"long":    "[J",
	"byte":    "[B",
	"short":   "[S",
}

func newArray(desc string, n int) *Array {
	a := &Array{Desc: desc, Elems: make([]interface{}, n)}
	if z := zero(desc[1:]); z != nil {
		for i := range a.Elems {
			a.Elems[i] = z
		}
	}
	return a
}

func newMultiArray(desc string, counts []int) *Array {
	a := newArray(desc, counts[0])
	if len(counts) > 1 {
		for i := range a.Elems {
			a.Elems[i] = newMultiArray(desc[1:], counts[1:])
		}
	}
	return a
}

// instanceOf reports whether v can be cast to class, an internal class
// name or an array descriptor.
func instanceOf(v interface{}, class string) bool {
	switch v := v.(type) {
	case nil:
		return true
	case *Array:
		return v.Desc == class || class == "java/lang/Object"
	case *Object:
		return v.Class == class || class == "java/lang/Object"
	case string:
		return class == "java/lang/String" || class == "java/lang/Object"
	case *box:
		return v.class == class || class == "java/lang/Object"
	}
	return false
}

func (vm *Machine) getStatic(ref, desc string) interface{} {
	switch ref {
	case "java/lang/System/out":
		return printStream{}
	case "java/lang/System/in":
		return inputStream{}
	}
	class, _ := splitMember(ref)
	vm.initClass(class)
	v, ok := vm.statics[ref]
	if !ok {
		return zero(desc)
	}
	return v
}

// paramCount returns the number of parameters of a method descriptor.
func paramCount(desc string) int {
	open := strings.IndexByte(desc, '(')
	end := strings.IndexByte(desc, ')')
	if open < 0 || end < open {
		failf("malformed method descriptor %s", desc)
	}
	n := 0
	for params := desc[open+1 : end]; params != ""; n++ {
		_, _, params = pjg.ParseDescriptor(params)
	}
	return n
}

func (vm *Machine) invoke(f *frame, op pjg.Op, ref string) (interface{}, bool, error) {
	class, method := splitMember(ref)
	n := paramCount(method)
	args := make([]interface{}, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = f.pop()
	}
	var recv interface{}
	if op != pjg.INVOKESTATIC {
		recv = f.pop()
		if recv == nil {
			return nil, true, throw("java/lang/NullPointerException", "invoking %s on null", method)
		}
	}

	var result interface{}
	var err error
	if c, ok := vm.prog.Classes[class]; ok {
		m, ok := c.Methods[method]
		if !ok && method == "<init>()V" && c.Super != "" {
			result, err = vm.native(c.Super, method, recv, args)
		} else {
			if !ok {
				failf("no method %s", ref)
			}
			if m.Static {
				vm.initClass(class)
			} else {
				args = append([]interface{}{recv}, args...)
			}
			result, err = vm.call(m, args)
		}
	} else {
		result, err = vm.native(class, method, recv, args)
	}
	if err != nil {
		return nil, true, err
	}
	if !strings.HasSuffix(method, ")V") {
		f.push(result)
	}
	return nil, false, nil
}
