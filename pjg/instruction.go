package pjg

import (
	"fmt"
	"strconv"

	"github.com/fzipp/pascal-jvm/internal/contract"
)

// Op is a JVM instruction as spelled in Jasmin assembly.
type Op uint8

const (
	NOP Op = iota

	// constants
	ACONST_NULL
	ICONST_M1
	ICONST_0
	ICONST_1
	ICONST_2
	ICONST_3
	ICONST_4
	ICONST_5
	FCONST_0
	FCONST_1
	FCONST_2
	BIPUSH
	SIPUSH
	LDC

	// loads
	ILOAD
	FLOAD
	ALOAD
	ILOAD_0
	ILOAD_1
	ILOAD_2
	ILOAD_3
	FLOAD_0
	FLOAD_1
	FLOAD_2
	FLOAD_3
	ALOAD_0
	ALOAD_1
	ALOAD_2
	ALOAD_3
	IALOAD
	FALOAD
	AALOAD
	BALOAD
	CALOAD

	// stores
	ISTORE
	FSTORE
	ASTORE
	ISTORE_0
	ISTORE_1
	ISTORE_2
	ISTORE_3
	FSTORE_0
	FSTORE_1
	FSTORE_2
	FSTORE_3
	ASTORE_0
	ASTORE_1
	ASTORE_2
	ASTORE_3
	IASTORE
	FASTORE
	AASTORE
	BASTORE
	CASTORE

	// stack manipulation
	POP
	POP2
	DUP
	DUP_X1
	DUP_X2
	DUP2
	SWAP

	// arithmetic and logic
	IADD
	FADD
	ISUB
	FSUB
	IMUL
	FMUL
	IDIV
	FDIV
	IREM
	FREM
	INEG
	FNEG
	IAND
	IOR
	IXOR
	IINC

	// conversions
	I2F
	F2I
	I2D
	F2D
	D2F
	I2C

	// comparisons and branches
	FCMPG
	FCMPL
	IFEQ
	IFNE
	IFLT
	IFGE
	IFGT
	IFLE
	IF_ICMPEQ
	IF_ICMPNE
	IF_ICMPLT
	IF_ICMPGE
	IF_ICMPGT
	IF_ICMPLE
	IF_ACMPEQ
	IF_ACMPNE
	IFNULL
	IFNONNULL
	GOTO

	// returns
	IRETURN
	FRETURN
	ARETURN
	RETURN

	// fields and calls
	GETSTATIC
	PUTSTATIC
	GETFIELD
	PUTFIELD
	INVOKEVIRTUAL
	INVOKESPECIAL
	INVOKESTATIC

	// objects
	NEW
	NEWARRAY
	ANEWARRAY
	MULTIANEWARRAY
	ARRAYLENGTH
	ATHROW
	CHECKCAST

	OpMax
)

var opNames = [...]string{
	NOP:            "nop",
	ACONST_NULL:    "aconst_null",
	ICONST_M1:      "iconst_m1",
	ICONST_0:       "iconst_0",
	ICONST_1:       "iconst_1",
	ICONST_2:       "iconst_2",
	ICONST_3:       "iconst_3",
	ICONST_4:       "iconst_4",
	ICONST_5:       "iconst_5",
	FCONST_0:       "fconst_0",
	FCONST_1:       "fconst_1",
	FCONST_2:       "fconst_2",
	BIPUSH:         "bipush",
	SIPUSH:         "sipush",
	LDC:            "ldc",
	ILOAD:          "iload",
	FLOAD:          "fload",
	ALOAD:          "aload",
	ILOAD_0:        "iload_0",
	ILOAD_1:        "iload_1",
	ILOAD_2:        "iload_2",
	ILOAD_3:        "iload_3",
	FLOAD_0:        "fload_0",
	FLOAD_1:        "fload_1",
	FLOAD_2:        "fload_2",
	FLOAD_3:        "fload_3",
	ALOAD_0:        "aload_0",
	ALOAD_1:        "aload_1",
	ALOAD_2:        "aload_2",
	ALOAD_3:        "aload_3",
	IALOAD:         "iaload",
	FALOAD:         "faload",
	AALOAD:         "aaload",
	BALOAD:         "baload",
	CALOAD:         "caload",
	ISTORE:         "istore",
	FSTORE:         "fstore",
	ASTORE:         "astore",
	ISTORE_0:       "istore_0",
	ISTORE_1:       "istore_1",
	ISTORE_2:       "istore_2",
	ISTORE_3:       "istore_3",
	FSTORE_0:       "fstore_0",
	FSTORE_1:       "fstore_1",
	FSTORE_2:       "fstore_2",
	FSTORE_3:       "fstore_3",
	ASTORE_0:       "astore_0",
	ASTORE_1:       "astore_1",
	ASTORE_2:       "astore_2",
	ASTORE_3:       "astore_3",
	IASTORE:        "iastore",
	FASTORE:        "fastore",
	AASTORE:        "aastore",
	BASTORE:        "bastore",
	CASTORE:        "castore",
	POP:            "pop",
	POP2:           "pop2",
	DUP:            "dup",
	DUP_X1:         "dup_x1",
	DUP_X2:         "dup_x2",
	DUP2:           "dup2",
	SWAP:           "swap",
	IADD:           "iadd",
	FADD:           "fadd",
	ISUB:           "isub",
	FSUB:           "fsub",
	IMUL:           "imul",
	FMUL:           "fmul",
	IDIV:           "idiv",
	FDIV:           "fdiv",
	IREM:           "irem",
	FREM:           "frem",
	INEG:           "ineg",
	FNEG:           "fneg",
	IAND:           "iand",
	IOR:            "ior",
	IXOR:           "ixor",
	IINC:           "iinc",
	I2F:            "i2f",
	F2I:            "f2i",
	I2D:            "i2d",
	F2D:            "f2d",
	D2F:            "d2f",
	I2C:            "i2c",
	FCMPG:          "fcmpg",
	FCMPL:          "fcmpl",
	IFEQ:           "ifeq",
	IFNE:           "ifne",
	IFLT:           "iflt",
	IFGE:           "ifge",
	IFGT:           "ifgt",
	IFLE:           "ifle",
	IF_ICMPEQ:      "if_icmpeq",
	IF_ICMPNE:      "if_icmpne",
	IF_ICMPLT:      "if_icmplt",
	IF_ICMPGE:      "if_icmpge",
	IF_ICMPGT:      "if_icmpgt",
	IF_ICMPLE:      "if_icmple",
	IF_ACMPEQ:      "if_acmpeq",
	IF_ACMPNE:      "if_acmpne",
	IFNULL:         "ifnull",
	IFNONNULL:      "ifnonnull",
	GOTO:           "goto",
	IRETURN:        "ireturn",
	FRETURN:        "freturn",
	ARETURN:        "areturn",
	RETURN:         "return",
	GETSTATIC:      "getstatic",
	PUTSTATIC:      "putstatic",
	GETFIELD:       "getfield",
	PUTFIELD:       "putfield",
	INVOKEVIRTUAL:  "invokevirtual",
	INVOKESPECIAL:  "invokespecial",
	INVOKESTATIC:   "invokestatic",
	NEW:            "new",
	NEWARRAY:       "newarray",
	ANEWARRAY:      "anewarray",
	MULTIANEWARRAY: "multianewarray",
	ARRAYLENGTH:    "arraylength",
	ATHROW:         "athrow",
	CHECKCAST:      "checkcast",
}

const variableStackEffect = 0x7f

// stackEffect records the effect on the size of the operand stack of
// each kind of instruction. For calls and multianewarray the effect
// depends on the operand and is computed by Effect.
var stackEffect = [...]int8{
	NOP:            0,
	ACONST_NULL:    +1,
	ICONST_M1:      +1,
	ICONST_0:       +1,
	ICONST_1:       +1,
	ICONST_2:       +1,
	ICONST_3:       +1,
	ICONST_4:       +1,
	ICONST_5:       +1,
	FCONST_0:       +1,
	FCONST_1:       +1,
	FCONST_2:       +1,
	BIPUSH:         +1,
	SIPUSH:         +1,
	LDC:            +1,
	ILOAD:          +1,
	FLOAD:          +1,
	ALOAD:          +1,
	ILOAD_0:        +1,
	ILOAD_1:        +1,
	ILOAD_2:        +1,
	ILOAD_3:        +1,
	FLOAD_0:        +1,
	FLOAD_1:        +1,
	FLOAD_2:        +1,
	FLOAD_3:        +1,
	ALOAD_0:        +1,
	ALOAD_1:        +1,
	ALOAD_2:        +1,
	ALOAD_3:        +1,
	IALOAD:         -1,
	FALOAD:         -1,
	AALOAD:         -1,
	BALOAD:         -1,
	CALOAD:         -1,
	ISTORE:         -1,
	FSTORE:         -1,
	ASTORE:         -1,
	ISTORE_0:       -1,
	ISTORE_1:       -1,
	ISTORE_2:       -1,
	ISTORE_3:       -1,
	FSTORE_0:       -1,
	FSTORE_1:       -1,
	FSTORE_2:       -1,
	FSTORE_3:       -1,
	ASTORE_0:       -1,
	ASTORE_1:       -1,
	ASTORE_2:       -1,
	ASTORE_3:       -1,
	IASTORE:        -3,
	FASTORE:        -3,
	AASTORE:        -3,
	BASTORE:        -3,
	CASTORE:        -3,
	POP:            -1,
	POP2:           -2,
	DUP:            +1,
	DUP_X1:         +1,
	DUP_X2:         +1,
	DUP2:           +2,
	SWAP:           0,
	IADD:           -1,
	FADD:           -1,
	ISUB:           -1,
	FSUB:           -1,
	IMUL:           -1,
	FMUL:           -1,
	IDIV:           -1,
	FDIV:           -1,
	IREM:           -1,
	FREM:           -1,
	INEG:           0,
	FNEG:           0,
	IAND:           -1,
	IOR:            -1,
	IXOR:           -1,
	IINC:           0,
	I2F:            0,
	F2I:            0,
	I2D:            +1,
	F2D:            +1,
	D2F:            -1,
	I2C:            0,
	FCMPG:          -1,
	FCMPL:          -1,
	IFEQ:           -1,
	IFNE:           -1,
	IFLT:           -1,
	IFGE:           -1,
	IFGT:           -1,
	IFLE:           -1,
	IF_ICMPEQ:      -2,
	IF_ICMPNE:      -2,
	IF_ICMPLT:      -2,
	IF_ICMPGE:      -2,
	IF_ICMPGT:      -2,
	IF_ICMPLE:      -2,
	IF_ACMPEQ:      -2,
	IF_ACMPNE:      -2,
	IFNULL:         -1,
	IFNONNULL:      -1,
	GOTO:           0,
	IRETURN:        -1,
	FRETURN:        -1,
	ARETURN:        -1,
	RETURN:         0,
	GETSTATIC:      +1,
	PUTSTATIC:      -1,
	GETFIELD:       0,
	PUTFIELD:       -2,
	INVOKEVIRTUAL:  variableStackEffect,
	INVOKESPECIAL:  variableStackEffect,
	INVOKESTATIC:   variableStackEffect,
	NEW:            +1,
	NEWARRAY:       0,
	ANEWARRAY:      0,
	MULTIANEWARRAY: variableStackEffect,
	ARRAYLENGTH:    0,
	ATHROW:         -1,
	CHECKCAST:      0,
}

func (op Op) String() string {
	if op < OpMax {
		if name := opNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// LookupOp returns the instruction with the given Jasmin mnemonic.
func LookupOp(name string) (Op, bool) {
	op, ok := opByName[name]
	return op, ok
}

var opByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		if name != "" {
			m[name] = Op(op)
		}
	}
	return m
}()

// StackEffect returns the static stack effect of op and whether it is fixed.
// Operand-dependent instructions report false.
func (op Op) StackEffect() (int, bool) {
	se := stackEffect[op]
	if se == variableStackEffect {
		return 0, false
	}
	return int(se), true
}

// IsBranch reports whether op transfers control to a label.
func (op Op) IsBranch() bool {
	return op >= IFEQ && op <= GOTO
}

// IsTerminal reports whether control never falls through to the next instruction.
func (op Op) IsTerminal() bool {
	switch op {
	case GOTO, IRETURN, FRETURN, ARETURN, RETURN, ATHROW:
		return true
	}
	return false
}

// Effect returns the stack effect of op with the given operands.
func Effect(op Op, operands ...string) int {
	if se, ok := op.StackEffect(); ok {
		return se
	}
	switch op {
	case INVOKESTATIC, INVOKEVIRTUAL, INVOKESPECIAL:
		args, ret := methodSlots(operands[0])
		if op != INVOKESTATIC {
			args++ // receiver
		}
		return ret - args
	case MULTIANEWARRAY:
		contract.Requiref(len(operands) == 2, "operands", "multianewarray needs a type and a dimension count")
		dims, err := strconv.Atoi(operands[1])
		contract.Assertf(err == nil && dims > 0, "multianewarray dimension count %q", operands[1])
		return 1 - dims
	}
	panic("unreachable")
}
