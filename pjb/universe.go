package pjb

// predefined types
var (
	IntType    = &Scalar{Kind: FormInt}
	RealType   = &Scalar{Kind: FormReal}
	BoolType   = &Scalar{Kind: FormBool}
	CharType   = &Scalar{Kind: FormChar}
	StringType = &Scalar{Kind: FormString}
)

// Std identifies a standard procedure or function.
type Std int

// standard procedures and functions
const (
	StdRead Std = 1 + iota
	StdReadln
	StdWrite
	StdWriteln

	StdAbs
	StdSqr
	StdSqrt
	StdSin
	StdCos
	StdExp
	StdLn
	StdArctan
	StdChr
	StdOrd
	StdOdd
	StdPred
	StdSucc
	StdRound
	StdTrunc
	StdEOF
)

var stdNames = [...]string{
	StdRead:    "read",
	StdReadln:  "readln",
	StdWrite:   "write",
	StdWriteln: "writeln",
	StdAbs:     "abs",
	StdSqr:     "sqr",
	StdSqrt:    "sqrt",
	StdSin:     "sin",
	StdCos:     "cos",
	StdExp:     "exp",
	StdLn:      "ln",
	StdArctan:  "arctan",
	StdChr:     "chr",
	StdOrd:     "ord",
	StdOdd:     "odd",
	StdPred:    "pred",
	StdSucc:    "succ",
	StdRound:   "round",
	StdTrunc:   "trunc",
	StdEOF:     "eof",
}

func (s Std) String() string {
	if s > 0 && int(s) < len(stdNames) {
		return stdNames[s]
	}
	return "std?"
}

var universe = newUniverse()

// Universe returns the outermost scope (level 0), holding the predefined
// types, the constants false and true, and the standard procedures and functions.
// The universe is shared and must not be modified.
func Universe() *Scope {
	return universe
}

func newUniverse() *Scope {
	s := NewScope(0, nil)
	enterTyp := func(name string, t *Scalar) {
		t.TypObj = s.Enter(name, ClassTyp, t)
	}
	enterTyp("integer", IntType)
	enterTyp("real", RealType)
	enterTyp("boolean", BoolType)
	enterTyp("char", CharType)
	enterTyp("string", StringType)

	s.Enter("false", ClassConst, BoolType).Val = int32(0)
	s.Enter("true", ClassConst, BoolType).Val = int32(1)

	for std := StdRead; std <= StdWriteln; std++ {
		s.Enter(std.String(), ClassSProc, nil).Val = std
	}
	for std := StdAbs; std <= StdEOF; std++ {
		s.Enter(std.String(), ClassSFunc, nil).Val = std
	}
	return s
}
