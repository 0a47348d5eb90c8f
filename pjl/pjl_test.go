package pjl

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzipp/pascal-jvm/pjb"
	"github.com/fzipp/pascal-jvm/pjt"
)

const shapes = `
program: Shapes
consts:
  - {name: limit, value: 10}
  - {name: ratio, value: 0.5}
  - {name: greeting, value: hello}
  - {name: initial, type: char, value: Q}
types:
  - {name: color, type: {enum: [red, green, blue]}}
  - {name: digit, type: {subrange: {min: 0, max: 9}}}
  - {name: letter, type: {subrange: {base: char, min: a, max: z}}}
  - {name: warm, type: {subrange: {base: color, min: red, max: green}}}
  - name: point
    type:
      record:
        - {name: px, type: integer}
        - {name: py, type: integer}
        - name: label
          type: {record: [{name: text, type: string}]}
  - {name: matrix, type: {array: {index: [digit, color], elem: real}}}
vars:
  - {name: origin, type: point}
  - {name: m, type: matrix}
  - {name: flags, type: {array: {index: boolean, elem: boolean}}}
  - {name: counter, type: integer}
  - {name: scale, type: real}
routines:
  - function: area
    returns: real
    params:
      - {name: w, type: integer}
      - {name: h, type: real, var: true}
    vars: [{name: tmp, type: real}]
    body:
      - {assign: tmp, value: {product: [w, "*", h]}}
      - {assign: area, value: tmp}
  - procedure: bump
    params: [{name: target, type: integer, var: true}]
    routines:
      - function: step
        returns: integer
        body:
          - {assign: step, value: 1}
    body:
      - {assign: target, value: {sum: [target, "+", step]}}
body:
  - {assign: counter, value: limit}
  - {assign: scale, value: ratio}
  - {call: bump, args: [counter]}
  - writeln: [{value: {call: area, args: [2, scale]}, width: 6, places: 2}]
  - if: {rel: ">", lhs: counter, rhs: 5}
    then: {writeln: [{str: "big"}]}
    else:
      - {writeln: [{str: "small"}]}
      - empty
`

func decode(t *testing.T, src string) *pjt.Program {
	prog, err := Decode("test.yaml", []byte(src))
	require.NoError(t, err)
	return prog
}

func TestDecodeDeclarations(t *testing.T) {
	prog := decode(t, shapes)
	assert.Equal(t, "Shapes", prog.Name())
	scope := prog.Scope()
	assert.Equal(t, 1, scope.Level)
	assert.True(t, scope.Owner == prog.Obj)

	limit := scope.Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, pjb.ClassConst, limit.Class)
	assert.Equal(t, int32(10), limit.Val)
	assert.Equal(t, float32(0.5), scope.Lookup("ratio").Val)
	assert.Equal(t, "hello", scope.Lookup("greeting").Val)
	assert.Equal(t, int32('Q'), scope.Lookup("initial").Val)

	blue := scope.Lookup("blue")
	require.NotNil(t, blue)
	assert.Equal(t, pjb.ClassEnumConst, blue.Class)
	assert.Equal(t, int32(2), blue.Val)
	color := scope.Lookup("color").Type.(*pjb.Enumeration)
	assert.Len(t, color.Constants, 3)
	assert.Equal(t, "color", pjb.TypeName(color))

	letter := scope.Lookup("letter").Type.(*pjb.Subrange)
	assert.Equal(t, int32('a'), letter.Min)
	assert.Equal(t, pjb.FormChar, pjb.FormOf(letter))
	warm := scope.Lookup("warm").Type.(*pjb.Subrange)
	assert.Equal(t, int32(0), warm.Min)
	assert.Equal(t, int32(1), warm.Max)

	point := scope.Lookup("point").Type.(*pjb.Record)
	assert.Equal(t, "Shapes$point", point.Path)
	assert.True(t, point.Fields.Rec == point)
	label := point.Fields.Lookup("label").Type.(*pjb.Record)
	assert.Equal(t, "Shapes$point$label", label.Path)

	matrix := scope.Lookup("matrix").Type.(*pjb.Array)
	assert.Equal(t, int32(10), matrix.Count)
	inner := matrix.Elem.(*pjb.Array)
	assert.Equal(t, int32(3), inner.Count)
	assert.Equal(t, pjb.RealType, inner.Elem)
	dims, elem := pjb.Dims(matrix)
	assert.Equal(t, 2, dims)
	assert.Equal(t, pjb.RealType, elem)

	flags := scope.Lookup("flags").Type.(*pjb.Array)
	assert.Equal(t, int32(2), flags.Count)

	// global variables live in static fields, not slots
	assert.Equal(t, 0, scope.SlotCount())
}

func TestDecodeRoutines(t *testing.T) {
	prog := decode(t, shapes)
	require.Len(t, prog.Routines, 2)

	area := prog.Routines[0]
	obj := area.Obj
	assert.Equal(t, pjb.ClassFunc, obj.Class)
	assert.Equal(t, pjb.RealType, obj.Type)
	s := area.Scope()
	assert.Equal(t, 2, s.Level)
	assert.True(t, s.Owner == obj)
	require.Len(t, obj.Routine.Params, 2)
	assert.Equal(t, pjb.ClassValPar, obj.Routine.Params[0].Class)
	assert.Equal(t, pjb.ClassRefPar, obj.Routine.Params[1].Class)
	assert.Equal(t, 0, s.Lookup("w").Slot)
	assert.Equal(t, 1, s.Lookup("h").Slot)
	assert.Equal(t, 2, s.Lookup("tmp").Slot)
	result := obj.Routine.Result
	require.NotNil(t, result)
	assert.Equal(t, 3, result.Slot)
	assert.Equal(t, 4, s.SlotCount())
	assert.True(t, obj.Routine.Body == area)

	// the result variable is the assignment target inside the function
	assign := area.Body.Stmts[1].(*pjt.Assign)
	assert.True(t, assign.Lhs.Obj == result)

	bump := prog.Routines[1]
	require.Len(t, bump.Routines, 1)
	step := bump.Routines[0]
	assert.Equal(t, 3, step.Scope().Level)
	assert.True(t, step.Obj.Scope == bump.Scope())

	// a parameterless function used as a value is a call
	sum := bump.Body.Stmts[0].(*pjt.Assign).Rhs.(*pjt.Sum)
	call, ok := sum.Terms[1].(*pjt.Call)
	require.True(t, ok)
	assert.True(t, call.Func == step.Obj)
}

func TestDecodeStatements(t *testing.T) {
	prog := decode(t, shapes)
	stmts := prog.Body.Stmts
	require.Len(t, stmts, 5)

	pc := stmts[2].(*pjt.ProcCall)
	assert.Equal(t, "bump", pc.Proc.Name)
	require.Len(t, pc.Args, 1)

	w := stmts[3].(*pjt.Write)
	assert.True(t, w.Newline)
	require.Len(t, w.Args, 1)
	require.NotNil(t, w.Args[0].Width)
	assert.Equal(t, 6, *w.Args[0].Width)
	assert.Equal(t, 2, *w.Args[0].Places)
	call := w.Args[0].X.(*pjt.Call)
	assert.Equal(t, pjb.RealType, call.Type())

	ifs := stmts[4].(*pjt.If)
	_, ok := ifs.Cond.(*pjt.Relation)
	assert.True(t, ok)
	_, ok = ifs.Then.(*pjt.Write)
	assert.True(t, ok, "a single statement is not wrapped")
	els := ifs.Else.(*pjt.Compound)
	require.Len(t, els.Stmts, 2)
	_, ok = els.Stmts[1].(*pjt.Empty)
	assert.True(t, ok)
}

func TestExpressionTypes(t *testing.T) {
	src := `
program: Types
vars:
  - {name: k, type: integer}
  - {name: r, type: real}
  - {name: s, type: string}
  - {name: c, type: char}
body:
  - writeln:
      - {sum: [k, "+", 1]}
      - {sum: [k, "+", r]}
      - {sum: [s, "+", c]}
      - {product: [k, "/", 2]}
      - {product: [k, "div", 2]}
      - {product: [true, "and", false]}
      - {ref: s, sel: [[1]]}
      - {call: sqrt, args: [k]}
      - {call: chr, args: [65]}
      - {call: abs, args: [r]}
      - {call: round, args: [r]}
      - {not: true}
      - eof
`
	want := []pjb.Form{
		pjb.FormInt, pjb.FormReal, pjb.FormString,
		pjb.FormReal, pjb.FormInt, pjb.FormBool,
		pjb.FormChar, pjb.FormReal, pjb.FormChar,
		pjb.FormReal, pjb.FormInt, pjb.FormBool,
		pjb.FormBool,
	}
	w := decode(t, src).Body.Stmts[0].(*pjt.Write)
	require.Len(t, w.Args, len(want))
	for i, a := range w.Args {
		assert.Equal(t, want[i], pjb.FormOf(a.X.Type()), "argument %d", i)
	}
}

func TestDecodeErrors(t *testing.T) {
	src := `
program: Broken
vars:
  - {name: k, type: integer}
  - {name: k, type: real}
  - {name: z, type: nosuchtype}
routines:
  - procedure: p
    params: [{name: x, type: integer, var: true}]
body:
  - {assign: missing, value: 1, line: 7}
  - {call: p, args: [3], line: 8}
  - {assign: k, value: {call: sqrt, args: [1, 2]}, line: 9}
`
	_, err := Decode("broken.yaml", []byte(src))
	require.Error(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok, "%T", err)
	assert.Len(t, merr.Errors, 6)

	msg := err.Error()
	assert.Contains(t, msg, "k redeclared")
	assert.Contains(t, msg, "unknown type nosuchtype")
	assert.Contains(t, msg, "broken.yaml:7: undeclared missing")
	assert.Contains(t, msg, "broken.yaml:7: cannot assign to missing")
	assert.Contains(t, msg, "broken.yaml:8: argument 1 of p must be a variable")
	assert.Contains(t, msg, "broken.yaml:9: sqrt expects 1 arguments, got 2")
}

func TestArithmeticOperandErrors(t *testing.T) {
	src := `
program: Mixed
types:
  - {name: color, type: {enum: [red, green]}}
vars:
  - {name: k, type: integer}
  - {name: b, type: boolean}
  - {name: c, type: color}
body:
  - {assign: k, value: {product: [n, "/", 2]}}
  - {assign: k, value: {sum: [k, "-", true]}}
  - {assign: k, value: {sum: [c, "+", 1]}}
  - {assign: b, value: {sum: [b, "or", 1]}}
  - {assign: k, value: {product: [k, "div", 2.5]}}
  - {assign: b, value: {product: [k, "and", b]}}
  - {assign: k, value: {sum: [{str: "x"}, "-", 1]}}
  - {assign: k, value: {sum: [b], neg: true}}
`
	_, err := Decode("mixed.yaml", []byte(src))
	require.Error(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok, "%T", err)
	msg := err.Error()
	for _, want := range []string{
		"operator / does not apply to boolean and integer",
		"operator - does not apply to integer and boolean",
		"operator + does not apply to color and integer",
		"operator or does not apply to boolean and integer",
		"operator div does not apply to integer and real",
		"operator and does not apply to integer and boolean",
		"operator - does not apply to string and integer",
		"cannot negate boolean",
	} {
		assert.Contains(t, msg, want)
	}
	assert.Len(t, merr.Errors, 8)
}

func TestDecodeMalformed(t *testing.T) {
	for _, src := range []string{
		"body: []",
		"program: P\nbody: [{frobnicate: 1}]",
		"program: P\nbody: [{assign: k, while: true}]",
		"program: P\nbody: [bogus]",
		"program: P\nvars: [{name: v, type: {set: integer}}]",
		"program: P\nbody: [{writeln: [[1, 2]]}]",
		"program: [unterminated",
	} {
		_, err := Decode("bad.yaml", []byte(src))
		assert.Error(t, err, src)
	}
}

func TestLoad(t *testing.T) {
	prog, err := Load("hello.yaml", bytes.NewBufferString("program: Hello\nbody: [{writeln: [{str: hi}]}]\n"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", prog.Name())

	dir, err := ioutil.TempDir("", "pjl")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	name := filepath.Join(dir, "shapes.yaml")
	require.NoError(t, ioutil.WriteFile(name, []byte(shapes), 0644))
	prog, err = LoadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "Shapes", prog.Name())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
