package pjt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fzipp/pascal-jvm/pjb"
)

func TestParseOp(t *testing.T) {
	for _, s := range []string{"=", "<>", "<", "<=", ">", ">=", "+", "-", "or", "*", "/", "div", "mod", "and"} {
		op, ok := ParseOp(s)
		if assert.True(t, ok, s) {
			assert.Equal(t, s, op.String())
		}
	}
	_, ok := ParseOp("xor")
	assert.False(t, ok)

	assert.True(t, OpGeq.IsRelation())
	assert.True(t, OpOr.IsAdditive())
	assert.True(t, OpAnd.IsMultiplicative())
	assert.False(t, OpAnd.IsAdditive())
}

func TestExprTypes(t *testing.T) {
	v := &pjb.Object{Class: pjb.ClassVar, Name: "a", Type: &pjb.Array{Index: pjb.IntType, Elem: pjb.CharType}}
	assert.Equal(t, v.Type, (&VarRef{Obj: v}).Type())
	assert.Equal(t, pjb.Type(pjb.CharType), (&VarRef{Obj: v, Mods: []Modifier{&Index{}}, Typ: pjb.CharType}).Type())
	assert.Equal(t, pjb.Type(pjb.BoolType), (&Relation{Op: OpLss}).Type())
	assert.Equal(t, pjb.Type(pjb.StringType), (&StringLit{Val: "x"}).Type())
	assert.True(t, IsLiteralString(&StringLit{}))
	assert.False(t, IsLiteralString(&CharLit{Val: 'x'}))
}

func TestWalk(t *testing.T) {
	inner := &Empty{Pos{Line: 4}}
	tree := &Compound{Stmts: []Stmt{
		&If{Cond: &Not{}, Then: &Write{}, Else: nil},
		&While{Body: &Repeat{Body: []Stmt{inner}}},
		&Case{Branches: []*Branch{{Body: &Read{}}}},
	}}
	var lines []int
	n := 0
	Walk(tree, func(s Stmt) {
		n++
		lines = append(lines, s.Position())
	})
	assert.Equal(t, 8, n)
	assert.Contains(t, lines, 4)
}
