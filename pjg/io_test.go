package pjg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fzipp/pascal-jvm/pjb"
	"github.com/fzipp/pascal-jvm/pjt"
)

func intPtr(n int) *int { return &n }

func TestWriteFormat(t *testing.T) {
	n := &pjt.VarRef{Obj: &pjb.Object{Class: pjb.ClassVar, Name: "n", Type: pjb.IntType}}
	r := &pjt.VarRef{Obj: &pjb.Object{Class: pjb.ClassVar, Name: "r", Type: pjb.RealType}}
	lit := func(s string) *pjt.WriteArg { return &pjt.WriteArg{X: &pjt.StringLit{Val: s}} }

	tests := []struct {
		args    []*pjt.WriteArg
		newline bool
		format  string
		n       int
	}{
		{[]*pjt.WriteArg{lit("x="), {X: n}}, false, "x=%d", 1},
		{[]*pjt.WriteArg{lit("x="), {X: n}}, true, "x=%d\n", 1},
		{[]*pjt.WriteArg{lit("50%")}, true, "50%\n", 0},
		{[]*pjt.WriteArg{lit("50% of "), {X: n}}, false, "50%% of %d", 1},
		{[]*pjt.WriteArg{{X: r, Width: intPtr(8), Places: intPtr(2)}}, false, "%8.2f", 1},
		{[]*pjt.WriteArg{{X: n, Width: intPtr(4)}, {X: &pjt.CharLit{Val: 'c'}}}, false, "%4d%c", 2},
		{[]*pjt.WriteArg{{X: &pjt.Relation{Op: pjt.OpLss, X: n, Y: n}}}, false, "%b", 1},
		{nil, true, "\n", 0},
	}
	for _, tc := range tests {
		format, count := WriteFormat(tc.args, tc.newline)
		assert.Equal(t, tc.format, format)
		assert.Equal(t, tc.n, count, tc.format)
	}
}

func TestConversion(t *testing.T) {
	assert.Equal(t, byte('d'), conversion(&pjb.Enumeration{}))
	assert.Equal(t, byte('d'), conversion(&pjb.Subrange{Base: pjb.IntType}))
	assert.Equal(t, byte('c'), conversion(&pjb.Subrange{Base: pjb.CharType}))
	assert.Equal(t, byte('s'), conversion(pjb.StringType))
}
