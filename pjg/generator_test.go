package pjg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzipp/pascal-jvm/files"
	"github.com/fzipp/pascal-jvm/internal/contract"
	"github.com/fzipp/pascal-jvm/pjb"
)

// emit runs f on a generator for an empty method and returns the
// instructions it wrote, one per element with single spaced operands.
func emit(t *testing.T, f func(g *Generator)) []string {
	mem := files.NewMemory()
	c := &compilation{prog: "T", out: mem}
	u := c.create("T")
	g := c.method(u, pjb.NewScope(2, nil), 8)
	f(g)
	u.close()
	text, ok := mem.Text("T")
	require.True(t, ok)
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			out = append(out, strings.Join(f, " "))
		}
	}
	return out
}

func TestLoadConstant(t *testing.T) {
	tests := []struct {
		v    int32
		want string
	}{
		{-1, "iconst_m1"},
		{0, "iconst_0"},
		{5, "iconst_5"},
		{6, "bipush 6"},
		{-2, "bipush -2"},
		{127, "bipush 127"},
		{-128, "bipush -128"},
		{128, "sipush 128"},
		{-129, "sipush -129"},
		{32767, "sipush 32767"},
		{-32768, "sipush -32768"},
		{32768, "ldc 32768"},
		{-100000, "ldc -100000"},
	}
	for _, tc := range tests {
		got := emit(t, func(g *Generator) {
			g.LoadConstant(tc.v)
			assert.Equal(t, 1, g.Stack().Size())
		})
		assert.Equal(t, []string{tc.want}, got, "%d", tc.v)
	}
}

func TestLoadReal(t *testing.T) {
	tests := []struct {
		v    float32
		want string
	}{
		{0, "fconst_0"},
		{1, "fconst_1"},
		{2, "fconst_2"},
		{3, "ldc 3.0"},
		{0.5, "ldc 0.5"},
		{-2.25, "ldc -2.25"},
	}
	for _, tc := range tests {
		got := emit(t, func(g *Generator) { g.LoadReal(tc.v) })
		assert.Equal(t, []string{tc.want}, got, "%v", tc.v)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"plain"`, Quote("plain"))
	assert.Equal(t, `"say \"hi\"\n"`, Quote("say \"hi\"\n"))
	assert.Equal(t, `"a\\b\tc"`, Quote("a\\b\tc"))
	assert.Equal(t, `""`, Quote(""))
}

func TestLoadStoreLocal(t *testing.T) {
	got := emit(t, func(g *Generator) {
		g.LoadLocal(pjb.IntType, 0)
		g.LoadLocal(pjb.RealType, 3)
		g.LoadLocal(pjb.StringType, 4)
		g.StoreLocal(pjb.StringType, 7)
		g.StoreLocal(pjb.RealType, 2)
		g.StoreLocal(pjb.CharType, 5)
		assert.Equal(t, 3, g.Stack().Capacity())
		assert.Equal(t, 0, g.Stack().Size())
	})
	assert.Equal(t, []string{
		"iload_0", "fload_3", "aload 4",
		"astore 7", "fstore_2", "istore 5",
	}, got)
}

func TestRangeCheck(t *testing.T) {
	small := &pjb.Subrange{Base: pjb.IntType, Min: 1, Max: 10}
	mem := files.NewMemory()
	c := &compilation{prog: "T", out: mem, opts: Options{RangeCheck: true}}
	u := c.create("T")
	g := c.method(u, pjb.NewScope(2, nil), 1)
	obj := &pjb.Object{Class: pjb.ClassVar, Name: "x", Type: small, Scope: g.scope}
	g.LoadConstant(3)
	g.StoreValue(obj, small)
	u.close()
	text, _ := mem.Text("T")
	assert.Contains(t, text, "\tdup\n\ticonst_1\n\tbipush\t10\n\tinvokestatic\tRangeChecker/check(III)V\n\tistore_0\n")
	assert.True(t, c.rangeChecker)
	assert.Equal(t, 4, g.Stack().Capacity())

	// plain integer targets are never checked
	got := emit(t, func(g *Generator) {
		g.c.opts.RangeCheck = true
		g.LoadConstant(3)
		g.store(&pjb.Object{Class: pjb.ClassVar, Type: pjb.IntType, Scope: g.scope}, pjb.IntType, true)
	})
	assert.Equal(t, []string{"iconst_3", "istore_0"}, got)
}

func TestWrappedParameter(t *testing.T) {
	got := emit(t, func(g *Generator) {
		x := &pjb.Object{Class: pjb.ClassRefPar, Name: "x", Type: pjb.IntType, Scope: g.scope, Slot: 1}
		g.loadAddress(x)
		g.LoadValue(x)
		g.LoadConstant(1)
		g.put(IADD)
		g.StoreValue(x, pjb.IntType)
	})
	assert.Equal(t, []string{
		"aload_1", "iconst_0",
		"aload_1", "iconst_0", "iaload",
		"iconst_1", "iadd",
		"iastore",
	}, got)
}

func TestInaccessibleLocal(t *testing.T) {
	assert.Panics(t, func() {
		emit(t, func(g *Generator) {
			other := pjb.NewScope(3, nil)
			g.LoadValue(&pjb.Object{Class: pjb.ClassVar, Name: "y", Type: pjb.IntType, Scope: other})
		})
	})
}

func TestBranchTracking(t *testing.T) {
	emit(t, func(g *Generator) {
		exit := NewLabel()
		g.LoadConstant(1)
		g.LoadConstant(2)
		g.putBranch(IF_ICMPGE, exit)
		g.LoadConstant(7)
		g.put(POP)
		g.putBranch(GOTO, exit)
		assert.True(t, g.stack.dead)
		g.placeLabel(exit)
		assert.False(t, g.stack.dead)
		assert.Equal(t, 0, g.Stack().Size())
		assert.Equal(t, 2, g.Stack().Capacity())
	})
}

func TestEndMethodRequiresEmptyStack(t *testing.T) {
	defer func() {
		r := recover()
		_, ok := r.(contract.Violation)
		assert.True(t, ok, "%v", r)
	}()
	emit(t, func(g *Generator) {
		g.LoadConstant(1)
		g.endMethod()
	})
}

func TestOptionsString(t *testing.T) {
	assert.NotEqual(t, Options{}.String(), Options{RangeCheck: true}.String())
	assert.NotEqual(t, Options{}.String(), Options{Lines: true}.String())
}
