package jvmsim

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzipp/pascal-jvm/files"
)

const counter = `.class public Counter
.super java/lang/Object

.field private static n I

.method public static main([Ljava/lang/String;)V
.var 0 is args [Ljava/lang/String;
	iconst_1
	istore_1
L001:
	iload_1
	iconst_3
	if_icmpgt	L002
	getstatic	java/lang/System/out Ljava/io/PrintStream;
	ldc	"i=%d; "
	iconst_1
	anewarray	java/lang/Object
	dup
	iconst_0
	iload_1
	invokestatic	java/lang/Integer/valueOf(I)Ljava/lang/Integer;
	aastore
	invokevirtual	java/io/PrintStream/printf(Ljava/lang/String;[Ljava/lang/Object;)Ljava/io/PrintStream;
	pop
	iinc	1 1
	goto	L001
L002:
	iload_1
	putstatic	Counter/n I
	return

.limit locals 2
.limit stack 6
.end method
`

func load(t *testing.T, units map[string]string) *Program {
	m := files.NewMemory()
	for name, text := range units {
		w, err := m.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, text)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	p, err := Load(m)
	require.NoError(t, err)
	return p
}

func TestParseUnit(t *testing.T) {
	c, err := ParseUnit("Counter", counter)
	require.NoError(t, err)
	assert.Equal(t, "Counter", c.Name)
	assert.Equal(t, "java/lang/Object", c.Super)
	require.Contains(t, c.Fields, "n")
	assert.True(t, c.Fields["n"].Static)

	m := c.Methods["main([Ljava/lang/String;)V"]
	require.NotNil(t, m)
	assert.True(t, m.Static)
	assert.Equal(t, 2, m.Locals)
	assert.Equal(t, 6, m.StackLimit)
	assert.Equal(t, 0, m.Labels["L001"])
	assert.Equal(t, "args", m.Vars[0])
	assert.Equal(t, quoted+"i=%d; ", m.Code[4].Args[0])
}

func TestParseUnitErrors(t *testing.T) {
	for _, text := range []string{
		"\ticonst_0\n",
		".class public A\n.method public static f()V\n\tfrobnicate\n.end method\n",
		".class public A\n.method public static f()V\n\treturn\n",
		".method public static f()V\n\treturn\n.end method\n",
		".class public A\n.method public static f()V\n\tldc \"open\n.end method\n",
	} {
		_, err := ParseUnit("A", text)
		assert.Error(t, err, text)
	}
}

func TestSplitMember(t *testing.T) {
	class, member := splitMember("[Ljava/lang/String;/clone()Ljava/lang/Object;")
	assert.Equal(t, "[Ljava/lang/String;", class)
	assert.Equal(t, "clone()Ljava/lang/Object;", member)
	class, member = splitMember("Hello$point/x")
	assert.Equal(t, "Hello$point", class)
	assert.Equal(t, "x", member)
}

func TestVerify(t *testing.T) {
	p := load(t, map[string]string{"Counter": counter})
	assert.NoError(t, VerifyAll(p))
}

func TestVerifyFailures(t *testing.T) {
	cases := map[string]string{
		"limit": `.class public A
.method public static f()V
	iconst_0
	pop
	return
.limit locals 0
.limit stack 2
.end method
`,
		"underflow": `.class public A
.method public static f()V
	pop
	return
.limit locals 0
.limit stack 0
.end method
`,
		"join": `.class public A
.method public static f(I)V
	iload_0
	ifeq	L001
	iconst_1
L001:
	return
.limit locals 1
.limit stack 1
.end method
`,
		"leftover": `.class public A
.method public static f()V
	iconst_1
	return
.limit locals 0
.limit stack 1
.end method
`,
		"locals": `.class public A
.method public static f()V
	iconst_1
	istore_2
	return
.limit locals 2
.limit stack 1
.end method
`,
	}
	for name, text := range cases {
		c, err := ParseUnit("A", text)
		require.NoError(t, err, name)
		for _, m := range c.Methods {
			assert.Error(t, Verify(m), name)
		}
	}
}

func TestRun(t *testing.T) {
	p := load(t, map[string]string{"Counter": counter})
	vm := NewMachine(p, "")
	require.NoError(t, vm.Main("Counter"))
	assert.Equal(t, "i=1; i=2; i=3; ", vm.Output())
	assert.Equal(t, int32(4), vm.Static("Counter/n"))
}

func TestRunStringsAndRecords(t *testing.T) {
	rec := `.class public P$r
.super java/lang/Object
.field x I
.method public <init>()V
	aload_0
	invokespecial	java/lang/Object/<init>()V
	return
.limit locals 1
.limit stack 1
.end method
`
	main := `.class public P
.super java/lang/Object
.method public static main([Ljava/lang/String;)V
	new	P$r
	dup
	invokespecial	P$r/<init>()V
	astore_1
	aload_1
	bipush	42
	putfield	P$r/x I
	getstatic	java/lang/System/out Ljava/io/PrintStream;
	ldc	"ab"
	new	java/lang/StringBuilder
	dup_x1
	swap
	invokestatic	java/lang/String/valueOf(Ljava/lang/Object;)Ljava/lang/String;
	invokespecial	java/lang/StringBuilder/<init>(Ljava/lang/String;)V
	aload_1
	getfield	P$r/x I
	invokevirtual	java/lang/StringBuilder/append(I)Ljava/lang/StringBuilder;
	invokevirtual	java/lang/StringBuilder/toString()Ljava/lang/String;
	invokevirtual	java/io/PrintStream/print(Ljava/lang/String;)V
	return
.limit locals 2
.limit stack 4
.end method
`
	p := load(t, map[string]string{"P$r": rec, "P": main})
	require.NoError(t, VerifyAll(p))
	out, err := Run(p, "P", "")
	require.NoError(t, err)
	assert.Equal(t, "ab42", out)
}

func TestRunException(t *testing.T) {
	main := `.class public P
.super java/lang/Object
.method public static main([Ljava/lang/String;)V
	iconst_2
	newarray	int
	iconst_2
	iaload
	pop
	return
.limit locals 1
.limit stack 2
.end method
`
	p := load(t, map[string]string{"P": main})
	_, err := Run(p, "P", "")
	require.Error(t, err)
	exc, ok := err.(*Exception)
	require.True(t, ok)
	assert.Equal(t, "java/lang/ArrayIndexOutOfBoundsException", exc.Class)
}

func TestRunStepLimit(t *testing.T) {
	main := `.class public P
.super java/lang/Object
.method public static main([Ljava/lang/String;)V
L001:
	goto	L001
.limit locals 1
.limit stack 0
.end method
`
	p := load(t, map[string]string{"P": main})
	vm := NewMachine(p, "")
	vm.MaxSteps = 1000
	assert.Error(t, vm.Main("P"))
}

func TestScanner(t *testing.T) {
	s := newScanner("12 abc\nx")
	tok, ok := s.token()
	assert.True(t, ok)
	assert.Equal(t, "12", tok)
	s.chars = true
	tok, _ = s.token()
	assert.Equal(t, " ", tok)
	s.chars = false
	line, ok := s.line()
	assert.True(t, ok)
	assert.Equal(t, "abc", line)
	assert.True(t, s.hasNext())
	tok, _ = s.token()
	assert.Equal(t, "x", tok)
	assert.False(t, s.hasNext())
	_, ok = s.line()
	assert.False(t, ok)
}

func TestFormat(t *testing.T) {
	i := &box{class: "java/lang/Integer", v: int32(7)}
	f := &box{class: "java/lang/Float", v: float32(2.5)}
	b := &box{class: "java/lang/Boolean", v: int32(0)}
	c := &box{class: "java/lang/Character", v: int32('z')}

	cases := []struct {
		format string
		args   []interface{}
		want   string
	}{
		{"x=%d", []interface{}{i}, "x=7"},
		{"[%4d]", []interface{}{i}, "[   7]"},
		{"[%-4d]", []interface{}{i}, "[7   ]"},
		{"%f", []interface{}{f}, "2.500000"},
		{"%6.2f", []interface{}{f}, "  2.50"},
		{"%b %c", []interface{}{b, c}, "false z"},
		{"%s!%n", []interface{}{"hi"}, "hi!\n"},
		{"100%%", nil, "100%"},
		{"%.2s", []interface{}{"hello"}, "he"},
	}
	for _, tc := range cases {
		got, err := Format(tc.format, tc.args)
		require.NoError(t, err, tc.format)
		assert.Equal(t, tc.want, got, tc.format)
	}

	_, err := Format("%d", nil)
	assert.Error(t, err)
	_, err = Format("%d", []interface{}{f})
	assert.Error(t, err)
	_, err = Format("%q", []interface{}{i})
	assert.Error(t, err)
}

func TestFloatString(t *testing.T) {
	assert.Equal(t, "1.0", floatString(1))
	assert.Equal(t, "0.5", floatString(0.5))
	assert.Equal(t, "-3.25", floatString(-3.25))
	assert.Equal(t, "0.0", floatString(0))
	assert.Equal(t, "1.0E10", floatString(1e10))
	assert.Equal(t, "1.5E-5", floatString(1.5e-5))
}

func TestCompareStrings(t *testing.T) {
	assert.True(t, compareStrings("abc", "abd") < 0)
	assert.True(t, compareStrings("b", "abc") > 0)
	assert.Equal(t, int32(0), compareStrings("x", "x"))
	assert.Equal(t, int32(-2), compareStrings("a", "abc"))
}

func TestNormalizeLabels(t *testing.T) {
	text := "\tgoto\tL017\nL005:\nL017:\n\tifeq\tL005\n"
	assert.Equal(t, "\tgoto\tL001\nL002:\nL001:\n\tifeq\tL002\n", NormalizeLabels(text))
}

func TestDiff(t *testing.T) {
	assert.Equal(t, "", Diff("a\nb\n", "a\nb\n"))
	d := Diff("a\nb\nc\n", "a\nx\nc\n")
	assert.Contains(t, d, "- b\n")
	assert.Contains(t, d, "+ x\n")
	assert.Contains(t, d, "  a\n")
}

func TestInstructions(t *testing.T) {
	got := Instructions(counter, "main([Ljava/lang/String;)V")
	require.True(t, len(got) > 3)
	assert.Equal(t, []string{"iconst_1", "istore_1", "iload_1", "iconst_3", "if_icmpgt L002"}, got[:5])
}
