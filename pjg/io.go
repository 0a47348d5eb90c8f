package pjg

import (
	"strconv"
	"strings"

	"github.com/fzipp/pascal-jvm/internal/contract"
	"github.com/fzipp/pascal-jvm/pjb"
	"github.com/fzipp/pascal-jvm/pjt"
)

// conversion returns the format conversion character for a value of type t.
func conversion(t pjb.Type) byte {
	switch pjb.FormOf(t) {
	case pjb.FormInt, pjb.FormEnum:
		return 'd'
	case pjb.FormReal:
		return 'f'
	case pjb.FormBool:
		return 'b'
	case pjb.FormChar:
		return 'c'
	}
	return 's'
}

// WriteFormat builds the format text of a write statement and returns it
// together with the number of arguments that are not inlined string literals.
// Literal text has % doubled when the format is used with printf.
func WriteFormat(args []*pjt.WriteArg, newline bool) (format string, n int) {
	for _, a := range args {
		if !pjt.IsLiteralString(a.X) {
			n++
		}
	}
	var sb strings.Builder
	for _, a := range args {
		if lit, ok := a.X.(*pjt.StringLit); ok {
			if n > 0 {
				sb.WriteString(strings.ReplaceAll(lit.Val, "%", "%%"))
			} else {
				sb.WriteString(lit.Val)
			}
			continue
		}
		sb.WriteByte('%')
		if a.Width != nil {
			sb.WriteString(strconv.Itoa(*a.Width))
		}
		if a.Places != nil {
			sb.WriteByte('.')
			sb.WriteString(strconv.Itoa(*a.Places))
		}
		sb.WriteByte(conversion(a.X.Type()))
	}
	if newline {
		sb.WriteString("\n")
	}
	return sb.String(), n
}

// box converts a scalar value of type t on top of the stack to its box class.
func (g *Generator) box(t pjb.Type) {
	switch pjb.FormOf(t) {
	case pjb.FormString, pjb.FormArray, pjb.FormRecord:
		return
	}
	class := ClassName(ObjectDescriptor(t))
	g.invoke(INVOKESTATIC, class+"/valueOf("+TypeDescriptor(t)+")L"+class+";")
}

func (g *Generator) write(s *pjt.Write) {
	if len(s.Args) == 0 && !s.Newline {
		return
	}
	g.put(GETSTATIC, "java/lang/System/out", "Ljava/io/PrintStream;")
	if len(s.Args) == 0 {
		g.invoke(INVOKEVIRTUAL, "java/io/PrintStream/println()V")
		return
	}
	format, n := WriteFormat(s.Args, s.Newline)
	g.LoadString(format)
	if n == 0 {
		g.invoke(INVOKEVIRTUAL, "java/io/PrintStream/print(Ljava/lang/String;)V")
		return
	}
	g.LoadConstant(int32(n))
	g.put(ANEWARRAY, "java/lang/Object")
	i := int32(0)
	for _, a := range s.Args {
		if pjt.IsLiteralString(a.X) {
			continue
		}
		g.put(DUP)
		g.LoadConstant(i)
		g.Expr(a.X)
		g.box(a.X.Type())
		g.put(AASTORE)
		i++
	}
	g.invoke(INVOKEVIRTUAL, "java/io/PrintStream/printf(Ljava/lang/String;[Ljava/lang/Object;)Ljava/io/PrintStream;")
	g.put(POP)
}

func (g *Generator) sysin() {
	g.put(GETSTATIC, g.c.prog+"/_sysin", "Ljava/util/Scanner;")
}

func (g *Generator) read(s *pjt.Read) {
	for _, v := range s.Vars {
		c := g.selectComponent(v)
		char := false
		switch pjb.FormOf(c.typ) {
		case pjb.FormInt:
			g.sysin()
			g.invoke(INVOKEVIRTUAL, "java/util/Scanner/nextInt()I")
		case pjb.FormReal:
			g.sysin()
			g.invoke(INVOKEVIRTUAL, "java/util/Scanner/nextFloat()F")
		case pjb.FormBool:
			g.sysin()
			g.invoke(INVOKEVIRTUAL, "java/util/Scanner/nextBoolean()Z")
		case pjb.FormChar:
			char = true
			g.sysin()
			g.LoadString("")
			g.invoke(INVOKEVIRTUAL, "java/util/Scanner/useDelimiter(Ljava/lang/String;)Ljava/util/Scanner;")
			g.put(POP)
			g.sysin()
			g.invoke(INVOKEVIRTUAL, "java/util/Scanner/next()Ljava/lang/String;")
			g.put(ICONST_0)
			g.invoke(INVOKEVIRTUAL, "java/lang/String/charAt(I)C")
		case pjb.FormString:
			g.sysin()
			g.invoke(INVOKEVIRTUAL, "java/util/Scanner/next()Ljava/lang/String;")
		default:
			contract.Failf("cannot read a value of type %s", pjb.TypeName(c.typ))
		}
		g.assign(c, g.c.opts.RangeCheck)
		if char {
			g.sysin()
			g.invoke(INVOKEVIRTUAL, "java/util/Scanner/reset()Ljava/util/Scanner;")
			g.put(POP)
		}
	}
	if s.Newline {
		g.sysin()
		g.invoke(INVOKEVIRTUAL, "java/util/Scanner/nextLine()Ljava/lang/String;")
		g.put(POP)
	}
}
