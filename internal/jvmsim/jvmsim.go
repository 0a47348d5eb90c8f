// Package jvmsim reads the Jasmin assembly emitted by the code generator and
// checks and executes it without a Java runtime. It understands the subset of
// instructions, directives and library classes the generator uses.
package jvmsim

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/fzipp/pascal-jvm/files"
	"github.com/fzipp/pascal-jvm/pjg"
)

// Program is a set of parsed classes.
type Program struct {
	Classes map[string]*Class
}

type Class struct {
	Name    string
	Super   string
	Fields  map[string]*Field
	Methods map[string]*Method // by name and descriptor
}

type Field struct {
	Name   string
	Desc   string
	Static bool
}

type Method struct {
	Class      *Class
	Name       string
	Desc       string
	Static     bool
	Locals     int // declared .limit locals
	StackLimit int // declared .limit stack
	Code       []Insn
	Labels     map[string]int // label to index of the following instruction
	Vars       map[int]string // .var slot names
}

// Insn is one instruction with its operands.
type Insn struct {
	Op   pjg.Op
	Args []string
	Line int // line in the unit text
}

func (in Insn) String() string {
	if len(in.Args) == 0 {
		return in.Op.String()
	}
	return in.Op.String() + " " + strings.Join(in.Args, " ")
}

// Load parses all units of m.
func Load(m *files.Memory) (*Program, error) {
	p := &Program{Classes: make(map[string]*Class)}
	var result error
	for _, name := range m.Units() {
		text, _ := m.Text(name)
		c, err := ParseUnit(name, text)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		p.Classes[c.Name] = c
	}
	if result != nil {
		return nil, result
	}
	return p, nil
}

// Method returns the method named by a reference such as "Hello/f(I)I".
func (p *Program) Method(ref string) (*Method, bool) {
	class, name := splitMember(ref)
	c, ok := p.Classes[class]
	if !ok {
		return nil, false
	}
	m, ok := c.Methods[name]
	return m, ok
}

// splitMember splits a member reference "class/member" at the slash before
// the member name. Method references are split before the descriptor's parenthesis.
func splitMember(ref string) (class, member string) {
	end := len(ref)
	if i := strings.IndexByte(ref, '('); i >= 0 {
		end = i
	}
	i := strings.LastIndexByte(ref[:end], '/')
	if i < 0 {
		return "", ref
	}
	return ref[:i], ref[i+1:]
}

// ParseUnit parses the text of one unit.
func ParseUnit(name, text string) (*Class, error) {
	c := &Class{Fields: make(map[string]*Field), Methods: make(map[string]*Method)}
	var m *Method
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineno := 0
	fail := func(format string, args ...interface{}) error {
		return errors.Errorf("%s.j:%d: %s", name, lineno, fmt.Sprintf(format, args...))
	}
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		fields, err := tokenize(line)
		if err != nil {
			return nil, fail("%v", err)
		}
		switch {
		case strings.HasPrefix(line, "."):
			if err := c.directive(&m, fields); err != nil {
				return nil, fail("%v", err)
			}
		case strings.HasSuffix(line, ":") && len(fields) == 1:
			if m == nil {
				return nil, fail("label outside of a method")
			}
			m.Labels[strings.TrimSuffix(line, ":")] = len(m.Code)
		default:
			if m == nil {
				return nil, fail("instruction outside of a method")
			}
			op, ok := pjg.LookupOp(fields[0])
			if !ok {
				return nil, fail("unknown instruction %s", fields[0])
			}
			m.Code = append(m.Code, Insn{Op: op, Args: fields[1:], Line: lineno})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	if m != nil {
		return nil, errors.Errorf("%s.j: method %s not ended", name, m.Name)
	}
	if c.Name == "" {
		return nil, errors.Errorf("%s.j: no .class directive", name)
	}
	return c, nil
}

func (c *Class) directive(cur **Method, f []string) error {
	need := func(n int) error {
		if len(f) < n {
			return errors.Errorf("%s needs %d operands", f[0], n-1)
		}
		return nil
	}
	switch f[0] {
	case ".class":
		if err := need(2); err != nil {
			return err
		}
		c.Name = f[len(f)-1]
	case ".super":
		if err := need(2); err != nil {
			return err
		}
		c.Super = f[1]
	case ".field":
		if err := need(3); err != nil {
			return err
		}
		fld := &Field{Name: f[len(f)-2], Desc: f[len(f)-1], Static: contains(f[1:len(f)-2], "static")}
		c.Fields[fld.Name] = fld
	case ".method":
		if err := need(2); err != nil {
			return err
		}
		if *cur != nil {
			return errors.Errorf("method inside method %s", (*cur).Name)
		}
		sig := f[len(f)-1]
		open := strings.IndexByte(sig, '(')
		if open < 0 {
			return errors.Errorf("malformed method signature %s", sig)
		}
		*cur = &Method{
			Class:  c,
			Name:   sig[:open],
			Desc:   sig[open:],
			Static: contains(f[1:len(f)-1], "static"),
			Labels: make(map[string]int),
			Vars:   make(map[int]string),
		}
		c.Methods[sig] = *cur
	case ".limit":
		if err := need(3); err != nil {
			return err
		}
		if *cur == nil {
			return errors.New(".limit outside of a method")
		}
		n, err := strconv.Atoi(f[2])
		if err != nil {
			return errors.Wrap(err, ".limit")
		}
		switch f[1] {
		case "locals":
			(*cur).Locals = n
		case "stack":
			(*cur).StackLimit = n
		default:
			return errors.Errorf("unknown limit %s", f[1])
		}
	case ".var":
		if err := need(4); err != nil {
			return err
		}
		if *cur == nil {
			return errors.New(".var outside of a method")
		}
		slot, err := strconv.Atoi(f[1])
		if err != nil {
			return errors.Wrap(err, ".var")
		}
		(*cur).Vars[slot] = f[3]
	case ".end":
		if *cur == nil {
			return errors.New(".end outside of a method")
		}
		*cur = nil
	case ".line", ".implements", ".source":
	default:
		return errors.Errorf("unknown directive %s", f[0])
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// tokenize splits a line into fields at white space outside of string
// literals. String literals are returned unquoted; a trailing comment is dropped.
func tokenize(line string) ([]string, error) {
	var fields []string
	for {
		line = strings.TrimLeftFunc(line, unicode.IsSpace)
		if line == "" || line[0] == ';' {
			return fields, nil
		}
		if line[0] == '"' {
			end := 1
			for ; end < len(line); end++ {
				if line[end] == '\\' {
					end++
					continue
				}
				if line[end] == '"' {
					break
				}
			}
			if end >= len(line) {
				return nil, errors.New("unterminated string")
			}
			s, err := strconv.Unquote(line[:end+1])
			if err != nil {
				return nil, errors.Wrapf(err, "string %s", line[:end+1])
			}
			fields = append(fields, quoted+s)
			line = line[end+1:]
			continue
		}
		end := strings.IndexFunc(line, unicode.IsSpace)
		if end < 0 {
			end = len(line)
		}
		fields = append(fields, line[:end])
		line = line[end:]
	}
}

// quoted marks operands that were string literals.
const quoted = "\x00"
