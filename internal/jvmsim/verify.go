package jvmsim

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/fzipp/pascal-jvm/pjg"
)

// Verify replays the stack effects of the instructions of m along every
// control flow path. The depth never becomes negative, is the same on all
// paths reaching an instruction, is zero after every return, and its
// maximum equals the declared stack limit. Slots used by load, store and
// iinc instructions are below the declared local limit.
func Verify(m *Method) error {
	depth := make([]int, len(m.Code)+1)
	for i := range depth {
		depth[i] = -1
	}
	max := 0
	var work []int
	reach := func(i, d int) error {
		if i > len(m.Code) {
			return errors.Errorf("jump beyond the end of the method")
		}
		if depth[i] < 0 {
			depth[i] = d
			work = append(work, i)
			return nil
		}
		if depth[i] != d {
			return errors.Errorf("stack depth %d and %d at instruction %d", depth[i], d, i)
		}
		return nil
	}
	if err := reach(0, 0); err != nil {
		return err
	}
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		if i == len(m.Code) {
			return m.errorf(i, "control falls off the end of the method")
		}
		in := m.Code[i]
		if slot, ok := slotOf(in); ok && slot >= m.Locals {
			return m.errorf(i, "%s uses slot %d, limit is %d", in, slot, m.Locals)
		}
		d := depth[i] + pjg.Effect(in.Op, in.Args...)
		if d < 0 {
			return m.errorf(i, "%s leaves the stack at depth %d", in, d)
		}
		if d > max {
			max = d
		}
		switch in.Op {
		case pjg.RETURN, pjg.IRETURN, pjg.FRETURN, pjg.ARETURN:
			if d != 0 {
				return m.errorf(i, "%s with %d values left on the stack", in, d)
			}
		}
		if in.Op.IsBranch() {
			if len(in.Args) != 1 {
				return m.errorf(i, "%s without a label", in)
			}
			target, ok := m.Labels[in.Args[0]]
			if !ok {
				return m.errorf(i, "undefined label %s", in.Args[0])
			}
			if err := reach(target, d); err != nil {
				return m.errorf(i, "%v", err)
			}
		}
		if !in.Op.IsTerminal() {
			if err := reach(i+1, d); err != nil {
				return m.errorf(i, "%v", err)
			}
		}
	}
	if max != m.StackLimit {
		return errors.Errorf("%s/%s%s: maximum stack depth %d, declared %d", m.Class.Name, m.Name, m.Desc, max, m.StackLimit)
	}
	return nil
}

func (m *Method) errorf(i int, format string, args ...interface{}) error {
	line := 0
	if i < len(m.Code) {
		line = m.Code[i].Line
	}
	return errors.Errorf("%s/%s%s: line %d: %s", m.Class.Name, m.Name, m.Desc, line, fmt.Sprintf(format, args...))
}

// slotOf returns the local variable slot accessed by in.
func slotOf(in Insn) (int, bool) {
	name := in.Op.String()
	switch in.Op {
	case pjg.ILOAD, pjg.FLOAD, pjg.ALOAD, pjg.ISTORE, pjg.FSTORE, pjg.ASTORE, pjg.IINC:
		if len(in.Args) == 0 {
			return 0, false
		}
		n, err := strconv.Atoi(in.Args[0])
		return n, err == nil
	}
	if i := strings.LastIndexByte(name, '_'); i > 0 && (strings.HasSuffix(name[:i], "load") || strings.HasSuffix(name[:i], "store")) {
		n, err := strconv.Atoi(name[i+1:])
		return n, err == nil
	}
	return 0, false
}

// VerifyAll verifies every method of p.
func VerifyAll(p *Program) error {
	var result error
	names := make([]string, 0, len(p.Classes))
	for name := range p.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := p.Classes[name]
		sigs := make([]string, 0, len(c.Methods))
		for sig := range c.Methods {
			sigs = append(sigs, sig)
		}
		sort.Strings(sigs)
		for _, sig := range sigs {
			if err := Verify(c.Methods[sig]); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result
}
