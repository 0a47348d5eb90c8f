// Package pjl loads annotated programs from their YAML serialization.
//
// A document names the program and lists its declarations and statements.
// Loading resolves every name against the scopes it creates, assigns the
// local variable slots of routines, and derives the type of every
// expression, producing the tree the code generator consumes.
//
//	program: Hello
//	vars:
//	  - {name: n, type: integer}
//	body:
//	  - {assign: n, value: 7}
//	  - writeln: [{str: "x="}, n]
package pjl

import (
	"fmt"
	"io"
	"io/ioutil"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	yaml "gopkg.in/yaml.v2"

	"github.com/fzipp/pascal-jvm/pjb"
	"github.com/fzipp/pascal-jvm/pjt"
)

// LoadFile reads and decodes the program in the named file.
func LoadFile(name string) (*pjt.Program, error) {
	data, err := ioutil.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	return Decode(name, data)
}

// Load reads and decodes a program from r. The name is used in error messages.
func Load(name string, r io.Reader) (*pjt.Program, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	return Decode(name, data)
}

// Decode decodes a program. All resolution errors of the document are
// returned together as a *multierror.Error.
func Decode(name string, data []byte) (*pjt.Program, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", name)
	}
	if doc.Program == "" {
		return nil, errors.Errorf("%s: no program name", name)
	}
	l := &loader{file: name}
	prog := l.program(&doc)
	if err := l.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return prog, nil
}

type loader struct {
	file string
	line int // line of the statement being resolved
	errs *multierror.Error
}

func (l *loader) errorf(format string, args ...interface{}) {
	pos := l.file
	if l.line > 0 {
		pos = fmt.Sprintf("%s:%d", l.file, l.line)
	}
	l.errs = multierror.Append(l.errs, errors.Errorf("%s: %s", pos, fmt.Sprintf(format, args...)))
}

// env is a chain of scopes searched by name lookup. path is the prefix of
// the class names of records declared in the scope.
type env struct {
	scope *pjb.Scope
	outer *env
	path  string
}

func (e *env) lookup(name string) *pjb.Object {
	for ; e != nil; e = e.outer {
		if obj := e.scope.Lookup(name); obj != nil {
			return obj
		}
	}
	return pjb.Universe().Lookup(name)
}

// lookupRoutine is lookup for call sites: inside a function its name denotes
// the function, not its result variable.
func (e *env) lookupRoutine(name string) *pjb.Object {
	for ; e != nil; e = e.outer {
		obj := e.scope.Lookup(name)
		if obj == nil {
			continue
		}
		if owner := e.scope.Owner; owner != nil && owner.Routine != nil && owner.Routine.Result == obj {
			return owner
		}
		return obj
	}
	return pjb.Universe().Lookup(name)
}

func (l *loader) enter(e *env, name string, class pjb.Class, typ pjb.Type) *pjb.Object {
	if name == "" {
		l.errorf("%s without a name", class)
		return &pjb.Object{Class: class, Type: typ, Scope: e.scope}
	}
	obj := e.scope.Enter(name, class, typ)
	if obj == nil {
		l.errorf("%s redeclared", name)
		return &pjb.Object{Class: class, Name: name, Type: typ, Scope: e.scope}
	}
	return obj
}

// pending is a routine whose header is declared and whose body is not yet resolved.
type pending struct {
	node   *routineNode
	obj    *pjb.Object
	env    *env
	nested []*pending
}

func (l *loader) program(doc *document) *pjt.Program {
	obj := &pjb.Object{Class: pjb.ClassProgram, Name: doc.Program}
	scope := pjb.NewScope(1, obj)
	obj.Routine = &pjb.Routine{Scope: scope}
	e := &env{scope: scope, path: doc.Program}

	prog := &pjt.Program{Obj: obj}
	ps := l.block(&doc.Block, e)
	prog.Routines = l.bodies(ps)
	prog.Body = l.compound(doc.Body, e, 0)
	obj.Routine.Body = prog
	return prog
}

// block declares constants, types, variables and routine headers, in this
// order. Bodies are resolved after all headers of the block are known.
func (l *loader) block(b *Block, e *env) []*pending {
	for _, c := range b.Consts {
		l.constDecl(c, e)
	}
	for _, d := range b.Types {
		t := l.typ(d.Type, e, e.path+"$"+d.Name)
		obj := l.enter(e, d.Name, pjb.ClassTyp, t)
		setTypObj(t, obj)
	}
	for _, v := range b.Vars {
		obj := l.enter(e, v.Name, pjb.ClassVar, l.typ(v.Type, e, e.path+"$"+v.Name))
		if e.scope.Level > 1 {
			obj.Slot = e.scope.NextSlot()
		}
	}
	var ps []*pending
	for _, r := range b.Routines {
		if p := l.routine(r, e); p != nil {
			ps = append(ps, p)
		}
	}
	return ps
}

// routine declares the header of a procedure or function. Slots are
// assigned to the parameters, then the variables, then the result variable.
func (l *loader) routine(r *routineNode, e *env) *pending {
	name, class := r.Procedure, pjb.ClassProc
	if r.Function != "" {
		if r.Procedure != "" {
			l.errorf("routine is both procedure %s and function %s", r.Procedure, r.Function)
		}
		name, class = r.Function, pjb.ClassFunc
	}
	if name == "" {
		l.errorf("routine without a name")
		return nil
	}
	path := e.path + "$" + name
	var result pjb.Type
	if class == pjb.ClassFunc {
		if r.Returns == nil {
			l.errorf("function %s has no result type", name)
			result = pjb.IntType
		} else {
			result = l.typ(r.Returns, e, path)
		}
	} else if r.Returns != nil {
		l.errorf("procedure %s has a result type", name)
	}

	obj := l.enter(e, name, class, result)
	scope := pjb.NewScope(e.scope.Level+1, obj)
	obj.Routine = &pjb.Routine{Scope: scope}
	inner := &env{scope: scope, outer: e, path: path}
	for _, p := range r.Params {
		pc := pjb.ClassValPar
		if p.Var {
			pc = pjb.ClassRefPar
		}
		par := l.enter(inner, p.Name, pc, l.typ(p.Type, e, path+"$"+p.Name))
		par.Slot = scope.NextSlot()
		obj.Routine.Params = append(obj.Routine.Params, par)
	}
	nested := l.block(&r.Block, inner)
	if class == pjb.ClassFunc {
		res := l.enter(inner, name, pjb.ClassVar, result)
		res.Slot = scope.NextSlot()
		obj.Routine.Result = res
	}
	return &pending{node: r, obj: obj, env: inner, nested: nested}
}

func (l *loader) bodies(ps []*pending) []*pjt.Routine {
	var rs []*pjt.Routine
	for _, p := range ps {
		r := &pjt.Routine{Obj: p.obj}
		r.Routines = l.bodies(p.nested)
		r.Body = l.compound(p.node.Body, p.env, 0)
		p.obj.Routine.Body = r
		rs = append(rs, r)
	}
	return rs
}

func (l *loader) constDecl(c *constNode, e *env) {
	var t pjb.Type
	if c.Type != "" {
		t = l.typeName(c.Type, e)
	} else {
		switch c.Value.(type) {
		case int, int64, uint64:
			t = pjb.IntType
		case float64:
			t = pjb.RealType
		case bool:
			t = pjb.BoolType
		default:
			t = pjb.StringType
		}
	}
	val, err := constValue(c.Value, t)
	if err != nil {
		l.errorf("constant %s: %v", c.Name, err)
	}
	l.enter(e, c.Name, pjb.ClassConst, t).Val = val
}

// constValue coerces a literal to the representation of constants of type t.
func constValue(v interface{}, t pjb.Type) (interface{}, error) {
	switch pjb.FormOf(t) {
	case pjb.FormInt, pjb.FormEnum:
		return cast.ToInt32E(v)
	case pjb.FormReal:
		return cast.ToFloat32E(v)
	case pjb.FormBool:
		b, err := cast.ToBoolE(v)
		if b {
			return int32(1), err
		}
		return int32(0), err
	case pjb.FormChar:
		return charValue(v)
	case pjb.FormString:
		return cast.ToStringE(v)
	}
	return nil, errors.Errorf("no constants of type %s", pjb.TypeName(t))
}

func charValue(v interface{}) (int32, error) {
	s, err := cast.ToStringE(v)
	if err != nil {
		return 0, err
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, errors.Errorf("%q is not a single character", s)
	}
	return int32(r[0]), nil
}

func (l *loader) typeName(name string, e *env) pjb.Type {
	obj := e.lookup(name)
	if obj == nil || obj.Class != pjb.ClassTyp {
		l.errorf("unknown type %s", name)
		return pjb.IntType
	}
	return obj.Type
}

// typ resolves a type node. Records are named by path.
func (l *loader) typ(n *typeNode, e *env, path string) pjb.Type {
	if n == nil {
		l.errorf("missing type")
		return pjb.IntType
	}
	switch n.tag {
	case "":
		return l.typeName(n.Name, e)
	case "record":
		rec := &pjb.Record{Path: path}
		rec.Fields = pjb.NewScope(0, nil)
		rec.Fields.Rec = rec
		for _, f := range n.Record {
			ft := l.typ(f.Type, e, path+"$"+f.Name)
			if rec.Fields.Enter(f.Name, pjb.ClassFld, ft) == nil {
				l.errorf("field %s redeclared in %s", f.Name, path)
			}
		}
		return rec
	case "array":
		a := n.Array
		if len(a.Index) == 0 {
			l.errorf("array without index type")
			return pjb.IntType
		}
		t := l.typ(a.Elem, e, path)
		for i := len(a.Index) - 1; i >= 0; i-- {
			index := l.typ(a.Index[i], e, path)
			t = &pjb.Array{Index: index, Elem: t, Count: l.count(index)}
		}
		return t
	case "subrange":
		return l.subrange(n.Subrange, e)
	case "enum":
		en := &pjb.Enumeration{}
		for i, name := range n.Enum {
			c := l.enter(e, name, pjb.ClassEnumConst, en)
			c.Val = int32(i)
			en.Constants = append(en.Constants, c)
		}
		return en
	}
	l.errorf("unexpected type node %s", n.tag)
	return pjb.IntType
}

func (l *loader) subrange(n *subrangeNode, e *env) pjb.Type {
	base := pjb.Type(pjb.IntType)
	if n.Base != "" {
		base = l.typeName(n.Base, e)
	}
	bound := func(v interface{}) int32 {
		switch pjb.FormOf(base) {
		case pjb.FormEnum:
			obj := e.lookup(cast.ToString(v))
			if obj == nil || obj.Class != pjb.ClassEnumConst || obj.Type != pjb.Base(base) {
				l.errorf("%v is not a constant of %s", v, pjb.TypeName(base))
				return 0
			}
			return cast.ToInt32(obj.Val)
		case pjb.FormChar:
			c, err := charValue(v)
			if err != nil {
				l.errorf("subrange bound: %v", err)
			}
			return c
		case pjb.FormInt:
			i, err := cast.ToInt32E(v)
			if err != nil {
				l.errorf("subrange bound: %v", err)
			}
			return i
		}
		l.errorf("subrange of non-ordinal type %s", pjb.TypeName(base))
		return 0
	}
	s := &pjb.Subrange{Base: base, Min: bound(n.Min), Max: bound(n.Max)}
	if s.Min > s.Max {
		l.errorf("empty subrange %d..%d", s.Min, s.Max)
	}
	return s
}

// count returns the number of values of an index type.
func (l *loader) count(index pjb.Type) int32 {
	switch t := index.(type) {
	case *pjb.Subrange:
		return t.Max - t.Min + 1
	case *pjb.Enumeration:
		return int32(len(t.Constants))
	}
	if pjb.FormOf(index) == pjb.FormBool {
		return 2
	}
	l.errorf("%s cannot index an array", pjb.TypeName(index))
	return 1
}

func setTypObj(t pjb.Type, obj *pjb.Object) {
	switch t := t.(type) {
	case *pjb.Enumeration:
		if t.TypObj == nil {
			t.TypObj = obj
		}
	case *pjb.Subrange:
		if t.TypObj == nil {
			t.TypObj = obj
		}
	case *pjb.Array:
		if t.TypObj == nil {
			t.TypObj = obj
		}
	case *pjb.Record:
		if t.TypObj == nil {
			t.TypObj = obj
		}
	}
}
