// Package pjb contains the "base" for the Pascal JVM compiler backend.
//
// Definition of the data types Object, Type and Scope, which together form the data structure
// called "symbol table". The front end creates and fills the symbol table before code generation
// starts; the code generator only reads it. This package also contains the list of standard
// identifiers with which the universe scope is initialized.
package pjb

import (
	"fmt"
	"sort"
	"strings"
)

type Class byte

// class values
const (
	ClassVar Class = iota
	ClassValPar
	ClassRefPar
	ClassFld
	ClassConst
	ClassEnumConst
	ClassTyp
	ClassProc
	ClassFunc
	ClassSProc
	ClassSFunc
	ClassProgram
)

var classNames = [...]string{
	ClassVar:       "variable",
	ClassValPar:    "value parameter",
	ClassRefPar:    "reference parameter",
	ClassFld:       "record field",
	ClassConst:     "constant",
	ClassEnumConst: "enumeration constant",
	ClassTyp:       "type",
	ClassProc:      "procedure",
	ClassFunc:      "function",
	ClassSProc:     "standard procedure",
	ClassSFunc:     "standard function",
	ClassProgram:   "program",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", c)
}

type Form int

// form values
const (
	FormInt Form = 1 + iota
	FormReal
	FormBool
	FormChar
	FormString
	FormEnum
	FormSubrange
	FormArray
	FormRecord
)

var formNames = [...]string{
	FormInt:      "integer",
	FormReal:     "real",
	FormBool:     "boolean",
	FormChar:     "char",
	FormString:   "string",
	FormEnum:     "enumeration",
	FormSubrange: "subrange",
	FormArray:    "array",
	FormRecord:   "record",
}

func (f Form) String() string {
	if f > 0 && int(f) < len(formNames) {
		return formNames[f]
	}
	return fmt.Sprintf("form(%d)", f)
}

// ParseForm returns the form with the given name.
func ParseForm(name string) (Form, bool) {
	for f, n := range formNames {
		if n != "" && n == strings.ToLower(name) {
			return Form(f), true
		}
	}
	return 0, false
}

// A Type is one of *Scalar, *Enumeration, *Subrange, *Array or *Record.
type Type interface {
	Form() Form
	// Obj returns the type name's symbol, or nil for anonymous types.
	Obj() *Object
	isType()
}

type Scalar struct {
	Kind   Form // FormInt, FormReal, FormBool, FormChar or FormString
	TypObj *Object
}

type Enumeration struct {
	Constants []*Object
	TypObj    *Object
}

type Subrange struct {
	Base     Type
	Min, Max int32
	TypObj   *Object
}

type Array struct {
	Index  Type
	Elem   Type
	Count  int32
	TypObj *Object
}

type Record struct {
	Path   string // structural path, e.g. "prog$outer$inner"
	Fields *Scope
	TypObj *Object
}

func (t *Scalar) Form() Form      { return t.Kind }
func (t *Enumeration) Form() Form { return FormEnum }
func (t *Subrange) Form() Form    { return FormSubrange }
func (t *Array) Form() Form       { return FormArray }
func (t *Record) Form() Form      { return FormRecord }

func (t *Scalar) Obj() *Object      { return t.TypObj }
func (t *Enumeration) Obj() *Object { return t.TypObj }
func (t *Subrange) Obj() *Object    { return t.TypObj }
func (t *Array) Obj() *Object       { return t.TypObj }
func (t *Record) Obj() *Object      { return t.TypObj }

func (*Scalar) isType()      {}
func (*Enumeration) isType() {}
func (*Subrange) isType()    {}
func (*Array) isType()       {}
func (*Record) isType()      {}

// Base reduces a subrange type to its base type. All other types are
// returned unchanged.
func Base(t Type) Type {
	for {
		s, ok := t.(*Subrange)
		if !ok {
			return t
		}
		t = s.Base
	}
}

// FormOf returns the form of t's base type.
func FormOf(t Type) Form {
	if t == nil {
		return 0
	}
	return Base(t).Form()
}

// IsOrdinal reports whether values of t are represented as JVM ints
// and can be compared by their ordinal value.
func IsOrdinal(t Type) bool {
	switch FormOf(t) {
	case FormInt, FormBool, FormChar, FormEnum:
		return true
	}
	return false
}

// IsStructured reports whether t is an array or a record type.
func IsStructured(t Type) bool {
	f := FormOf(t)
	return f == FormArray || f == FormRecord
}

// Low returns the lower bound of an index type.
func Low(t Type) int32 {
	if s, ok := t.(*Subrange); ok {
		return s.Min
	}
	return 0
}

// Dims returns the number of array dimensions of t and the innermost
// element type.
func Dims(t Type) (int, Type) {
	n := 0
	for {
		a, ok := Base(t).(*Array)
		if !ok {
			return n, t
		}
		n++
		t = a.Elem
	}
}

// TypeName returns a readable name for t, used in diagnostics.
func TypeName(t Type) string {
	if t == nil {
		return "<nil>"
	}
	if obj := t.Obj(); obj != nil {
		return obj.Name
	}
	switch t := t.(type) {
	case *Subrange:
		return fmt.Sprintf("%d..%d", t.Min, t.Max)
	case *Array:
		return fmt.Sprintf("array [%s] of %s", TypeName(t.Index), TypeName(t.Elem))
	case *Record:
		return "record " + t.Path
	}
	return t.Form().String()
}

type Object struct {
	Class   Class
	Name    string
	Type    Type
	Scope   *Scope // owning scope
	Slot    int
	Val     interface{} // int32 for ordinal constants, float32 for real, string for string constants
	Routine *Routine    // ClassProc, ClassFunc and ClassProgram only
}

func (obj *Object) Level() int {
	if obj.Scope == nil {
		return 0
	}
	return obj.Scope.Level
}

func (obj *Object) String() string {
	return fmt.Sprintf("%s %s", obj.Class, obj.Name)
}

// Routine holds the information attached to procedures, functions and the program.
type Routine struct {
	Scope  *Scope
	Params []*Object
	Result *Object // function result variable, nil for procedures
	Body   interface{}
}

// Scope is an ordered name to object mapping.
type Scope struct {
	Level  int
	Owner  *Object // routine owning the scope, nil for universe and record scopes
	Rec    *Record // record whose fields the scope holds
	objs   map[string]*Object
	order  []*Object
	nSlots int
}

func NewScope(level int, owner *Object) *Scope {
	return &Scope{Level: level, Owner: owner, objs: make(map[string]*Object)}
}

// Enter adds a new object to the scope. Names are case-insensitive.
// It returns nil if the name is already declared in the scope.
func (s *Scope) Enter(name string, class Class, typ Type) *Object {
	key := strings.ToLower(name)
	if _, dup := s.objs[key]; dup {
		return nil
	}
	obj := &Object{Class: class, Name: name, Type: typ, Scope: s}
	s.objs[key] = obj
	s.order = append(s.order, obj)
	return obj
}

func (s *Scope) Lookup(name string) *Object {
	return s.objs[strings.ToLower(name)]
}

// Objects returns the objects of the scope in declaration order.
func (s *Scope) Objects() []*Object {
	return s.order
}

// Sorted returns the objects of the scope sorted by name.
func (s *Scope) Sorted() []*Object {
	objs := make([]*Object, len(s.order))
	copy(objs, s.order)
	sort.Slice(objs, func(i, j int) bool {
		return strings.ToLower(objs[i].Name) < strings.ToLower(objs[j].Name)
	})
	return objs
}

// NextSlot returns the next unassigned local slot index.
func (s *Scope) NextSlot() int {
	n := s.nSlots
	s.nSlots++
	return n
}

// SkipSlots reserves n slots that are not bound to any object,
// such as the argument array of the main method.
func (s *Scope) SkipSlots(n int) {
	s.nSlots += n
}

// SlotCount returns the number of assigned slots.
func (s *Scope) SlotCount() int {
	return s.nSlots
}
