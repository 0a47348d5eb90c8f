package pjl

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// The document structure of a serialized program. Type, expression and
// statement nodes are maps with exactly one tag key selecting the kind of
// node, plus the operands of that kind.

type document struct {
	Program string `yaml:"program"`
	Block   `yaml:",inline"`
	Body    []*stmtNode `yaml:"body"`
}

// Block holds the declarations of the program or a routine.
type Block struct {
	Consts   []*constNode   `yaml:"consts"`
	Types    []*typeDecl    `yaml:"types"`
	Vars     []*varNode     `yaml:"vars"`
	Routines []*routineNode `yaml:"routines"`
}

type constNode struct {
	Name  string      `yaml:"name"`
	Type  string      `yaml:"type"`
	Value interface{} `yaml:"value"`
}

type typeDecl struct {
	Name string    `yaml:"name"`
	Type *typeNode `yaml:"type"`
}

type varNode struct {
	Name string    `yaml:"name"`
	Type *typeNode `yaml:"type"`
}

type paramNode struct {
	Name string    `yaml:"name"`
	Type *typeNode `yaml:"type"`
	Var  bool      `yaml:"var"`
}

type routineNode struct {
	Procedure string       `yaml:"procedure"`
	Function  string       `yaml:"function"`
	Returns   *typeNode    `yaml:"returns"`
	Params    []*paramNode `yaml:"params"`
	Block     `yaml:",inline"`
	Body      []*stmtNode `yaml:"body"`
}

// tagOf returns the single key of the mapping being decoded that is one of tags.
func tagOf(unmarshal func(interface{}) error, tags []string) (string, error) {
	var m yaml.MapSlice
	if err := unmarshal(&m); err != nil {
		return "", err
	}
	tag := ""
	for _, item := range m {
		key, _ := item.Key.(string)
		for _, t := range tags {
			if key != t {
				continue
			}
			if tag != "" {
				return "", errors.Errorf("node has both %q and %q", tag, key)
			}
			tag = key
		}
	}
	if tag == "" {
		keys := make([]string, len(tags))
		copy(keys, tags)
		sort.Strings(keys)
		return "", errors.Errorf("node needs one of %s", strings.Join(keys, ", "))
	}
	return tag, nil
}

// isList reports whether the value being decoded is a sequence.
func isList(unmarshal func(interface{}) error) bool {
	var v interface{}
	if err := unmarshal(&v); err != nil {
		return false
	}
	_, ok := v.([]interface{})
	return ok
}

// typeNode is a type name or one of the type constructors.
type typeNode struct {
	tag  string
	Name string

	Record   []*varNode    `yaml:"record"`
	Array    *arrayNode    `yaml:"array"`
	Subrange *subrangeNode `yaml:"subrange"`
	Enum     []string      `yaml:"enum"`
}

var typeTags = []string{"record", "array", "subrange", "enum"}

func (t *typeNode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		t.Name = name
		return nil
	}
	tag, err := tagOf(unmarshal, typeTags)
	if err != nil {
		return errors.Wrap(err, "type")
	}
	type plain typeNode
	if err := unmarshal((*plain)(t)); err != nil {
		return err
	}
	t.tag = tag
	return nil
}

type arrayNode struct {
	Index typeList  `yaml:"index"`
	Elem  *typeNode `yaml:"elem"`
}

// typeList is a single type or a list of types.
type typeList []*typeNode

func (l *typeList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	if isList(unmarshal) {
		var list []*typeNode
		if err := unmarshal(&list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	t := new(typeNode)
	if err := unmarshal(t); err != nil {
		return err
	}
	*l = typeList{t}
	return nil
}

type subrangeNode struct {
	Base string      `yaml:"base"`
	Min  interface{} `yaml:"min"`
	Max  interface{} `yaml:"max"`
}

// exprNode is a literal, a name, or a tagged expression. Plain scalars are
// integer and real literals, the booleans, and names of variables, constants
// and parameterless functions.
type exprNode struct {
	tag    string
	scalar interface{}

	Str  string `yaml:"str"`
	Char string `yaml:"char"`

	Ref string     `yaml:"ref"`
	Sel []*selNode `yaml:"sel"`

	Rel string    `yaml:"rel"`
	X   *exprNode `yaml:"lhs"`
	Y   *exprNode `yaml:"rhs"`

	Sum     []*exprNode `yaml:"sum"`
	Neg     bool        `yaml:"neg"`
	Product []*exprNode `yaml:"product"`
	Not     *exprNode   `yaml:"not"`

	Call string      `yaml:"call"`
	Args []*exprNode `yaml:"args"`
}

var exprTags = []string{"str", "char", "ref", "rel", "sum", "product", "not", "call"}

func (x *exprNode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v interface{}
	if err := unmarshal(&v); err != nil {
		return err
	}
	switch v.(type) {
	case map[interface{}]interface{}:
	case []interface{}:
		return errors.New("expression expected, found a list")
	default:
		x.scalar = v
		return nil
	}
	tag, err := tagOf(unmarshal, exprTags)
	if err != nil {
		return errors.Wrap(err, "expression")
	}
	type plain exprNode
	if err := unmarshal((*plain)(x)); err != nil {
		return err
	}
	x.tag = tag
	return nil
}

// selNode is a selector of an access chain: a list of subscripts or a field name.
type selNode struct {
	index []*exprNode
	field string
}

func (s *selNode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	if isList(unmarshal) {
		return unmarshal(&s.index)
	}
	if err := unmarshal(&s.field); err != nil {
		return errors.Wrap(err, "selector")
	}
	return nil
}

// stmtNode is a tagged statement.
type stmtNode struct {
	tag  string
	Line int `yaml:"line"`

	Assign *exprNode `yaml:"assign"`
	Value  *exprNode `yaml:"value"`

	If   *exprNode `yaml:"if"`
	Then stmtList  `yaml:"then"`
	Else stmtList  `yaml:"else"`

	While *exprNode `yaml:"while"`
	Do    stmtList  `yaml:"do"`

	Repeat stmtList  `yaml:"repeat"`
	Until  *exprNode `yaml:"until"`

	For    string    `yaml:"for"`
	From   *exprNode `yaml:"from"`
	To     *exprNode `yaml:"to"`
	Downto *exprNode `yaml:"downto"`

	Case *exprNode     `yaml:"case"`
	Of   []*branchNode `yaml:"of"`

	Call string      `yaml:"call"`
	Args []*exprNode `yaml:"args"`

	Write   []*writeArgNode `yaml:"write"`
	Writeln []*writeArgNode `yaml:"writeln"`
	Read    []*exprNode     `yaml:"read"`
	Readln  []*exprNode     `yaml:"readln"`

	Begin []*stmtNode `yaml:"begin"`
	Empty interface{} `yaml:"empty"`
}

var stmtTags = []string{
	"assign", "if", "while", "repeat", "for", "case", "call",
	"write", "writeln", "read", "readln", "begin", "empty",
}

func (s *stmtNode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var word string
	if err := unmarshal(&word); err == nil {
		if word != "empty" {
			return errors.Errorf("statement expected, found %q", word)
		}
		s.tag = word
		return nil
	}
	tag, err := tagOf(unmarshal, stmtTags)
	if err != nil {
		return errors.Wrap(err, "statement")
	}
	type plain stmtNode
	if err := unmarshal((*plain)(s)); err != nil {
		return err
	}
	s.tag = tag
	return nil
}

// stmtList is a single statement or a list of statements.
type stmtList []*stmtNode

func (l *stmtList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	if isList(unmarshal) {
		var list []*stmtNode
		if err := unmarshal(&list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	s := new(stmtNode)
	if err := unmarshal(s); err != nil {
		return err
	}
	*l = stmtList{s}
	return nil
}

type branchNode struct {
	Labels []*exprNode `yaml:"labels"`
	Do     stmtList    `yaml:"do"`
}

// writeArgNode is an expression or a mapping {value, width, places}.
type writeArgNode struct {
	X      *exprNode
	Width  *int
	Places *int
}

func (w *writeArgNode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var m map[string]interface{}
	if err := unmarshal(&m); err == nil {
		if _, ok := m["value"]; ok {
			var f struct {
				Value  *exprNode `yaml:"value"`
				Width  *int      `yaml:"width"`
				Places *int      `yaml:"places"`
			}
			if err := unmarshal(&f); err != nil {
				return err
			}
			w.X, w.Width, w.Places = f.Value, f.Width, f.Places
			return nil
		}
	}
	w.X = new(exprNode)
	return unmarshal(w.X)
}
