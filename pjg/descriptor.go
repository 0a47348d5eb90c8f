package pjg

import (
	"strings"

	"github.com/fzipp/pascal-jvm/internal/contract"
	"github.com/fzipp/pascal-jvm/pjb"
)

// TypeDescriptor returns the JVM field descriptor of t.
func TypeDescriptor(t pjb.Type) string {
	var sb strings.Builder
	t = pjb.Base(t)
	for {
		a, ok := t.(*pjb.Array)
		if !ok {
			break
		}
		sb.WriteByte('[')
		t = pjb.Base(a.Elem)
	}
	switch t := t.(type) {
	case *pjb.Scalar:
		switch t.Kind {
		case pjb.FormInt:
			sb.WriteString("I")
		case pjb.FormReal:
			sb.WriteString("F")
		case pjb.FormBool:
			sb.WriteString("Z")
		case pjb.FormChar:
			sb.WriteString("C")
		case pjb.FormString:
			sb.WriteString("Ljava/lang/String;")
		default:
			contract.Failf("no descriptor for scalar form %v", t.Kind)
		}
	case *pjb.Enumeration:
		sb.WriteString("I")
	case *pjb.Record:
		sb.WriteString("L" + t.Path + ";")
	default:
		contract.Failf("no descriptor for type %s", pjb.TypeName(t))
	}
	return sb.String()
}

// ObjectDescriptor returns the descriptor of the reference type representing
// values of t: the box class of a scalar or enumeration, else the type's own descriptor.
func ObjectDescriptor(t pjb.Type) string {
	switch pjb.FormOf(t) {
	case pjb.FormInt, pjb.FormEnum:
		return "Ljava/lang/Integer;"
	case pjb.FormReal:
		return "Ljava/lang/Float;"
	case pjb.FormBool:
		return "Ljava/lang/Boolean;"
	case pjb.FormChar:
		return "Ljava/lang/Character;"
	}
	return TypeDescriptor(t)
}

// ClassName returns the class operand for new, anewarray and checkcast:
// an object descriptor without its L; bracket, array descriptors unchanged.
func ClassName(desc string) string {
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}
	return desc
}

// isWrapped reports whether obj is a scalar reference parameter, passed as
// a one-element array so that the callee can assign to it.
func isWrapped(obj *pjb.Object) bool {
	return obj.Class == pjb.ClassRefPar && !pjb.IsStructured(obj.Type)
}

// ParamDescriptor returns the descriptor of a formal parameter.
func ParamDescriptor(formal *pjb.Object) string {
	if isWrapped(formal) {
		return "[" + TypeDescriptor(formal.Type)
	}
	return TypeDescriptor(formal.Type)
}

// MethodDescriptor returns the signature of a procedure or function,
// shared by its method header and every call site.
func MethodDescriptor(routine *pjb.Object) string {
	contract.Requiref(routine.Routine != nil, "routine", "%s has no routine information", routine.Name)
	var sb strings.Builder
	sb.WriteByte('(')
	for _, formal := range routine.Routine.Params {
		sb.WriteString(ParamDescriptor(formal))
	}
	sb.WriteByte(')')
	if routine.Class == pjb.ClassFunc {
		sb.WriteString(TypeDescriptor(routine.Type))
	} else {
		sb.WriteString("V")
	}
	return sb.String()
}

// MethodName returns the JVM method name of a routine. Nested routines are
// qualified by the names of their enclosing routines.
func MethodName(routine *pjb.Object) string {
	if routine.Scope != nil {
		if owner := routine.Scope.Owner; owner != nil && owner.Class != pjb.ClassProgram {
			return MethodName(owner) + "$" + routine.Name
		}
	}
	return routine.Name
}

// NeedsCloning reports whether an actual parameter must be copied before
// being passed to formal: value parameters of structured type.
func NeedsCloning(formal *pjb.Object) bool {
	return formal.Class == pjb.ClassValPar && pjb.IsStructured(formal.Type)
}

// ParseDescriptor decodes the field descriptor at the start of desc,
// returning the number of array dimensions, the element descriptor and
// the remainder of desc.
func ParseDescriptor(desc string) (dims int, elem string, rest string) {
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	s := desc[dims:]
	if s == "" {
		return dims, "", ""
	}
	if s[0] == 'L' {
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return dims, s, ""
		}
		return dims, s[:end+1], s[end+1:]
	}
	return dims, s[:1], s[1:]
}

// slots returns the operand stack size of a value with the given descriptor.
func slots(dims int, elem string) int {
	if dims == 0 && (elem == "D" || elem == "J") {
		return 2
	}
	if elem == "V" {
		return 0
	}
	return 1
}

// methodSlots returns the stack slots taken by the arguments and the result
// of a method reference such as "java/lang/Math/sqrt(D)D".
func methodSlots(method string) (args, ret int) {
	open := strings.IndexByte(method, '(')
	end := strings.IndexByte(method, ')')
	contract.Requiref(open >= 0 && end > open, "method", "malformed method reference %q", method)
	params := method[open+1 : end]
	for params != "" {
		dims, elem, rest := ParseDescriptor(params)
		args += slots(dims, elem)
		params = rest
	}
	dims, elem, _ := ParseDescriptor(method[end+1:])
	return args, slots(dims, elem)
}
