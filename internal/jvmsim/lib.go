package jvmsim

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// native executes a method of a library class.
func (vm *Machine) native(class, method string, recv interface{}, args []interface{}) (interface{}, error) {
	if strings.HasPrefix(class, "[") && method == "clone()Ljava/lang/Object;" {
		a := recv.(*Array)
		elems := make([]interface{}, len(a.Elems))
		copy(elems, a.Elems)
		return &Array{Desc: a.Desc, Elems: elems}, nil
	}
	switch class {
	case "java/lang/Object":
		if method == "<init>()V" {
			return nil, nil
		}
	case "java/lang/String":
		return vm.stringMethod(method, recv, args)
	case "java/lang/StringBuilder":
		return vm.builderMethod(method, recv, args)
	case "java/io/PrintStream":
		return vm.printMethod(method, args)
	case "java/util/Scanner":
		return vm.scannerMethod(method, recv, args)
	case "java/lang/Math":
		return mathMethod(method, args)
	case "java/lang/Integer", "java/lang/Float", "java/lang/Boolean", "java/lang/Character":
		if strings.HasPrefix(method, "valueOf(") {
			return &box{class: class, v: args[0]}, nil
		}
	case "java/lang/RuntimeException", "java/lang/Exception", "java/lang/Throwable":
		switch method {
		case "<init>()V":
			return nil, nil
		case "<init>(Ljava/lang/String;)V":
			recv.(*Object).native = args[0]
			return nil, nil
		}
	}
	failf("no library method %s/%s", class, method)
	return nil, nil
}

func (vm *Machine) stringMethod(method string, recv interface{}, args []interface{}) (interface{}, error) {
	switch method {
	case "valueOf(C)Ljava/lang/String;":
		return string(rune(args[0].(int32))), nil
	case "valueOf(I)Ljava/lang/String;":
		return strconv.Itoa(int(args[0].(int32))), nil
	case "valueOf(F)Ljava/lang/String;":
		return floatString(args[0].(float32)), nil
	case "valueOf(Z)Ljava/lang/String;":
		return boolString(args[0].(int32) != 0), nil
	case "valueOf(Ljava/lang/Object;)Ljava/lang/String;":
		return javaString(args[0]), nil
	}
	s := recv.(string)
	switch method {
	case "charAt(I)C":
		units := utf16.Encode([]rune(s))
		i := args[0].(int32)
		if i < 0 || int(i) >= len(units) {
			return nil, throw("java/lang/StringIndexOutOfBoundsException", "index %d, length %d", i, len(units))
		}
		return int32(units[i]), nil
	case "length()I":
		return int32(len(utf16.Encode([]rune(s)))), nil
	case "compareTo(Ljava/lang/String;)I":
		other, ok := args[0].(string)
		if !ok {
			return nil, throw("java/lang/NullPointerException", "compareTo null")
		}
		return compareStrings(s, other), nil
	case "equals(Ljava/lang/Object;)Z":
		other, ok := args[0].(string)
		if ok && other == s {
			return int32(1), nil
		}
		return int32(0), nil
	}
	failf("no library method java/lang/String/%s", method)
	return nil, nil
}

// compareStrings compares like String.compareTo: the difference of the
// first differing UTF-16 units, else the difference of the lengths.
func compareStrings(a, b string) int32 {
	x, y := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	for i := 0; i < len(x) && i < len(y); i++ {
		if x[i] != y[i] {
			return int32(x[i]) - int32(y[i])
		}
	}
	return int32(len(x) - len(y))
}

func (vm *Machine) builderMethod(method string, recv interface{}, args []interface{}) (interface{}, error) {
	obj := recv.(*Object)
	switch method {
	case "<init>()V":
		obj.native = new(strings.Builder)
		return nil, nil
	case "<init>(Ljava/lang/String;)V":
		sb := new(strings.Builder)
		sb.WriteString(javaString(args[0]))
		obj.native = sb
		return nil, nil
	case "toString()Ljava/lang/String;":
		return obj.native.(*strings.Builder).String(), nil
	}
	if strings.HasPrefix(method, "append(") {
		sb := obj.native.(*strings.Builder)
		switch method {
		case "append(C)Ljava/lang/StringBuilder;":
			sb.WriteRune(rune(args[0].(int32)))
		case "append(I)Ljava/lang/StringBuilder;":
			sb.WriteString(strconv.Itoa(int(args[0].(int32))))
		case "append(F)Ljava/lang/StringBuilder;":
			sb.WriteString(floatString(args[0].(float32)))
		case "append(Z)Ljava/lang/StringBuilder;":
			sb.WriteString(boolString(args[0].(int32) != 0))
		default:
			sb.WriteString(javaString(args[0]))
		}
		return obj, nil
	}
	failf("no library method java/lang/StringBuilder/%s", method)
	return nil, nil
}

func (vm *Machine) printMethod(method string, args []interface{}) (interface{}, error) {
	switch method {
	case "print(Ljava/lang/String;)V":
		vm.out.WriteString(javaString(args[0]))
	case "println()V":
		vm.out.WriteString("\n")
	case "println(Ljava/lang/String;)V":
		vm.out.WriteString(javaString(args[0]) + "\n")
	case "printf(Ljava/lang/String;[Ljava/lang/Object;)Ljava/io/PrintStream;":
		format, ok := args[0].(string)
		if !ok {
			return nil, throw("java/lang/NullPointerException", "printf with a null format")
		}
		var values []interface{}
		if a, ok := args[1].(*Array); ok {
			values = a.Elems
		}
		s, err := Format(format, values)
		if err != nil {
			return nil, err
		}
		vm.out.WriteString(s)
		return printStream{}, nil
	default:
		failf("no library method java/io/PrintStream/%s", method)
	}
	return nil, nil
}

func (vm *Machine) scannerMethod(method string, recv interface{}, args []interface{}) (interface{}, error) {
	obj := recv.(*Object)
	if method == "<init>(Ljava/io/InputStream;)V" {
		obj.native = vm.in
		return nil, nil
	}
	s := obj.native.(*scanner)
	noInput := func() error { return throw("java/util/NoSuchElementException", "no more input") }
	switch method {
	case "next()Ljava/lang/String;":
		tok, ok := s.token()
		if !ok {
			return nil, noInput()
		}
		return tok, nil
	case "nextLine()Ljava/lang/String;":
		line, ok := s.line()
		if !ok {
			return nil, throw("java/util/NoSuchElementException", "No line found")
		}
		return line, nil
	case "nextInt()I":
		tok, ok := s.token()
		if !ok {
			return nil, noInput()
		}
		n, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return nil, throw("java/util/InputMismatchException", "For input string: %q", tok)
		}
		return int32(n), nil
	case "nextFloat()F":
		tok, ok := s.token()
		if !ok {
			return nil, noInput()
		}
		x, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return nil, throw("java/util/InputMismatchException", "For input string: %q", tok)
		}
		return float32(x), nil
	case "nextBoolean()Z":
		tok, ok := s.token()
		if !ok {
			return nil, noInput()
		}
		switch strings.ToLower(tok) {
		case "true":
			return int32(1), nil
		case "false":
			return int32(0), nil
		}
		return nil, throw("java/util/InputMismatchException", "For input string: %q", tok)
	case "hasNext()Z":
		if s.hasNext() {
			return int32(1), nil
		}
		return int32(0), nil
	case "useDelimiter(Ljava/lang/String;)Ljava/util/Scanner;":
		s.chars = args[0] == ""
		return obj, nil
	case "reset()Ljava/util/Scanner;":
		s.chars = false
		return obj, nil
	}
	failf("no library method java/util/Scanner/%s", method)
	return nil, nil
}

func mathMethod(method string, args []interface{}) (interface{}, error) {
	switch method {
	case "abs(I)I":
		n := args[0].(int32)
		if n < 0 {
			n = -n
		}
		return n, nil
	case "abs(F)F":
		return float32(math.Abs(float64(args[0].(float32)))), nil
	case "round(F)I":
		x := float64(args[0].(float32))
		if math.IsNaN(x) {
			return int32(0), nil
		}
		return f2i(math.Floor(x + 0.5)), nil
	}
	fns := map[string]func(float64) float64{
		"sqrt(D)D": math.Sqrt,
		"sin(D)D":  math.Sin,
		"cos(D)D":  math.Cos,
		"exp(D)D":  math.Exp,
		"log(D)D":  math.Log,
		"atan(D)D": math.Atan,
	}
	if fn, ok := fns[method]; ok {
		return fn(args[0].(float64)), nil
	}
	failf("no library method java/lang/Math/%s", method)
	return nil, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// floatString formats like Float.toString.
func floatString(x float32) string {
	f := float64(x)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if a := math.Abs(f); a == 0 || (a >= 1e-3 && a < 1e7) {
		s := strconv.FormatFloat(f, 'f', -1, 32)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(f, 'E', -1, 32)
	mant, exp := s, ""
	if i := strings.IndexByte(s, 'E'); i >= 0 {
		mant, exp = s[:i], s[i+1:]
	}
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	exp = strings.TrimPrefix(exp, "+")
	if strings.HasPrefix(exp, "-") {
		exp = "-" + strings.TrimLeft(exp[1:], "0")
	} else {
		exp = strings.TrimLeft(exp, "0")
	}
	return mant + "E" + exp
}

// javaString returns the result of String.valueOf for a reference value.
func javaString(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case int32:
		return strconv.Itoa(int(v))
	case float32:
		return floatString(v)
	case *box:
		switch v.class {
		case "java/lang/Float":
			return floatString(v.v.(float32))
		case "java/lang/Boolean":
			return boolString(v.v.(int32) != 0)
		case "java/lang/Character":
			return string(rune(v.v.(int32)))
		}
		return javaString(v.v)
	case *Object:
		if sb, ok := v.native.(*strings.Builder); ok {
			return sb.String()
		}
		return strings.Replace(v.Class, "/", ".", -1) + "@0"
	case *Array:
		return v.Desc + "@0"
	}
	return "?"
}
