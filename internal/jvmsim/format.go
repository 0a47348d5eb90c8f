package jvmsim

import (
	"strconv"
	"strings"
	"unicode"
)

// Format formats like java.util.Formatter for the conversions %d, %f, %b,
// %c, %s, %n and %% with optional '-' flag, width and precision.
func Format(format string, args []interface{}) (string, error) {
	var sb strings.Builder
	next := 0
	arg := func() (interface{}, error) {
		if next >= len(args) {
			return nil, throw("java/util/MissingFormatArgumentException", "Format specifier '%s'", format)
		}
		v := args[next]
		next++
		return v, nil
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		i++
		left := false
		if i < len(format) && format[i] == '-' {
			left = true
			i++
		}
		width := 0
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			width = width*10 + int(format[i]-'0')
			i++
		}
		prec := -1
		if i < len(format) && format[i] == '.' {
			i++
			prec = 0
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				prec = prec*10 + int(format[i]-'0')
				i++
			}
		}
		if i >= len(format) {
			return "", throw("java/util/UnknownFormatConversionException", "Conversion = '%%'")
		}
		var s string
		switch conv := format[i]; conv {
		case '%':
			s = "%"
		case 'n':
			s = "\n"
		case 'd', 'f', 'b', 'c', 's':
			v, err := arg()
			if err != nil {
				return "", err
			}
			s, err = convert(conv, v, prec)
			if err != nil {
				return "", err
			}
		default:
			return "", throw("java/util/UnknownFormatConversionException", "Conversion = '%c'", conv)
		}
		if pad := width - len([]rune(s)); pad > 0 {
			if left {
				s += strings.Repeat(" ", pad)
			} else {
				s = strings.Repeat(" ", pad) + s
			}
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

func convert(conv byte, v interface{}, prec int) (string, error) {
	if b, ok := v.(*box); ok {
		switch conv {
		case 'b', 's':
			v = b
		default:
			v = b.v
		}
	}
	mismatch := func() error {
		return throw("java/util/IllegalFormatConversionException", "%c != %T", conv, v)
	}
	var s string
	switch conv {
	case 'd':
		n, ok := v.(int32)
		if !ok {
			return "", mismatch()
		}
		s = strconv.Itoa(int(n))
	case 'f':
		x, ok := v.(float32)
		if !ok {
			return "", mismatch()
		}
		if prec < 0 {
			prec = 6
		}
		s = strconv.FormatFloat(float64(x), 'f', prec, 64)
		prec = -1
	case 'b':
		switch v := v.(type) {
		case nil:
			s = "false"
		case *box:
			if v.class == "java/lang/Boolean" {
				s = boolString(v.v.(int32) != 0)
			} else {
				s = "true"
			}
		default:
			s = "true"
		}
	case 'c':
		r, ok := v.(int32)
		if !ok {
			return "", mismatch()
		}
		if !unicode.IsPrint(rune(r)) && !unicode.IsSpace(rune(r)) && r != 0 {
			return "", throw("java/util/IllegalFormatCodePointException", "Code point = 0x%x", r)
		}
		s = string(rune(r))
	case 's':
		s = javaString(v)
	}
	if prec >= 0 {
		if r := []rune(s); len(r) > prec {
			s = string(r[:prec])
		}
	}
	return s, nil
}
