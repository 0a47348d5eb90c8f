package pjg

// Directive is a Jasmin structural directive.
type Directive uint8

const (
	CLASS_PUBLIC Directive = iota
	SUPER
	IMPLEMENTS
	FIELD
	FIELD_PRIVATE_STATIC
	METHOD_PUBLIC
	METHOD_STATIC
	METHOD_PUBLIC_STATIC
	METHOD_PRIVATE_STATIC
	END_METHOD
	LIMIT_LOCALS
	LIMIT_STACK
	VAR
	LINE
)

var directiveNames = [...]string{
	CLASS_PUBLIC:          ".class public",
	SUPER:                 ".super",
	IMPLEMENTS:            ".implements",
	FIELD:                 ".field",
	FIELD_PRIVATE_STATIC:  ".field private static",
	METHOD_PUBLIC:         ".method public",
	METHOD_STATIC:         ".method static",
	METHOD_PUBLIC_STATIC:  ".method public static",
	METHOD_PRIVATE_STATIC: ".method private static",
	END_METHOD:            ".end method",
	LIMIT_LOCALS:          ".limit locals",
	LIMIT_STACK:           ".limit stack",
	VAR:                   ".var",
	LINE:                  ".line",
}

func (d Directive) String() string {
	if int(d) < len(directiveNames) {
		return directiveNames[d]
	}
	return ".unknown"
}
