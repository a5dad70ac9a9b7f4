package params

import (
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

// DefaultReserved holds Go keywords and predeclared identifiers.
var DefaultReserved = []string{
	"break", "case", "chan", "const", "continue", "default", "defer", "else",
	"fallthrough", "for", "func", "go", "goto", "if", "import", "interface", "map",
	"package", "range", "return", "select", "struct", "switch", "type", "var",

	"any", "bool", "byte", "comparable", "complex64", "complex128", "error",
	"float32", "float64", "int", "int8", "int16", "int32", "int64", "rune", "string",
	"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
	"true", "false", "iota", "nil",
	"append", "cap", "clear", "close", "complex", "copy", "delete", "imag", "len",
	"make", "max", "min", "new", "panic", "print", "println", "real", "recover",
}

const conflictSuffix = "_"

// ReservedSet merges DefaultReserved with extra words.
func ReservedSet(extra ...string) map[string]bool {
	set := make(map[string]bool, len(DefaultReserved)+len(extra))
	for _, w := range DefaultReserved {
		set[w] = true
	}
	for _, w := range extra {
		set[strings.ToLower(w)] = true
	}
	return set
}

// unspecial replaces anything that cannot appear in an identifier with '_'.
func unspecial(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, s)
}

// Identifier converts a dotted name to snake case, appending "_" on a reserved hit.
func Identifier(name string, reserved map[string]bool) string {
	id := strings.Trim(strcase.ToSnake(unspecial(name)), "_")
	for strings.Contains(id, "__") {
		id = strings.ReplaceAll(id, "__", "_")
	}
	if id == "" {
		id = "value"
	}
	if unicode.IsDigit(rune(id[0])) {
		id = "_" + id
	}
	if reserved[id] {
		id += conflictSuffix
	}
	return id
}

// FlagName is the kebab-case flag for a dotted name: "home.zipCode" -> "home-zip-code".
func FlagName(name string) string {
	return strings.Trim(strcase.ToKebab(unspecial(name)), "-")
}

// TypeName is the UpperCamelCase type name for s.
func TypeName(s string) string {
	return strcase.ToCamel(unspecial(s))
}
