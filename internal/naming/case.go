// Package naming converts declared identifiers into Dart identifiers.
//
// The free functions are pure case conversions. An Oracle adds the
// per-scope bookkeeping that keeps generated names unique.
package naming

import (
	"strings"
	"unicode"
)

// words splits an identifier into lower-cased words. Separators are any
// non-alphanumeric rune, a lower-to-upper transition, and the last capital
// of an acronym followed by a lower-case letter (HTTPServer -> http server).
func words(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

func title(w string) string {
	if w == "" {
		return w
	}
	rs := []rune(w)
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

// UpperCamel converts s to UpperCamelCase: proc_macro_pure -> ProcMacroPure.
func UpperCamel(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(title(w))
	}
	return b.String()
}

// LowerCamel converts s to lowerCamelCase: get_value -> getValue.
func LowerCamel(s string) string {
	var b strings.Builder
	for i, w := range words(s) {
		if i == 0 {
			b.WriteString(w)
		} else {
			b.WriteString(title(w))
		}
	}
	return b.String()
}

// Snake converts s to lower snake_case.
func Snake(s string) string {
	return strings.Join(words(s), "_")
}

// ClassName is the Dart name of a declared type.
func ClassName(s string) string {
	return Escape(UpperCamel(s))
}

// FunctionName is the Dart name of a function or method.
func FunctionName(s string) string {
	return Escape(LowerCamel(s))
}

// VarName is the Dart name of a parameter, field or enum variant.
func VarName(s string) string {
	return Escape(LowerCamel(s))
}

// Escape makes name a legal, public Dart identifier. Reserved words get a
// trailing underscore; names starting with a digit get a leading "v".
func Escape(name string) string {
	if name == "" {
		return "_"
	}
	if unicode.IsDigit([]rune(name)[0]) {
		name = "v" + name
	}
	if reserved[name] {
		return name + "_"
	}
	return name
}

// reserved holds the Dart keywords and built-in identifiers that cannot be
// used as plain identifiers in generated code.
var reserved = map[string]bool{
	"abstract": true, "as": true, "assert": true, "async": true, "await": true,
	"base": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "covariant": true, "default": true,
	"deferred": true, "do": true, "dynamic": true, "else": true, "enum": true,
	"export": true, "extends": true, "extension": true, "external": true,
	"factory": true, "false": true, "final": true, "finally": true, "for": true,
	"Function": true, "get": true, "hide": true, "if": true, "implements": true,
	"import": true, "in": true, "interface": true, "is": true, "late": true,
	"library": true, "mixin": true, "new": true, "null": true, "of": true,
	"on": true, "operator": true, "part": true, "required": true,
	"rethrow": true, "return": true, "sealed": true, "set": true, "show": true,
	"static": true, "super": true, "switch": true, "sync": true, "this": true,
	"throw": true, "true": true, "try": true, "type": true, "typedef": true,
	"var": true, "void": true, "when": true, "while": true, "with": true,
	"yield": true,
}

// IsReserved reports whether name is a Dart reserved word.
func IsReserved(name string) bool {
	return reserved[name]
}
