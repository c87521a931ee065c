package idl

import (
	"fmt"
	"strings"
)

// Kind categorizes a type reference for code generation.
type Kind int

const (
	KindBool Kind = iota
	KindInt8
	KindUInt8
	KindInt16
	KindUInt16
	KindInt32
	KindUInt32
	KindInt64
	KindUInt64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindTimestamp
	KindDuration
	KindOptional
	KindSequence
	KindMap
	KindRecord
	KindEnum
	KindObject
	KindCallbackInterface
	KindCustom
	KindExternal
)

var kindNames = [...]string{
	KindBool:              "bool",
	KindInt8:              "i8",
	KindUInt8:             "u8",
	KindInt16:             "i16",
	KindUInt16:            "u16",
	KindInt32:             "i32",
	KindUInt32:            "u32",
	KindInt64:             "i64",
	KindUInt64:            "u64",
	KindFloat32:           "f32",
	KindFloat64:           "f64",
	KindString:            "string",
	KindBytes:             "bytes",
	KindTimestamp:         "timestamp",
	KindDuration:          "duration",
	KindOptional:          "optional",
	KindSequence:          "sequence",
	KindMap:               "map",
	KindRecord:            "record",
	KindEnum:              "enum",
	KindObject:            "object",
	KindCallbackInterface: "callback_interface",
	KindCustom:            "custom",
	KindExternal:          "external",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsBuiltin reports whether k is a primitive with no declaration behind it.
func (k Kind) IsBuiltin() bool {
	return k <= KindDuration
}

// IsNamed reports whether k refers to a declaration by name.
func (k Kind) IsNamed() bool {
	return k >= KindRecord
}

// builtinKinds maps the textual spelling of builtins in the dump.
var builtinKinds = map[string]Kind{
	"bool":      KindBool,
	"i8":        KindInt8,
	"u8":        KindUInt8,
	"i16":       KindInt16,
	"u16":       KindUInt16,
	"i32":       KindInt32,
	"u32":       KindUInt32,
	"i64":       KindInt64,
	"u64":       KindUInt64,
	"f32":       KindFloat32,
	"f64":       KindFloat64,
	"string":    KindString,
	"bytes":     KindBytes,
	"timestamp": KindTimestamp,
	"duration":  KindDuration,
}

// Type is a resolved type reference. Types are immutable once resolved.
type Type struct {
	Kind Kind

	// Name is the declared name for named kinds.
	Name string

	// Crate is the home crate of an external type.
	Crate string

	// ExternalKind is the declaration kind of an external type in its home crate.
	ExternalKind Kind

	// Inner is the element type of optional and sequence.
	Inner *Type

	// Key and Value are set for map.
	Key   *Type
	Value *Type
}

// Builtin returns the type for a builtin kind.
func Builtin(k Kind) *Type {
	return &Type{Kind: k}
}

// CanonicalName is a unique, identifier-safe name for the type. Two types
// are the same type iff their canonical names are equal.
func (t *Type) CanonicalName() string {
	switch t.Kind {
	case KindBool:
		return "Bool"
	case KindInt8:
		return "Int8"
	case KindUInt8:
		return "UInt8"
	case KindInt16:
		return "Int16"
	case KindUInt16:
		return "UInt16"
	case KindInt32:
		return "Int32"
	case KindUInt32:
		return "UInt32"
	case KindInt64:
		return "Int64"
	case KindUInt64:
		return "UInt64"
	case KindFloat32:
		return "Float"
	case KindFloat64:
		return "Double"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindTimestamp:
		return "Timestamp"
	case KindDuration:
		return "Duration"
	case KindOptional:
		return "Optional" + t.Inner.CanonicalName()
	case KindSequence:
		return "Sequence" + t.Inner.CanonicalName()
	case KindMap:
		return "Map" + t.Key.CanonicalName() + t.Value.CanonicalName()
	case KindCallbackInterface:
		return "CallbackInterface" + t.Name
	default:
		return "Type" + t.Name
	}
}

// String renders the type in the dump's textual syntax.
func (t *Type) String() string {
	switch t.Kind {
	case KindOptional:
		return "optional<" + t.Inner.String() + ">"
	case KindSequence:
		return "sequence<" + t.Inner.String() + ">"
	case KindMap:
		return "map<" + t.Key.String() + ", " + t.Value.String() + ">"
	default:
		if t.Kind.IsNamed() {
			return t.Name
		}
		return t.Kind.String()
	}
}

// Walk calls fn for t and every type nested in it, outermost first.
func (t *Type) Walk(fn func(*Type)) {
	fn(t)
	switch t.Kind {
	case KindOptional, KindSequence:
		t.Inner.Walk(fn)
	case KindMap:
		t.Key.Walk(fn)
		t.Value.Walk(fn)
	}
}

// ParseType parses a textual type reference. Named references are
// resolved through lookup; an unknown name is an error.
func ParseType(s string, lookup func(name string) (*Type, bool)) (*Type, error) {
	p := &typeParser{src: s, lookup: lookup}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q in type %q", p.src[p.pos:], s)
	}
	return t, nil
}

type typeParser struct {
	src    string
	pos    int
	lookup func(string) (*Type, bool)
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c == ':' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *typeParser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return fmt.Errorf("expected %q in type %q", c, p.src)
	}
	p.pos++
	return nil
}

func (p *typeParser) parse() (*Type, error) {
	name := p.ident()
	if name == "" {
		return nil, fmt.Errorf("empty type reference in %q", p.src)
	}

	var t *Type
	switch strings.ToLower(name) {
	case "optional", "sequence":
		if err := p.expect('<'); err != nil {
			return nil, err
		}
		inner, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
		kind := KindOptional
		if strings.ToLower(name) == "sequence" {
			kind = KindSequence
		}
		t = &Type{Kind: kind, Inner: inner}
	case "map", "record":
		if err := p.expect('<'); err != nil {
			// a declaration may legitimately be called Record
			if k, ok := p.named(name); ok {
				t = k
				break
			}
			return nil, err
		}
		key, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
		value, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
		t = &Type{Kind: KindMap, Key: key, Value: value}
	default:
		if k, ok := builtinKinds[name]; ok {
			t = Builtin(k)
		} else if named, ok := p.named(name); ok {
			t = named
		} else {
			return nil, &unresolvedError{ref: name}
		}
	}

	p.skipSpace()
	for p.pos < len(p.src) && p.src[p.pos] == '?' {
		p.pos++
		t = &Type{Kind: KindOptional, Inner: t}
		p.skipSpace()
	}
	return t, nil
}

func (p *typeParser) named(name string) (*Type, bool) {
	if p.lookup == nil {
		return nil, false
	}
	return p.lookup(name)
}

// unresolvedError marks a reference to an undeclared name.
type unresolvedError struct {
	ref string
}

func (e *unresolvedError) Error() string {
	return fmt.Sprintf("unknown type %q", e.ref)
}
