package codetype

import (
	"fmt"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/naming"
	"github.com/funvibe/uniffi-bindgen-dart/internal/wire"
)

// custom wraps a builtin. Without conversion expressions the Dart type is
// a typedef of the builtin's type; with them the configured Dart type is
// used and values are converted on every lift and lower.
type custom struct {
	base
	r       *Registry
	decl    *idl.CustomType
	builtin CodeType
}

func newCustom(r *Registry, t *idl.Type) CodeType {
	decl := r.ci.CustomType(t.Name)
	return &custom{base: base{t}, r: r, decl: decl, builtin: r.Get(decl.Builtin)}
}

func (c *custom) converts() bool { return c.decl.Lift != "" || c.decl.Lower != "" }

func (c *custom) TypeLabel() string {
	if c.converts() {
		return c.decl.TypeName
	}
	return c.r.oracle.Class(c.t.Name)
}

func (c *custom) Ffi() FfiType { return c.builtin.Ffi() }

func (c *custom) Literal(v any) (string, error) {
	if c.converts() {
		return c.noLiteral(v)
	}
	return c.builtin.Literal(v)
}

func (c *custom) Codec() wire.Codec {
	inner := c.builtin.Codec()
	if inner == nil {
		return nil
	}
	return wire.Custom(c.t.Name, inner, nil, nil)
}

// Imports lists the Dart imports the conversion expressions rely on.
func (c *custom) Imports() []string { return c.decl.Imports }

// apply substitutes expr for the {} placeholder of a conversion; an empty
// conversion is the identity.
func apply(conversion, expr string) string {
	if conversion == "" {
		return expr
	}
	return strings.ReplaceAll(conversion, "{}", expr)
}

func (c *custom) Render(b *strings.Builder) error {
	label := c.TypeLabel()
	builtin := c.builtin.TypeLabel()
	native := c.Ffi().Dart

	if !c.converts() {
		fmt.Fprintf(b, "typedef %s = %s;\n\n", label, builtin)
	}

	fmt.Fprintf(b, "class %s {\n", c.ConverterName())
	fmt.Fprintf(b, "  static %s lift(%s value) {\n", label, native)
	fmt.Fprintf(b, "    return %s;\n", apply(c.decl.Lift, c.builtin.Lift("value")))
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static %s lower(%s value) {\n", native, label)
	fmt.Fprintf(b, "    return %s;\n", c.builtin.Lower(apply(c.decl.Lower, "value")))
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", label)
	fmt.Fprintf(b, "    final result = %s;\n", c.builtin.Read("buf"))
	fmt.Fprintf(b, "    return LiftRetVal(%s, result.bytesRead);\n", apply(c.decl.Lift, "result.value"))
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int write(%s value, Uint8List buf) {\n", label)
	fmt.Fprintf(b, "    return %s;\n", c.builtin.Write(apply(c.decl.Lower, "value"), "buf"))
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int allocationSize(%s value) {\n", label)
	fmt.Fprintf(b, "    return %s;\n", c.builtin.AllocationSize(apply(c.decl.Lower, "value")))
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
	return nil
}

// external is a type declared by another crate. Its class and converter
// come from the Dart package generated for that crate.
type external struct {
	base
}

func newExternal(r *Registry, t *idl.Type) CodeType {
	return &external{base{t}}
}

func (e *external) TypeLabel() string { return naming.ClassName(e.t.Name) }

func (e *external) Ffi() FfiType {
	switch e.t.ExternalKind {
	case idl.KindObject:
		return FfiPointer
	case idl.KindCallbackInterface:
		return FfiHandle
	default:
		return FfiRustBuffer
	}
}

func (e *external) Literal(v any) (string, error) { return e.noLiteral(v) }

// Codec is nil: the layout belongs to the home crate.
func (e *external) Codec() wire.Codec { return nil }

func (e *external) Render(*strings.Builder) error { return nil }

// Imports collects the Dart imports needed by reached custom types, in
// first-reached order without repeats.
func (r *Registry) Imports() []string {
	seen := make(map[string]bool)
	var out []string
	for _, ct := range r.order {
		c, ok := ct.(*custom)
		if !ok {
			continue
		}
		for _, imp := range c.Imports() {
			if !seen[imp] {
				seen[imp] = true
				out = append(out, imp)
			}
		}
	}
	return out
}
