package codetype

import (
	"fmt"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/naming"
	"github.com/funvibe/uniffi-bindgen-dart/internal/wire"
)

// enum renders flat enums as a Dart enum and everything else, including
// every error enum, as a sealed class hierarchy.
type enum struct {
	base
	r    *Registry
	decl *idl.Enum
}

func newEnum(r *Registry, t *idl.Type) CodeType {
	return &enum{base: base{t}, r: r, decl: r.ci.Enum(t.Name)}
}

func (e *enum) TypeLabel() string { return e.r.oracle.Class(e.t.Name) }

func (e *enum) Ffi() FfiType { return FfiRustBuffer }

func (e *enum) isError() bool { return e.r.ci.IsError(e.t.Name) }

func (e *enum) sealed() bool { return e.isError() || !e.decl.IsFlat() }

func (e *enum) variantName(v *idl.Variant) string {
	return e.r.oracle.Variant(e.t.Name, v.Name)
}

func (e *enum) variantClass(v *idl.Variant) string {
	return e.r.oracle.VariantClass(e.t.Name, v.Name)
}

func (e *enum) Codec() wire.Codec {
	cases := make([]wire.VariantCase, 0, len(e.decl.Variants))
	for _, v := range e.decl.Variants {
		fields, ok := fieldCodecs(e.r, v.Fields)
		if !ok {
			return nil
		}
		cases = append(cases, wire.VariantCase{Name: v.Name, Fields: fields})
	}
	return wire.Enum(e.t.Name, cases...)
}

// Literal accepts the declared name of a variant of a flat enum.
func (e *enum) Literal(v any) (string, error) {
	name, ok := v.(string)
	if !ok || e.sealed() {
		return e.noLiteral(v)
	}
	for _, variant := range e.decl.Variants {
		if variant.Name == name || naming.LowerCamel(variant.Name) == naming.LowerCamel(name) {
			return e.TypeLabel() + "." + e.variantName(variant), nil
		}
	}
	return "", errs.New(errs.PhaseRender, errs.KindInvalidDefault).
		Detail("%q is not a variant of %s", name, e.t.Name).Build()
}

func (e *enum) Render(b *strings.Builder) error {
	if e.sealed() {
		return e.renderSealed(b)
	}
	e.renderFlat(b)
	return nil
}

func (e *enum) renderFlat(b *strings.Builder) {
	class := e.TypeLabel()
	writeDocs(b, e.decl.Docs, "")
	fmt.Fprintf(b, "enum %s {\n", class)
	for _, v := range e.decl.Variants {
		writeDocs(b, v.Docs, "  ")
		fmt.Fprintf(b, "  %s,\n", e.variantName(v))
	}
	b.WriteString("}\n\n")

	fmt.Fprintf(b, "class %s {\n", e.ConverterName())
	fmt.Fprintf(b, "  static %s lift(RustBuffer buffer) {\n", class)
	b.WriteString("    return liftFromRustBuffer(buffer, read);\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static RustBuffer lower(%s value) {\n", class)
	b.WriteString("    return toRustBuffer(createUint8ListFromInt(value.index + 1));\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", class)
	b.WriteString("    final index = buf.buffer.asByteData(buf.offsetInBytes).getInt32(0);\n")
	b.WriteString("    switch (index) {\n")
	for i, v := range e.decl.Variants {
		fmt.Fprintf(b, "      case %d:\n", i+1)
		fmt.Fprintf(b, "        return LiftRetVal(%s.%s, 4);\n", class, e.variantName(v))
	}
	b.WriteString("      default:\n")
	b.WriteString("        throw UniffiInternalError(UniffiInternalError.unexpectedEnumCase, \"Unable to determine enum variant\");\n")
	b.WriteString("    }\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int write(%s value, Uint8List buf) {\n", class)
	b.WriteString("    buf.buffer.asByteData(buf.offsetInBytes).setInt32(0, value.index + 1);\n")
	b.WriteString("    return 4;\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int allocationSize(%s value) {\n", class)
	b.WriteString("    return 4;\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
}

func (e *enum) renderSealed(b *strings.Builder) error {
	class := e.TypeLabel()
	implements := ""
	if e.isError() {
		implements = " implements Exception"
	}

	writeDocs(b, e.decl.Docs, "")
	fmt.Fprintf(b, "sealed class %s%s {\n", class, implements)
	fmt.Fprintf(b, "  %s();\n\n", class)
	b.WriteString("  int allocationSize();\n\n")
	b.WriteString("  int write(Uint8List buf);\n")
	b.WriteString("}\n\n")

	for i, v := range e.decl.Variants {
		if err := e.renderVariant(b, i, v); err != nil {
			return err
		}
	}

	fmt.Fprintf(b, "class %s {\n", e.ConverterName())
	writeBufferLiftLower(b, class)
	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", class)
	b.WriteString("    final index = buf.buffer.asByteData(buf.offsetInBytes).getInt32(0);\n")
	b.WriteString("    switch (index) {\n")
	for i, v := range e.decl.Variants {
		fmt.Fprintf(b, "      case %d:\n", i+1)
		fmt.Fprintf(b, "        return %s.read(buf);\n", e.variantClass(v))
	}
	b.WriteString("      default:\n")
	b.WriteString("        throw UniffiInternalError(UniffiInternalError.unexpectedEnumCase, \"Unable to determine enum variant\");\n")
	b.WriteString("    }\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int write(%s value, Uint8List buf) {\n", class)
	b.WriteString("    return value.write(buf);\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int allocationSize(%s value) {\n", class)
	b.WriteString("    return value.allocationSize();\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")

	if e.isError() {
		e.r.writeErrorHandler(b, e.t, e.ConverterName())
	}
	return nil
}

func (e *enum) renderVariant(b *strings.Builder, index int, v *idl.Variant) error {
	class := e.variantClass(v)
	owner := e.t.Name + "." + v.Name
	e.r.oracle.Reserve(owner, "read", "write", "allocationSize")
	names := fieldNames(e.r, owner, v.Fields)

	writeDocs(b, v.Docs, "")
	fmt.Fprintf(b, "class %s extends %s {\n", class, e.TypeLabel())
	for i, f := range v.Fields {
		writeDocs(b, f.Docs, "  ")
		fmt.Fprintf(b, "  final %s %s;\n", e.r.Get(f.Type).TypeLabel(), names[i])
	}
	if len(v.Fields) > 0 {
		b.WriteString("\n")
	}
	params, err := constructorParams(e.r, v.Fields, names)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "  %s(%s);\n\n", class, params)

	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", class)
	b.WriteString("    int offset = buf.offsetInBytes + 4;\n")
	values := writeFieldReads(b, e.r, v.Fields, "    ")
	fmt.Fprintf(b, "    return LiftRetVal(%s(%s), offset - buf.offsetInBytes);\n", class, constructorArgs(v.Fields, names, values))
	b.WriteString("  }\n\n")

	b.WriteString("  @override\n")
	b.WriteString("  int allocationSize() {\n")
	fmt.Fprintf(b, "    return 4 + %s;\n", sizeExpr(e.r, v.Fields, names, "this."))
	b.WriteString("  }\n\n")

	b.WriteString("  @override\n")
	b.WriteString("  int write(Uint8List buf) {\n")
	fmt.Fprintf(b, "    buf.buffer.asByteData(buf.offsetInBytes).setInt32(0, %d);\n", index+1)
	b.WriteString("    int offset = buf.offsetInBytes + 4;\n")
	// Fields go through this. so that a field named offset or buf is not
	// shadowed by the locals of write.
	for i, f := range v.Fields {
		fmt.Fprintf(b, "    offset += %s;\n", e.r.Get(f.Type).Write("this."+names[i], view("offset")))
	}
	b.WriteString("    return offset - buf.offsetInBytes;\n")
	b.WriteString("  }\n")

	if e.isError() {
		b.WriteString("\n  @override\n")
		b.WriteString("  String toString() {\n")
		if len(v.Fields) == 0 {
			fmt.Fprintf(b, "    return %s;\n", DartString(e.t.Name+"."+v.Name))
		} else {
			parts := make([]string, len(v.Fields))
			for i := range v.Fields {
				parts[i] = names[i] + ": $" + names[i]
			}
			fmt.Fprintf(b, "    return \"%s.%s(%s)\";\n", e.t.Name, v.Name, strings.Join(parts, ", "))
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n\n")
	return nil
}
