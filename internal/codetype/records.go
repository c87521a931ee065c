package codetype

import (
	"fmt"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/wire"
)

type record struct {
	base
	r    *Registry
	decl *idl.Record
}

func newRecord(r *Registry, t *idl.Type) CodeType {
	return &record{base: base{t}, r: r, decl: r.ci.Record(t.Name)}
}

func (rc *record) TypeLabel() string { return rc.r.oracle.Class(rc.t.Name) }

func (rc *record) Ffi() FfiType { return FfiRustBuffer }

func (rc *record) Literal(v any) (string, error) { return rc.noLiteral(v) }

func (rc *record) Codec() wire.Codec {
	fields, ok := fieldCodecs(rc.r, rc.decl.Fields)
	if !ok {
		return nil
	}
	return wire.Record(rc.t.Name, fields...)
}

// fieldCodecs builds the reference codecs of a field list; ok is false
// when one of the fields has no reference codec.
func fieldCodecs(r *Registry, fields []*idl.Field) ([]wire.Field, bool) {
	out := make([]wire.Field, 0, len(fields))
	for _, f := range fields {
		c := r.Get(f.Type).Codec()
		if c == nil {
			return nil, false
		}
		out = append(out, wire.Field{Name: f.Name, Codec: c})
	}
	return out, true
}

// fieldNames assigns the Dart name of every field within owner.
func fieldNames(r *Registry, owner string, fields []*idl.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = r.oracle.Member(owner, f.Name)
	}
	return names
}

// constructorParams renders "this.a, this.b, {this.c = 1}": fields without
// a default are positional, the rest optional named.
func constructorParams(r *Registry, fields []*idl.Field, names []string) (string, error) {
	var positional, named []string
	for i, f := range fields {
		if !f.HasDefault {
			positional = append(positional, "this."+names[i])
			continue
		}
		ct := r.Get(f.Type)
		lit, err := ct.Literal(f.Default)
		if err != nil {
			return "", err
		}
		if lit == "null" {
			named = append(named, "this."+names[i])
		} else {
			named = append(named, "this."+names[i]+" = "+lit)
		}
	}
	out := strings.Join(positional, ", ")
	if len(named) > 0 {
		if out != "" {
			out += ", "
		}
		out += "{" + strings.Join(named, ", ") + "}"
	}
	return out, nil
}

// constructorArgs mirrors constructorParams for a call with lifted values.
func constructorArgs(fields []*idl.Field, names, values []string) string {
	args := make([]string, len(fields))
	for i, f := range fields {
		if f.HasDefault {
			args[i] = names[i] + ": " + values[i]
		} else {
			args[i] = values[i]
		}
	}
	return strings.Join(args, ", ")
}

// writeFieldReads emits the reads of fields starting at offset and
// returns the expressions of the lifted values.
func writeFieldReads(b *strings.Builder, r *Registry, fields []*idl.Field, indent string) []string {
	values := make([]string, len(fields))
	for i, f := range fields {
		ct := r.Get(f.Type)
		v := fmt.Sprintf("v%d", i)
		fmt.Fprintf(b, "%sfinal %s = %s;\n", indent, v, ct.Read(view("offset")))
		fmt.Fprintf(b, "%soffset += %s.bytesRead;\n", indent, v)
		values[i] = v + ".value"
	}
	return values
}

// sizeExpr is the allocation size of the fields read from recv.
func sizeExpr(r *Registry, fields []*idl.Field, names []string, recv string) string {
	if len(fields) == 0 {
		return "0"
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = r.Get(f.Type).AllocationSize(recv + names[i])
	}
	return strings.Join(parts, " + ")
}

func (rc *record) Render(b *strings.Builder) error {
	class := rc.TypeLabel()
	names := fieldNames(rc.r, rc.t.Name, rc.decl.Fields)

	writeDocs(b, rc.decl.Docs, "")
	fmt.Fprintf(b, "class %s {\n", class)
	for i, f := range rc.decl.Fields {
		writeDocs(b, f.Docs, "  ")
		fmt.Fprintf(b, "  final %s %s;\n", rc.r.Get(f.Type).TypeLabel(), names[i])
	}
	if len(rc.decl.Fields) > 0 {
		b.WriteString("\n")
	}
	params, err := constructorParams(rc.r, rc.decl.Fields, names)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "  %s(%s);\n", class, params)
	b.WriteString("}\n\n")

	fmt.Fprintf(b, "class %s {\n", rc.ConverterName())
	writeBufferLiftLower(b, class)
	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", class)
	b.WriteString("    int offset = buf.offsetInBytes;\n")
	values := writeFieldReads(b, rc.r, rc.decl.Fields, "    ")
	fmt.Fprintf(b, "    return LiftRetVal(%s(%s), offset - buf.offsetInBytes);\n", class, constructorArgs(rc.decl.Fields, names, values))
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int write(%s value, Uint8List buf) {\n", class)
	b.WriteString("    int offset = buf.offsetInBytes;\n")
	for i, f := range rc.decl.Fields {
		fmt.Fprintf(b, "    offset += %s;\n", rc.r.Get(f.Type).Write("value."+names[i], view("offset")))
	}
	b.WriteString("    return offset - buf.offsetInBytes;\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int allocationSize(%s value) {\n", class)
	if c := rc.Codec(); c != nil {
		if size, ok := c.FixedSize(); ok {
			fmt.Fprintf(b, "    return %d;\n", size)
			b.WriteString("  }\n")
			b.WriteString("}\n\n")
			return nil
		}
	}
	fmt.Fprintf(b, "    return %s;\n", sizeExpr(rc.r, rc.decl.Fields, names, "value."))
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
	return nil
}
