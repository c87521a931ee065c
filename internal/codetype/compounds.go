package codetype

import (
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
	"github.com/funvibe/uniffi-bindgen-dart/internal/idl"
	"github.com/funvibe/uniffi-bindgen-dart/internal/wire"
)

type optional struct {
	base
	inner CodeType
}

func newOptional(r *Registry, t *idl.Type) CodeType {
	return &optional{base: base{t}, inner: r.Get(t.Inner)}
}

// TypeLabel collapses nested optionals since Dart has a single level of
// nullability.
func (o *optional) TypeLabel() string {
	inner := o.inner.TypeLabel()
	if strings.HasSuffix(inner, "?") {
		return inner
	}
	return inner + "?"
}

func (o *optional) Ffi() FfiType { return FfiRustBuffer }

func (o *optional) Codec() wire.Codec {
	if c := o.inner.Codec(); c != nil {
		return wire.Optional(c)
	}
	return nil
}

func (o *optional) Literal(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	return o.inner.Literal(v)
}

func (o *optional) Render(b *strings.Builder) error {
	label := o.TypeLabel()
	inner := o.inner
	fmt.Fprintf(b, "class %s {\n", o.ConverterName())
	writeBufferLiftLower(b, label)
	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", label)
	b.WriteString("    if (buf.buffer.asByteData(buf.offsetInBytes).getInt8(0) == 0) {\n")
	b.WriteString("      return LiftRetVal(null, 1);\n")
	b.WriteString("    }\n")
	fmt.Fprintf(b, "    final result = %s;\n", inner.Read(view("buf.offsetInBytes + 1")))
	fmt.Fprintf(b, "    return LiftRetVal<%s>(result.value, result.bytesRead + 1);\n", label)
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int write(%s value, Uint8List buf) {\n", label)
	b.WriteString("    if (value == null) {\n")
	b.WriteString("      buf[0] = 0;\n")
	b.WriteString("      return 1;\n")
	b.WriteString("    }\n")
	b.WriteString("    buf[0] = 1;\n")
	fmt.Fprintf(b, "    return %s + 1;\n", inner.Write("value", view("buf.offsetInBytes + 1")))
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int allocationSize([%s value]) {\n", label)
	b.WriteString("    if (value == null) {\n")
	b.WriteString("      return 1;\n")
	b.WriteString("    }\n")
	fmt.Fprintf(b, "    return %s + 1;\n", inner.AllocationSize("value"))
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
	return nil
}

type sequence struct {
	base
	inner CodeType
}

func newSequence(r *Registry, t *idl.Type) CodeType {
	return &sequence{base: base{t}, inner: r.Get(t.Inner)}
}

func (s *sequence) TypeLabel() string { return "List<" + s.inner.TypeLabel() + ">" }

func (s *sequence) Ffi() FfiType { return FfiRustBuffer }

func (s *sequence) Codec() wire.Codec {
	if c := s.inner.Codec(); c != nil {
		return wire.List(c)
	}
	return nil
}

func (s *sequence) Literal(v any) (string, error) {
	items, ok := v.([]any)
	if !ok {
		return "", errs.New(errs.PhaseRender, errs.KindInvalidDefault).
			Detail("default %v is not a list for %s", v, s.t).Build()
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		lit, err := s.inner.Literal(item)
		if err != nil {
			return "", err
		}
		parts = append(parts, lit)
	}
	return "const <" + s.inner.TypeLabel() + ">[" + strings.Join(parts, ", ") + "]", nil
}

func (s *sequence) Render(b *strings.Builder) error {
	label := s.TypeLabel()
	inner := s.inner
	fmt.Fprintf(b, "class %s {\n", s.ConverterName())
	writeBufferLiftLower(b, label)
	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", label)
	fmt.Fprintf(b, "    final %s res = [];\n", label)
	b.WriteString("    final length = buf.buffer.asByteData(buf.offsetInBytes).getInt32(0);\n")
	b.WriteString("    int offset = buf.offsetInBytes + 4;\n")
	b.WriteString("    for (var i = 0; i < length; i++) {\n")
	fmt.Fprintf(b, "      final ret = %s;\n", inner.Read(view("offset")))
	b.WriteString("      offset += ret.bytesRead;\n")
	b.WriteString("      res.add(ret.value);\n")
	b.WriteString("    }\n")
	b.WriteString("    return LiftRetVal(res, offset - buf.offsetInBytes);\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int write(%s value, Uint8List buf) {\n", label)
	b.WriteString("    buf.buffer.asByteData(buf.offsetInBytes).setInt32(0, value.length);\n")
	b.WriteString("    int offset = buf.offsetInBytes + 4;\n")
	b.WriteString("    for (var i = 0; i < value.length; i++) {\n")
	fmt.Fprintf(b, "      offset += %s;\n", inner.Write("value[i]", view("offset")))
	b.WriteString("    }\n")
	b.WriteString("    return offset - buf.offsetInBytes;\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int allocationSize(%s value) {\n", label)
	if c := inner.Codec(); c != nil {
		if size, ok := c.FixedSize(); ok {
			fmt.Fprintf(b, "    return value.length * %d + 4;\n", size)
			b.WriteString("  }\n")
			b.WriteString("}\n\n")
			return nil
		}
	}
	fmt.Fprintf(b, "    return value.map((l) => %s).fold(0, (a, b) => a + b) + 4;\n", inner.AllocationSize("l"))
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
	return nil
}

type mapType struct {
	base
	key, value CodeType
}

func newMap(r *Registry, t *idl.Type) CodeType {
	return &mapType{base: base{t}, key: r.Get(t.Key), value: r.Get(t.Value)}
}

func (m *mapType) TypeLabel() string {
	return "Map<" + m.key.TypeLabel() + ", " + m.value.TypeLabel() + ">"
}

func (m *mapType) Ffi() FfiType { return FfiRustBuffer }

func (m *mapType) Codec() wire.Codec {
	k, v := m.key.Codec(), m.value.Codec()
	if k == nil || v == nil {
		return nil
	}
	return wire.Map(k, v)
}

// Literal renders map defaults with keys sorted, since the decoded
// description does not preserve their order.
func (m *mapType) Literal(v any) (string, error) {
	entries, ok := v.(map[string]any)
	if !ok {
		return "", errs.New(errs.PhaseRender, errs.KindInvalidDefault).
			Detail("default %v is not a map for %s", v, m.t).Build()
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 && m.key.Type().Kind != idl.KindString {
		return "", errs.New(errs.PhaseRender, errs.KindInvalidDefault).
			Detail("map defaults need string keys, %s has %s keys", m.t, m.key.Type()).Build()
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		kl, err := m.key.Literal(k)
		if err != nil {
			return "", err
		}
		vl, err := m.value.Literal(entries[k])
		if err != nil {
			return "", err
		}
		parts = append(parts, kl+": "+vl)
	}
	return "const <" + m.key.TypeLabel() + ", " + m.value.TypeLabel() + ">{" + strings.Join(parts, ", ") + "}", nil
}

func (m *mapType) Render(b *strings.Builder) error {
	label := m.TypeLabel()
	fmt.Fprintf(b, "class %s {\n", m.ConverterName())
	writeBufferLiftLower(b, label)
	fmt.Fprintf(b, "  static LiftRetVal<%s> read(Uint8List buf) {\n", label)
	fmt.Fprintf(b, "    final res = <%s, %s>{};\n", m.key.TypeLabel(), m.value.TypeLabel())
	b.WriteString("    final length = buf.buffer.asByteData(buf.offsetInBytes).getInt32(0);\n")
	b.WriteString("    int offset = buf.offsetInBytes + 4;\n")
	b.WriteString("    for (var i = 0; i < length; i++) {\n")
	fmt.Fprintf(b, "      final k = %s;\n", m.key.Read(view("offset")))
	b.WriteString("      offset += k.bytesRead;\n")
	fmt.Fprintf(b, "      final v = %s;\n", m.value.Read(view("offset")))
	b.WriteString("      offset += v.bytesRead;\n")
	b.WriteString("      res[k.value] = v.value;\n")
	b.WriteString("    }\n")
	b.WriteString("    return LiftRetVal(res, offset - buf.offsetInBytes);\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int write(%s value, Uint8List buf) {\n", label)
	b.WriteString("    buf.buffer.asByteData(buf.offsetInBytes).setInt32(0, value.length);\n")
	b.WriteString("    int offset = buf.offsetInBytes + 4;\n")
	b.WriteString("    for (final entry in value.entries) {\n")
	fmt.Fprintf(b, "      offset += %s;\n", m.key.Write("entry.key", view("offset")))
	fmt.Fprintf(b, "      offset += %s;\n", m.value.Write("entry.value", view("offset")))
	b.WriteString("    }\n")
	b.WriteString("    return offset - buf.offsetInBytes;\n")
	b.WriteString("  }\n\n")
	fmt.Fprintf(b, "  static int allocationSize(%s value) {\n", label)
	fmt.Fprintf(b, "    return value.entries.map((e) => %s + %s).fold(4, (a, b) => a + b);\n",
		m.key.AllocationSize("e.key"), m.value.AllocationSize("e.value"))
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
	return nil
}
